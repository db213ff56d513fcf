package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_ProducesVerifiableHash(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Sup3rSecret!")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")
	req.NotContains(hash, "Sup3rSecret!")

	match, err := ComparePassword("Sup3rSecret!", hash)
	req.NoError(err)
	req.True(match)
}

func TestComparePassword_WrongPassword(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("correct-horse")
	req.NoError(err)

	match, err := ComparePassword("battery-staple", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_MalformedHash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("anything", "not-an-encoded-hash")
	req.Error(err)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("same-password")
	req.NoError(err)
	second, err := HashPassword("same-password")
	req.NoError(err)

	// Random salt means two hashes of the same password never collide.
	req.NotEqual(first, second)
}
