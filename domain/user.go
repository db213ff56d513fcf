package domain

import "time"

// User is an account record. The username is the unique, case-sensitive key.
// PasswordHash holds an encoded Argon2id credential, never a clear password.
// Users are created on registration and never deleted.
type User struct {
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Bio          string    `json:"bio"`
	Joined       time.Time `json:"joined"`
}
