package services

import (
	"time"

	"nexus-chat/auth"
	"nexus-chat/domain"
)

// Profile is the whois projection of a user.
type Profile struct {
	User   string
	Bio    string
	Joined time.Time
	Online bool
	Room   string
}

// RegisterUser creates an account. The password is hashed before the
// lock is taken; Argon2id is deliberately expensive.
func (s *ChatService) RegisterUser(username, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.snap.Users[username]; taken {
		return domain.ErrUsernameTaken
	}
	s.snap.Users[username] = &domain.User{
		Name:         username,
		PasswordHash: hash,
		Joined:       time.Now().UTC(),
	}
	return s.flushLocked()
}

// Authenticate checks a login against the stored credential. It mutates
// nothing; Connect marks the session online afterwards.
func (s *ChatService) Authenticate(username, password string) error {
	s.mu.RLock()
	user, ok := s.snap.Users[username]
	s.mu.RUnlock()

	// A generic failure for unknown user and wrong password alike,
	// to prevent account enumeration.
	if !ok {
		return domain.ErrInvalidCredentials
	}
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// SetBio updates the caller's bio, effective immediately for whois.
func (s *ChatService) SetBio(username, bio string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.snap.Users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Bio = bio
	return s.flushLocked()
}

// LookupUser returns a user's profile whether or not they are online.
func (s *ChatService) LookupUser(username string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.snap.Users[username]
	if !ok {
		return Profile{}, domain.ErrUserNotFound
	}
	room, online := s.where[username]
	return Profile{
		User:   user.Name,
		Bio:    user.Bio,
		Joined: user.Joined,
		Online: online,
		Room:   room,
	}, nil
}
