// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 64
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameTooLong = errors.New("username too long")
)

// UserID is the opaque identifier the signaling server routes by.
type UserID string

type User struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// NewUser validates identity supplied by the embedding application.
// An empty name falls back to the id.
func NewUser(id, name string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	u := &User{ID: UserID(id)}
	if err := u.SetName(name); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	if name == "" {
		name = string(u.ID)
	}
	u.Name = name
	return nil
}

// IsZero reports whether u carries no identity.
func (u User) IsZero() bool { return u.ID == "" }
