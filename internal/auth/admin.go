package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is the single configured operator account. The password is
// hashed once at construction; the plaintext is not retained.
type Admin struct {
	user string
	hash []byte
}

func NewAdmin(user, password string) (*Admin, error) {
	user = strings.TrimSpace(user)
	password = strings.TrimSpace(password)
	if user == "" || password == "" {
		return nil, errors.New("admin user and password required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &Admin{user: user, hash: hash}, nil
}

func (a *Admin) Verify(user, password string) error {
	if strings.TrimSpace(user) != a.user {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(strings.TrimSpace(password))); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (a *Admin) User() string { return a.user }
