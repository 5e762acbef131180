// Package auth is the opaque authentication collaborator: it yields an
// opaque user identifier and maps failures to a small set of coarse
// categories. Credential storage rides on the remote store; no
// authentication protocol is designed here.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"Prizefight/internal/model"
	"Prizefight/internal/remote"
)

// Coarse failure categories surfaced to the caller. Anything else maps
// to a generic retryable error.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMalformedEmail     = errors.New("malformed email address")
	ErrUnavailable        = errors.New("sign-in unavailable, try again")
)

const minPasswordLen = 6

// Service authenticates against credential records in the remote store.
type Service struct {
	store remote.Store
}

func NewService(store remote.Store) *Service {
	return &Service{store: store}
}

// SignUp registers a new user and seeds the remote ledger record with
// first-run defaults. Returns the opaque user id.
func (s *Service) SignUp(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate(email, password); err != nil {
		return "", err
	}

	userID := uuid.New().String()
	err := s.store.CreateCredentials(ctx, remote.Credentials{
		UserID:       userID,
		Email:        email,
		PasswordHash: hash(email, password),
	})
	if errors.Is(err, remote.ErrEmailInUse) {
		return "", ErrEmailInUse
	}
	if err != nil {
		log.Printf("[WARN] sign-up failed: %v", err)
		return "", ErrUnavailable
	}

	// Seed the durable ledger record with defaults.
	err = s.store.PutUser(ctx, &remote.UserRecord{
		UserID:      userID,
		Email:       email,
		SavedBudget: model.DefaultBudget,
	})
	if err != nil {
		log.Printf("[WARN] seed user record after sign-up: %v", err)
	}

	log.Printf("[INFO] signed up user %s", userID)
	return userID, nil
}

// SignIn verifies credentials and returns the opaque user id.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate(email, password); err != nil {
		return "", err
	}

	creds, err := s.store.GetCredentials(ctx, email)
	if errors.Is(err, remote.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		log.Printf("[WARN] sign-in failed: %v", err)
		return "", ErrUnavailable
	}
	if creds.PasswordHash != hash(email, password) {
		return "", ErrInvalidCredentials
	}

	log.Printf("[INFO] signed in user %s", creds.UserID)
	return creds.UserID, nil
}

func validate(email, password string) error {
	at := strings.Index(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") {
		return ErrMalformedEmail
	}
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

func hash(email, password string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s", email, password))
	return hex.EncodeToString(sum[:])
}
