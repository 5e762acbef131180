package auth

import (
	"context"
	"errors"
	"testing"

	"Prizefight/internal/remote"
)

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	svc := NewService(store)

	userID, err := svc.SignUp(ctx, "user@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if userID == "" {
		t.Fatal("expected opaque user id")
	}

	// Sign-up seeds the remote ledger record.
	rec, err := store.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("user record not seeded: %v", err)
	}
	if rec.TotalOpc != 0 || rec.CurrentStreak != 0 {
		t.Errorf("seeded record = %+v, want zero defaults", rec)
	}

	got, err := svc.SignIn(ctx, "user@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got != userID {
		t.Errorf("SignIn returned %s, want %s", got, userID)
	}
}

func TestSignIn_CaseInsensitiveEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewService(remote.NewMemoryStore())

	userID, err := svc.SignUp(ctx, "User@Example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	got, err := svc.SignIn(ctx, "user@example.com", "hunter22")
	if err != nil || got != userID {
		t.Errorf("SignIn = (%s, %v), want (%s, nil)", got, err, userID)
	}
}

func TestFailureCategories(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	svc := NewService(store)

	if _, err := svc.SignUp(ctx, "nodomain", "hunter22"); !errors.Is(err, ErrMalformedEmail) {
		t.Errorf("malformed email: got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@b.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password: got %v", err)
	}

	if _, err := svc.SignUp(ctx, "a@b.com", "hunter22"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@b.com", "hunter23"); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("duplicate email: got %v", err)
	}

	if _, err := svc.SignIn(ctx, "a@b.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.SignIn(ctx, "unknown@b.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}

	store.FailAll = true
	if _, err := svc.SignIn(ctx, "a@b.com", "hunter22"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("store down: got %v", err)
	}
}
