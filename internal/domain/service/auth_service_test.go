package service

import (
	"context"
	"errors"
	"testing"

	"decktracker/internal/domain/model"
)

func newTestAuthService(users *fakeUserStore) *AuthService {
	return NewAuthService(users, "test-secret", testLogger())
}

const strongPassword = "Sw0rdfish!"

func TestRegisterLoginVerifyRoundTrip(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	token, err := svc.Register(ctx, " Alex@Example.com ", strongPassword, "#P1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if token == "" {
		t.Fatal("register must return a token")
	}

	// Email is normalized before storage, so login is case-insensitive.
	loginToken, err := svc.Login(ctx, "alex@example.com", strongPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	email, err := svc.Verify(ctx, loginToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if email != "alex@example.com" {
		t.Errorf("principal = %q, want alex@example.com", email)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alex@example.com", strongPassword, ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "alex@example.com", strongPassword, ""); !errors.Is(err, model.ErrValidation) {
		t.Errorf("duplicate email should fail validation, got %v", err)
	}
}

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	svc := newTestAuthService(newFakeUserStore())
	ctx := context.Background()

	weak := []string{
		"short1!",      // too short
		"alllowercase1!", // no upper
		"ALLUPPERCASE1!", // no lower
		"NoDigitsHere!",  // no digit
		"NoSpecial123",   // no special
	}
	for _, password := range weak {
		if _, err := svc.Register(ctx, "alex@example.com", password, ""); !errors.Is(err, model.ErrValidation) {
			t.Errorf("password %q should be rejected, got %v", password, err)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alex@example.com", strongPassword, ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Login(ctx, "alex@example.com", "Wr0ngPass!"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("wrong password should be indistinguishable from unknown user, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", strongPassword); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown user should report not found, got %v", err)
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	other := NewAuthService(users, "different-secret", testLogger())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alex@example.com", strongPassword, ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	foreign, err := other.issueToken("alex@example.com")
	if err != nil {
		t.Fatalf("issuing token failed: %v", err)
	}

	if _, err := svc.Verify(ctx, foreign); !errors.Is(err, model.ErrAuthDenied) {
		t.Errorf("token signed with another secret must be rejected, got %v", err)
	}
	if _, err := svc.Verify(ctx, "not.a.token"); !errors.Is(err, model.ErrAuthDenied) {
		t.Errorf("garbage token must be rejected, got %v", err)
	}
}

func TestLinkTags(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alex@example.com", strongPassword, ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := svc.LinkTags(ctx, "alex@example.com", "#P1", "#CLAN"); err != nil {
		t.Fatalf("link failed: %v", err)
	}

	user := users.users["alex@example.com"]
	if user.PlayerTag != "#P1" || user.ClanTag != "#CLAN" {
		t.Errorf("linked tags not stored, got %+v", user)
	}
}
