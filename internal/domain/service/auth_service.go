package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"decktracker/internal/domain/model"
	"decktracker/internal/domain/repository"
)

const (
	bcryptCost     = 12
	tokenLifetime  = 7 * 24 * time.Hour
	minPasswordLen = 8
	maxPasswordLen = 128
)

// AuthService issues and verifies identity for account-scoped operations.
// Everything else in the service consumes only the verified principal string
// it produces.
type AuthService struct {
	users  repository.UserStore
	secret []byte
	log    *slog.Logger
}

func NewAuthService(users repository.UserStore, secret string, log *slog.Logger) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), log: log}
}

// Register creates an account and returns a signed token for it.
func (s *AuthService) Register(ctx context.Context, email, password, playerTag string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: invalid email address", model.ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: looking up user: %v", model.ErrStorage, err)
	}
	if existing != nil {
		return "", fmt.Errorf("%w: an account with that email already exists", model.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		PlayerTag:    playerTag,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("%w: saving user: %v", model.ErrStorage, err)
	}

	s.log.Info("registered user", "email", email)
	return s.issueToken(email)
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: looking up user: %v", model.ErrStorage, err)
	}
	if user == nil {
		return "", fmt.Errorf("%w: invalid email or password", model.ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid email or password", model.ErrNotFound)
	}

	return s.issueToken(email)
}

// Verify validates a token and returns its principal.
func (s *AuthService) Verify(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: invalid or expired token", model.ErrAuthDenied)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid token claims", model.ErrAuthDenied)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("%w: token has no subject", model.ErrAuthDenied)
	}
	return sub, nil
}

// LinkTags attaches player and clan tags to an account profile.
func (s *AuthService) LinkTags(ctx context.Context, email, playerTag, clanTag string) error {
	if err := s.users.UpdateUserTags(ctx, email, playerTag, clanTag); err != nil {
		return fmt.Errorf("%w: updating user tags: %v", model.ErrStorage, err)
	}
	return nil
}

func (s *AuthService) issueToken(email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", model.ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password is too long (max %d characters)", model.ErrValidation, maxPasswordLen)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fmt.Errorf("%w: password must contain upper and lower case letters, a number, and a special character", model.ErrValidation)
	}
	return nil
}
