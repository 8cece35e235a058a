// Package auth authenticates API requests with bearer tokens issued by the
// identity provider and carries the caller's identity in the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Admin  bool
}

// Claims mirrors the identity provider's access token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email,omitempty"`
	UserMetadata userMetadata `json:"user_metadata"`
}

type userMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

// Profiles keeps the local profile table in step with token holders.
type Profiles interface {
	Ensure(ctx context.Context, id uuid.UUID, email, fullName string) error
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates an HS256 token and returns its claims.
func (v *Verifier) Parse(token string) (*Claims, uuid.UUID, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return &claims, userID, nil
}

// Sign issues a token for userID. The API only verifies tokens; Sign exists
// for local tooling and tests.
func (v *Verifier) Sign(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func bearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}

	return strings.TrimSpace(token), nil
}

// Middleware rejects requests without a valid token and stores the caller's
// Identity in the request context.
func Middleware(v *Verifier, profiles Profiles) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearer(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, userID, err := v.Parse(token)
			if err != nil {
				slog.Debug("rejected token", "error", err)
				http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)

				return
			}

			ctx := r.Context()

			if err := profiles.Ensure(ctx, userID, claims.Email, claims.UserMetadata.FullName); err != nil {
				slog.Error("failed to ensure profile", "user_id", userID, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)

				return
			}

			admin, err := profiles.IsAdmin(ctx, userID)
			if err != nil {
				slog.Error("failed to resolve role", "user_id", userID, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)

				return
			}

			id := Identity{UserID: userID, Email: claims.Email, Admin: admin}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

// RequireAdmin lets only admins through. It must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			http.Error(w, ErrMissingToken.Error(), http.StatusUnauthorized)
			return
		}

		if !id.Admin {
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
