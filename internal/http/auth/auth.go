// Package auth reads the owner of a request from a signed bearer token.
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

var ErrInvalidSubject = errors.New("token subject is not an owner id")

type ownerKey struct{}

func WithOwner(ctx context.Context, owner uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

func Owner(ctx context.Context) (uuid.UUID, bool) {
	owner, ok := ctx.Value(ownerKey{}).(uuid.UUID)
	return owner, ok
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Middleware rejects requests without a valid token and stores the token's
// subject as the request owner.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		owner, err := v.Verify(strings.TrimSpace(raw))
		if err != nil {
			slog.Debug("rejected token", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

func (v *Verifier) Verify(raw string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}

	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims

	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return uuid.Nil, fmt.Errorf("parsing token: %w", err)
	}

	owner, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidSubject
	}

	return owner, nil
}

// Sign issues a token for owner valid for ttl.
func (v *Verifier) Sign(owner uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   owner.String(),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// RequireOwner returns the request owner, writing 401 when there is none.
func RequireOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	owner, ok := Owner(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}

	return owner, ok
}
