package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Bearer token primitives =====
//
// Tokens are issued by the identity service; this side only verifies them.
// The subject is the wallet owner's user id.

type CustomerClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type AuthManager struct {
	secret []byte
	issuer string
}

func NewAuthManager(secret, issuer string) *AuthManager {
	return &AuthManager{secret: []byte(secret), issuer: issuer}
}

// Mint signs a token for userID. Used by the seed command and tests.
func (a *AuthManager) Mint(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CustomerClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

var errMissingToken = errors.New("missing token")

// ParseFromRequest reads "Authorization: Bearer <jwt>".
func (a *AuthManager) ParseFromRequest(r *http.Request) (*CustomerClaims, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return nil, errMissingToken
	}
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, fmt.Errorf("malformed authorization header: %w", domain.ErrUnauthenticated)
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*CustomerClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &CustomerClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token without subject: %w", domain.ErrUnauthenticated)
	}
	return claims, nil
}

type ctxKey int

const userKey ctxKey = iota

func withUser(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userKey, userID)
	return logging.WithUserID(ctx, userID)
}

// userFrom returns the authenticated caller, or "" for anonymous requests.
func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

// requireUser rejects anonymous requests and provisions the wallet on first sight.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return s.authenticate(next, true)
}

// optionalUser lets anonymous callers through (guest carts) but still rejects
// a token that is present and bad.
func (s *Server) optionalUser(next http.Handler) http.Handler {
	return s.authenticate(next, false)
}

func (s *Server) authenticate(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if errors.Is(err, errMissingToken) && !required {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			s.writeError(w, r, domain.ErrUnauthenticated)
			return
		}
		if _, err := s.users.EnsureUser(r.Context(), claims.Subject, claims.Email); err != nil {
			s.writeError(w, r, err)
			return
		}
		noteUser(w, claims.Subject)
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims.Subject)))
	})
}
