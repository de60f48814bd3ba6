package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// Claims is the bearer token payload. user_id selects the owner of every
// resource the request touches.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID. Used by tests and tooling;
// tokens are normally minted by the identity service.
func IssueToken(secret string, userID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p core.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller stored by requireAuth.
func PrincipalFrom(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(core.Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, r, core.ErrUnauthorized)
			return
		}
		claims, err := ParseToken(s.jwtSecret, tok)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected bearer token",
				applog.FieldComponent, applog.ComponentAuth,
				applog.FieldError, err)
			writeError(w, r, core.ErrUnauthorized)
			return
		}

		ctx := withPrincipal(r.Context(), core.Principal{UserID: claims.UserID})
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal is only called behind requireAuth.
func principal(r *http.Request) (core.Principal, error) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		return core.Principal{}, core.ErrUnauthorized
	}
	return p, nil
}

var errBadCronToken = errors.New("invalid cron token")

// cronGuard checks X-Cron-Token when a token is configured.
func (s *Server) cronGuard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cronToken != "" {
			got := r.Header.Get("X-Cron-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.cronToken)) != 1 {
				applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected cron trigger",
					applog.FieldComponent, applog.ComponentAuth,
					applog.FieldError, errBadCronToken)
				writeError(w, r, core.ErrUnauthorized)
				return
			}
		}
		next(w, r)
	}
}
