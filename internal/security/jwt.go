package security

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

// Supabase issues user access tokens for the `authenticated` audience signed
// with the project JWT secret (HS256).
const supabaseAudience = "authenticated"

// TokenVerifier knows how to verify Supabase user access tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier returns a verifier for HS256 Supabase access tokens.
func NewTokenVerifier(jwtSecret string) (*TokenVerifier, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("jwt secret is required: %w", commonerrors.ErrRequired)
	}

	return &TokenVerifier{secret: []byte(jwtSecret)}, nil
}

// VerifyToken verifies and decodes the received token, returning its claims.
func (t TokenVerifier) VerifyToken(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token: %w", commonerrors.ErrAuthentication)
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token: %w", commonerrors.ErrAuthentication)
	}

	if !claims.VerifyAudience(supabaseAudience, true) {
		return nil, fmt.Errorf("token audience is not %q: %w", supabaseAudience, commonerrors.ErrAuthentication)
	}

	return claims, nil
}

// TokenFromRequest extracts the bearer token from an HTTP request
// `Authorization: Bearer <token>` header.
func TokenFromRequest(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("missing authorization header: %w", commonerrors.ErrAuthentication)
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header is not a bearer token: %w", commonerrors.ErrAuthentication)
	}

	return parts[1], nil
}
