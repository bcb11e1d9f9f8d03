package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no auth token")
	ErrInvalidToken = errors.New("invalid auth token")
)

// CreateToken signs an HS256 token whose subject is the user key.
func CreateToken(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("api secret is not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the "token" query parameter.
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	bearer := r.Header.Get("Authorization")
	parts := strings.Fields(bearer)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// ParseSubject validates the token and returns its subject.
func ParseSubject(secret, token string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: api secret is not configured", ErrInvalidToken)
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// ExtractSubject is ExtractToken followed by ParseSubject.
func ExtractSubject(r *http.Request, secret string) (string, error) {
	token := ExtractToken(r)
	if token == "" {
		return "", ErrNoToken
	}
	return ParseSubject(secret, token)
}
