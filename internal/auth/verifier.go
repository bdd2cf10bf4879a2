package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier errors.
var (
	// ErrMissingSecret is returned by NewVerifier when no signing secret is
	// configured.
	ErrMissingSecret = errors.New("jwt secret cannot be empty")
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for tokens that fail signature, expiry, or
	// claim checks.
	ErrInvalidToken = errors.New("invalid authentication token")
)

// Verifier validates HS256 JWTs against a shared signing secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a Verifier for the given signing secret.
// Only HS256 is accepted; restricting the method set blocks alg-substitution
// tricks like tokens signed with "none".
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// VerifyToken validates a raw JWT and returns the user ID from its subject
// claim.
func (v *Verifier) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	token, err := v.parser.Parse(tokenString, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return subject, nil
}

// VerifyAuthorizationHeader extracts and validates the bearer token from an
// Authorization header value.
func (v *Verifier) VerifyAuthorizationHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrMissingToken
	}
	return v.VerifyToken(strings.TrimSpace(token))
}
