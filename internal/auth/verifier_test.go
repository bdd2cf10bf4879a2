package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-signing-secret"

// signToken mints a token for tests.
func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

// TestNewVerifier tests constructor validation.
func TestNewVerifier(t *testing.T) {
	t.Parallel()

	if _, err := NewVerifier(""); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("NewVerifier(\"\") error = %v, want ErrMissingSecret", err)
	}
	if _, err := NewVerifier(testSecret); err != nil {
		t.Errorf("NewVerifier() error = %v", err)
	}
}

// TestVerifyToken tests token validation paths.
func TestVerifyToken(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	t.Run("valid token yields subject", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user_42",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		userID, err := verifier.VerifyToken(token)
		if err != nil {
			t.Fatalf("VerifyToken() error = %v", err)
		}
		if userID != "user_42" {
			t.Errorf("userID = %q, want user_42", userID)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		if _, err := verifier.VerifyToken(""); !errors.Is(err, ErrMissingToken) {
			t.Errorf("VerifyToken(\"\") error = %v, want ErrMissingToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, "other-secret", jwt.MapClaims{
			"sub": "user_42",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		if _, err := verifier.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user_42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		if _, err := verifier.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("token without expiry", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, testSecret, jwt.MapClaims{"sub": "user_42"})
		if _, err := verifier.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("token without subject", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, testSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		if _, err := verifier.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()

		if _, err := verifier.VerifyToken("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want ErrInvalidToken", err)
		}
	})
}

// TestVerifyAuthorizationHeader tests bearer header extraction.
func TestVerifyAuthorizationHeader(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	valid := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name    string
		header  string
		wantID  string
		wantErr error
	}{
		{"bearer token", "Bearer " + valid, "user_42", nil},
		{"lowercase scheme", "bearer " + valid, "user_42", nil},
		{"empty header", "", "", ErrMissingToken},
		{"no scheme", valid, "", ErrMissingToken},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", ErrMissingToken},
		{"bearer with bad token", "Bearer garbage", "", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userID, err := verifier.VerifyAuthorizationHeader(tt.header)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if userID != tt.wantID {
				t.Errorf("userID = %q, want %q", userID, tt.wantID)
			}
		})
	}
}
