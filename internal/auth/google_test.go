package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "client-123.apps.googleusercontent.com"

// newTestVerifier signs tokens with a throwaway RSA key in place of
// Google's JWKS.
func newTestVerifier(t *testing.T) (*GoogleVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	return NewGoogleVerifierWithKeyfunc(testClientID, kf), key
}

func signGoogleToken(t *testing.T, key *rsa.PrivateKey, mutate func(*googleClaims)) string {
	t.Helper()
	c := googleClaims{
		Email:         "bob@x.com",
		EmailVerified: true,
		Name:          "Bob Smith",
		Picture:       "https://pic",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "google-sub-1",
			Issuer:    "https://accounts.google.com",
			Audience:  jwt.ClaimStrings{testClientID},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if mutate != nil {
		mutate(&c)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestGoogleVerifier_Valid(t *testing.T) {
	v, key := newTestVerifier(t)

	for _, iss := range googleIssuers {
		t.Run(iss, func(t *testing.T) {
			token := signGoogleToken(t, key, func(c *googleClaims) { c.Issuer = iss })

			p, err := v.Verify(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, "google-sub-1", p.Subject)
			assert.Equal(t, "bob@x.com", p.Email)
			assert.Equal(t, "Bob Smith", p.Name)
			assert.Equal(t, "https://pic", p.Picture)
			assert.True(t, p.EmailVerified)
		})
	}
}

func TestGoogleVerifier_Rejects(t *testing.T) {
	v, key := newTestVerifier(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "accounts.google.com",
		Audience:  jwt.ClaimStrings{testClientID},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("shared-secret-guess"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty": "",
		"wrong audience": signGoogleToken(t, key, func(c *googleClaims) {
			c.Audience = jwt.ClaimStrings{"someone-else"}
		}),
		"wrong issuer": signGoogleToken(t, key, func(c *googleClaims) {
			c.Issuer = "https://evil.example.com"
		}),
		"expired": signGoogleToken(t, key, func(c *googleClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		}),
		"no expiry": signGoogleToken(t, key, func(c *googleClaims) {
			c.ExpiresAt = nil
		}),
		"no email": signGoogleToken(t, key, func(c *googleClaims) {
			c.Email = ""
		}),
		"wrong key":      signGoogleToken(t, otherKey, nil),
		"hmac algorithm": hmacToken,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGoogleToken), "got %v", err)
		})
	}
}

func TestGoogleVerifier_CancelledContext(t *testing.T) {
	v, key := newTestVerifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Verify(ctx, signGoogleToken(t, key, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGoogleVerifier_RequiresClientID(t *testing.T) {
	_, err := NewGoogleVerifier(context.Background(), " ", nil)
	assert.Error(t, err)
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProvider(testClientID, "secret", "http://localhost:3000/auth/google/callback")

	u := p.AuthURL("state-xyz")
	assert.Contains(t, u, "accounts.google.com")
	assert.Contains(t, u, "state=state-xyz")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "prompt=consent")
	assert.Contains(t, u, "client_id="+testClientID)
}
