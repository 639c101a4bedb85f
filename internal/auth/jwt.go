// Package auth signs and verifies the tokens the site relies on: its own
// session cookie and the ID tokens Google issues.
//
// SESSION FLOW OVERVIEW:
// 1. User signs in with a password (POST /login) or Google (POST /auth/google)
// 2. The service builds a model.Session from the user record
// 3. TokenService signs the session into a JWT stored in an HttpOnly cookie
// 4. On later requests, the Session middleware validates the cookie and puts
//    the session in the request context
//
// WHY A JWT COOKIE?
// The server keeps no session table. Everything GET /auth/user returns lives
// inside the signed token, and the HMAC signature means a client cannot edit
// its own username or id.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: session fields plus registered claims (sub, exp, iat, iss)
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/vlogsite/internal/model"
)

const (
	issuer = "vlogsite"

	// DefaultSessionTTL is how long a session cookie stays valid.
	DefaultSessionTTL = 24 * time.Hour
)

// TokenService signs and validates session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; a non-positive ttl selects DefaultSessionTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of tokens issued by Generate. Handlers use it as
// the cookie Max-Age.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// sessionClaims is the JWT payload. The user id doubles as "sub".
type sessionClaims struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Picture      string `json:"picture,omitempty"`
	IsGoogleAuth bool   `json:"isGoogleAuth"`
	LoginTime    int64  `json:"loginTime"` // epoch milliseconds
	jwt.RegisteredClaims
}

// Generate signs sess into a token valid for the service TTL.
func (s *TokenService) Generate(sess *model.Session) (string, error) {
	return s.GenerateWithDuration(sess, s.ttl)
}

// GenerateWithDuration signs sess with a custom lifetime. Tests use a
// negative duration to produce expired tokens.
func (s *TokenService) GenerateWithDuration(sess *model.Session, d time.Duration) (string, error) {
	if sess == nil || sess.UserID == "" {
		return "", errors.New("auth: session has no user id")
	}

	now := time.Now()
	c := sessionClaims{
		Username:     sess.Username,
		Email:        sess.Email,
		Name:         sess.Name,
		Picture:      sess.Picture,
		IsGoogleAuth: sess.IsGoogleAuth,
		LoginTime:    sess.LoginTime.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the session it carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Token is not expired, and expiry is present at all
//   - Issuer is "vlogsite"
//   - Algorithm is HS256 (blocks "alg":"none" and RS/HS confusion)
func (s *TokenService) Validate(tokenStr string) (*model.Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &model.Session{
		UserID:       c.Subject,
		Username:     c.Username,
		Email:        c.Email,
		Name:         c.Name,
		Picture:      c.Picture,
		IsGoogleAuth: c.IsGoogleAuth,
		LoginTime:    time.UnixMilli(c.LoginTime).UTC(),
	}, nil
}
