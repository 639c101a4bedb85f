// AuthService sits between the HTTP handlers and the storage/crypto layers:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (storage)
//	                   ↘ TokenService (session JWT)
//	                   ↘ GoogleVerifier (ID tokens)
//
// Two ways in, one way out: a password login and a Google login both end in
// the same model.Session and the same signed cookie token.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/auth"
	"github.com/sakif/vlogsite/internal/identity"
	"github.com/sakif/vlogsite/internal/model"
	"github.com/sakif/vlogsite/internal/repository"
)

// GoogleVerifier checks a Google ID token and returns the profile inside.
// *auth.GoogleVerifier satisfies it; tests pass a fake.
type GoogleVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.GoogleProfile, error)
}

// AuthService handles signup, the two login paths and user lookup.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	google    GoogleVerifier // nil when Google sign-in is not configured
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService wires an AuthService. google may be nil.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	google GoogleVerifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		google:    google,
		logger:    logger,
		now:       time.Now,
	}
}

// AuthResult bundles what a successful login produces so the handler can set
// the cookie and answer in one step.
type AuthResult struct {
	User    *model.User
	Session *model.Session
	Token   string
}

// Signup creates a password account. Email must be unused; username need not
// be unique.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("user", email)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email %s: %w", email, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		// the only input-dependent failure is the 72 byte limit
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks an email/password pair and issues a session.
//
// Old data files may hold plaintext passwords. Those still work once, and are
// replaced by a bcrypt hash on the spot.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: finding user %s: %w", email, err)
	}

	if !user.HasPassword() {
		return nil, apperror.Unauthorized("this account signs in with Google")
	}

	needsUpgrade, err := s.passwords.Check(user.PasswordHash, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: checking password for %s: %w", user.ID, err)
	}

	if needsUpgrade {
		s.upgradePassword(ctx, user, password)
	}

	return s.issue(user, "password")
}

// upgradePassword replaces a legacy plaintext password with a hash. Failure
// is logged, not returned: the user did prove who they are.
func (s *AuthService) upgradePassword(ctx context.Context, user *model.User, password string) {
	hash, err := s.passwords.Hash(password)
	if err == nil {
		user.PasswordHash = hash
		err = s.users.UpdateUser(ctx, user)
	}
	if err != nil {
		s.logger.Warn("failed to upgrade legacy password",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("upgraded legacy password", slog.String("userID", user.ID))
}

// GoogleEnabled reports whether LoginWithGoogle can succeed at all.
func (s *AuthService) GoogleEnabled() bool { return s.google != nil }

// LoginWithGoogle verifies a Google ID token and signs the matching local
// user in, creating the account on first sight.
func (s *AuthService) LoginWithGoogle(ctx context.Context, rawToken string) (*AuthResult, error) {
	if s.google == nil {
		return nil, apperror.Unauthorized("google sign-in is not configured")
	}
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperror.ValidationFailed("token", "token is required")
	}

	profile, err := s.google.Verify(ctx, rawToken)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		s.logger.Info("rejected google token", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized("invalid google token")
	}

	return s.LoginWithGoogleProfile(ctx, profile)
}

// LoginWithGoogleProfile reconciles an already verified Google profile with
// the user table, keyed by email. The email itself must be verified by
// Google.
//
//   - Unknown email: create a user with a username derived from the display
//     name. Collisions with existing usernames are allowed.
//   - Known email: refresh name, picture and googleId, and mark the account
//     as Google-linked. A password, if any, is kept.
//
// Two first logins racing for the same email: the loser's create fails with
// a conflict, so it re-reads the winner's record and updates that instead.
func (s *AuthService) LoginWithGoogleProfile(ctx context.Context, p *auth.GoogleProfile) (*AuthResult, error) {
	if p == nil || strings.TrimSpace(p.Email) == "" {
		return nil, apperror.Unauthorized("google profile has no email")
	}
	// Accounts are keyed by email, so an unverified address could claim
	// someone else's account.
	if !p.EmailVerified {
		s.logger.Warn("rejected google profile with unverified email", slog.String("email", p.Email))
		return nil, apperror.Unauthorized("google email is not verified")
	}
	email := strings.TrimSpace(p.Email)

	user, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.refreshGoogleProfile(ctx, user, p); err != nil {
			return nil, err
		}

	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{
			Username:     DeriveUsername(p.Name, email),
			Email:        email,
			GoogleID:     p.Subject,
			Name:         p.Name,
			Picture:      p.Picture,
			IsGoogleAuth: true,
		}
		err := s.users.CreateUser(ctx, user)
		if errors.Is(err, apperror.ErrConflict) {
			user, err = s.users.FindUserByEmail(ctx, email)
			if err == nil {
				err = s.refreshGoogleProfile(ctx, user, p)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("service/auth: creating google user %s: %w", email, err)
		}
		s.logger.Info("user created via google",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)

	default:
		return nil, fmt.Errorf("service/auth: finding user %s: %w", email, err)
	}

	return s.issue(user, "google")
}

func (s *AuthService) refreshGoogleProfile(ctx context.Context, user *model.User, p *auth.GoogleProfile) error {
	user.Name = p.Name
	user.Picture = p.Picture
	user.GoogleID = p.Subject
	user.IsGoogleAuth = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: updating google user %s: %w", user.ID, err)
	}
	return nil
}

// issue builds the session for user and signs it.
func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	sess := model.NewSession(user, s.now())
	token, err := s.tokens.Generate(sess)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Session: sess, Token: token}, nil
}

// SessionFromToken validates a session token. Any failure is reported as
// unauthorized.
func (s *AuthService) SessionFromToken(token string) (*model.Session, error) {
	sess, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("not signed in")
	}
	return sess, nil
}

// SessionTTL is the lifetime of issued session tokens.
func (s *AuthService) SessionTTL() time.Duration { return s.tokens.TTL() }

// FindUser looks a user up by username, falling back to email.
func (s *AuthService) FindUser(ctx context.Context, username, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" && email == "" {
		return nil, apperror.ValidationFailed("username", "username or email is required")
	}

	user, err := identity.LookupUser(ctx, s.users, username, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: finding user: %w", err)
	}
	return user, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DeriveUsername turns a display name into a username: lower-cased, every
// whitespace run replaced by "_". With no usable name, the email's local part
// is used instead.
//
//	"Bob  Smith" → "bob_smith"
func DeriveUsername(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return whitespaceRun.ReplaceAllString(strings.ToLower(name), "_")
	}
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(local)
}
