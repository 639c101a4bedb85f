package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/auth"
	"github.com/sakif/vlogsite/internal/model"
	"github.com/sakif/vlogsite/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves signup, both login paths, the session endpoints and
// user lookup.
//
// ROUTES:
//   - POST /signup, POST /login         → password accounts
//   - POST /auth/google                 → Google ID token from the frontend
//   - GET  /auth/google/login, /callback → server-side Google redirect flow
//   - GET  /auth/user, POST /auth/logout → the session cookie
//   - GET  /user                        → look a user up by username or email
type AuthHandler struct {
	auth          *service.AuthService
	google        *auth.GoogleProvider // nil unless a client secret is configured
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil.
func NewAuthHandler(svc *service.AuthService, google *auth.GoogleProvider, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:          svc,
		google:        google,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleTokenRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type googleLoginResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type sessionResponse struct {
	Success bool           `json:"success"`
	User    *model.Session `json:"user"`
}

type userResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

// HandleSignup creates a password account.
//
// HTTP: POST /signup
// REQUEST BODY: {"username": "alice", "email": "a@x.com", "password": "pw"}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.auth.Signup(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Success: true, Message: "Signup successful!"})
}

// HandleLogin checks an email/password pair and sets the session cookie.
//
// HTTP: POST /login
// REQUEST BODY: {"email": "a@x.com", "password": "pw"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, auth.NewSessionCookie(result.Token, h.auth.SessionTTL(), h.secureCookies))
	writeJSON(w, http.StatusOK, loginResponse{
		Success:  true,
		Username: result.User.Username,
		Message:  "Login successful!",
	})
}

// HandleGoogleToken signs in with an ID token obtained by the frontend's
// Google button.
//
// HTTP: POST /auth/google
// REQUEST BODY: {"token": "<google id token>"}
func (h *AuthHandler) HandleGoogleToken(w http.ResponseWriter, r *http.Request) {
	var req googleTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.LoginWithGoogle(r.Context(), req.Token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, auth.NewSessionCookie(result.Token, h.auth.SessionTTL(), h.secureCookies))
	writeJSON(w, http.StatusOK, googleLoginResponse{
		Success: true,
		Message: "Login successful!",
		User:    result.User,
	})
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/google/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when the two match, proving
// this server started the flow.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the redirect flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state against the cookie, then clear the cookie
//  2. Exchange the code for Google's ID token
//  3. Verify it and reconcile the user exactly like POST /auth/google
//  4. Set the session cookie and send the browser home
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, h.logger, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	idToken, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	result, err := h.auth.LoginWithGoogle(r.Context(), idToken)
	if err != nil {
		h.logger.Warn("google callback: login failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, auth.NewSessionCookie(result.Token, h.auth.SessionTTL(), h.secureCookies))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleCurrentUser returns the session of the signed-in caller.
//
// HTTP: GET /auth/user
// Reads the session the auth.Session middleware attached.
func (h *AuthHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("No user logged in"))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, User: sess})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless, so logging out means the browser forgets the
// token. A copied token stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearSessionCookie(h.secureCookies))
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

// HandleFindUser looks a user up, username first, then email.
//
// HTTP: GET /user?username=alice  or  GET /user?email=a@x.com
func (h *AuthHandler) HandleFindUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	user, err := h.auth.FindUser(r.Context(), q.Get("username"), q.Get("email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}
