package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/todo-manager/internal/auth"
	"github.com/sakif/todo-manager/internal/model"
	"github.com/sakif/todo-manager/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler exposes login, logout and the Google OAuth2 flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin          → email/password login, registering on first use
//   - HandleTokenLogin     → login with a Google access token obtained by the client
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → verify state, exchange the code, start the session
//   - HandleLogout         → clear the session slot
//   - HandleMe             → return the session user
//
// google and states are nil when Google login is not configured; the server
// does not register the Google routes in that case.
type AuthHandler struct {
	auth        *service.AuthService
	google      *auth.GoogleProvider
	states      *auth.StateService
	redirectURL string
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. redirectURL is where the browser
// lands after a Google login completes or fails.
func NewAuthHandler(
	authSvc *service.AuthService,
	google *auth.GoogleProvider,
	states *auth.StateService,
	redirectURL string,
	logger *slog.Logger,
) *AuthHandler {
	if redirectURL == "" {
		redirectURL = "/"
	}
	return &AuthHandler{
		auth:        authSvc,
		google:      google,
		states:      states,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

// UserResponse is the public view of a user. The stored password never
// leaves the server.
type UserResponse struct {
	Name     string         `json:"name"`
	Avatar   string         `json:"avatar"`
	Email    string         `json:"email"`
	AuthType model.AuthType `json:"authType"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{Name: u.Name, Avatar: u.Avatar, Email: u.Email, AuthType: u.AuthType}
}

// LoginResponse is returned by both login endpoints.
type LoginResponse struct {
	User       UserResponse `json:"user"`
	Message    string       `json:"message"`
	Registered bool         `json:"registered"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

// HandleLogin logs in with email and password.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"email": "a@b.com", "password": "Abc123!"}
//
// 201 when the account was just registered, 200 for a returning user.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoginResult(w, result)
}

// HandleTokenLogin logs in with a Google access token.
//
// HTTP: POST /auth/oauth/token
// REQUEST BODY: {"accessToken": "ya29..."}
func (h *AuthHandler) HandleTokenLogin(w http.ResponseWriter, r *http.Request) {
	var req tokenLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.LoginWithProviderToken(r.Context(), req.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoginResult(w, result)
}

// HandleGoogleLogin redirects the browser to Google.
//
// HTTP: GET /auth/google/login
//
// The signed state is also stored in an HttpOnly cookie; the callback
// requires both to match.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue()
	if err != nil {
		h.logger.Error("google login: issuing state", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the authorization-code flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state query value against the cookie and its signature
//  2. Exchange the code for a profile and log it in
//  3. Redirect to the app, with ?auth=... describing a failure
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid OAuth state"})
		return
	}
	if err := h.states.Verify(cookie.Value); err != nil {
		h.logger.Warn("google callback: bad state", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid OAuth state"})
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		h.redirect(w, r, "denied", "")
		return
	}

	if _, err := h.auth.LoginWithAuthCode(r.Context(), q.Get("code")); err != nil {
		status, _ := errorKind(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("google callback: login failed", slog.String("error", err.Error()))
			h.redirect(w, r, "error", "Login failed")
			return
		}
		h.redirect(w, r, "error", err.Error())
		return
	}

	h.redirect(w, r, "", "")
}

// HandleLogout clears the session.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleMe returns the session user.
//
// HTTP: GET /api/me
// Auth: Required (RequireSession stores the user in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// redirect sends the browser back to the configured front end, adding the
// outcome to whatever query the redirect URL already carries.
func (h *AuthHandler) redirect(w http.ResponseWriter, r *http.Request, outcome, message string) {
	target := h.redirectURL
	if outcome != "" {
		u, err := url.Parse(h.redirectURL)
		if err != nil {
			h.logger.Error("invalid redirect url", slog.String("url", h.redirectURL), slog.String("error", err.Error()))
			u = &url.URL{Path: "/"}
		}
		q := u.Query()
		q.Set("auth", outcome)
		if message != "" {
			q.Set("message", message)
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func writeLoginResult(w http.ResponseWriter, result *service.AuthResult) {
	status := http.StatusOK
	if result.Registered {
		status = http.StatusCreated
	}
	writeJSON(w, status, LoginResponse{
		User:       newUserResponse(result.User),
		Message:    result.Message,
		Registered: result.Registered,
	})
}
