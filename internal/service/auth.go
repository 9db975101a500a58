// Package service holds the business rules between the HTTP handlers and
// the slot repositories.
//
// AuthService registers and logs in users against the users registry and
// owns the single session slot:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (slots)
//	                   ↘ IdentityProvider (Google userinfo)
//
// Password and OAuth2 logins follow the same branch:
//
//	unknown email            → register, start session
//	known, other auth type   → ErrWrongAuthMethod
//	known, same auth type    → credential-specific check, start session
//
// The branch lives once in Authenticate; the Credential variants supply the
// parts that differ (input rules, the new record, the check on an existing
// record, the greeting).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/todo-manager/internal/apperror"
	"github.com/sakif/todo-manager/internal/auth"
	"github.com/sakif/todo-manager/internal/model"
	"github.com/sakif/todo-manager/internal/repository"
)

// SessionStatus is the state of the auth state machine:
//
//	LoggedOut → Authenticating → LoggedIn | LoggedOut (LastError set)
//
// Status and LastError never wait on a login in progress, so a concurrent
// caller sees Authenticating for as long as the slots are being read and
// written. A failed attempt returns to whatever the session slot says, which
// is LoggedIn when an earlier session is still stored.
type SessionStatus string

const (
	StatusLoggedOut      SessionStatus = "logged_out"
	StatusAuthenticating SessionStatus = "authenticating"
	StatusLoggedIn       SessionStatus = "logged_in"
)

// IdentityProvider turns an OAuth2 access token or authorization code into a
// verified profile. auth.GoogleProvider implements it.
type IdentityProvider interface {
	ExchangeToken(ctx context.Context, accessToken string) (*auth.Profile, error)
	Exchange(ctx context.Context, code string) (*auth.Profile, error)
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	User       *model.User `json:"user"`
	Message    string      `json:"message"`
	Registered bool        `json:"registered"`
}

// AuthService handles registration, login, logout and the session guard.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users     *repository.UserRepository → users registry + session slot
//   - provider  IdentityProvider           → optional, nil disables token/code login
//   - logger    *slog.Logger
type AuthService struct {
	users    *repository.UserRepository
	provider IdentityProvider
	logger   *slog.Logger

	mu sync.Mutex // serializes every write to the users and session slots

	stateMu sync.Mutex // guards status and lastErr only
	status  SessionStatus
	lastErr error
}

// NewAuthService creates an AuthService. Call Start before serving requests.
func NewAuthService(users *repository.UserRepository, provider IdentityProvider, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		provider: provider,
		logger:   logger,
		status:   StatusLoggedOut,
	}
}

// Start initializes the state machine from the persisted session slot.
func (s *AuthService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setState(s.persistedStatus(ctx), nil)

	if u := s.users.Session(ctx); u != nil {
		s.logger.Info("session restored", slog.String("email", u.Email))
	}
}

// Status returns the current state.
func (s *AuthService) Status() SessionStatus {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.status
}

// LastError returns the error of the most recent failed login, or nil when
// the last attempt succeeded.
func (s *AuthService) LastError() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastErr
}

func (s *AuthService) setState(status SessionStatus, err error) {
	s.stateMu.Lock()
	s.status = status
	s.lastErr = err
	s.stateMu.Unlock()
}

func (s *AuthService) setStatus(status SessionStatus) {
	s.stateMu.Lock()
	s.status = status
	s.stateMu.Unlock()
}

// Login authenticates with email and password, registering the account on
// first use.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return s.Authenticate(ctx, PasswordCredential{Email: email, Password: password})
}

// LoginOAuth authenticates an identity already verified by the OAuth2
// provider. The stored name and avatar are refreshed on every success.
func (s *AuthService) LoginOAuth(ctx context.Context, email, name, avatar string) (*AuthResult, error) {
	return s.Authenticate(ctx, OAuthCredential{Email: email, Name: name, Avatar: avatar})
}

// LoginWithProviderToken resolves an access token through the identity
// provider and logs the resulting profile in.
func (s *AuthService) LoginWithProviderToken(ctx context.Context, accessToken string) (*AuthResult, error) {
	if accessToken == "" {
		return nil, apperror.MissingField("accessToken", "Access token is required")
	}
	if s.provider == nil {
		return nil, fmt.Errorf("service/auth: no identity provider configured")
	}

	profile, err := s.provider.ExchangeToken(ctx, accessToken)
	if err != nil {
		s.logger.Warn("identity provider rejected token", slog.String("error", err.Error()))
		return nil, apperror.Upstream("Could not verify your Google account", err)
	}
	return s.LoginOAuth(ctx, profile.Email, profile.Name, profile.Picture)
}

// LoginWithAuthCode completes the authorization-code flow.
func (s *AuthService) LoginWithAuthCode(ctx context.Context, code string) (*AuthResult, error) {
	if code == "" {
		return nil, apperror.MissingField("code", "Authorization code is required")
	}
	if s.provider == nil {
		return nil, fmt.Errorf("service/auth: no identity provider configured")
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("identity provider code exchange failed", slog.String("error", err.Error()))
		return nil, apperror.Upstream("Could not verify your Google account", err)
	}
	return s.LoginOAuth(ctx, profile.Email, profile.Name, profile.Picture)
}

// Authenticate runs the register-or-login branch for any Credential.
func (s *AuthService) Authenticate(ctx context.Context, cred Credential) (*AuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setStatus(StatusAuthenticating)

	result, err := s.authenticate(ctx, cred)
	if err != nil {
		// A failed attempt never touches the session slot, so an earlier
		// session stays valid.
		s.setState(s.persistedStatus(ctx), err)
		level := slog.LevelError
		if IsAuthError(err) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "login rejected",
			slog.String("method", string(cred.authType())),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	s.setState(StatusLoggedIn, nil)
	s.logger.Info("user authenticated",
		slog.String("email", result.User.Email),
		slog.String("method", string(result.User.AuthType)),
		slog.Bool("registered", result.Registered),
	)
	return result, nil
}

func (s *AuthService) authenticate(ctx context.Context, cred Credential) (*AuthResult, error) {
	if err := cred.validate(); err != nil {
		return nil, err
	}

	candidate := cred.newUser()

	existing, found := s.users.FindByEmail(ctx, candidate.Email)
	if !found {
		// Registry before session: the session slot never names an account
		// the registry lacks. If the session write fails the account stays
		// registered and the next attempt logs in as a returning user.
		if err := s.users.Save(ctx, candidate); err != nil {
			return nil, fmt.Errorf("service/auth: registering %s: %w", candidate.Email, err)
		}
		if err := s.users.SetSession(ctx, candidate); err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
		return &AuthResult{
			User:       &candidate,
			Message:    fmt.Sprintf("Welcome new member, %s. You will be redirected to dashboard", candidate.Email),
			Registered: true,
		}, nil
	}

	if existing.AuthType != candidate.AuthType {
		return nil, apperror.WrongAuthMethod(wrongMethodMessage(existing.AuthType))
	}

	user, changed, err := cred.admit(*existing)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.users.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: refreshing %s: %w", user.Email, err)
		}
	}
	if err := s.users.SetSession(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	return &AuthResult{
		User:    &user,
		Message: fmt.Sprintf("Welcome %s, you will be redirected to dashboard", cred.greeting()),
	}, nil
}

// Logout clears the session slot. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.users.ClearSession(ctx); err != nil {
		return fmt.Errorf("service/auth: logout: %w", err)
	}
	s.setState(StatusLoggedOut, nil)
	s.logger.Info("user logged out")
	return nil
}

// CurrentUser returns the session user, or nil when nobody is logged in.
func (s *AuthService) CurrentUser(ctx context.Context) *model.User {
	return s.users.Session(ctx)
}

// RequireSession returns the session user or apperror.ErrUnauthenticated.
// Callers decide what to do on failure (the HTTP layer answers 401 and the
// UI navigates to the login page).
func (s *AuthService) RequireSession(ctx context.Context) (*model.User, error) {
	u := s.users.Session(ctx)
	if u == nil {
		return nil, apperror.Unauthenticated()
	}
	return u, nil
}

func (s *AuthService) persistedStatus(ctx context.Context) SessionStatus {
	if s.users.Session(ctx) != nil {
		return StatusLoggedIn
	}
	return StatusLoggedOut
}

func wrongMethodMessage(registered model.AuthType) string {
	if registered == model.AuthOAuth2 {
		return "User registered via OAuth2. Please login with Google."
	}
	return "User registered with email. Please login with email and password."
}

// IsAuthError reports whether err is one of the user-correctable login
// failures rather than an infrastructure problem.
func IsAuthError(err error) bool {
	return errors.Is(err, apperror.ErrMissingField) ||
		errors.Is(err, apperror.ErrInvalidFormat) ||
		errors.Is(err, apperror.ErrWrongAuthMethod) ||
		errors.Is(err, apperror.ErrIncorrectPassword)
}
