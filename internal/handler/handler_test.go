package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/sakif/todo-manager/internal/auth"
	"github.com/sakif/todo-manager/internal/handler"
	"github.com/sakif/todo-manager/internal/repository"
	"github.com/sakif/todo-manager/internal/repository/memory"
	"github.com/sakif/todo-manager/internal/service"
)

type testAPI struct {
	router http.Handler
	auth   *service.AuthService
	google *httptest.Server
}

// newFakeGoogle answers the token and userinfo endpoints for "good-code"
// and "good-token".
func newFakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"good-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"g@gmail.com","name":"Gee","picture":"https://img/g.png"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIRedirectingTo(t, "/")
}

// newTestAPIRedirectingTo builds the API with the front-end URL the Google
// callback sends the browser back to.
func newTestAPIRedirectingTo(t *testing.T, redirectURL string) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	google := newFakeGoogle(t)
	provider := auth.NewGoogleProvider("client-id", "client-secret", "http://localhost/auth/google/callback",
		auth.WithUserInfoURL(google.URL+"/userinfo"),
		auth.WithEndpoint(oauth2.Endpoint{AuthURL: google.URL + "/auth", TokenURL: google.URL + "/token"}),
	)
	states, err := auth.NewStateService("test-secret-at-least-16-chars")
	require.NoError(t, err)

	authSvc := service.NewAuthService(repository.NewUserRepository(store), provider, logger)
	authSvc.Start(context.Background())
	todoSvc := service.NewTodoService(repository.NewTodoRepository(store), logger)

	authH := handler.NewAuthHandler(authSvc, provider, states, redirectURL, logger)
	todoH := handler.NewTodoHandler(todoSvc, logger)

	r := chi.NewRouter()
	r.Post("/auth/login", authH.HandleLogin)
	r.Post("/auth/oauth/token", authH.HandleTokenLogin)
	r.Get("/auth/google/login", authH.HandleGoogleLogin)
	r.Get("/auth/google/callback", authH.HandleGoogleCallback)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireSession(authSvc))
		r.Get("/me", authH.HandleMe)
		r.Get("/todos", todoH.HandleList)
		r.Post("/todos", todoH.HandleCreate)
		r.Get("/todos/{id}", todoH.HandleGet)
		r.Put("/todos/{id}", todoH.HandleUpdate)
		r.Delete("/todos/{id}", todoH.HandleDelete)
		r.Post("/todos/{id}/toggle", todoH.HandleToggle)
		r.Post("/todos/{id}/subtasks", todoH.HandleAddSubtask)
		r.Put("/todos/{id}/subtasks/{subID}", todoH.HandleUpdateSubtask)
		r.Post("/todos/{id}/subtasks/{subID}/toggle", todoH.HandleToggleSubtask)
		r.Delete("/todos/{id}/subtasks/{subID}", todoH.HandleDeleteSubtask)
	})

	return &testAPI{router: r, auth: authSvc, google: google}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) login(t *testing.T) {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.com", "password": "Abc123!"})
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rr.Code, rr.Body.String())
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestAuthHandler_Login(t *testing.T) {
	api := newTestAPI(t)

	t.Run("first login registers", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.com", "password": "Abc123!"})

		assert.Equal(t, http.StatusCreated, rr.Code)
		resp := decode[handler.LoginResponse](t, rr)
		assert.True(t, resp.Registered)
		assert.Equal(t, "a@b.com", resp.User.Email)
		assert.NotContains(t, rr.Body.String(), "Abc123!", "password must not be echoed")
	})

	t.Run("returning user", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.com", "password": "Abc123!"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Welcome a@b.com, you will be redirected to dashboard", decode[handler.LoginResponse](t, rr).Message)
	})

	t.Run("incorrect password", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.com", "password": "Zzz999!"})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		resp := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, "incorrect_password", resp.Error)
		assert.Equal(t, "Incorrect password", resp.Fields["password"])
	})

	t.Run("field errors", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "", "password": ""})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Equal(t, map[string]string{
			"email":    "Email is required",
			"password": "Password is required",
		}, resp.Fields)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
		rr := httptest.NewRecorder()
		api.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_BodyLimit(t *testing.T) {
	api := newTestAPI(t)

	huge := `{"email":"` + strings.Repeat("a", 2<<20) + `@b.com","password":"Abc123!"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(huge))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "payload_too_large", decode[handler.ErrorResponse](t, rr).Error)
	assert.Nil(t, api.auth.CurrentUser(context.Background()))

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":`))
	rr = httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_WrongAuthMethod(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/auth/oauth/token", map[string]string{"accessToken": "good-token"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "g@gmail.com", "password": "Abc123!"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "User registered via OAuth2. Please login with Google.", decode[handler.ErrorResponse](t, rr).Message)
}

func TestAuthHandler_TokenLoginRejected(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/auth/oauth/token", map[string]string{"accessToken": "expired"})

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "upstream_error", decode[handler.ErrorResponse](t, rr).Error)
}

func TestAuthHandler_GoogleFlow(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/auth/google/login", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, state, cookies[0].Value)

	t.Run("state mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=good-code&state=forged", nil)
		req.AddCookie(cookies[0])
		rr := httptest.NewRecorder()
		api.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, api.auth.CurrentUser(context.Background()))
	})

	t.Run("bad code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad-code&state="+url.QueryEscape(state), nil)
		req.AddCookie(cookies[0])
		rr := httptest.NewRecorder()
		api.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Contains(t, rr.Header().Get("Location"), "auth=error")
	})

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
		req.AddCookie(cookies[0])
		rr := httptest.NewRecorder()
		api.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))

		u := api.auth.CurrentUser(context.Background())
		require.NotNil(t, u)
		assert.Equal(t, "g@gmail.com", u.Email)
		assert.Equal(t, "Gee", u.Name)
	})
}

// startGoogleLogin begins the consent flow and returns the state and the
// cookie that carries it.
func startGoogleLogin(t *testing.T, api *testAPI) (string, *http.Cookie) {
	t.Helper()
	rr := api.do(t, http.MethodGet, "/auth/google/login", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return loc.Query().Get("state"), cookies[0]
}

func TestAuthHandler_GoogleCallbackKeepsRedirectQuery(t *testing.T) {
	api := newTestAPIRedirectingTo(t, "http://localhost:5173/app?tab=todos")

	tests := []struct {
		name        string
		query       string
		wantAuth    string
		wantMessage bool
	}{
		{name: "denied", query: "error=access_denied", wantAuth: "denied"},
		{name: "bad code", query: "code=bad-code", wantAuth: "error", wantMessage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, cookie := startGoogleLogin(t, api)
			req := httptest.NewRequest(http.MethodGet,
				"/auth/google/callback?"+tt.query+"&state="+url.QueryEscape(state), nil)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			api.router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusSeeOther, rr.Code)
			loc, err := url.Parse(rr.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "localhost:5173", loc.Host)
			assert.Equal(t, "/app", loc.Path)
			assert.Equal(t, "todos", loc.Query().Get("tab"))
			assert.Equal(t, tt.wantAuth, loc.Query().Get("auth"))
			assert.Equal(t, tt.wantMessage, loc.Query().Has("message"))
		})
	}

	t.Run("success keeps the url as configured", func(t *testing.T) {
		state, cookie := startGoogleLogin(t, api)
		req := httptest.NewRequest(http.MethodGet,
			"/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		api.router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "http://localhost:5173/app?tab=todos", rr.Header().Get("Location"))
	})
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	api.login(t)
	rr = api.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a@b.com", decode[handler.UserResponse](t, rr).Email)

	for i := 0; i < 2; i++ {
		rr = api.do(t, http.MethodPost, "/auth/logout", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	rr = api.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTodoHandler_RequiresSession(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/todos", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
