package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/todo-manager/internal/model"
)

type fakeGuard struct {
	user *model.User
}

func (g fakeGuard) RequireSession(context.Context) (*model.User, error) {
	if g.user == nil {
		return nil, errors.New("no session")
	}
	return g.user, nil
}

func TestRequireSession_NoSession(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rr := httptest.NewRecorder()
	RequireSession(fakeGuard{})(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/todos", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called, "next handler must not run without a session")
	assert.JSONEq(t, `{"error":"unauthorized","message":"authentication required"}`, rr.Body.String())
}

func TestRequireSession_StoresUser(t *testing.T) {
	var got *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	guard := fakeGuard{user: &model.User{Email: "a@b.com"}}
	rr := httptest.NewRecorder()
	RequireSession(guard)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	if assert.NotNil(t, got) {
		assert.Equal(t, "a@b.com", got.Email)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserFromContext(WithUser(context.Background(), nil))
	assert.False(t, ok)
}
