package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-manager/internal/model"
	"github.com/sakif/todo-manager/internal/repository"
	"github.com/sakif/todo-manager/internal/repository/memory"
)

func newTestUserRepo(t *testing.T) (*repository.UserRepository, *memory.Store) {
	t.Helper()
	store := memory.New()
	return repository.NewUserRepository(store), store
}

func TestUserList_NoSlot(t *testing.T) {
	repo, _ := newTestUserRepo(t)

	users, ok := repo.List(context.Background())
	assert.False(t, ok)
	assert.Empty(t, users)
}

func TestUserSave_CreatesSlotThenAppends(t *testing.T) {
	repo, store := newTestUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.User{Email: "a@b.com", AuthType: model.AuthPassword}))
	require.NoError(t, repo.Save(ctx, model.User{Email: "c@d.com", AuthType: model.AuthOAuth2}))

	users, ok := repo.List(ctx)
	require.True(t, ok)
	require.Len(t, users, 2)
	assert.Equal(t, "a@b.com", users[0].Email)
	assert.Equal(t, "c@d.com", users[1].Email)

	raw, _ := store.Raw(repository.SlotUsers)
	assert.Contains(t, raw, `"authType":"oauth2"`)
}

func TestUserSave_ReplacesSameEmail(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.User{Email: "a@b.com", Name: "old"}))
	require.NoError(t, repo.Save(ctx, model.User{Email: "a@b.com", Name: "new"}))

	users, _ := repo.List(ctx)
	require.Len(t, users, 1)
	assert.Equal(t, "new", users[0].Name)
}

func TestUserFindByEmail(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, model.User{Email: "a@b.com", Name: "A"}))

	u, ok := repo.FindByEmail(ctx, "a@b.com")
	require.True(t, ok)
	assert.Equal(t, "A", u.Name)

	_, ok = repo.FindByEmail(ctx, "A@B.COM")
	assert.False(t, ok, "email lookup is exact")
}

func TestUserSession_SetAndClear(t *testing.T) {
	repo, store := newTestUserRepo(t)
	ctx := context.Background()

	assert.Nil(t, repo.Session(ctx))

	require.NoError(t, repo.SetSession(ctx, model.User{Email: "a@b.com"}))
	got := repo.Session(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "a@b.com", got.Email)

	require.NoError(t, repo.ClearSession(ctx))
	assert.Nil(t, repo.Session(ctx))
	raw, _ := store.Raw(repository.SlotSession)
	assert.Equal(t, "null", raw)
}

func TestUserSession_CorruptSlotReadsAsLoggedOut(t *testing.T) {
	repo, store := newTestUserRepo(t)
	store.Corrupt(repository.SlotSession)

	assert.Nil(t, repo.Session(context.Background()))
}
