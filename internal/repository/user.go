package repository

import (
	"context"
	"fmt"

	"github.com/sakif/todo-manager/internal/model"
)

// UserRepository reads and writes the users registry and the session slot.
// It holds no lock of its own; AuthService serializes every caller.
type UserRepository struct {
	store KeyValueStore
}

func NewUserRepository(store KeyValueStore) *UserRepository {
	return &UserRepository{store: store}
}

// List returns the registry. ok is false when the users slot has never been
// written, which is how first-ever registration is detected.
func (r *UserRepository) List(ctx context.Context) (users []model.User, ok bool) {
	if !r.store.Get(ctx, SlotUsers, &users) {
		return nil, false
	}
	return users, true
}

// FindByEmail returns the registered user with the given email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, bool) {
	users, _ := r.List(ctx)
	for i := range users {
		if users[i].Email == email {
			u := users[i]
			return &u, true
		}
	}
	return nil, false
}

// Save writes user into the registry, replacing the entry with the same email
// or appending when there is none. The users slot is created when missing.
func (r *UserRepository) Save(ctx context.Context, user model.User) error {
	users, _ := r.List(ctx)

	replaced := false
	for i := range users {
		if users[i].Email == user.Email {
			users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, user)
	}

	if err := r.store.Set(ctx, SlotUsers, users); err != nil {
		return fmt.Errorf("repository: saving user %s: %w", user.Email, err)
	}
	return nil
}

// Session returns the current session user, or nil when nobody is logged in.
func (r *UserRepository) Session(ctx context.Context) *model.User {
	var u *model.User
	if !r.store.Get(ctx, SlotSession, &u) {
		return nil
	}
	return u
}

// SetSession overwrites the session slot with user.
func (r *UserRepository) SetSession(ctx context.Context, user model.User) error {
	if err := r.store.Set(ctx, SlotSession, user); err != nil {
		return fmt.Errorf("repository: writing session for %s: %w", user.Email, err)
	}
	return nil
}

// ClearSession stores null in the session slot.
func (r *UserRepository) ClearSession(ctx context.Context) error {
	if err := r.store.Set(ctx, SlotSession, nil); err != nil {
		return fmt.Errorf("repository: clearing session: %w", err)
	}
	return nil
}
