package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/xid"
	"github.com/sakif/todo-manager/internal/apperror"
	"github.com/sakif/todo-manager/internal/model"
)

// TodoRepository performs CRUD and completion-cascade operations on one
// user's list inside the todos slot. Other users' lists are written back
// untouched.
//
// Lookups of a missing todo or subtask id are silent no-ops: nothing is
// written and no error is returned. The exceptions are Get and AddSubtask,
// which have nothing to return and report apperror.ErrNotFound.
type TodoRepository struct {
	store KeyValueStore
	newID func() string

	mu sync.Mutex // serializes read-modify-write cycles on the todos slot
}

func NewTodoRepository(store KeyValueStore) *TodoRepository {
	return &TodoRepository{
		store: store,
		newID: func() string { return xid.New().String() },
	}
}

// List returns the user's todos in stored order, or an empty slice when the
// user has no entry yet.
func (r *TodoRepository) List(ctx context.Context, email string) []model.Todo {
	for _, entry := range r.load(ctx) {
		if entry.User == email && entry.Data != nil {
			return entry.Data
		}
	}
	return []model.Todo{}
}

// Get returns a single todo.
func (r *TodoRepository) Get(ctx context.Context, email, id string) (*model.Todo, error) {
	todos := r.List(ctx, email)
	if i := indexOf(todos, id); i >= 0 {
		t := todos[i]
		return &t, nil
	}
	return nil, apperror.NotFound("todo", id)
}

// Add appends a new incomplete todo with no subtasks. The user's entry in
// the todos slot is created on first use.
func (r *TodoRepository) Add(ctx context.Context, email, title, timestamp string) (*model.Todo, error) {
	todo := model.Todo{
		ID:        r.newID(),
		Title:     title,
		Timestamp: timestamp,
		Completed: false,
		Subtasks:  []model.Subtask{},
	}

	err := r.mutate(ctx, email, func(todos []model.Todo) ([]model.Todo, bool) {
		return append(todos, todo), true
	})
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

// Edit replaces the title and timestamp of a todo.
func (r *TodoRepository) Edit(ctx context.Context, email, id, title, timestamp string) error {
	return r.mutateTodo(ctx, email, id, func(t *model.Todo) {
		t.Title = title
		t.Timestamp = timestamp
	})
}

// Remove deletes a todo.
func (r *TodoRepository) Remove(ctx context.Context, email, id string) error {
	return r.mutate(ctx, email, func(todos []model.Todo) ([]model.Todo, bool) {
		i := indexOf(todos, id)
		if i < 0 {
			return todos, false
		}
		return slices.Delete(todos, i, i+1), true
	})
}

// ToggleCompleted flips a todo's completion and sets every subtask to the
// new value.
func (r *TodoRepository) ToggleCompleted(ctx context.Context, email, id string) error {
	return r.mutateTodo(ctx, email, id, func(t *model.Todo) {
		t.Completed = !t.Completed
		for i := range t.Subtasks {
			t.Subtasks[i].Completed = t.Completed
		}
	})
}

// AddSubtask appends an empty, incomplete subtask. The parent's completion
// is left alone.
func (r *TodoRepository) AddSubtask(ctx context.Context, email, id string) (*model.Subtask, error) {
	sub := model.Subtask{ID: r.newID()}

	found := false
	err := r.mutateTodo(ctx, email, id, func(t *model.Todo) {
		t.Subtasks = append(t.Subtasks, sub)
		found = true
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("todo", id)
	}
	return &sub, nil
}

// EditSubtaskTitle replaces a subtask's title. Completion is untouched.
func (r *TodoRepository) EditSubtaskTitle(ctx context.Context, email, id, subID, title string) error {
	return r.mutateSubtask(ctx, email, id, subID, func(t *model.Todo, s *model.Subtask) {
		s.Title = title
	})
}

// ToggleSubtaskCompleted flips a subtask and recomputes the parent: it is
// complete iff it has subtasks and all of them are complete.
func (r *TodoRepository) ToggleSubtaskCompleted(ctx context.Context, email, id, subID string) error {
	return r.mutateSubtask(ctx, email, id, subID, func(t *model.Todo, s *model.Subtask) {
		s.Completed = !s.Completed
		t.Completed = allCompleted(t.Subtasks)
	})
}

// RemoveSubtask deletes a subtask. The parent's completion is not
// recomputed; only toggles do that.
func (r *TodoRepository) RemoveSubtask(ctx context.Context, email, id, subID string) error {
	return r.mutate(ctx, email, func(todos []model.Todo) ([]model.Todo, bool) {
		i := indexOf(todos, id)
		if i < 0 {
			return todos, false
		}
		j := subtaskIndex(todos[i].Subtasks, subID)
		if j < 0 {
			return todos, false
		}
		todos[i].Subtasks = slices.Delete(todos[i].Subtasks, j, j+1)
		return todos, true
	})
}

// load reads the whole todos slot. A missing or unreadable slot is empty,
// including one that decodes only partially.
func (r *TodoRepository) load(ctx context.Context) []model.UserTodos {
	var all []model.UserTodos
	if !r.store.Get(ctx, SlotTodos, &all) {
		return nil
	}
	return all
}

// mutate runs fn over the user's list and writes the slot back when fn
// reports a change.
func (r *TodoRepository) mutate(ctx context.Context, email string, fn func([]model.Todo) ([]model.Todo, bool)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.load(ctx)
	idx := slices.IndexFunc(all, func(e model.UserTodos) bool { return e.User == email })

	var current []model.Todo
	if idx >= 0 {
		current = all[idx].Data
	}

	next, changed := fn(current)
	if !changed {
		return nil
	}
	if next == nil {
		next = []model.Todo{}
	}

	if idx >= 0 {
		all[idx].Data = next
	} else {
		all = append(all, model.UserTodos{User: email, Data: next})
	}

	if err := r.store.Set(ctx, SlotTodos, all); err != nil {
		return fmt.Errorf("repository: writing todos for %s: %w", email, err)
	}
	return nil
}

func (r *TodoRepository) mutateTodo(ctx context.Context, email, id string, fn func(*model.Todo)) error {
	return r.mutate(ctx, email, func(todos []model.Todo) ([]model.Todo, bool) {
		i := indexOf(todos, id)
		if i < 0 {
			return todos, false
		}
		fn(&todos[i])
		return todos, true
	})
}

func (r *TodoRepository) mutateSubtask(ctx context.Context, email, id, subID string, fn func(*model.Todo, *model.Subtask)) error {
	return r.mutate(ctx, email, func(todos []model.Todo) ([]model.Todo, bool) {
		i := indexOf(todos, id)
		if i < 0 {
			return todos, false
		}
		j := subtaskIndex(todos[i].Subtasks, subID)
		if j < 0 {
			return todos, false
		}
		fn(&todos[i], &todos[i].Subtasks[j])
		return todos, true
	})
}

func indexOf(todos []model.Todo, id string) int {
	return slices.IndexFunc(todos, func(t model.Todo) bool { return t.ID == id })
}

func subtaskIndex(subtasks []model.Subtask, id string) int {
	return slices.IndexFunc(subtasks, func(s model.Subtask) bool { return s.ID == id })
}

func allCompleted(subtasks []model.Subtask) bool {
	if len(subtasks) == 0 {
		return false
	}
	for _, s := range subtasks {
		if !s.Completed {
			return false
		}
	}
	return true
}
