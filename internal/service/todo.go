package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/todo-manager/internal/apperror"
	"github.com/sakif/todo-manager/internal/model"
	"github.com/sakif/todo-manager/internal/repository"
)

// BoardItem is a todo as displayed on the dashboard.
type BoardItem struct {
	model.Todo
	Due model.DueStatus `json:"due"`
}

// Board is a user's dashboard: incomplete todos oldest first, completed
// todos newest first.
type Board struct {
	Unchecked []BoardItem `json:"unchecked"`
	Checked   []BoardItem `json:"checked"`
}

// TodoService validates todo input and delegates storage to
// TodoRepository. Every method is scoped to one user's email.
type TodoService struct {
	repo   *repository.TodoRepository
	logger *slog.Logger
}

func NewTodoService(repo *repository.TodoRepository, logger *slog.Logger) *TodoService {
	return &TodoService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the user's todos in stored order.
func (s *TodoService) List(ctx context.Context, email string) []model.Todo {
	return s.repo.List(ctx, email)
}

// Get returns one todo or apperror.ErrNotFound.
func (s *TodoService) Get(ctx context.Context, email, id string) (*model.Todo, error) {
	return s.repo.Get(ctx, email, id)
}

// Board arranges the user's todos into the two dashboard views, with due
// status computed against now.
func (s *TodoService) Board(ctx context.Context, email string, now time.Time) *Board {
	todos := s.repo.List(ctx, email)
	return &Board{
		Unchecked: boardItems(model.Arrange(todos, model.ViewUnchecked), now),
		Checked:   boardItems(model.Arrange(todos, model.ViewChecked), now),
	}
}

// View returns a single dashboard view.
func (s *TodoService) View(ctx context.Context, email string, view model.View, now time.Time) ([]BoardItem, error) {
	if !view.Valid() {
		return nil, apperror.ValidationFailed("view", fmt.Sprintf("unknown view %q", view))
	}
	return boardItems(model.Arrange(s.repo.List(ctx, email), view), now), nil
}

// Add validates and stores a new todo.
func (s *TodoService) Add(ctx context.Context, email, title, timestamp string) (*model.Todo, error) {
	title = strings.TrimSpace(title)
	if err := validateTodo(title, timestamp); err != nil {
		return nil, err
	}

	todo, err := s.repo.Add(ctx, email, title, timestamp)
	if err != nil {
		s.logger.Error("failed to add todo",
			slog.String("user", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding todo: %w", err)
	}

	s.logger.Info("todo added",
		slog.String("user", email),
		slog.String("id", todo.ID),
	)
	return todo, nil
}

// Edit validates and replaces a todo's title and timestamp, returning the
// stored result. A missing id yields apperror.ErrNotFound.
func (s *TodoService) Edit(ctx context.Context, email, id, title, timestamp string) (*model.Todo, error) {
	title = strings.TrimSpace(title)
	if err := validateTodo(title, timestamp); err != nil {
		return nil, err
	}

	if err := s.repo.Edit(ctx, email, id, title, timestamp); err != nil {
		s.logger.Error("failed to edit todo",
			slog.String("user", email),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("editing todo: %w", err)
	}

	todo, err := s.repo.Get(ctx, email, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("todo edited", slog.String("user", email), slog.String("id", id))
	return todo, nil
}

// Remove deletes a todo. Removing an unknown id is not an error.
func (s *TodoService) Remove(ctx context.Context, email, id string) error {
	if err := s.repo.Remove(ctx, email, id); err != nil {
		return fmt.Errorf("removing todo: %w", err)
	}
	s.logger.Info("todo removed", slog.String("user", email), slog.String("id", id))
	return nil
}

// ToggleCompleted flips a todo and cascades the new value to its subtasks.
func (s *TodoService) ToggleCompleted(ctx context.Context, email, id string) (*model.Todo, error) {
	if err := s.repo.ToggleCompleted(ctx, email, id); err != nil {
		return nil, fmt.Errorf("toggling todo: %w", err)
	}
	todo, err := s.repo.Get(ctx, email, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("todo toggled",
		slog.String("user", email),
		slog.String("id", id),
		slog.Bool("completed", todo.Completed),
	)
	return todo, nil
}

// AddSubtask appends an empty subtask to a todo.
func (s *TodoService) AddSubtask(ctx context.Context, email, id string) (*model.Subtask, error) {
	sub, err := s.repo.AddSubtask(ctx, email, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subtask added",
		slog.String("user", email),
		slog.String("todo", id),
		slog.String("id", sub.ID),
	)
	return sub, nil
}

// EditSubtaskTitle renames a subtask. Empty titles are allowed: a fresh
// subtask starts empty and is renamed as the user types.
func (s *TodoService) EditSubtaskTitle(ctx context.Context, email, id, subID, title string) error {
	if err := s.repo.EditSubtaskTitle(ctx, email, id, subID, title); err != nil {
		return fmt.Errorf("editing subtask: %w", err)
	}
	return nil
}

// ToggleSubtaskCompleted flips a subtask and returns the parent with its
// recomputed completion.
func (s *TodoService) ToggleSubtaskCompleted(ctx context.Context, email, id, subID string) (*model.Todo, error) {
	if err := s.repo.ToggleSubtaskCompleted(ctx, email, id, subID); err != nil {
		return nil, fmt.Errorf("toggling subtask: %w", err)
	}
	todo, err := s.repo.Get(ctx, email, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subtask toggled",
		slog.String("user", email),
		slog.String("todo", id),
		slog.String("id", subID),
		slog.Bool("parentCompleted", todo.Completed),
	)
	return todo, nil
}

// RemoveSubtask deletes a subtask.
func (s *TodoService) RemoveSubtask(ctx context.Context, email, id, subID string) error {
	if err := s.repo.RemoveSubtask(ctx, email, id, subID); err != nil {
		return fmt.Errorf("removing subtask: %w", err)
	}
	s.logger.Info("subtask removed",
		slog.String("user", email),
		slog.String("todo", id),
		slog.String("id", subID),
	)
	return nil
}

// validateTodo reports both field problems at once, like the add/edit form.
func validateTodo(title, timestamp string) error {
	var errs apperror.FieldErrors
	if title == "" {
		errs = append(errs, apperror.ValidationFailed("title", "Title is required"))
	}
	if timestamp == "" {
		errs = append(errs, apperror.ValidationFailed("timestamp", "Date Time is required"))
	} else if _, err := model.ParseTimestamp(timestamp, time.UTC); err != nil {
		errs = append(errs, apperror.ValidationFailed("timestamp", "Invalid date time"))
	}
	return errs.OrNil()
}

func boardItems(todos []model.Todo, now time.Time) []BoardItem {
	items := make([]BoardItem, 0, len(todos))
	for _, t := range todos {
		items = append(items, BoardItem{Todo: t, Due: t.Due(now)})
	}
	return items
}
