package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/todo-manager/internal/auth"
	"github.com/sakif/todo-manager/internal/model"
	"github.com/sakif/todo-manager/internal/service"
)

// TodoHandler serves the session user's todos and subtasks. Every route sits
// behind auth.RequireSession, so the owner's email always comes from the
// request context and never from the URL or body.
type TodoHandler struct {
	todos  *service.TodoService
	logger *slog.Logger
	now    func() time.Time
}

func NewTodoHandler(todos *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{
		todos:  todos,
		logger: logger,
		now:    time.Now,
	}
}

type todoRequest struct {
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

type subtaskRequest struct {
	Title string `json:"title"`
}

// HandleList returns the dashboard.
//
// HTTP: GET /api/todos[?view=unchecked|checked]
//
// Without a view both halves are returned as {"unchecked": [...], "checked": [...]};
// with one, just that list.
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		writeJSON(w, http.StatusOK, h.todos.Board(r.Context(), email, h.now()))
		return
	}

	items, err := h.todos.View(r.Context(), email, model.View(view), h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleCreate adds a todo.
//
// HTTP: POST /api/todos
// REQUEST BODY: {"title": "Buy milk", "timestamp": "2024-01-01T10:00"}
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req todoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := h.todos.Add(r.Context(), email, req.Title, req.Timestamp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

// HandleGet returns one todo.
//
// HTTP: GET /api/todos/{id}
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}

	todo, err := h.todos.Get(r.Context(), email, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleUpdate replaces a todo's title and timestamp.
//
// HTTP: PUT /api/todos/{id}
// REQUEST BODY: {"title": "Buy oat milk", "timestamp": "2024-01-02T09:00"}
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req todoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := h.todos.Edit(r.Context(), email, r.PathValue("id"), req.Title, req.Timestamp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleDelete removes a todo.
//
// HTTP: DELETE /api/todos/{id}
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.todos.Remove(r.Context(), email, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggle flips a todo's completion, cascading to its subtasks.
//
// HTTP: POST /api/todos/{id}/toggle
func (h *TodoHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}

	todo, err := h.todos.ToggleCompleted(r.Context(), email, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleAddSubtask appends an empty subtask.
//
// HTTP: POST /api/todos/{id}/subtasks
func (h *TodoHandler) HandleAddSubtask(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}

	sub, err := h.todos.AddSubtask(r.Context(), email, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// HandleUpdateSubtask renames a subtask.
//
// HTTP: PUT /api/todos/{id}/subtasks/{subID}
// REQUEST BODY: {"title": "Pack bags"}
func (h *TodoHandler) HandleUpdateSubtask(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req subtaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.todos.EditSubtaskTitle(r.Context(), email, r.PathValue("id"), r.PathValue("subID"), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleSubtask flips a subtask and returns the parent todo.
//
// HTTP: POST /api/todos/{id}/subtasks/{subID}/toggle
func (h *TodoHandler) HandleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}

	todo, err := h.todos.ToggleSubtaskCompleted(r.Context(), email, r.PathValue("id"), r.PathValue("subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleDeleteSubtask removes a subtask.
//
// HTTP: DELETE /api/todos/{id}/subtasks/{subID}
func (h *TodoHandler) HandleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	email, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.todos.RemoveSubtask(r.Context(), email, r.PathValue("id"), r.PathValue("subID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// owner returns the session user's email, answering 401 when the route was
// mounted without the session guard.
func (h *TodoHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.logger.Warn("todo route reached without a session", slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return "", false
	}
	return user.Email, true
}
