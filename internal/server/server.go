// Package server is the composition root: it opens the slot store, builds
// repositories, services and handlers, and mounts them on a chi router.
//
//	config → store (sqlite | memory) → repositories → services → handlers → router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/todo-manager/internal/auth"
	"github.com/sakif/todo-manager/internal/config"
	"github.com/sakif/todo-manager/internal/handler"
	"github.com/sakif/todo-manager/internal/middleware"
	"github.com/sakif/todo-manager/internal/repository"
	"github.com/sakif/todo-manager/internal/repository/memory"
	sqliteRepo "github.com/sakif/todo-manager/internal/repository/sqlite"
	"github.com/sakif/todo-manager/internal/service"
)

// Store is a slot store the server can health-check and close.
type Store interface {
	repository.KeyValueStore
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore opens the store selected by cfg.Store.
func OpenStore(cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil
	case config.StoreSQLite:
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, err
		}
		db, err := sqliteRepo.New(cfg.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Server represents the HTTP server and all its dependencies. It owns the
// store and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  Store
	auth   *service.AuthService
}

// New wires every layer on top of store.
func New(cfg *config.Config, store Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the root handler. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and routes.
//
// ROUTES:
//
//	GET    /health
//	POST   /auth/login
//	POST   /auth/oauth/token
//	GET    /auth/google/login                      (Google configured)
//	GET    /auth/google/callback                   (Google configured)
//	POST   /auth/logout
//	GET    /api/me                                 ┐
//	GET    /api/todos                              │
//	POST   /api/todos                              │
//	GET    /api/todos/{id}                         │
//	PUT    /api/todos/{id}                         │ session guard
//	DELETE /api/todos/{id}                         │
//	POST   /api/todos/{id}/toggle                  │
//	POST   /api/todos/{id}/subtasks                │
//	PUT    /api/todos/{id}/subtasks/{subID}        │
//	POST   /api/todos/{id}/subtasks/{subID}/toggle │
//	DELETE /api/todos/{id}/subtasks/{subID}        ┘
//
// Middleware order: request id, real ip, logger, recoverer, cors.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var (
		google *auth.GoogleProvider
		states *auth.StateService
	)
	if s.config.GoogleEnabled() {
		google = auth.NewGoogleProvider(
			s.config.Google.ClientID,
			s.config.Google.ClientSecret,
			s.config.Google.CallbackURL,
		)
		var err error
		states, err = auth.NewStateService(s.config.StateSecret)
		if err != nil {
			return fmt.Errorf("creating state service: %w", err)
		}
	} else {
		s.logger.Warn("Google login disabled; set google.client_id, google.client_secret and state_secret to enable it")
	}

	// A nil *GoogleProvider must not become a non-nil interface value.
	var provider service.IdentityProvider
	if google != nil {
		provider = google
	}

	s.auth = service.NewAuthService(repository.NewUserRepository(s.store), provider, s.logger)
	s.auth.Start(context.Background())
	todoService := service.NewTodoService(repository.NewTodoRepository(s.store), s.logger)

	authHandler := handler.NewAuthHandler(s.auth, google, states, s.config.RedirectURL, s.logger)
	todoHandler := handler.NewTodoHandler(todoService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Get("/health", healthHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/oauth/token", authHandler.HandleTokenLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if google != nil {
			r.Get("/google/login", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireSession(s.auth))

		r.Get("/me", authHandler.HandleMe)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", todoHandler.HandleList)
			r.Post("/", todoHandler.HandleCreate)
			r.Get("/{id}", todoHandler.HandleGet)
			r.Put("/{id}", todoHandler.HandleUpdate)
			r.Delete("/{id}", todoHandler.HandleDelete)
			r.Post("/{id}/toggle", todoHandler.HandleToggle)
			r.Post("/{id}/subtasks", todoHandler.HandleAddSubtask)
			r.Put("/{id}/subtasks/{subID}", todoHandler.HandleUpdateSubtask)
			r.Post("/{id}/subtasks/{subID}/toggle", todoHandler.HandleToggleSubtask)
			r.Delete("/{id}/subtasks/{subID}", todoHandler.HandleDeleteSubtask)
		})
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.Store),
			slog.String("session", string(s.auth.Status())),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
