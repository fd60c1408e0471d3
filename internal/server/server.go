package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/accountd/apiserver/config"
	"github.com/accountd/apiserver/internal/db"
	"github.com/accountd/apiserver/internal/events"
	"github.com/accountd/apiserver/internal/handlers"
	"github.com/accountd/apiserver/internal/services"
	"github.com/accountd/apiserver/internal/store"
	"github.com/accountd/apiserver/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Publisher
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := newEventsPublisher(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	userService := services.NewUserService(userRepo, publisher)
	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	authMiddleware := handlers.NewMiddleware(userService, tokens)

	handlers.IncludeErrorDetail(cfg.Env != "production")

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/health", handlers.Health)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, tokens, authMiddleware)
	})
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.NotFound(handlers.NotFound)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.events != nil {
		_ = s.events.Close()
	}
	return s.httpServer.Close()
}

func newEventsPublisher(ctx context.Context, cfg config.EventsConfig) (*events.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := events.NewRabbitMQBackend(cfg.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("init rabbitmq events: %w", err)
		}
		return events.NewPublisher(backend, cfg.Topic), nil
	case "pubsub":
		backend, err := events.NewPubSubBackend(ctx, cfg.PubSubProjectID, cfg.PubSubCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("init pubsub events: %w", err)
		}
		return events.NewPublisher(backend, cfg.Topic), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
