package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/daybook/apiserver/config"
	"github.com/daybook/apiserver/internal/db"
	"github.com/daybook/apiserver/internal/handlers"
	"github.com/daybook/apiserver/internal/mq"
	"github.com/daybook/apiserver/internal/services"
	"github.com/daybook/apiserver/internal/storage"
	"github.com/daybook/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with all dependencies wired explicitly.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := validateJWT(cfg.JWT); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	todoRepo := store.NewTodoRepository(dbConn)
	journalRepo := store.NewJournalRepository(dbConn)

	events := services.NewEventPublisher(broker)
	authService := services.NewAuthService(userRepo, cfg.JWT, events)
	todoService := services.NewTodoService(todoRepo, events)
	journalService := services.NewJournalService(journalRepo, events)
	profileService := services.NewProfileService(userRepo, todoRepo, journalRepo)

	exportService, err := openExportService(ctx, cfg, todoRepo, journalRepo)
	if err != nil {
		_ = dbConn.Close()
		if broker != nil {
			_ = broker.Close()
		}
		return nil, err
	}

	authMiddleware := handlers.RequireAuth(authService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService)
	})
	router.Route("/todos", func(r chi.Router) {
		handlers.TodoRouter(r, todoService, authMiddleware)
	})
	router.Route("/journal", func(r chi.Router) {
		handlers.JournalRouter(r, journalService, authMiddleware)
	})
	router.Route("/profile", func(r chi.Router) {
		handlers.ProfileRouter(r, profileService, exportService, authMiddleware)
	})

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
		broker:     broker,
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
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}

func validateJWT(cfg config.JWTConfig) error {
	if strings.TrimSpace(cfg.Secret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return errors.New("JWT_ISSUER is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return errors.New("JWT_AUDIENCE is required")
	}
	return nil
}

// openBroker connects the configured event broker, or returns nil when no
// backend is selected (events disabled).
func openBroker(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQ.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, err
		}
		log.Info().Str("backend", "rabbitmq").Msg("event broker connected")
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, err
		}
		log.Info().Str("backend", "pubsub").Msg("event broker connected")
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}

// openExportService connects the configured object storage and wires the
// export service, or returns nil when no backend is selected.
func openExportService(ctx context.Context, cfg config.Config, todos services.TodoRepository, journals services.JournalRepository) (*services.ExportService, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	st := storage.NewStorage(backend)
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("backend", cfg.Storage.Backend).Str("bucket", st.Bucket()).Msg("export storage ready")
	return services.NewExportService(todos, journals, st), nil
}
