package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/libranet/apiserver/config"
	"github.com/libranet/apiserver/internal/db"
	"github.com/libranet/apiserver/internal/handlers"
	"github.com/libranet/apiserver/internal/logger"
	"github.com/libranet/apiserver/internal/mq"
	"github.com/libranet/apiserver/internal/services"
	"github.com/libranet/apiserver/internal/storage"
	"github.com/libranet/apiserver/internal/store"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with all services wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logger.New()

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init mq backend: %w", err)
	}

	archive, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage backend: %w", err)
	}
	if archive != nil {
		if err := archive.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("ensure archive bucket: %w", err)
		}
	}

	userRepo := store.NewUserRepository(dbConn)
	bookRepo := store.NewBookRepository(dbConn)
	borrowRepo := store.NewBorrowRequestRepository(dbConn)

	accountService := services.NewAccountService(userRepo)
	catalogService := services.NewCatalogService(bookRepo)

	var publisher services.EventPublisher
	if broker != nil {
		publisher = broker
	}
	borrowService := services.NewBorrowService(borrowRepo, bookRepo, publisher, log)

	var exportArchive services.ExportArchive
	if archive != nil {
		exportArchive = archive
	}
	historyService := services.NewHistoryService(borrowRepo, bookRepo, userRepo, exportArchive)

	if err := accountService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure admin account: %w", err)
	}

	authMiddleware := handlers.RequireAuth(jwtSecret, accountService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(log),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(accountService, jwtSecret, log), authMiddleware)
	})
	router.Route("/me", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.MeRouter(r, handlers.NewMeHandler(historyService, log))
	})
	router.Route("/books", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.BookRouter(r, handlers.NewBookHandler(catalogService, log))
	})
	router.Route("/borrow-requests", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.BorrowRouter(r, handlers.NewBorrowHandler(borrowService, log))
	})
	router.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.UserRouter(r, handlers.NewUserHandler(accountService, historyService, log))
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
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// requestLogger emits one structured log line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
