// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// DEPENDENCY CHAIN (built once in New):
//
//	config → repository.Store (memory | sqlite | redis)
//	       → storage.Repository
//	       → InviteService → SessionService → AuthService
//	       → ChatService, FriendService, GameService
//	       → handlers → chi routes
//
// Nothing below this package knows which store backend is in use.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/rilmas/internal/auth"
	"github.com/sakif/rilmas/internal/config"
	"github.com/sakif/rilmas/internal/handler"
	"github.com/sakif/rilmas/internal/middleware"
	"github.com/sakif/rilmas/internal/model"
	"github.com/sakif/rilmas/internal/repository"
	"github.com/sakif/rilmas/internal/repository/memory"
	redisRepo "github.com/sakif/rilmas/internal/repository/redis"
	sqliteRepo "github.com/sakif/rilmas/internal/repository/sqlite"
	"github.com/sakif/rilmas/internal/service"
	"github.com/sakif/rilmas/internal/storage"
)

// shutdownTimeout is how long in-flight requests get after a stop signal.
const shutdownTimeout = 30 * time.Second

// Server owns the store for its whole life and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	store  repository.Store
	closer io.Closer // nil for the memory backend
}

// New opens the configured store and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, closer, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		closer: closer,
	}

	if err := s.setupRoutes(); err != nil {
		s.closeStore()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openStore returns the backend named by cfg.Backend. The io.Closer is nil
// when there is nothing to release.
func openStore(ctx context.Context, cfg config.StoreCfg, logger *slog.Logger) (repository.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using the in-memory store, nothing survives a restart")
		return memory.New(), nil, nil

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		return db, db, nil

	case config.BackendRedis:
		rs, err := redisRepo.New(ctx, redisRepo.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return rs, rs, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and routes.
//
// ROUTES:
//
//	GET   /healthz                       → liveness
//	GET   /api/session?invite=CODE       → session bootstrap
//	GET   /api/games?q=                  → games catalog search
//	POST  /auth/code                     → request a login code
//	POST  /auth/verify                   → exchange it for a session cookie
//	GET   /api/session/phase             → current screen
//	--- RequireAuth ---
//	POST  /auth/logout                   → log the device out
//	GET   /api/me                        → device user
//	PATCH /api/me                        → profile update
//	GET   /api/friends                   → friend list
//	GET   /api/friends/{friendID}        → one friend
//	POST  /api/invites                   → new invite link
//	GET   /api/chats                     → all chats
//	GET   /api/chats/{friendID}          → open chat (marks read)
//	POST  /api/chats/{friendID}/messages → send message
//	POST  /api/chats/{friendID}/read     → mark read
//
// Middleware runs in the order added: RequestID first so Logger can print
// the id, Recoverer last so a panic still gets logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Session.Secret, s.config.Session.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	repo := storage.New(s.store, s.logger)

	inviteService, err := service.NewInviteService(repo, s.config.Invite.BaseURL, s.logger)
	if err != nil {
		return fmt.Errorf("creating invite service: %w", err)
	}
	sessionService := service.NewSessionService(repo, inviteService, s.config.Session.Splash, s.config.Auth.MinPhoneLength, s.logger)
	codes, err := auth.NewCodeHasher(s.config.Auth.HashCost)
	if err != nil {
		return fmt.Errorf("creating code hasher: %w", err)
	}
	authService := service.NewAuthService(repo, sessionService, tokens, codes, service.AuthConfig{
		CodeTTL:        s.config.Auth.CodeTTL,
		CodeLength:     s.config.Auth.CodeLength,
		MinPhoneLength: s.config.Auth.MinPhoneLength,
	}, s.logger)
	chatService := service.NewChatService(repo, s.logger)
	friendService := service.NewFriendService(repo)
	gameService := service.NewGameService()

	sessionService.OnAuth(func(ctx context.Context, u model.User) {
		s.logger.DebugContext(ctx, "onAuth", slog.String("userID", u.UserID))
	})
	sessionService.OnUpdateUser(func(ctx context.Context, u model.User) {
		s.logger.DebugContext(ctx, "onUpdateUser", slog.String("userID", u.UserID))
	})

	sessionHandler := handler.NewSessionHandler(sessionService, s.logger)
	authHandler := handler.NewAuthHandler(authService, sessionService, tokens, s.logger)
	friendHandler := handler.NewFriendHandler(friendService, inviteService, sessionService, s.logger)
	chatHandler := handler.NewChatHandler(chatService, sessionService, s.logger)
	gameHandler := handler.NewGameHandler(gameService)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/code", authHandler.HandleRequestCode)
		r.Post("/verify", authHandler.HandleVerify)
		r.With(auth.RequireAuth(tokens)).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/session", sessionHandler.HandleStart)
		r.Get("/session/phase", sessionHandler.HandlePhase)
		r.Get("/games", gameHandler.HandleSearch)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", sessionHandler.HandleMe)
			r.Patch("/me", sessionHandler.HandleUpdateMe)
			r.Get("/friends", friendHandler.HandleList)
			r.Get("/friends/{friendID}", friendHandler.HandleGet)
			r.Post("/invites", friendHandler.HandleCreateInvite)

			r.Get("/chats", chatHandler.HandleList)
			r.Get("/chats/{friendID}", chatHandler.HandleOpen)
			r.Post("/chats/{friendID}/messages", chatHandler.HandleSend)
			r.Post("/chats/{friendID}/read", chatHandler.HandleMarkRead)
		})
	})

	return nil
}

// Start serves until ctx is cancelled, then shuts down gracefully:
//
//  1. stop accepting connections
//  2. wait up to shutdownTimeout for in-flight requests
//  3. close the store (flushes the sqlite WAL, drops redis connections)
//
// main passes a signal.NotifyContext so Ctrl+C and SIGTERM trigger step 1.
func (s *Server) Start(ctx context.Context) error {
	defer s.closeStore()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("store", s.config.Store.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}

func (s *Server) closeStore() {
	if s.closer == nil {
		return
	}
	if err := s.closer.Close(); err != nil {
		s.logger.Error("closing store", slog.String("error", err.Error()))
	}
	s.closer = nil
}
