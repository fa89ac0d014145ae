package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/whisper-chat/relay/internal/auth"
	"github.com/whisper-chat/relay/internal/config"
	"github.com/whisper-chat/relay/internal/database"
	"github.com/whisper-chat/relay/internal/presence"
	"github.com/whisper-chat/relay/internal/repository"
	memoryrepo "github.com/whisper-chat/relay/internal/repository/memory"
	postgresrepo "github.com/whisper-chat/relay/internal/repository/postgres"
	"github.com/whisper-chat/relay/internal/service"
	"github.com/whisper-chat/relay/internal/transport/http/handlers"
	"github.com/whisper-chat/relay/internal/transport/http/middleware"
	"github.com/whisper-chat/relay/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var userRepo repository.UserRepository
	var messageRepo repository.MessageRepository

	switch cfg.StoreBackend {
	case "memory":
		userRepo = memoryrepo.NewUserRepo()
		messageRepo = memoryrepo.NewMessageRepo()
		logrus.Warn("using in-memory store; nothing survives a restart")
	default:
		if err := database.Migrate(ctx, cfg); err != nil {
			logrus.Fatal(err)
		}
		pool, err := database.Connect(cfg)
		if err != nil {
			logrus.Fatal(err)
		}
		defer pool.Close()
		userRepo = postgresrepo.NewUserRepo(pool)
		messageRepo = postgresrepo.NewMessageRepo(pool)
		logrus.Info("connected to database")
	}

	// Presence registry lives for the process lifetime; every user is
	// offline until they re-authenticate.
	registry := presence.NewRegistry()
	verifier := auth.NewJWTVerifier(cfg.JWTSecret, userRepo)

	relayService := service.NewRelayService(registry, messageRepo, userRepo, verifier, cfg.DrainBatchSize)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	contactService := service.NewContactService(userRepo)

	authHandler := handlers.NewAuthHandler(authService)
	contactHandler := handlers.NewContactHandler(contactService)
	messageHandler := handlers.NewMessageHandler(messageRepo)

	authMW := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Real-time protocol; authentication happens in-band.
	mux.HandleFunc("GET /ws", ws.ServeWS(relayService))

	// Protected
	mux.Handle("POST /api/v1/contacts", authMW(http.HandlerFunc(contactHandler.Add)))
	mux.Handle("GET /api/v1/contacts", authMW(http.HandlerFunc(contactHandler.List)))
	mux.Handle("DELETE /api/v1/contacts/{id}", authMW(http.HandlerFunc(contactHandler.Remove)))
	mux.Handle("GET /api/v1/users/{id}", authMW(http.HandlerFunc(contactHandler.Get)))
	mux.Handle("GET /api/v1/messages/{id}", authMW(http.HandlerFunc(messageHandler.List)))

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: middleware.CORS(mux),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.Infof("starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.Fatal(err)
	}
}
