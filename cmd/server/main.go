package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/HarpithaAakula/Dev-Collab/internal/app"
	"github.com/HarpithaAakula/Dev-Collab/internal/gamify"
	httpx "github.com/HarpithaAakula/Dev-Collab/internal/http"
	"github.com/HarpithaAakula/Dev-Collab/internal/store"
	"github.com/HarpithaAakula/Dev-Collab/internal/ws"
	"github.com/HarpithaAakula/Dev-Collab/pkg/auth"
	"github.com/HarpithaAakula/Dev-Collab/pkg/metrics"
	"github.com/HarpithaAakula/Dev-Collab/pkg/ratelimit"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres connection + migrations
	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		log.Fatal(err)
	}
	defer pg.Close()
	if err := store.RunMigrations(ctx, pg, logger); err != nil {
		logger.Error("migrations", "err", err)
		log.Fatal(err)
	}

	met := metrics.New()
	engine := gamify.New(logger, pg)
	jwt := auth.New(cfg.JWTSecret)

	// Collaboration hub
	hub := ws.NewHub(logger, pg, ws.NewRegistry(cfg.ChatScrollback), met)
	hub.SetAuth(func(tok string) (string, string, error) {
		id, err := jwt.Verify(tok)
		return id.UserID, id.Name, err
	})
	hub.SetAwarder(engine)
	hub.SetLimiter(ratelimit.New(100, time.Second))
	go hub.Run(ctx)

	// Badge earns become notifications, stored and pushed live.
	engine.SetNotifier(func(ctx context.Context, userID string, b gamify.Badge) {
		n := store.Notification{
			RecipientID: userID,
			Type:        "badge_earned",
			Message:     "You earned the " + b.Name + " badge " + b.Icon,
		}
		if _, err := pg.CreateNotification(ctx, n); err != nil {
			logger.Warn("badge.notify", "user", userID, "err", err)
			return
		}
		hub.NotifyUser(userID, map[string]any{"type": n.Type, "badge": b})
	})

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, pg, engine, met)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
