package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio/internal/api"
	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/db"
	"portfolio/internal/metrics"
	"portfolio/internal/notice"
	"portfolio/internal/notify"
	"portfolio/internal/service"
	"portfolio/internal/store"
	"portfolio/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("starting version=%s driver=%s", version.Current(), cfg.DBDriver)

	sqdb, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer sqdb.Close()
	if err := db.ApplyMigrations(sqdb, cfg.MigrationsDir, cfg.DBDriver); err != nil {
		log.Fatalf("migration: %v", err)
	}

	hasher, err := auth.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("password hasher: %v", err)
	}

	bus := notice.NewBus(notice.DefaultMaxSubscribers)
	defer bus.Close()
	events, unsubscribe, err := bus.Subscribe(64)
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()
	go logEvents(events)

	m := metrics.New()
	svc := service.New(cfg, store.New(sqdb, cfg.DBDriver), hasher, bus,
		service.WithMetrics(m),
		service.WithSender(notify.NewSender(cfg)),
	)

	if cfg.BootstrapInviteCode != "" {
		inv, created, err := svc.EnsureInvitation(context.Background(), cfg.BootstrapInviteCode, cfg.BootstrapInviteEmail)
		if err != nil {
			log.Fatalf("bootstrap invitation: %v", err)
		}
		if created {
			log.Printf("bootstrap invitation created email=%s expires_at=%s", inv.Email, inv.ExpiresAt.Format(time.RFC3339))
		}
	}

	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(cfg, svc, m),
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hsrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}

func logEvents(events <-chan notice.Event) {
	for ev := range events {
		log.Printf("event kind=%s account_id=%s username=%s detail=%q", ev.Kind, ev.AccountID, ev.Username, ev.Detail)
	}
}
