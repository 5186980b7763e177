// Command invite issues a registration invitation from the operator's shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/db"
	"portfolio/internal/models"
	"portfolio/internal/notify"
	"portfolio/internal/service"
	"portfolio/internal/store"
)

func main() {
	email := flag.String("email", "", "email address the invitation is bound to")
	code := flag.String("code", "", "invitation code (random when empty)")
	ttl := flag.Duration("ttl", 0, "validity, e.g. 48h (INVITE_TTL_HOURS when zero)")
	createdBy := flag.String("created-by", "operator", "issuer recorded on the invitation")
	send := flag.Bool("send", false, "deliver the invitation with the configured INVITE_SENDER")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
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

	opts := []service.Option{service.WithSender(discard{})}
	if *send {
		opts = []service.Option{service.WithSender(notify.NewSender(cfg))}
	}
	svc := service.New(cfg, store.New(sqdb, cfg.DBDriver), hasher, nil, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	inv, err := svc.CreateInvitation(ctx, service.CreateInvitationInput{
		Email:     *email,
		Code:      *code,
		TTL:       *ttl,
		CreatedBy: *createdBy,
	})
	if err != nil {
		log.Fatalf("create invitation: %s", service.Message(err))
	}
	fmt.Printf("code=%s email=%s expires_at=%s\n", inv.Code, inv.Email, inv.ExpiresAt.Format(time.RFC3339))
}

type discard struct{}

func (discard) SendInvitation(context.Context, models.Invitation) error { return nil }
