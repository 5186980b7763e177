package service

import (
	"context"
	"errors"
	"log"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/auth"
	"portfolio/internal/models"
	"portfolio/internal/notice"
	"portfolio/internal/store"
)

type CreateInvitationInput struct {
	Email     string
	Code      string
	TTL       time.Duration
	CreatedBy string
}

// CreateInvitation issues a single-use registration code bound to Email and
// hands it to the configured sender. A delivery failure is logged; the
// invitation is still returned.
func (s *Service) CreateInvitation(ctx context.Context, in CreateInvitationInput) (models.Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return models.Invitation{}, validation(MsgMissingFields)
	}
	if addr, err := netmail.ParseAddress(email); err != nil || addr.Address != email {
		return models.Invitation{}, validation(MsgInvalidEmail)
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		var err error
		if code, err = auth.NewInvitationCode(); err != nil {
			return models.Invitation{}, internal(err)
		}
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.cfg.InviteTTL()
	}
	createdBy := strings.TrimSpace(in.CreatedBy)
	if createdBy == "" {
		createdBy = "system"
	}

	now := s.now()
	inv := models.Invitation{
		ID:        uuid.NewString(),
		Code:      code,
		Email:     email,
		ExpiresAt: now.Add(ttl),
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	if err := s.st.CreateInvitation(ctx, inv); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Invitation{}, conflict(MsgInvitationExists)
		}
		return models.Invitation{}, internal(err)
	}
	if err := s.sender.SendInvitation(ctx, inv); err != nil {
		log.Printf("invitation delivery_failed invitation_id=%s email=%s err=%v", inv.ID, inv.Email, err)
	}
	s.bus.Publish(notice.Event{Kind: notice.InvitationCreated, AccountID: createdBy, Detail: inv.Email, At: now})
	return inv, nil
}

// EnsureInvitation creates the invitation with the given code unless one
// already exists. Used for bootstrap configuration on every start.
func (s *Service) EnsureInvitation(ctx context.Context, code, email string) (models.Invitation, bool, error) {
	code = strings.TrimSpace(code)
	existing, err := s.st.GetInvitationByCode(ctx, code)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Invitation{}, false, internal(err)
	}
	inv, err := s.CreateInvitation(ctx, CreateInvitationInput{Email: email, Code: code, CreatedBy: "bootstrap"})
	if err != nil {
		return models.Invitation{}, false, err
	}
	return inv, true, nil
}
