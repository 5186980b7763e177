package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"portfolio/internal/auth"
	"portfolio/internal/models"
	"portfolio/internal/notice"
	"portfolio/internal/store"
)

type RegisterInput struct {
	InvitationCode string
	Username       string
	Email          string
	Password       string
}

// Register creates an account from an unused invitation. The account insert
// and the invitation update are separate writes: if the second fails the
// account is kept and the invitation may stay usable until it expires.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.PublicAccount, error) {
	a, err := s.register(ctx, in)
	s.metrics.Registration(outcome(err))
	if err != nil {
		s.publish(notice.RegisterFailed, models.Account{Username: strings.TrimSpace(in.Username)}, Message(err))
		return models.PublicAccount{}, err
	}
	s.publish(notice.RegisterSucceeded, a, "")
	return a.Public(), nil
}

func (s *Service) register(ctx context.Context, in RegisterInput) (models.Account, error) {
	code := strings.TrimSpace(in.InvitationCode)
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if code == "" || username == "" || email == "" || in.Password == "" {
		return models.Account{}, validation(MsgMissingFields)
	}

	now := s.now()
	inv, err := s.st.GetInvitationByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return models.Account{}, authErr(MsgInvalidInvitation)
	}
	if err != nil {
		return models.Account{}, internal(err)
	}
	if !inv.Consumable(now) {
		return models.Account{}, authErr(MsgInvalidInvitation)
	}
	if !strings.EqualFold(strings.TrimSpace(inv.Email), email) {
		return models.Account{}, authErr(MsgEmailMismatch)
	}

	if _, err := s.st.GetAccountByUsername(ctx, username); err == nil {
		return models.Account{}, conflict(MsgUsernameTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.Account{}, internal(err)
	}
	if _, err := s.st.GetAccountByEmail(ctx, email); err == nil {
		return models.Account{}, conflict(MsgEmailRegistered)
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.Account{}, internal(err)
	}

	if err := s.CheckPassword(in.Password); err != nil {
		return models.Account{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.Account{}, internal(err)
	}

	createdBy := inv.CreatedBy
	a := models.Account{
		ID:           auth.NewAccountID(),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		IsVerified:   true,
		InvitedBy:    &createdBy,
		CreatedAt:    now,
	}
	if err := s.st.CreateAccount(ctx, a); err != nil {
		var ce store.ConflictError
		if errors.As(err, &ce) {
			switch ce.Field {
			case "username":
				return models.Account{}, conflict(MsgUsernameTaken)
			case "email":
				return models.Account{}, conflict(MsgEmailRegistered)
			}
		}
		return models.Account{}, internal(err)
	}

	if err := s.st.ConsumeInvitation(ctx, inv.ID, a.ID, now); err != nil {
		log.Printf("registration invitation_consume_failed invitation_id=%s account_id=%s err=%v", inv.ID, a.ID, err)
	}
	return a, nil
}

// CheckPassword applies the length policy shared by the register form and the service.
func (s *Service) CheckPassword(password string) error {
	if utf8.RuneCountInString(password) < s.cfg.PasswordMinLength {
		return validation(fmt.Sprintf("password must be at least %d characters", s.cfg.PasswordMinLength))
	}
	if s.cfg.PasswordMaxLength > 0 && len(password) > s.cfg.PasswordMaxLength {
		return validation(fmt.Sprintf("password must be at most %d bytes", s.cfg.PasswordMaxLength))
	}
	return nil
}
