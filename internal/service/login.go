package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/auth"
	"portfolio/internal/models"
	"portfolio/internal/notice"
	"portfolio/internal/store"
)

type LoginResult struct {
	SessionToken string
	ExpiresAt    time.Time
	User         models.PublicAccount
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	res, a, err := s.login(ctx, username, password)
	s.metrics.Login(outcome(err))
	if err != nil {
		if a.Username == "" {
			a.Username = strings.TrimSpace(username)
		}
		s.publish(notice.LoginFailed, a, Message(err))
		return LoginResult{}, err
	}
	s.publish(notice.LoginSucceeded, a, "")
	return res, nil
}

func (s *Service) login(ctx context.Context, username, password string) (LoginResult, models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, models.Account{}, validation(MsgMissingCredentials)
	}

	a, err := s.st.GetAccountByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, models.Account{}, authErr(MsgInvalidCredentials)
	}
	if err != nil {
		return LoginResult{}, models.Account{}, internal(err)
	}

	now := s.now()
	if a.Locked(now) {
		return LoginResult{}, a, &Error{Kind: ErrLocked, Msg: MsgLocked}
	}

	if !s.hasher.Verify(password, a.PasswordHash) {
		return LoginResult{}, a, s.recordFailure(ctx, a, now)
	}

	raw, hash, err := auth.NewSessionToken()
	if err != nil {
		return LoginResult{}, a, internal(err)
	}
	sess := models.Session{
		ID:          uuid.NewString(),
		TokenHash:   hash,
		AdminUserID: a.ID,
		ExpiresAt:   now.Add(s.cfg.SessionTTL()),
		CreatedAt:   now,
	}
	if err := s.st.CreateSession(ctx, sess); err != nil {
		return LoginResult{}, a, internal(err)
	}
	if err := s.st.RecordSuccessfulLogin(ctx, a.ID, now); err != nil {
		if derr := s.st.DeleteSession(ctx, hash); derr != nil {
			log.Printf("login session_rollback_failed account_id=%s err=%v", a.ID, derr)
		}
		return LoginResult{}, a, internal(err)
	}
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.LastLogin = &now
	return LoginResult{SessionToken: raw, ExpiresAt: sess.ExpiresAt, User: a.Public()}, a, nil
}

// recordFailure writes back the value read at the start of the request plus
// one. Two concurrent failures for the same account can both write the same
// count.
func (s *Service) recordFailure(ctx context.Context, a models.Account, now time.Time) error {
	attempts := a.FailedLoginAttempts + 1
	var lockedUntil *time.Time
	if attempts >= s.cfg.LockoutThreshold {
		until := now.Add(s.cfg.LockoutWindow())
		lockedUntil = &until
	}
	if err := s.st.RecordFailedLogin(ctx, a.ID, attempts, lockedUntil); err != nil {
		return internal(err)
	}
	if lockedUntil != nil {
		s.metrics.Lockout()
		s.publish(notice.AccountLocked, a, lockedUntil.Format(time.RFC3339))
		return authErr(MsgLockedNow)
	}
	return authErr(MsgInvalidCredentials)
}
