package service

import (
	"context"
	"errors"

	"portfolio/internal/auth"
	"portfolio/internal/guard"
	"portfolio/internal/models"
	"portfolio/internal/store"
)

// ActiveSession resolves a bearer token to its account. Missing, expired and
// malformed tokens all yield guard.ErrNoSession.
func (s *Service) ActiveSession(ctx context.Context, token string) (models.PublicAccount, error) {
	if !auth.ValidTokenFormat(token) {
		s.metrics.SessionLookup(false)
		return models.PublicAccount{}, guard.ErrNoSession
	}
	_, a, err := s.st.GetActiveSession(ctx, auth.HashToken(token), s.now())
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.SessionLookup(false)
		return models.PublicAccount{}, guard.ErrNoSession
	}
	if err != nil {
		return models.PublicAccount{}, internal(err)
	}
	s.metrics.SessionLookup(true)
	return a.Public(), nil
}

func (s *Service) EndSession(ctx context.Context, token string) error {
	if !auth.ValidTokenFormat(token) {
		return nil
	}
	if err := s.st.DeleteSession(ctx, auth.HashToken(token)); err != nil {
		return internal(err)
	}
	return nil
}
