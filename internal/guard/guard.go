// Package guard holds the client side of a session: the persisted bearer
// token, its revalidation on startup and its teardown on logout.
package guard

import (
	"context"
	"errors"
	"log"
	"sync"

	"portfolio/internal/models"
	"portfolio/internal/notice"
)

// ErrNoSession reports that no valid session matches a token.
var ErrNoSession = errors.New("no active session")

// Sessions is the server half the guard talks to.
type Sessions interface {
	ActiveSession(ctx context.Context, token string) (models.PublicAccount, error)
	EndSession(ctx context.Context, token string) error
}

type Guard struct {
	tokens   TokenStore
	sessions Sessions
	bus      *notice.Bus

	mu      sync.Mutex
	current *models.PublicAccount
}

func New(tokens TokenStore, sessions Sessions, bus *notice.Bus) *Guard {
	return &Guard{tokens: tokens, sessions: sessions, bus: bus}
}

// Restore revalidates the persisted token. A token with no valid session is
// discarded and Restore reports unauthenticated (nil, nil). Any other
// failure is returned and the token kept for the next attempt.
func (g *Guard) Restore(ctx context.Context) (*models.PublicAccount, error) {
	token, err := g.tokens.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		g.setCurrent(nil)
		return nil, nil
	}
	a, err := g.sessions.ActiveSession(ctx, token)
	if errors.Is(err, ErrNoSession) {
		if cerr := g.tokens.Clear(); cerr != nil {
			return nil, cerr
		}
		g.setCurrent(nil)
		g.bus.Publish(notice.Event{Kind: notice.SessionExpired})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.setCurrent(&a)
	g.bus.Publish(notice.Event{Kind: notice.SessionRestored, AccountID: a.ID, Username: a.Username})
	out := a
	return &out, nil
}

// SignIn persists a freshly issued token for a.
func (g *Guard) SignIn(token string, a models.PublicAccount) error {
	if err := g.tokens.Save(token); err != nil {
		return err
	}
	g.setCurrent(&a)
	g.bus.Publish(notice.Event{Kind: notice.SessionSignedIn, AccountID: a.ID, Username: a.Username})
	return nil
}

// Logout ends the remote session if it can and always drops local state.
// Only a failure to clear the local token is returned.
func (g *Guard) Logout(ctx context.Context) error {
	token, err := g.tokens.Load()
	switch {
	case err != nil:
		log.Printf("guard logout token_load_failed err=%v", err)
	case token != "":
		if rerr := g.sessions.EndSession(ctx, token); rerr != nil {
			log.Printf("guard logout remote_delete_failed err=%v", rerr)
		}
	}
	prev := g.Current()
	g.setCurrent(nil)
	ev := notice.Event{Kind: notice.SessionSignedOut}
	if prev != nil {
		ev.AccountID, ev.Username = prev.ID, prev.Username
	}
	g.bus.Publish(ev)
	return g.tokens.Clear()
}

func (g *Guard) Current() *models.PublicAccount {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil
	}
	out := *g.current
	return &out
}

func (g *Guard) setCurrent(a *models.PublicAccount) {
	g.mu.Lock()
	g.current = a
	g.mu.Unlock()
}
