package service

import (
	"context"
	"time"

	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/metrics"
	"portfolio/internal/models"
	"portfolio/internal/notice"
	"portfolio/internal/notify"
)

// Store is the persistence the service needs. *store.Store satisfies it.
type Store interface {
	CreateAccount(ctx context.Context, a models.Account) error
	GetAccountByUsername(ctx context.Context, username string) (models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (models.Account, error)
	RecordFailedLogin(ctx context.Context, accountID string, attempts int, lockedUntil *time.Time) error
	RecordSuccessfulLogin(ctx context.Context, accountID string, at time.Time) error

	CreateInvitation(ctx context.Context, inv models.Invitation) error
	GetInvitationByCode(ctx context.Context, code string) (models.Invitation, error)
	ConsumeInvitation(ctx context.Context, invitationID, accountID string, at time.Time) error

	CreateSession(ctx context.Context, sess models.Session) error
	GetActiveSession(ctx context.Context, tokenHash string, now time.Time) (models.Session, models.Account, error)
	DeleteSession(ctx context.Context, tokenHash string) error

	Ping(ctx context.Context) error
}

type Service struct {
	cfg     config.Config
	st      Store
	hasher  auth.Hasher
	bus     *notice.Bus
	metrics *metrics.Metrics
	sender  notify.InvitationSender
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithSender(sender notify.InvitationSender) Option {
	return func(s *Service) { s.sender = sender }
}

func New(cfg config.Config, st Store, hasher auth.Hasher, bus *notice.Bus, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		st:     st,
		hasher: hasher,
		bus:    bus,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hasher == nil {
		s.hasher = auth.MultiHasher{Primary: auth.BcryptHasher{Cost: cfg.BcryptCost}}
	}
	if s.sender == nil {
		s.sender = notify.LogSender{}
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.st.Ping(ctx)
}

func (s *Service) publish(kind string, a models.Account, detail string) {
	s.bus.Publish(notice.Event{Kind: kind, AccountID: a.ID, Username: a.Username, Detail: detail, At: s.now()})
}
