package accounts

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/platinummonkey/panelhub/pkg/codes"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// DefaultUnverifiedGrace is how long an unverified account survives. It
// matches the code window: once the code is gone nothing can verify the account.
const DefaultUnverifiedGrace = codes.DefaultTTL

// Service implements registration and email verification
type Service struct {
	store    Store
	codes    codes.Store
	mailer   Mailer
	logger   logrus.FieldLogger
	cost     int
	generate func() (string, error)
	now      func() time.Time
}

// NewService creates an account service
func NewService(store Store, codeStore codes.Store, mailer Mailer, logger logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		codes:    codeStore,
		mailer:   mailer,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
		generate: codes.Generate,
		now:      time.Now,
	}
}

// Register creates an unverified account and sends it a verification code.
// If delivery fails the account is kept and the caller may resend.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.store.Create(ctx, req.Username, req.Email, string(hash))
	if err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", account.ID).Info("account registered")

	if err := s.issueCode(ctx, account.Email); err != nil {
		return account, err
	}
	return account, nil
}

// ResendCode replaces the pending code of an unverified account
func (s *Service) ResendCode(ctx context.Context, email string) error {
	account, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if account.IsVerified {
		return ErrAlreadyVerified
	}
	return s.issueCode(ctx, account.Email)
}

// Verify checks code against the pending code for email and, on a match,
// marks the account verified and consumes the code.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)

	stored, ok, err := s.codes.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	if err := s.store.MarkVerified(ctx, email); err != nil {
		return err
	}
	if err := s.codes.Remove(ctx, email); err != nil {
		// the account is verified; a leftover code only lives until its TTL
		s.logger.WithError(err).Warn("failed to remove used code")
	}

	s.logger.WithField("email", email).Info("account verified")
	return nil
}

// PurgeUnverified deletes accounts left unverified for longer than grace
func (s *Service) PurgeUnverified(ctx context.Context, grace time.Duration) (int64, error) {
	if grace <= 0 {
		grace = DefaultUnverifiedGrace
	}
	removed, err := s.store.DeleteUnverifiedBefore(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("purged unverified accounts")
	}
	return removed, nil
}

func (s *Service) issueCode(ctx context.Context, email string) error {
	code, err := s.generate()
	if err != nil {
		return err
	}
	if err := s.codes.Store(ctx, email, code); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	if err := s.mailer.SendCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send code: %w", err)
	}
	return nil
}
