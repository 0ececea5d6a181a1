package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lunchmates/lunchmates/internal/shared"
	"github.com/lunchmates/lunchmates/internal/token"
)

// Notifier delivers account mail. Delivery is fire-and-forget: the
// implementation enqueues and the worker sends, so a slow or dead SMTP
// server never fails a request.
type Notifier interface {
	SendRegistrationLink(ctx context.Context, email, tok string) error
	SendPasswordResetLink(ctx context.Context, email, tok string) error
}

// ServiceConfig carries the token lifetimes.
type ServiceConfig struct {
	RegisterTokenTTL time.Duration
	ResetTokenTTL    time.Duration
}

// Service wraps the account lifecycle: pre-registration, registration,
// authentication, password reset and profile updates.
type Service struct {
	repo     Repository
	hasher   Hasher
	codec    *token.Codec
	notifier Notifier
	cfg      ServiceConfig
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, hasher Hasher, codec *token.Codec, notifier Notifier, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.RegisterTokenTTL <= 0 {
		cfg.RegisterTokenTTL = 30 * time.Minute
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, codec: codec, notifier: notifier, cfg: cfg, logger: logger}
}

// PreRegister issues a confirmation token for email and mails the
// registration link. No row is written; the pending state lives in the
// token. A mail is sent even if the address already has an account, since
// suppressing it would reveal account existence through silence.
func (s *Service) PreRegister(ctx context.Context, email string) error {
	tok, err := s.codec.Encode(email, s.cfg.RegisterTokenTTL)
	if err != nil {
		return err
	}
	if err := s.notifier.SendRegistrationLink(ctx, email, tok); err != nil {
		s.logger.Error("enqueue registration mail", slog.Any("error", err))
	}
	return nil
}

// RedeemRegistrationToken decodes a confirmation token back to its email.
func (s *Service) RedeemRegistrationToken(ctx context.Context, tok string) (string, error) {
	return s.codec.Decode(tok)
}

// Register creates the account row with a freshly hashed password.
// Duplicate email or username surfaces as the corresponding sentinel.
func (s *Service) Register(ctx context.Context, email, username, password string) (*User, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, username, email, digest)
}

// Authenticate validates email/password credentials. Unknown email, wrong
// password and deactivated account are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset mails a reset link when an active account exists
// for email. It returns nil either way so the handler can show the same
// confirmation message without leaking whether the address is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("reset lookup", slog.Any("error", err))
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}
	tok, err := s.codec.Encode(user.Email, s.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}
	if err := s.notifier.SendPasswordResetLink(ctx, user.Email, tok); err != nil {
		s.logger.Error("enqueue reset mail", slog.Any("error", err))
	}
	return nil
}

// RedeemResetToken decodes a reset token and loads the matching user.
func (s *Service) RedeemResetToken(ctx context.Context, tok string) (*User, error) {
	email, err := s.codec.Decode(tok)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// ResetPassword redeems tok and overwrites the stored hash with a hash of
// newPassword.
func (s *Service) ResetPassword(ctx context.Context, tok, newPassword string) error {
	user, err := s.RedeemResetToken(ctx, tok)
	if err != nil {
		return err
	}
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, digest)
}

// Get loads a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile changes username and zipcode for the given user.
func (s *Service) UpdateProfile(ctx context.Context, id int64, username, zipcode string) error {
	return s.repo.UpdateProfile(ctx, id, username, zipcode)
}

// Deactivate disables an account without deleting the row.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
