package usecase

import (
	"context"
	"fmt"
	"time"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"
	"toolcart/pkg/apperror"
	"toolcart/pkg/mailer"
	"toolcart/pkg/metrics"
	"toolcart/pkg/utils"

	"go.uber.org/zap"
)

// Notice describes the mail that carries a freshly issued secret.
type Notice struct {
	To      string
	Subject string
	Render  func(plaintext string) string // returns the HTML body
}

type SecretIssuer interface {
	// Issue replaces any active secret for (subjectID, purpose) and mails the
	// new one. On delivery failure the plaintext is still returned together
	// with an IssuanceFailed error; the stored secret stays usable.
	Issue(ctx context.Context, subjectID string, purpose entity.SecretPurpose, ttl time.Duration, notice Notice) (string, error)
}

type secretIssuer struct {
	store     repository.SecretRepository
	mailer    mailer.Mailer
	otpLength int
	hashCost  int
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *zap.Logger
}

func NewSecretIssuer(
	store repository.SecretRepository,
	mail mailer.Mailer,
	config utils.SecretConfig,
	m *metrics.Metrics,
	log *zap.Logger,
) SecretIssuer {
	return &secretIssuer{
		store:     store,
		mailer:    mail,
		otpLength: config.OTPLength,
		hashCost:  config.HashCost,
		metrics:   m,
		now:       time.Now,
		log:       log.With(zap.String("service", "secret_issuer")),
	}
}

func (s *secretIssuer) Issue(ctx context.Context, subjectID string, purpose entity.SecretPurpose, ttl time.Duration, notice Notice) (string, error) {
	// 1. Generate plaintext sesuai purpose
	plaintext, err := s.generate(purpose)
	if err != nil {
		s.log.Error("Failed to generate secret", zap.Error(err), zap.String("purpose", string(purpose)))
		return "", fmt.Errorf("generate %s secret: %w", purpose, err)
	}

	// 2. Hash (bcrypt, salted)
	hashed, err := utils.HashSecret(plaintext, s.hashCost)
	if err != nil {
		s.log.Error("Failed to hash secret", zap.Error(err), zap.String("purpose", string(purpose)))
		return "", fmt.Errorf("hash %s secret: %w", purpose, err)
	}

	// 3. Store, superseding any previous record for the same key
	now := s.now()
	secret := &entity.Secret{
		SubjectID:   subjectID,
		Purpose:     purpose,
		HashedValue: hashed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := s.store.Put(ctx, secret); err != nil {
		return "", err
	}

	// 4. Deliver. Failure does not roll back the stored secret.
	if err := s.mailer.SendNotification(ctx, notice.To, notice.Subject, notice.Render(plaintext)); err != nil {
		s.metrics.SecretIssued(string(purpose), "delivery_failed")
		s.log.Warn("Secret stored but delivery failed",
			zap.Error(err),
			zap.String("subject_id", subjectID),
			zap.String("purpose", string(purpose)),
		)
		return plaintext, apperror.IssuanceFailed(err)
	}

	s.metrics.SecretIssued(string(purpose), "sent")
	s.log.Info("Secret issued",
		zap.String("subject_id", subjectID),
		zap.String("purpose", string(purpose)),
		zap.Time("expires_at", secret.ExpiresAt),
	)

	return plaintext, nil
}

func (s *secretIssuer) generate(purpose entity.SecretPurpose) (string, error) {
	switch purpose {
	case entity.PurposeEmailVerification:
		return utils.GenerateOTP(s.otpLength)
	case entity.PurposePasswordReset:
		return utils.GenerateToken()
	default:
		return "", fmt.Errorf("unknown secret purpose %q", purpose)
	}
}
