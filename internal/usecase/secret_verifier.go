package usecase

import (
	"context"
	"fmt"
	"time"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"
	"toolcart/pkg/apperror"
	"toolcart/pkg/metrics"
	"toolcart/pkg/utils"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeNotFound Outcome = "not_found"
	OutcomeExpired  Outcome = "expired"
	OutcomeInvalid  Outcome = "invalid"
)

// Err converts a non-valid outcome into the matching error kind, worded for
// the kind of secret that was presented.
func (o Outcome) Err(purpose entity.SecretPurpose) error {
	noun, reissue := "code", "request a new one"
	if purpose == entity.PurposePasswordReset {
		noun, reissue = "reset link", "request a new password reset"
	}

	switch o {
	case OutcomeValid:
		return nil
	case OutcomeNotFound:
		return apperror.NotFound(fmt.Sprintf("no active %s, %s", noun, reissue))
	case OutcomeExpired:
		return apperror.New(apperror.KindExpired, fmt.Sprintf("%s has expired, %s", noun, reissue))
	default:
		return apperror.New(apperror.KindInvalid, fmt.Sprintf("%s is invalid", noun))
	}
}

// AttemptObserver is notified of every wrong guess. A per-secret lockout
// can be built on it.
type AttemptObserver interface {
	InvalidAttempt(ctx context.Context, subjectID string, purpose entity.SecretPurpose)
}

type logAttemptObserver struct {
	log *zap.Logger
}

func (o logAttemptObserver) InvalidAttempt(ctx context.Context, subjectID string, purpose entity.SecretPurpose) {
	o.log.Warn("Invalid secret presented",
		zap.String("subject_id", subjectID),
		zap.String("purpose", string(purpose)),
	)
}

type SecretVerifier interface {
	// Verify returns an error only for storage failures.
	Verify(ctx context.Context, subjectID string, purpose entity.SecretPurpose, presented string) (Outcome, error)
}

type secretVerifier struct {
	store    repository.SecretRepository
	observer AttemptObserver
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *zap.Logger
}

// NewSecretVerifier uses a logging observer when observer is nil.
func NewSecretVerifier(store repository.SecretRepository, observer AttemptObserver, m *metrics.Metrics, log *zap.Logger) SecretVerifier {
	log = log.With(zap.String("service", "secret_verifier"))
	if observer == nil {
		observer = logAttemptObserver{log: log}
	}
	return &secretVerifier{
		store:    store,
		observer: observer,
		metrics:  m,
		now:      time.Now,
		log:      log,
	}
}

func (v *secretVerifier) Verify(ctx context.Context, subjectID string, purpose entity.SecretPurpose, presented string) (Outcome, error) {
	outcome, err := v.verify(ctx, subjectID, purpose, presented)
	if err != nil {
		return "", err
	}
	v.metrics.SecretVerification(string(purpose), string(outcome))
	return outcome, nil
}

func (v *secretVerifier) verify(ctx context.Context, subjectID string, purpose entity.SecretPurpose, presented string) (Outcome, error) {
	// 1. Ambil record aktif
	secret, err := v.store.Get(ctx, subjectID, purpose)
	if err != nil {
		return "", err
	}
	if secret == nil {
		return OutcomeNotFound, nil
	}

	// 2. Expired: hapus hanya jika record belum diganti
	if secret.ExpiredAt(v.now()) {
		if _, err := v.store.DeleteIfMatch(ctx, subjectID, purpose, secret.HashedValue); err != nil {
			return "", err
		}
		return OutcomeExpired, nil
	}

	// 3. Wrong value keeps the record
	if !utils.CheckSecretHash(presented, secret.HashedValue) {
		v.observer.InvalidAttempt(ctx, subjectID, purpose)
		return OutcomeInvalid, nil
	}

	// 4. Single use: only one concurrent caller removes the record
	consumed, err := v.store.DeleteIfMatch(ctx, subjectID, purpose, secret.HashedValue)
	if err != nil {
		return "", err
	}
	if !consumed {
		return OutcomeNotFound, nil
	}

	return OutcomeValid, nil
}
