package repository

import (
	"context"
	"errors"
	"fmt"

	"toolcart/internal/data/entity"
	"toolcart/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SecretRepository persists hashed time-bound secrets keyed by (subject, purpose).
type SecretRepository interface {
	// Put stores the secret, replacing any existing record for the same key.
	Put(ctx context.Context, secret *entity.Secret) error
	// Get returns nil, nil when no record exists.
	Get(ctx context.Context, subjectID string, purpose entity.SecretPurpose) (*entity.Secret, error)
	DeleteIfPresent(ctx context.Context, subjectID string, purpose entity.SecretPurpose) error
	// DeleteIfMatch removes the record only while it still carries hashedValue.
	// Exactly one of several concurrent callers observes true.
	DeleteIfMatch(ctx context.Context, subjectID string, purpose entity.SecretPurpose, hashedValue string) (bool, error)
}

type secretRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSecretRepository(db database.PgxIface, log *zap.Logger) SecretRepository {
	return &secretRepository{
		db:  db,
		log: log.With(zap.String("repository", "secret")),
	}
}

func (r *secretRepository) Put(ctx context.Context, secret *entity.Secret) error {
	query := `
		INSERT INTO secrets (subject_id, purpose, hashed_value, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id, purpose) DO UPDATE
		SET hashed_value = EXCLUDED.hashed_value,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
	`

	_, err := r.db.Exec(ctx, query,
		secret.SubjectID,
		secret.Purpose,
		secret.HashedValue,
		secret.CreatedAt,
		secret.ExpiresAt,
	)

	if err != nil {
		r.log.Error("Failed to store secret",
			zap.Error(err),
			zap.String("subject_id", secret.SubjectID),
			zap.String("purpose", string(secret.Purpose)),
		)
		return fmt.Errorf("store %s secret for %s: %w", secret.Purpose, secret.SubjectID, err)
	}

	return nil
}

func (r *secretRepository) Get(ctx context.Context, subjectID string, purpose entity.SecretPurpose) (*entity.Secret, error) {
	query := `
		SELECT subject_id, purpose, hashed_value, created_at, expires_at
		FROM secrets
		WHERE subject_id = $1 AND purpose = $2
	`

	var secret entity.Secret
	err := r.db.QueryRow(ctx, query, subjectID, purpose).Scan(
		&secret.SubjectID,
		&secret.Purpose,
		&secret.HashedValue,
		&secret.CreatedAt,
		&secret.ExpiresAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find secret",
			zap.Error(err),
			zap.String("subject_id", subjectID),
			zap.String("purpose", string(purpose)),
		)
		return nil, fmt.Errorf("find %s secret for %s: %w", purpose, subjectID, err)
	}

	return &secret, nil
}

func (r *secretRepository) DeleteIfPresent(ctx context.Context, subjectID string, purpose entity.SecretPurpose) error {
	query := `DELETE FROM secrets WHERE subject_id = $1 AND purpose = $2`

	if _, err := r.db.Exec(ctx, query, subjectID, purpose); err != nil {
		r.log.Error("Failed to delete secret",
			zap.Error(err),
			zap.String("subject_id", subjectID),
			zap.String("purpose", string(purpose)),
		)
		return fmt.Errorf("delete %s secret for %s: %w", purpose, subjectID, err)
	}

	return nil
}

func (r *secretRepository) DeleteIfMatch(ctx context.Context, subjectID string, purpose entity.SecretPurpose, hashedValue string) (bool, error) {
	query := `
		DELETE FROM secrets
		WHERE subject_id = $1 AND purpose = $2 AND hashed_value = $3
	`

	result, err := r.db.Exec(ctx, query, subjectID, purpose, hashedValue)
	if err != nil {
		r.log.Error("Failed to consume secret",
			zap.Error(err),
			zap.String("subject_id", subjectID),
			zap.String("purpose", string(purpose)),
		)
		return false, fmt.Errorf("consume %s secret for %s: %w", purpose, subjectID, err)
	}

	return result.RowsAffected() == 1, nil
}
