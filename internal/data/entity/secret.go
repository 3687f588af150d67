package entity

import (
	"time"
)

type SecretPurpose string

const (
	PurposeEmailVerification SecretPurpose = "email_verification"
	PurposePasswordReset     SecretPurpose = "password_reset"
)

// Secret is a time-bound hashed OTP or reset token. At most one exists per
// (SubjectID, Purpose); the plaintext is never stored.
type Secret struct {
	SubjectID   string        `db:"subject_id" dynamodbav:"subject_id"`
	Purpose     SecretPurpose `db:"purpose" dynamodbav:"purpose"`
	HashedValue string        `db:"hashed_value" dynamodbav:"hashed_value"`
	CreatedAt   time.Time     `db:"created_at" dynamodbav:"created_at"`
	ExpiresAt   time.Time     `db:"expires_at" dynamodbav:"expires_at"`
}

func (s *Secret) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
