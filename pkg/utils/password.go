package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashSecret hashes a password, OTP or reset token with bcrypt at the given cost.
func HashSecret(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func HashPassword(password string) (string, error) {
	return HashSecret(password, bcrypt.DefaultCost)
}

// CheckSecretHash compares in constant time; malformed hashes simply fail.
func CheckSecretHash(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
