package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type passwordInput struct {
	Password string `validate:"required,min=8,bcryptlen"`
}

func TestValidateStruct_BcryptLenCountsBytes(t *testing.T) {
	assert.Empty(t, ValidateStruct(passwordInput{Password: strings.Repeat("a", MaxPasswordBytes)}))
	assert.Empty(t, ValidateStruct(passwordInput{Password: strings.Repeat("é", 36)}))

	errs := ValidateStruct(passwordInput{Password: strings.Repeat("é", 40)})
	assert.Equal(t, "Must be at most 72 bytes", errs["Password"])
}
