package security

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"

	"github.com/dtroode/accounts-server/internal/model"
)

const (
	DefaultMinPasswordLength = 8
	DefaultMinPasswordScore  = 2
	maxPasswordLength        = 128
)

var _ model.PasswordPolicy = (*StrengthPolicy)(nil)

// StrengthPolicy rejects short, all-digit and easily guessed passwords.
type StrengthPolicy struct {
	minLength int
	minScore  int
}

func NewStrengthPolicy(minLength, minScore int) *StrengthPolicy {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if minScore < 0 || minScore > 4 {
		minScore = DefaultMinPasswordScore
	}
	return &StrengthPolicy{minLength: minLength, minScore: minScore}
}

func (p *StrengthPolicy) Validate(password string, userInputs ...string) error {
	length := len([]rune(password))
	if length < p.minLength {
		return model.NewInvalidInput("password", fmt.Sprintf("password must be at least %d characters", p.minLength))
	}
	if length > maxPasswordLength {
		return model.NewInvalidInput("password", fmt.Sprintf("password must be at most %d characters", maxPasswordLength))
	}
	if isNumeric(password) {
		return model.NewInvalidInput("password", "password cannot be entirely numeric")
	}

	lowered := strings.ToLower(password)
	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(in)) {
			return model.NewInvalidInput("password", "password is too similar to account details")
		}
		inputs = append(inputs, in)
	}

	if zxcvbn.PasswordStrength(password, inputs).Score < p.minScore {
		return model.NewInvalidInput("password", "password is too weak")
	}

	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
