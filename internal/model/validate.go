package model

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 150
	MaxBioLength      = 500
)

var (
	phonePattern    = regexp.MustCompile(`^1[3-9]\d{9}$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "\t", "")

// NormalizePhone drops spaces and dashes and a +86 country prefix.
func NormalizePhone(phone string) string {
	phone = phoneSeparators.Replace(strings.TrimSpace(phone))
	return strings.TrimPrefix(phone, "+86")
}

// ValidPhone reports whether phone is an 11-digit mainland mobile number.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidatePhone returns an invalid_input error for a malformed phone.
func ValidatePhone(phone string) error {
	if !ValidPhone(phone) {
		return NewInvalidInput("phone", "phone must be an 11-digit mobile number")
	}
	return nil
}

// ValidateUsername checks length and the allowed character set.
func ValidateUsername(username string) error {
	if username == "" {
		return NewInvalidInput("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return NewInvalidInput("username", "username must be at most 150 characters")
	}
	if !usernamePattern.MatchString(username) {
		return NewInvalidInput("username", "username may contain only letters, digits and @/./+/-/_")
	}
	return nil
}

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return NewInvalidInput("email", "email is not a valid address")
	}
	return nil
}

// ValidateBio limits the free-form profile text.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return NewInvalidInput("bio", "bio must be at most 500 characters")
	}
	return nil
}

// ValidateCode checks that code is exactly length ASCII digits.
func ValidateCode(code string, length int) error {
	if len(code) != length {
		return NewInvalidInput("code", "code must be the digits received by SMS")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return NewInvalidInput("code", "code must be the digits received by SMS")
		}
	}
	return nil
}
