package app

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 6

	// bcrypt only hashes the first 72 bytes and rejects longer input.
	maxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// validateRegisterInput expects names and email already trimmed.
func validateRegisterInput(req RegisterRequest) (string, map[string]string) {
	validationErrors := make(map[string]string)

	if req.FirstName == "" {
		validationErrors["firstName"] = "first_name_required"
	}
	if req.LastName == "" {
		validationErrors["lastName"] = "last_name_required"
	}
	if req.Email == "" {
		validationErrors["email"] = "email_required"
	}
	if req.Password == "" {
		validationErrors["password"] = "password_required"
	}
	if len(validationErrors) > 0 {
		return ErrMissingFields, validationErrors
	}

	if !emailPattern.MatchString(req.Email) {
		return ErrInvalidEmail, map[string]string{"email": "invalid_email_format"}
	}

	if code := validatePassword(req.Password); code != "" {
		return code, map[string]string{"password": code}
	}

	return "", nil
}

func validateLoginInput(req LoginRequest) map[string]string {
	validationErrors := make(map[string]string)

	if strings.TrimSpace(req.Email) == "" {
		validationErrors["email"] = "email_required"
	}
	if req.Password == "" {
		validationErrors["password"] = "password_required"
	}

	if len(validationErrors) == 0 {
		return nil
	}
	return validationErrors
}

func validatePassword(password string) string {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return ""
}
