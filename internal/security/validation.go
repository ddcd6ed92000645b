package security

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

var (
	emailLocalPattern  = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)
	emailDomainPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)
	specialCharPattern = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// ValidateEmail accepts exactly-one-@, non-empty local/domain parts with a
// dotted domain, and restricts characters to the usual RFC-5322 subset.
func ValidateEmail(email string) error {
	if email == "" {
		return reedstream.Validation("email", email, "email cannot be empty")
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return reedstream.Validation("email", email, "email must contain exactly one @ symbol")
	}
	local, domain := parts[0], parts[1]
	if local == "" {
		return reedstream.Validation("email", email, "email local part cannot be empty")
	}
	if domain == "" || !strings.Contains(domain, ".") {
		return reedstream.Validation("email", email, "email domain must contain at least one dot")
	}
	if !emailLocalPattern.MatchString(local) || !emailDomainPattern.MatchString(domain) {
		return reedstream.Validation("email", email, "email contains invalid characters")
	}
	return nil
}

// ValidateUsername requires 3-32 characters, alphanumeric/underscore only,
// starting with a letter and not ending with an underscore.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return reedstream.Validation("username", username, "username must be at least 3 characters")
	}
	if len(username) > 32 {
		return reedstream.Validation("username", username, "username must be at most 32 characters")
	}
	first := rune(username[0])
	if !unicode.IsLetter(first) {
		return reedstream.Validation("username", username, "username must start with a letter")
	}
	if strings.HasSuffix(username, "_") {
		return reedstream.Validation("username", username, "username cannot end with underscore")
	}
	for _, c := range username {
		if !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_') {
			return reedstream.Validation("username", username, "username allows only alphanumeric characters and underscore")
		}
	}
	return nil
}

// MinPasswordLength is the floor length for any password, strong or not.
const MinPasswordLength = 8

// CheckPasswordStrength enforces the minimum length unconditionally, and
// when requireStrong is set, also requires at least one uppercase letter,
// lowercase letter, digit, and special character.
func CheckPasswordStrength(password string, requireStrong bool) error {
	if password == "" {
		return reedstream.Validation("password", "", "password cannot be empty")
	}
	if len(password) < MinPasswordLength {
		return reedstream.Validation("password", "", "password must be at least 8 characters")
	}
	if !requireStrong {
		return nil
	}

	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	hasSpecial := specialCharPattern.MatchString(password)

	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return reedstream.Validation("password", "", "password must contain upper, lower, digit, and special characters")
	}
	return nil
}
