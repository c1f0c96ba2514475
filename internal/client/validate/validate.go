// Package validate implements local credential validation: pure shape
// checks that run before any network call. Failures come back as
// field-scoped violations, never as errors surfaced to the user.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/codewithdenise/rentmyvenue/internal/client/session"
)

// FieldError names the offending form field and the message shown next to it.
type FieldError struct {
	Field   string
	Message string
}

const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldName            = "name"
	FieldRole            = "role"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// Login holds normalized sign-in input.
type Login struct {
	Email    string
	Password string
}

// Registration holds normalized sign-up input.
type Registration struct {
	Email    string
	Password string
	Name     string
	Role     session.Role
}

// ValidateLogin checks sign-in input. Login passwords only need the
// legacy minimum of 6 characters; the stricter policy applies at signup.
func ValidateLogin(email, password string) (*Login, []FieldError) {
	var violations []FieldError

	email = strings.TrimSpace(email)
	if !emailRe.MatchString(email) {
		violations = append(violations, FieldError{FieldEmail, "Please enter a valid email address"})
	}
	if len(password) < 6 {
		violations = append(violations, FieldError{FieldPassword, "Password must be at least 6 characters"})
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return &Login{Email: email, Password: password}, nil
}

// ValidateRegistration checks sign-up input against the product's
// password policy: at least 8 characters with one uppercase letter, one
// lowercase letter and one digit.
func ValidateRegistration(email, password, confirmPassword, name string, role session.Role) (*Registration, []FieldError) {
	var violations []FieldError

	email = strings.TrimSpace(email)
	if !emailRe.MatchString(email) {
		violations = append(violations, FieldError{FieldEmail, "Please enter a valid email address"})
	}

	if len(password) < 8 {
		violations = append(violations, FieldError{FieldPassword, "Password must be at least 8 characters"})
	} else if !hasUpperLowerDigit(password) {
		violations = append(violations, FieldError{FieldPassword,
			"Password must contain at least one uppercase letter, one lowercase letter, and one number"})
	}

	if confirmPassword != password {
		violations = append(violations, FieldError{FieldConfirmPassword, "Passwords do not match"})
	}

	name = strings.TrimSpace(name)
	if len(name) < 2 {
		violations = append(violations, FieldError{FieldName, "Name must be at least 2 characters"})
	}

	// Admins are provisioned, not self-registered.
	if role != session.RoleConsumer && role != session.RoleVendor {
		violations = append(violations, FieldError{FieldRole, "Please choose a valid account type"})
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return &Registration{Email: email, Password: password, Name: name, Role: role}, nil
}

func hasUpperLowerDigit(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
