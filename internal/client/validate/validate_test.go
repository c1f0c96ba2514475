package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithdenise/rentmyvenue/internal/client/session"
)

func fieldsOf(violations []FieldError) []string {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestValidateLogin(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		creds, violations := ValidateLogin("user@example.com", "secret")
		require.Nil(t, violations)
		assert.Equal(t, "user@example.com", creds.Email)
	})

	t.Run("TrimsEmailWhitespace", func(t *testing.T) {
		creds, violations := ValidateLogin("  user@example.com  ", "secret")
		require.Nil(t, violations)
		assert.Equal(t, "user@example.com", creds.Email)
	})

	t.Run("BadEmail", func(t *testing.T) {
		for _, email := range []string{"", "plainaddress", "@no-local.com", "user@", "user@.com"} {
			_, violations := ValidateLogin(email, "secret")
			assert.Contains(t, fieldsOf(violations), FieldEmail, "email %q should be rejected", email)
		}
	})

	t.Run("ShortPassword", func(t *testing.T) {
		_, violations := ValidateLogin("user@example.com", "12345")
		require.Len(t, violations, 1)
		assert.Equal(t, FieldPassword, violations[0].Field)
		assert.Equal(t, "Password must be at least 6 characters", violations[0].Message)
	})

	t.Run("LegacySixCharPasswordAccepted", func(t *testing.T) {
		// Login keeps the older, looser minimum so existing accounts
		// can still sign in.
		_, violations := ValidateLogin("user@example.com", "abc123")
		assert.Nil(t, violations)
	})

	t.Run("CollectsAllViolations", func(t *testing.T) {
		_, violations := ValidateLogin("nope", "123")
		assert.ElementsMatch(t, []string{FieldEmail, FieldPassword}, fieldsOf(violations))
	})
}

func TestValidateRegistration(t *testing.T) {
	valid := func() (string, string, string, string, session.Role) {
		return "new@example.com", "Password1", "Password1", "New User", session.RoleConsumer
	}

	t.Run("Valid", func(t *testing.T) {
		email, password, confirm, name, role := valid()
		reg, violations := ValidateRegistration(email, password, confirm, name, role)
		require.Nil(t, violations)
		assert.Equal(t, "new@example.com", reg.Email)
		assert.Equal(t, session.RoleConsumer, reg.Role)
	})

	t.Run("VendorAllowed", func(t *testing.T) {
		email, password, confirm, name, _ := valid()
		_, violations := ValidateRegistration(email, password, confirm, name, session.RoleVendor)
		assert.Nil(t, violations)
	})

	t.Run("AdminRejected", func(t *testing.T) {
		email, password, confirm, name, _ := valid()
		_, violations := ValidateRegistration(email, password, confirm, name, session.RoleAdmin)
		assert.Contains(t, fieldsOf(violations), FieldRole)
	})

	t.Run("PasswordTooShort", func(t *testing.T) {
		_, violations := ValidateRegistration("new@example.com", "Pass1", "Pass1", "New User", session.RoleConsumer)
		require.Len(t, violations, 1)
		assert.Equal(t, "Password must be at least 8 characters", violations[0].Message)
	})

	t.Run("PasswordCompositionEnforced", func(t *testing.T) {
		cases := map[string]string{
			"NoDigits":    "PasswordX",
			"NoUppercase": "password1",
			"NoLowercase": "PASSWORD1",
		}
		for name, password := range cases {
			t.Run(name, func(t *testing.T) {
				_, violations := ValidateRegistration("new@example.com", password, password, "New User", session.RoleConsumer)
				require.Len(t, violations, 1)
				assert.Equal(t,
					"Password must contain at least one uppercase letter, one lowercase letter, and one number",
					violations[0].Message)
			})
		}
	})

	t.Run("ConfirmMismatch", func(t *testing.T) {
		_, violations := ValidateRegistration("new@example.com", "Password1", "Password2", "New User", session.RoleConsumer)
		require.Len(t, violations, 1)
		assert.Equal(t, FieldConfirmPassword, violations[0].Field)
		assert.Equal(t, "Passwords do not match", violations[0].Message)
	})

	t.Run("NameTooShort", func(t *testing.T) {
		_, violations := ValidateRegistration("new@example.com", "Password1", "Password1", " A ", session.RoleConsumer)
		require.Len(t, violations, 1)
		assert.Equal(t, FieldName, violations[0].Field)
	})

	t.Run("EverythingWrongAtOnce", func(t *testing.T) {
		_, violations := ValidateRegistration("bad", "short", "different", "", session.Role("root"))
		assert.ElementsMatch(t,
			[]string{FieldEmail, FieldPassword, FieldConfirmPassword, FieldName, FieldRole},
			fieldsOf(violations))
	})
}
