// Package gateway is the thin async boundary to the remote auth API.
// It normalizes transport and server failures into a uniform error shape
// and never touches storage; persistence decisions belong to the caller.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/codewithdenise/rentmyvenue/internal/client/session"
)

// OTPPurpose selects the login or signup verification flow.
type OTPPurpose string

const (
	PurposeLogin  OTPPurpose = "login"
	PurposeSignup OTPPurpose = "signup"
)

// ErrTransient marks network-level failures: timeouts, refused
// connections, malformed responses. The caller surfaces a generic
// retryable message; the gateway itself never retries.
var ErrTransient = errors.New("transient network failure")

// APIError carries a non-2xx response's status and server message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsOTPExpired reports whether the failure means the challenge is gone
// (expired, consumed, or burned out) rather than the code being wrong.
// A gone challenge sends the user back to credential entry.
func IsOTPExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 410 || apiErr.Status == 429
}

// AuthPayload is the result of a successful OTP verification: the
// identity plus the bearer tokens that establish the session.
type AuthPayload struct {
	User         session.Identity
	AccessToken  string
	RefreshToken string
}

// AuthGateway is the remote auth API surface. Implementations perform
// network I/O only; inputs are assumed already validated. Every call is
// at-most-once; retry policy belongs to the caller.
type AuthGateway interface {
	// Login performs step one of the two-step login: password check plus
	// OTP dispatch. No tokens are returned here.
	Login(ctx context.Context, email, password string) error

	// Register creates an unverified account and dispatches a signup OTP.
	Register(ctx context.Context, email, password, name string, role session.Role) error

	// RequestOTP re-issues a passcode for an in-flight flow.
	RequestOTP(ctx context.Context, email string, purpose OTPPurpose) error

	// VerifyOTP consumes the pending passcode; success returns the
	// identity and token pair.
	VerifyOTP(ctx context.Context, email, code string, purpose OTPPurpose) (*AuthPayload, error)

	// Logout revokes the refresh token server-side. The access token
	// authenticates the call; the refresh token is the one revoked.
	Logout(ctx context.Context, accessToken, refreshToken string) error

	// CurrentSession resolves the identity behind an access token.
	CurrentSession(ctx context.Context, accessToken string) (*session.Identity, error)
}
