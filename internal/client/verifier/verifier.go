// Package verifier implements the OTP-gated sign-in/sign-up sequencing:
// credentials entered, passcode pending, session established. It is the
// single writer of the client Session; views and guards only read it.
package verifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/codewithdenise/rentmyvenue/internal/client/gateway"
	"github.com/codewithdenise/rentmyvenue/internal/client/session"
	"github.com/codewithdenise/rentmyvenue/internal/client/validate"
)

// State of a verification flow.
type State int

const (
	// StateIdle: credential entry, no challenge outstanding.
	StateIdle State = iota
	// StateOTPPending: a challenge was issued, awaiting the code.
	StateOTPPending
	// StateVerified: terminal success, session established.
	StateVerified
)

// Flow identifies which surface drives the attempt. Admin login is
// ordinary login plus a role gate after verification.
type Flow int

const (
	FlowLogin Flow = iota
	FlowSignup
	FlowAdminLogin
)

// ErrSuperseded reports that a response arrived for a challenge that a
// newer submission has since replaced. Callers drop it silently.
var ErrSuperseded = errors.New("response superseded by a newer attempt")

const transientMessage = "Network error. Please try again."
const accessDeniedMessage = "Access denied. Admin privileges required."

// challenge is the transient OTP exchange. Exactly one may be active per
// controller; issuing a new one invalidates the previous by sequence.
type challenge struct {
	seq      uint64
	email    string
	purpose  gateway.OTPPurpose
	flow     Flow
	remember bool
}

// Controller is the verification state machine. Safe for concurrent use;
// the lock is released during network calls so a second submission can
// supersede a slow first one.
type Controller struct {
	mu     sync.Mutex
	logger *slog.Logger
	gw     gateway.AuthGateway
	store  *session.Store

	state     State
	sess      session.Session
	seq       uint64
	challenge *challenge
}

func NewController(gw gateway.AuthGateway, store *session.Store, logger *slog.Logger) *Controller {
	return &Controller{
		logger: logger,
		gw:     gw,
		store:  store,
		state:  StateIdle,
		sess:   session.New(),
	}
}

// Resume resolves the persisted identity once at startup. A corrupt or
// missing record leaves the session anonymous with no error surfaced.
func (c *Controller) Resume(ctx context.Context) {
	identity, _, _, ok := c.store.Load()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.Loading = false
	if ok {
		c.sess.Identity = identity
		c.sess.Authenticated = true
	}
}

// Session returns a copy of the current session state.
func (c *Controller) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitLogin validates credentials and requests a login challenge.
// Field violations are returned without any network call. On gateway
// success the machine moves to StateOTPPending; on failure it stays
// Idle with the error surfaced on the session. Flow may be FlowLogin or
// FlowAdminLogin; anything else is coerced to FlowLogin, since sign-up
// enters through SubmitRegistration.
func (c *Controller) SubmitLogin(ctx context.Context, flow Flow, email, password string, remember bool) []validate.FieldError {
	if flow != FlowAdminLogin {
		flow = FlowLogin
	}

	creds, violations := validate.ValidateLogin(email, password)
	if violations != nil {
		return violations
	}

	seq := c.beginAttempt()
	err := c.gw.Login(ctx, creds.Email, creds.Password)
	c.settleAttempt(seq, err, &challenge{
		seq:      seq,
		email:    creds.Email,
		purpose:  gateway.PurposeLogin,
		flow:     flow,
		remember: remember,
	})
	return nil
}

// SubmitRegistration validates sign-up input and requests a signup
// challenge. The account is created unverified server-side; verification
// completes it.
func (c *Controller) SubmitRegistration(ctx context.Context, email, password, confirmPassword, name string, role session.Role) []validate.FieldError {
	reg, violations := validate.ValidateRegistration(email, password, confirmPassword, name, role)
	if violations != nil {
		return violations
	}

	seq := c.beginAttempt()
	err := c.gw.Register(ctx, reg.Email, reg.Password, reg.Name, reg.Role)
	c.settleAttempt(seq, err, &challenge{
		seq:     seq,
		email:   reg.Email,
		purpose: gateway.PurposeSignup,
		flow:    FlowSignup,
		// Signup persists the session durably, matching product behavior.
		remember: true,
	})
	return nil
}

// ResendCode re-requests a passcode for the pending challenge. The new
// code supersedes the old one on both ends.
func (c *Controller) ResendCode(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateOTPPending || c.challenge == nil {
		c.mu.Unlock()
		return errors.New("no pending verification to resend")
	}
	c.seq++
	seq := c.seq
	ch := *c.challenge
	ch.seq = seq
	c.sess.Loading = true
	c.sess.LastError = ""
	c.mu.Unlock()

	err := c.gw.RequestOTP(ctx, ch.email, ch.purpose)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return ErrSuperseded
	}
	c.sess.Loading = false
	if err != nil {
		c.sess.LastError = messageFor(err)
		return err
	}
	c.challenge = &ch
	return nil
}

// SubmitCode verifies the entered passcode. Success establishes the
// session, persists the identity per the remember choice, and returns
// the role's redirect path. A wrong code stays in StateOTPPending; a
// gone challenge (expired or burned out) returns to StateIdle.
func (c *Controller) SubmitCode(ctx context.Context, code string) (string, error) {
	c.mu.Lock()
	if c.state != StateOTPPending || c.challenge == nil {
		c.mu.Unlock()
		return "", errors.New("no pending verification")
	}
	ch := *c.challenge
	seq := ch.seq
	c.sess.Loading = true
	c.sess.LastError = ""
	c.mu.Unlock()

	payload, err := c.gw.VerifyOTP(ctx, ch.email, code, ch.purpose)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return "", ErrSuperseded
	}

	if err != nil {
		c.sess.Loading = false
		c.sess.LastError = messageFor(err)
		if gateway.IsOTPExpired(err) {
			// The challenge is gone; start over from credential entry.
			c.state = StateIdle
			c.challenge = nil
		}
		c.mu.Unlock()
		return "", err
	}

	if ch.flow == FlowAdminLogin && payload.User.Role != session.RoleAdmin {
		c.mu.Unlock()
		// Never leave a non-admin identity established in the admin flow.
		c.forceLogout(ctx, payload.AccessToken, payload.RefreshToken)

		c.mu.Lock()
		defer c.mu.Unlock()
		if seq != c.seq {
			return "", ErrSuperseded
		}
		c.state = StateIdle
		c.challenge = nil
		c.sess = session.Session{LastError: accessDeniedMessage}
		return "", errors.New(accessDeniedMessage)
	}
	c.mu.Unlock()

	if err := c.store.Save(&payload.User, payload.AccessToken, payload.RefreshToken, ch.remember); err != nil {
		c.logger.Warn("Failed to persist session", slog.Any("error", err))
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		// A Back or newer submission landed while the record was being
		// written; the abandoned attempt must not be resumable.
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("Failed to discard superseded session", slog.Any("error", err))
		}
		return "", ErrSuperseded
	}
	defer c.mu.Unlock()
	c.state = StateVerified
	c.challenge = nil
	c.sess = session.Session{Identity: &payload.User, Authenticated: true}
	return payload.User.Role.DashboardPath(), nil
}

// Back abandons the pending challenge and returns to credential entry.
func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++ // any in-flight response is now stale
	c.challenge = nil
	if c.state == StateOTPPending {
		c.state = StateIdle
	}
	c.sess.LastError = ""
	c.sess.Loading = false
}

// Logout revokes the server session, clears both storage tiers, and
// resets to an anonymous Idle state.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	var access, refresh string
	if _, a, r, ok := c.store.Load(); ok {
		access, refresh = a, r
	}
	c.mu.Unlock()

	c.forceLogout(ctx, access, refresh)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.state = StateIdle
	c.challenge = nil
	c.sess = session.Session{}
}

// ClearError wipes the surfaced error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.LastError = ""
}

func (c *Controller) forceLogout(ctx context.Context, accessToken, refreshToken string) {
	if refreshToken != "" {
		if err := c.gw.Logout(ctx, accessToken, refreshToken); err != nil {
			c.logger.Warn("Server-side logout failed", slog.Any("error", err))
		}
	}
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("Failed to clear stored session", slog.Any("error", err))
	}
}

// beginAttempt bumps the challenge sequence and marks the session
// loading. The returned sequence identifies this attempt; a response
// carrying a stale sequence is ignored.
func (c *Controller) beginAttempt() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.sess.Loading = true
	c.sess.LastError = ""
	return c.seq
}

// settleAttempt applies a credential-submission outcome, unless a newer
// attempt has superseded it.
func (c *Controller) settleAttempt(seq uint64, err error, ch *challenge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return
	}

	c.sess.Loading = false
	if err != nil {
		c.state = StateIdle
		c.challenge = nil
		c.sess.LastError = messageFor(err)
		return
	}
	c.state = StateOTPPending
	c.challenge = ch
}

func messageFor(err error) string {
	if errors.Is(err, gateway.ErrTransient) {
		return transientMessage
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
