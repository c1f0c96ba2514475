package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codewithdenise/rentmyvenue/app/observability/metrics"
	"github.com/codewithdenise/rentmyvenue/internal/api"
)

type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewAuthHandler(service AuthService, m *metrics.AppMetrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
		metrics: m,
	}
}

// Register handles POST /auth/register. A new account stays unverified
// until the signup OTP is confirmed.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "email, password and name are required")
		return
	}
	if req.Role == "" {
		req.Role = RoleConsumer
	}

	user, resent, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid role")
		case errors.Is(err, ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Email already in use")
		default:
			h.logger.ErrorContext(r.Context(), "Register failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	detail := "User registered. Please verify OTP sent to your email to activate account."
	status := http.StatusCreated
	if resent {
		detail = "User already registered but not verified. OTP resent to your email."
		status = http.StatusOK
	}
	api.WriteJSONResponse(w, r, status, map[string]interface{}{
		"success": true,
		"detail":  detail,
		"user":    user,
	})
}

// Login handles POST /auth/login: step one of the two-step login.
// A correct password triggers an OTP email; no tokens are issued here.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	if err := h.service.Login(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.ErrorContext(r.Context(), "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, Response{
		Success: true,
		Detail:  "Password verified. OTP sent to your email. Please verify OTP to complete login.",
	})
}

// RequestOTP handles POST /auth/otp/request for both flows.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	var req RequestOTPRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Purpose == "" {
		req.Purpose = PurposeLogin
	}
	if !req.Purpose.Valid() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid OTP purpose")
		return
	}

	if err := h.service.RequestOTP(r.Context(), req.Email, req.Purpose); err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			api.ErrorResponse(w, r, http.StatusNotFound, "No account found for this email")
		case errors.Is(err, ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Account is already verified")
		default:
			h.logger.ErrorContext(r.Context(), "OTP request failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to send OTP")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, Response{
		Success: true,
		Detail:  "OTP sent to your email.",
	})
}

// VerifyOTP handles POST /auth/otp/verify?type=login|signup. Success
// finalizes the flow and returns the token pair plus the user record.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	purpose := OTPPurpose(strings.ToLower(r.URL.Query().Get("type")))
	if purpose == "" {
		purpose = PurposeLogin
	}
	if !purpose.Valid() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid OTP verification type.")
		return
	}

	var req VerifyOTPRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.OTP == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "email and otp are required")
		return
	}

	pair, user, err := h.service.VerifyOTP(r.Context(), req.Email, req.OTP, purpose)
	if err != nil {
		switch {
		case errors.Is(err, ErrOTPExpired):
			// Gone, not merely wrong: the client restarts from credential entry.
			api.ErrorResponse(w, r, http.StatusGone, "OTP expired or invalid. Please request a new code.")
		case errors.Is(err, ErrOTPTooManyAttempts):
			api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many incorrect attempts. Please request a new OTP.")
		case errors.Is(err, ErrOTPInvalid):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid OTP.")
		case errors.Is(err, ErrUnauthenticated):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "No account found for this email")
		default:
			h.logger.ErrorContext(r.Context(), "OTP verification failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "OTP verification failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, VerifyOTPResponse{
		Success:      true,
		Detail:       "Verification successful.",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

// RefreshSession handles POST /auth/refresh with token rotation.
func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	var req RefreshTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshToken == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.service.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		h.logger.ErrorContext(r.Context(), "Refresh failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Refresh failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, pair)
}

// Logout handles POST /auth/logout (protected).
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	var req LogoutRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.ErrorContext(r.Context(), "Logout failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Logout failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, Response{Success: true})
}

// GetSession handles GET /auth/session (protected): returns the identity
// behind the presented access token.
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.service.GetSession(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Session no longer valid")
			return
		}
		h.logger.ErrorContext(r.Context(), "Get session failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load session")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) observe(r *http.Request, start time.Time) {
	if h.metrics != nil {
		h.metrics.AuthRequestDurationSecs.Record(r.Context(), time.Since(start).Seconds())
	}
}
