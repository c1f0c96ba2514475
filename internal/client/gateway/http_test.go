package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithdenise/rentmyvenue/internal/client/session"
)

func newTestGateway(handler http.HandlerFunc) (*HTTPGateway, *httptest.Server) {
	server := httptest.NewServer(handler)
	gw := NewHTTPGateway(server.URL, slog.Default())
	return gw, server
}

func TestLoginCall(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotBody map[string]string
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]any{"success": true, "detail": "OTP sent"})
		})
		defer server.Close()

		err := gw.Login(context.Background(), "user@example.com", "secret")

		assert.NoError(t, err)
		assert.Equal(t, "user@example.com", gotBody["email"])
		assert.Equal(t, "secret", gotBody["password"])
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Invalid email or password"})
		})
		defer server.Close()

		err := gw.Login(context.Background(), "user@example.com", "wrong")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "Invalid email or password", apiErr.Message)
		assert.False(t, errors.Is(err, ErrTransient))
	})

	t.Run("ServerUnreachableIsTransient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // nothing is listening anymore
		gw := NewHTTPGateway(server.URL, slog.Default())

		err := gw.Login(context.Background(), "user@example.com", "secret")

		assert.ErrorIs(t, err, ErrTransient)
	})

	t.Run("MalformedBodyIsTransient", func(t *testing.T) {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>gateway error</html>"))
		})
		defer server.Close()

		err := gw.Login(context.Background(), "user@example.com", "secret")

		assert.ErrorIs(t, err, ErrTransient)
	})

	t.Run("CancelledContextIsTransient", func(t *testing.T) {
		started := make(chan struct{})
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			time.Sleep(2 * time.Second)
		})
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		err := gw.Login(ctx, "user@example.com", "secret")

		assert.ErrorIs(t, err, ErrTransient)
	})
}

func TestVerifyOTPCall(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/auth/otp/verify", r.URL.Path)
			assert.Equal(t, "signup", r.URL.Query().Get("type"))
			json.NewEncoder(w).Encode(map[string]any{
				"success":       true,
				"access_token":  "access-jwt",
				"refresh_token": "refresh-uuid",
				"user": map[string]any{
					"id":    "u1",
					"email": "user@example.com",
					"name":  "Test User",
					"role":  "vendor",
				},
			})
		})
		defer server.Close()

		payload, err := gw.VerifyOTP(context.Background(), "user@example.com", "123456", PurposeSignup)

		require.NoError(t, err)
		assert.Equal(t, "access-jwt", payload.AccessToken)
		assert.Equal(t, "refresh-uuid", payload.RefreshToken)
		assert.Equal(t, session.RoleVendor, payload.User.Role)
	})

	t.Run("SuccessWithoutTokenIsTransient", func(t *testing.T) {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		})
		defer server.Close()

		_, err := gw.VerifyOTP(context.Background(), "user@example.com", "123456", PurposeLogin)

		assert.ErrorIs(t, err, ErrTransient)
	})

	t.Run("GoneMeansChallengeExpired", func(t *testing.T) {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGone)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "OTP expired or invalid. Please request a new code."})
		})
		defer server.Close()

		_, err := gw.VerifyOTP(context.Background(), "user@example.com", "123456", PurposeLogin)

		assert.True(t, IsOTPExpired(err))
	})

	t.Run("TooManyAttemptsAlsoExpiresChallenge", func(t *testing.T) {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Too many incorrect attempts. Please request a new OTP."})
		})
		defer server.Close()

		_, err := gw.VerifyOTP(context.Background(), "user@example.com", "123456", PurposeLogin)

		assert.True(t, IsOTPExpired(err))
	})

	t.Run("WrongCodeIsNotExpired", func(t *testing.T) {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Invalid OTP."})
		})
		defer server.Close()

		_, err := gw.VerifyOTP(context.Background(), "user@example.com", "999999", PurposeLogin)

		assert.False(t, IsOTPExpired(err))
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})
}

func TestLogoutCall(t *testing.T) {
	gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		// The access token authenticates the call; the body names the
		// refresh token being revoked.
		assert.Equal(t, "Bearer access-jwt", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh_token"])
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	defer server.Close()

	assert.NoError(t, gw.Logout(context.Background(), "access-jwt", "refresh-1"))
}

func TestCurrentSessionCall(t *testing.T) {
	gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer access-jwt", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user":    map[string]any{"id": "u1", "email": "user@example.com", "name": "U", "role": "consumer"},
		})
	})
	defer server.Close()

	identity, err := gw.CurrentSession(context.Background(), "access-jwt")

	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, session.RoleConsumer, identity.Role)
}
