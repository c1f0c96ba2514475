package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	cfg := testJWTConfig()
	logger := slog.Default()
	middleware := Authenticate(logger, cfg)

	user := &User{ID: "u1", Email: "test@example.com", Role: RoleVendor}

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		role, ok := GetUserRoleFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User-ID", userID)
		w.Header().Set("X-User-Role", role)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("ValidToken", func(t *testing.T) {
		token, err := generateAccessToken(user, cfg)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		middleware(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", rec.Header().Get("X-User-ID"))
		assert.Equal(t, string(RoleVendor), rec.Header().Get("X-User-Role"))
	})

	t.Run("MissingHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		middleware(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expired := cfg
		expired.AccessTTL = -time.Minute
		token, err := generateAccessToken(user, expired)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		middleware(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongSignature", func(t *testing.T) {
		other := cfg
		other.SecretKey = "a-different-secret"
		token, err := generateAccessToken(user, other)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		middleware(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := cfg
		other.Issuer = "someone-else"
		token, err := generateAccessToken(user, other)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		middleware(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("UnexpectedSigningMethod", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		middleware(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	cfg := testJWTConfig()
	logger := slog.Default()
	authenticate := Authenticate(logger, cfg)
	adminOnly := RequireRole(logger, RoleAdmin)

	handler := authenticate(adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	request := func(t *testing.T, role Role) *httptest.ResponseRecorder {
		t.Helper()
		token, err := generateAccessToken(&User{ID: "u1", Email: "x@example.com", Role: role}, cfg)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("AdminAllowed", func(t *testing.T) {
		rec := request(t, RoleAdmin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ConsumerForbidden", func(t *testing.T) {
		rec := request(t, RoleConsumer)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Access denied")
	})

	t.Run("VendorForbidden", func(t *testing.T) {
		rec := request(t, RoleVendor)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
