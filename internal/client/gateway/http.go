package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codewithdenise/rentmyvenue/internal/client/session"
)

// Any call that has not resolved by then is reported as transient; the
// UI must never hang on "loading".
const defaultTimeout = 10 * time.Second

var _ AuthGateway = (*HTTPGateway)(nil)

// HTTPGateway talks JSON over HTTP to the auth backend.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPGateway(baseURL string, logger *slog.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// envelope covers every response shape the auth API produces.
type envelope struct {
	Success      bool              `json:"success"`
	Detail       string            `json:"detail"`
	Error        string            `json:"error"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	User         *session.Identity `json:"user"`
}

func (g *HTTPGateway) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	_, err := g.post(ctx, "/api/v1/auth/login", body, "")
	return err
}

func (g *HTTPGateway) Register(ctx context.Context, email, password, name string, role session.Role) error {
	body := map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
		"role":     string(role),
	}
	_, err := g.post(ctx, "/api/v1/auth/register", body, "")
	return err
}

func (g *HTTPGateway) RequestOTP(ctx context.Context, email string, purpose OTPPurpose) error {
	body := map[string]string{"email": email, "purpose": string(purpose)}
	_, err := g.post(ctx, "/api/v1/auth/otp/request", body, "")
	return err
}

func (g *HTTPGateway) VerifyOTP(ctx context.Context, email, code string, purpose OTPPurpose) (*AuthPayload, error) {
	body := map[string]string{"email": email, "otp": code}
	resp, err := g.post(ctx, "/api/v1/auth/otp/verify?type="+string(purpose), body, "")
	if err != nil {
		return nil, err
	}
	if resp.User == nil || resp.AccessToken == "" {
		// A 2xx without a usable payload is a broken response.
		return nil, fmt.Errorf("verify response missing user or token: %w", ErrTransient)
	}
	return &AuthPayload{
		User:         *resp.User,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (g *HTTPGateway) Logout(ctx context.Context, accessToken, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	_, err := g.post(ctx, "/api/v1/auth/logout", body, accessToken)
	return err
}

func (g *HTTPGateway) CurrentSession(ctx context.Context, accessToken string) (*session.Identity, error) {
	resp, err := g.do(ctx, http.MethodGet, "/api/v1/auth/session", nil, accessToken)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("session response missing user: %w", ErrTransient)
	}
	return resp.User, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body interface{}, bearer string) (*envelope, error) {
	return g.do(ctx, http.MethodPost, path, body, bearer)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body interface{}, bearer string) (*envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := g.client.Do(req)
	if err != nil {
		g.logger.DebugContext(ctx, "Auth API call failed at transport level",
			slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrTransient)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", path, ErrTransient)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &APIError{Status: res.StatusCode, Message: env.Error}
	}
	return &env, nil
}
