package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/codewithdenise/rentmyvenue/app/observability/metrics"
	"github.com/codewithdenise/rentmyvenue/config"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService implements the two-step, OTP-gated authentication flow:
// password verification (or registration) issues a passcode, and only a
// successful passcode verification mints tokens.
type AuthService interface {
	// Register creates a new unverified user and issues a signup OTP.
	// Registering an existing unverified email re-issues the OTP instead
	// of conflicting; the bool reports that case.
	Register(ctx context.Context, email, password, displayName string, role Role) (*User, bool, error)

	// Login verifies the password and issues a login OTP. No tokens yet.
	Login(ctx context.Context, email, password string) error

	// RequestOTP re-issues a passcode for an in-flight login or signup.
	// A new code replaces any previous one for the same email+purpose.
	RequestOTP(ctx context.Context, email string, purpose OTPPurpose) error

	// VerifyOTP consumes the pending passcode and, on success, finalizes
	// the flow: signup marks the email verified, both purposes mint an
	// access/refresh token pair.
	VerifyOTP(ctx context.Context, email, code string, purpose OTPPurpose) (*TokenPair, *User, error)

	// RefreshSession rotates the refresh token and mints a new access token.
	RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Logout revokes the refresh token.
	Logout(ctx context.Context, refreshToken string) error

	// GetSession returns the identity behind an authenticated user ID.
	GetSession(ctx context.Context, userID string) (*User, error)
}

type AuthServiceImpl struct {
	logger     *slog.Logger
	repo       AuthRepo
	challenges *ChallengeStore
	mailer     Mailer
	jwtCfg     config.JWTConfig
	metrics    *metrics.AppMetrics
}

func NewAuthService(repo AuthRepo, challenges *ChallengeStore, mailer Mailer, jwtCfg config.JWTConfig, m *metrics.AppMetrics, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:     logger,
		repo:       repo,
		challenges: challenges,
		mailer:     mailer,
		jwtCfg:     jwtCfg,
		metrics:    m,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, email, password, displayName string, role Role) (*User, bool, error) {
	if s.metrics != nil {
		s.metrics.RegisterRequestsTotal.Add(ctx, 1)
	}

	// Admins are provisioned operationally, never self-registered.
	if !role.Valid() || role == RoleAdmin {
		return nil, false, ErrForbidden
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		if existing.EmailVerified {
			return nil, false, ErrConflict
		}
		// Unverified account: resend the signup passcode instead of failing.
		if err := s.issueOTP(ctx, existing.Email, PurposeSignup); err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, displayName, string(hash), role)
	if err != nil {
		return nil, false, err
	}

	if err := s.issueOTP(ctx, user.Email, PurposeSignup); err != nil {
		return nil, false, err
	}
	return user, false, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) error {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.Add(ctx, 1)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Indistinguishable from a bad password on purpose.
			return ErrUnauthenticated
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrUnauthenticated
	}

	return s.issueOTP(ctx, user.Email, PurposeLogin)
}

func (s *AuthServiceImpl) RequestOTP(ctx context.Context, email string, purpose OTPPurpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("%w: unknown otp purpose %q", ErrOTPInvalid, purpose)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthenticated
		}
		return err
	}
	if purpose == PurposeSignup && user.EmailVerified {
		return ErrConflict
	}

	return s.issueOTP(ctx, user.Email, purpose)
}

func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, email, code string, purpose OTPPurpose) (*TokenPair, *User, error) {
	if !purpose.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown otp purpose %q", ErrOTPInvalid, purpose)
	}

	if err := s.challenges.Verify(email, code, purpose); err != nil {
		if s.metrics != nil {
			s.metrics.OTPVerifyFailuresTotal.Add(ctx, 1)
		}
		return nil, nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}

	if purpose == PurposeSignup && !user.EmailVerified {
		if err := s.repo.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, nil, err
		}
		user.EmailVerified = true
	}

	pair, err := s.mintTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, expiresAt, revokedAt, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if time.Now().After(expiresAt) || revokedAt != nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	pair, err := s.mintTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	// Rotation: the old token dies with the new one's birth.
	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		s.logger.WarnContext(ctx, "Failed to revoke rotated refresh token", slog.Any("error", err))
	}
	return pair, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.InvalidateRefreshToken(ctx, refreshToken)
}

func (s *AuthServiceImpl) GetSession(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthServiceImpl) issueOTP(ctx context.Context, email string, purpose OTPPurpose) error {
	code, err := s.challenges.Issue(email, purpose)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.OTPIssuedTotal.Add(ctx, 1)
	}
	return s.mailer.SendOTP(ctx, email, code, purpose)
}

func (s *AuthServiceImpl) mintTokens(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := generateAccessToken(user, s.jwtCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := uuid.NewString()
	expiresAt := time.Now().Add(s.jwtCfg.RefreshTTL)
	if err := s.repo.StoreRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func generateAccessToken(user *User, cfg config.JWTConfig) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SecretKey))
}
