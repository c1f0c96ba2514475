package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/codewithdenise/rentmyvenue/config"
)

// ChallengeStore holds pending one-time passcodes. Codes are single-use,
// scoped to an email+purpose pair, expire after the configured TTL, and
// burn out after MaxAttempts wrong guesses. Issuing a new code for the
// same email+purpose replaces the previous one.
type ChallengeStore struct {
	cfg   config.OTPConfig
	cache *gocache.Cache
}

func NewChallengeStore(cfg config.OTPConfig) *ChallengeStore {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &ChallengeStore{
		cfg:   cfg,
		cache: gocache.New(cfg.TTL, 2*cfg.TTL),
	}
}

func codeKey(purpose OTPPurpose, email string) string {
	return fmt.Sprintf("otp_%s:%s", purpose, strings.ToLower(email))
}

func attemptsKey(purpose OTPPurpose, email string) string {
	return fmt.Sprintf("otp_%s_attempts:%s", purpose, strings.ToLower(email))
}

// Issue generates a fresh numeric code and stores it under the email+purpose
// key, resetting the attempt counter.
func (s *ChallengeStore) Issue(email string, purpose OTPPurpose) (string, error) {
	code, err := generateNumericCode(s.cfg.Length)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	s.cache.Set(codeKey(purpose, email), code, s.cfg.TTL)
	s.cache.Set(attemptsKey(purpose, email), 0, s.cfg.TTL)
	return code, nil
}

// Verify consumes the pending code for email+purpose. A correct code is
// deleted so it cannot be replayed; a wrong code increments the attempt
// counter until the challenge burns out.
func (s *ChallengeStore) Verify(email, code string, purpose OTPPurpose) error {
	ck := codeKey(purpose, email)
	ak := attemptsKey(purpose, email)

	cached, found := s.cache.Get(ck)
	if !found {
		return ErrOTPExpired
	}

	attempts := 0
	if v, ok := s.cache.Get(ak); ok {
		attempts, _ = v.(int)
	}
	if attempts >= s.cfg.MaxAttempts {
		s.cache.Delete(ck)
		s.cache.Delete(ak)
		return ErrOTPTooManyAttempts
	}

	if expected, _ := cached.(string); expected != code {
		s.cache.Set(ak, attempts+1, s.cfg.TTL)
		return ErrOTPInvalid
	}

	s.cache.Delete(ck)
	s.cache.Delete(ak)
	return nil
}

// Discard removes any pending challenge for email+purpose.
func (s *ChallengeStore) Discard(email string, purpose OTPPurpose) {
	s.cache.Delete(codeKey(purpose, email))
	s.cache.Delete(attemptsKey(purpose, email))
}

func generateNumericCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", n.Int64())
	}
	return b.String(), nil
}
