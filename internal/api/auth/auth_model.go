package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthenticated = errors.New("authentication required or invalid credentials")
var ErrForbidden = errors.New("action forbidden")

var ErrOTPInvalid = errors.New("invalid one-time passcode")
var ErrOTPExpired = errors.New("one-time passcode expired or not issued")
var ErrOTPTooManyAttempts = errors.New("too many incorrect passcode attempts")

// Role is the closed set of principal roles. Assigned at registration,
// never changed through this API.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// OTPPurpose distinguishes the login and signup verification flows.
// Codes issued for one purpose never verify under the other.
type OTPPurpose string

const (
	PurposeLogin  OTPPurpose = "login"
	PurposeSignup OTPPurpose = "signup"
)

func (p OTPPurpose) Valid() bool {
	return p == PurposeLogin || p == PurposeSignup
}

type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"name"`
	PasswordHash  string     `json:"-"`
	Role          Role       `json:"role"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is minted once an OTP verification completes a flow.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RequestOTPRequest struct {
	Email   string     `json:"email"`
	Purpose OTPPurpose `json:"purpose"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VerifyOTPResponse struct {
	Success      bool   `json:"success"`
	Detail       string `json:"detail"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Response is the generic success/detail envelope.
type Response struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}
