package accounts

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrAlreadyVerified = errors.New("account already verified")
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrInvalidInput    = errors.New("invalid input")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// Account is the registration view of a user
type Account struct {
	ID         int64     `json:"userId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate checks the payload. bcrypt ignores input past 72 bytes, hence the upper bound.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50), validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(stringEquals(r.Password))),
	)
}

func stringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// NormalizeEmail is the key under which accounts and codes are looked up
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
