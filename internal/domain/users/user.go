package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrPhoneVerified      = errors.New("phone already verified")
	ErrOTPMismatch        = errors.New("otp mismatch")
)

// ValidationError reports contradictory or malformed input for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// User stores no plaintext email. The email field is a keyed hash used as a
// lookup key; the address itself is only recoverable by decoding the opaque
// auth code.
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Name              string             `bson:"name"`
	EmailHash         string             `bson:"email"`
	PasswordHash      string             `bson:"password"`
	Picture           string             `bson:"pfp"`
	Phone             string             `bson:"phone"`
	PhoneVerified     bool               `bson:"phone_verified"`
	OTP               string             `bson:"otp,omitempty"`
	AuthCode          string             `bson:"auth_code"`
	AuthCodeCreatedAt time.Time          `bson:"auth_code_created_at"`
	IsVerified        bool               `bson:"is_verified"`
	CreatedAt         time.Time          `bson:"created_at"`
}

type Repository interface {
	// Create returns ErrEmailTaken when the email hash is already present.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*User, error)
	Update(ctx context.Context, user *User) error
}
