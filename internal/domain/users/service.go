package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wemeetoffline/server/internal/auth"
	"github.com/wemeetoffline/server/internal/domain/events"
	"github.com/wemeetoffline/server/internal/sanitize"
)

// Mailer sends account emails. Implementations must be safe for concurrent
// use; the service calls them fire-and-forget.
type Mailer interface {
	SendVerification(ctx context.Context, email, name, code string) error
	SendPasswordReset(ctx context.Context, email, name, code string) error
	SendWelcome(ctx context.Context, email, name, password string) error
}

// SMSSender delivers one-time codes to phone numbers.
type SMSSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// Identity is the minimal profile asserted by a federated login provider.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// IdentityVerifier validates a provider-issued ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// EventLister serves the derived event lists on profile pages.
type EventLister interface {
	ListByOrganizer(ctx context.Context, userID primitive.ObjectID) ([]events.Card, error)
	ListByAttendee(ctx context.Context, userID primitive.ObjectID) ([]events.Card, error)
	ListByRequester(ctx context.Context, userID primitive.ObjectID) ([]events.Card, error)
}

type Service struct {
	repo       Repository
	eventRepo  EventLister
	passwords  *auth.Hasher
	emailHash  *auth.EmailHasher
	codes      *auth.CodeCipher
	tokens     *auth.JWTManager
	identities IdentityVerifier
	mailer     Mailer
	sms        SMSSender
	codeTTL    time.Duration
	logger     zerolog.Logger
}

type ServiceDeps struct {
	Repo       Repository
	EventRepo  EventLister
	Passwords  *auth.Hasher
	EmailHash  *auth.EmailHasher
	Codes      *auth.CodeCipher
	Tokens     *auth.JWTManager
	Identities IdentityVerifier
	Mailer     Mailer
	SMS        SMSSender
	CodeTTL    time.Duration
	Logger     zerolog.Logger
}

func NewService(deps ServiceDeps) *Service {
	if deps.CodeTTL <= 0 {
		deps.CodeTTL = 15 * time.Minute
	}
	return &Service{
		repo:       deps.Repo,
		eventRepo:  deps.EventRepo,
		passwords:  deps.Passwords,
		emailHash:  deps.EmailHash,
		codes:      deps.Codes,
		tokens:     deps.Tokens,
		identities: deps.Identities,
		mailer:     deps.Mailer,
		sms:        deps.SMS,
		codeTTL:    deps.CodeTTL,
		logger:     deps.Logger,
	}
}

type SignupParams struct {
	Name     string
	Email    string
	Password string
	Picture  string
	Phone    string
}

func (s *Service) Signup(ctx context.Context, params SignupParams) error {
	name := sanitize.Text(strings.TrimSpace(params.Name))
	email := strings.TrimSpace(params.Email)
	if name == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}
	if email == "" {
		return ValidationError{Field: "email", Message: "must not be empty"}
	}
	if params.Password == "" {
		return ValidationError{Field: "password", Message: "must not be empty"}
	}

	hash := s.emailHash.Hash(email)
	if _, err := s.repo.GetByEmailHash(ctx, hash); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	code, err := s.codes.Encode(email)
	if err != nil {
		return fmt.Errorf("issuing auth code: %w", err)
	}
	passwordHash, err := s.passwords.Hash(params.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Name:              name,
		EmailHash:         hash,
		PasswordHash:      passwordHash,
		Picture:           params.Picture,
		Phone:             strings.TrimSpace(params.Phone),
		AuthCode:          code,
		AuthCodeCreatedAt: time.Now().UTC(),
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	s.dispatch("verification email", func(ctx context.Context) error {
		return s.mailer.SendVerification(ctx, email, name, code)
	})
	return nil
}

// Login exchanges credentials for a session token. Unverified accounts are
// refused until the emailed code is redeemed.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetByEmailHash(ctx, s.emailHash.Hash(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if !s.passwords.Verify(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	if !user.IsVerified {
		return "", ErrNotVerified
	}

	token, _, err := s.tokens.Generate(user.ID.Hex())
	return token, err
}

// GoogleLogin verifies a Google-issued ID token and signs the caller in,
// provisioning a verified account on first contact. The generated password is
// revealed once in the welcome email so the user can also log in directly.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	identity, err := s.identities.Verify(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidCredentials, "google token rejected")
	}

	email := strings.TrimSpace(identity.Email)
	hash := s.emailHash.Hash(email)

	user, err := s.repo.GetByEmailHash(ctx, hash)
	switch {
	case errors.Is(err, ErrNotFound):
		user, err = s.provisionFederated(ctx, identity, hash, email)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	case !user.IsVerified:
		// the provider vouched for the address
		user.IsVerified = true
		if err := s.repo.Update(ctx, user); err != nil {
			return "", err
		}
	}

	token, _, err := s.tokens.Generate(user.ID.Hex())
	return token, err
}

func (s *Service) provisionFederated(ctx context.Context, identity *Identity, hash, email string) (*User, error) {
	password, err := randomPassword()
	if err != nil {
		return nil, err
	}
	passwordHash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}
	code, err := s.codes.Encode(email)
	if err != nil {
		return nil, err
	}

	name := sanitize.Text(identity.Name)
	user := &User{
		Name:              name,
		EmailHash:         hash,
		PasswordHash:      passwordHash,
		Picture:           identity.Picture,
		AuthCode:          code,
		AuthCodeCreatedAt: time.Now().UTC(),
		IsVerified:        true,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.dispatch("welcome email", func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, email, name, password)
	})
	return user, nil
}

// VerifyEmail redeems an emailed opaque code and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, code string) error {
	email, err := s.codes.Decode(code)
	if err != nil {
		return err
	}

	user, err := s.repo.GetByEmailHash(ctx, s.emailHash.Hash(email))
	if errors.Is(err, ErrNotFound) {
		return ErrCodeMismatch
	} else if err != nil {
		return err
	}
	if user.AuthCode != code {
		return ErrCodeMismatch
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	user.IsVerified = true
	return s.repo.Update(ctx, user)
}

// RequestPasswordReset emails a reset code, reissuing the stored code when it
// has aged past the freshness window.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	user, err := s.repo.GetByEmailHash(ctx, s.emailHash.Hash(email))
	if err != nil {
		return err
	}

	if time.Since(user.AuthCodeCreatedAt) > s.codeTTL {
		code, err := s.codes.Encode(email)
		if err != nil {
			return fmt.Errorf("issuing auth code: %w", err)
		}
		user.AuthCode = code
		user.AuthCodeCreatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, user); err != nil {
			return err
		}
	}

	name, code := user.Name, user.AuthCode
	s.dispatch("password reset email", func(ctx context.Context) error {
		return s.mailer.SendPasswordReset(ctx, email, name, code)
	})
	return nil
}

// ResetPassword redeems a reset code and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	if newPassword == "" {
		return ValidationError{Field: "password", Message: "must not be empty"}
	}

	email, err := s.codes.Decode(code)
	if err != nil {
		return err
	}

	user, err := s.repo.GetByEmailHash(ctx, s.emailHash.Hash(email))
	if errors.Is(err, ErrNotFound) {
		return ErrCodeMismatch
	} else if err != nil {
		return err
	}
	if user.AuthCode != code {
		return ErrCodeMismatch
	}
	if time.Since(user.AuthCodeCreatedAt) > s.codeTTL {
		return fmt.Errorf("%w: code expired", auth.ErrInvalidAuthCode)
	}

	passwordHash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	user.PasswordHash = passwordHash
	return s.repo.Update(ctx, user)
}

// Profile is the authenticated self view, with the address recovered from the
// opaque code and the caller's event involvement resolved.
type Profile struct {
	Name          string         `json:"name"`
	Email         string         `json:"email,omitempty"`
	Picture       string         `json:"pfp"`
	Phone         string         `json:"phone"`
	PhoneVerified bool           `json:"phoneVerified"`
	Created       []events.Card  `json:"createdEvents"`
	Attending     []events.Card  `json:"attendingEvents"`
	Pending       []events.Card  `json:"pendingEvents"`
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// an undecodable stored code only blanks the email field
	email, err := s.codes.Decode(user.AuthCode)
	if err != nil {
		email = ""
	}

	created, err := s.eventRepo.ListByOrganizer(ctx, id)
	if err != nil {
		return nil, err
	}
	attending, err := s.eventRepo.ListByAttendee(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := s.eventRepo.ListByRequester(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Profile{
		Name:          user.Name,
		Email:         email,
		Picture:       user.Picture,
		Phone:         user.Phone,
		PhoneVerified: user.PhoneVerified,
		Created:       created,
		Attending:     attending,
		Pending:       pending,
	}, nil
}

// UpdateProfileParams carries optional updates; nil fields are left alone.
type UpdateProfileParams struct {
	Name    *string
	Picture *string
	Phone   *string
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if params.Name != nil {
		name := sanitize.Text(strings.TrimSpace(*params.Name))
		if name == "" {
			return ValidationError{Field: "name", Message: "must not be empty"}
		}
		user.Name = name
	}
	if params.Picture != nil {
		user.Picture = *params.Picture
	}
	if params.Phone != nil {
		phone := strings.TrimSpace(*params.Phone)
		if phone != user.Phone {
			// a new number starts unverified
			user.Phone = phone
			user.PhoneVerified = false
			user.OTP = ""
		}
	}
	return s.repo.Update(ctx, user)
}

// RequestOTP sends a one-time code to the caller's phone number.
func (s *Service) RequestOTP(ctx context.Context, userID string) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.PhoneVerified {
		return ErrPhoneVerified
	}
	if user.Phone == "" {
		return ValidationError{Field: "phone", Message: "no phone number on profile"}
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	user.OTP = code
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	phone := user.Phone
	s.dispatch("otp sms", func(ctx context.Context) error {
		return s.sms.SendOTP(ctx, phone, code)
	})
	return nil
}

// VerifyOTP checks the submitted code, marks the phone verified, and clears
// the stored code so it cannot be replayed.
func (s *Service) VerifyOTP(ctx context.Context, userID, code string) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.PhoneVerified {
		return ErrPhoneVerified
	}
	if user.OTP == "" || code != user.OTP {
		return ErrOTPMismatch
	}

	user.PhoneVerified = true
	user.OTP = ""
	return s.repo.Update(ctx, user)
}

// IsPhoneVerified backs the phone-verification gate middleware.
func (s *Service) IsPhoneVerified(ctx context.Context, userID string) (bool, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return false, err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.PhoneVerified, nil
}

// dispatch runs a notification on a detached context so a slow or failing
// provider never affects the request that triggered it.
func (s *Service) dispatch(what string, fn func(context.Context) error) {
	logger := s.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Warn().Err(err).Str("notification", what).Msg("notification dispatch failed")
		}
	}()
}

func parseUserID(userID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, ValidationError{Field: "userId", Message: "invalid user id"}
	}
	return id, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomPassword() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
