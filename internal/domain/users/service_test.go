package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wemeetoffline/server/internal/auth"
	"github.com/wemeetoffline/server/internal/domain/events"
)

type fakeUserRepo struct {
	byHash map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byHash: map[string]*User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *User) error {
	if _, exists := f.byHash[user.EmailHash]; exists {
		return ErrEmailTaken
	}
	user.ID = primitive.NewObjectID()
	copied := *user
	f.byHash[user.EmailHash] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*User, error) {
	for _, user := range f.byHash {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUserRepo) GetByEmailHash(_ context.Context, hash string) (*User, error) {
	user, ok := f.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *User) error {
	for hash, existing := range f.byHash {
		if existing.ID == user.ID {
			if hash != user.EmailHash {
				delete(f.byHash, hash)
			}
			copied := *user
			f.byHash[user.EmailHash] = &copied
			return nil
		}
	}
	return ErrNotFound
}

type sentMail struct {
	kind  string
	email string
	code  string
}

type fakeMailer struct {
	sent chan sentMail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan sentMail, 8)}
}

func (f *fakeMailer) SendVerification(_ context.Context, email, _, code string) error {
	f.sent <- sentMail{kind: "verification", email: email, code: code}
	return nil
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, email, _, code string) error {
	f.sent <- sentMail{kind: "reset", email: email, code: code}
	return nil
}

func (f *fakeMailer) SendWelcome(_ context.Context, email, _, password string) error {
	f.sent <- sentMail{kind: "welcome", email: email, code: password}
	return nil
}

func (f *fakeMailer) wait(t *testing.T) sentMail {
	t.Helper()
	select {
	case mail := <-f.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("no email dispatched")
		return sentMail{}
	}
}

type fakeSMS struct {
	sent chan string
}

func newFakeSMS() *fakeSMS {
	return &fakeSMS{sent: make(chan string, 8)}
}

func (f *fakeSMS) SendOTP(_ context.Context, _, code string) error {
	f.sent <- code
	return nil
}

func (f *fakeSMS) wait(t *testing.T) string {
	t.Helper()
	select {
	case code := <-f.sent:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("no sms dispatched")
		return ""
	}
}

type fakeVerifier struct {
	identity *Identity
	err      error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*Identity, error) {
	return f.identity, f.err
}

type fakeEventLister struct{}

func (fakeEventLister) ListByOrganizer(context.Context, primitive.ObjectID) ([]events.Card, error) {
	return []events.Card{{Title: "Meetup A"}}, nil
}

func (fakeEventLister) ListByAttendee(context.Context, primitive.ObjectID) ([]events.Card, error) {
	return []events.Card{}, nil
}

func (fakeEventLister) ListByRequester(context.Context, primitive.ObjectID) ([]events.Card, error) {
	return []events.Card{}, nil
}

type fixture struct {
	repo    *fakeUserRepo
	mailer  *fakeMailer
	sms     *fakeSMS
	google  *fakeVerifier
	hasher  *auth.EmailHasher
	codes   *auth.CodeCipher
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key := make([]byte, 32)
	iv := make([]byte, 16)
	codes, err := auth.NewCodeCipher(key, iv)
	require.NoError(t, err)

	f := &fixture{
		repo:   newFakeUserRepo(),
		mailer: newFakeMailer(),
		sms:    newFakeSMS(),
		google: &fakeVerifier{},
		hasher: auth.NewEmailHasher("email-secret"),
		codes:  codes,
	}
	f.service = NewService(ServiceDeps{
		Repo:       f.repo,
		EventRepo:  fakeEventLister{},
		Passwords:  auth.NewHasher(4),
		EmailHash:  f.hasher,
		Codes:      codes,
		Tokens:     auth.NewJWTManager("jwt-secret", time.Hour, "test"),
		Identities: f.google,
		Mailer:     f.mailer,
		SMS:        f.sms,
		CodeTTL:    15 * time.Minute,
		Logger:     zerolog.Nop(),
	})
	return f
}

func (f *fixture) signup(t *testing.T, email string) *User {
	t.Helper()
	err := f.service.Signup(context.Background(), SignupParams{
		Name:     "Ana",
		Email:    email,
		Password: "hunter22",
		Phone:    "+15550001111",
	})
	require.NoError(t, err)
	f.mailer.wait(t)

	user, err := f.repo.GetByEmailHash(context.Background(), f.hasher.Hash(email))
	require.NoError(t, err)
	return user
}

func (f *fixture) signupVerified(t *testing.T, email string) *User {
	t.Helper()
	user := f.signup(t, email)
	require.NoError(t, f.service.VerifyEmail(context.Background(), user.AuthCode))
	user, err := f.repo.GetByEmailHash(context.Background(), user.EmailHash)
	require.NoError(t, err)
	return user
}

func TestSignupStoresHashedSecretsAndEmailsCode(t *testing.T) {
	f := newFixture(t)

	err := f.service.Signup(context.Background(), SignupParams{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	mail := f.mailer.wait(t)
	require.Equal(t, "verification", mail.kind)
	require.Equal(t, "ana@example.com", mail.email)

	user, err := f.repo.GetByEmailHash(context.Background(), f.hasher.Hash("ana@example.com"))
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", user.PasswordHash)
	require.False(t, user.IsVerified)
	require.Equal(t, user.AuthCode, mail.code)

	// the emailed code decodes back to the address
	email, err := f.codes.Decode(mail.code)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", email)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ana@example.com")

	err := f.service.Signup(context.Background(), SignupParams{
		Name:     "Other",
		Email:    "ana@example.com",
		Password: "different",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "ana@example.com")

	_, err := f.service.Login(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.Login(ctx, "ana@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "ana@example.com", "hunter22")
	require.ErrorIs(t, err, ErrNotVerified)

	require.NoError(t, f.service.VerifyEmail(ctx, user.AuthCode))

	token, err := f.service.Login(ctx, "ana@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "ana@example.com")

	require.ErrorIs(t, f.service.VerifyEmail(ctx, "not-a-code"), auth.ErrInvalidAuthCode)

	// valid code bound to an unknown address
	orphan, err := f.codes.Encode("ghost@example.com")
	require.NoError(t, err)
	require.ErrorIs(t, f.service.VerifyEmail(ctx, orphan), ErrCodeMismatch)

	// valid code for the right address but not the stored one
	stale, err := f.codes.Encode("ana@example.com")
	require.NoError(t, err)
	require.ErrorIs(t, f.service.VerifyEmail(ctx, stale), ErrCodeMismatch)

	require.NoError(t, f.service.VerifyEmail(ctx, user.AuthCode))
	require.ErrorIs(t, f.service.VerifyEmail(ctx, user.AuthCode), ErrAlreadyVerified)
}

func TestGoogleLoginProvisionsVerifiedUser(t *testing.T) {
	f := newFixture(t)
	f.google.identity = &Identity{Email: "new@example.com", Name: "New User", Picture: "https://example.com/p.png"}

	token, err := f.service.GoogleLogin(context.Background(), "token")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	mail := f.mailer.wait(t)
	require.Equal(t, "welcome", mail.kind)
	require.Equal(t, "new@example.com", mail.email)

	user, err := f.repo.GetByEmailHash(context.Background(), f.hasher.Hash("new@example.com"))
	require.NoError(t, err)
	require.True(t, user.IsVerified)

	// the one-time password from the welcome email works for direct login
	direct, err := f.service.Login(context.Background(), "new@example.com", mail.code)
	require.NoError(t, err)
	require.NotEmpty(t, direct)
}

func TestGoogleLoginVerifiesExistingUser(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ana@example.com")
	f.google.identity = &Identity{Email: "ana@example.com", Name: "Ana"}

	token, err := f.service.GoogleLogin(context.Background(), "token")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := f.repo.GetByEmailHash(context.Background(), f.hasher.Hash("ana@example.com"))
	require.NoError(t, err)
	require.True(t, user.IsVerified)
}

func TestGoogleLoginRejectedToken(t *testing.T) {
	f := newFixture(t)
	f.google.err = errors.New("audience mismatch")

	_, err := f.service.GoogleLogin(context.Background(), "bad")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signupVerified(t, "ana@example.com")

	require.ErrorIs(t, f.service.RequestPasswordReset(ctx, "nobody@example.com"), ErrNotFound)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "ana@example.com"))
	mail := f.mailer.wait(t)
	require.Equal(t, "reset", mail.kind)
	// the stored code is still fresh, so it is reused
	require.Equal(t, user.AuthCode, mail.code)

	require.NoError(t, f.service.ResetPassword(ctx, mail.code, "newpassword"))

	_, err := f.service.Login(ctx, "ana@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.service.Login(ctx, "ana@example.com", "newpassword")
	require.NoError(t, err)
}

func TestPasswordResetRegeneratesStaleCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signupVerified(t, "ana@example.com")

	// age the stored code past the freshness window
	user.AuthCodeCreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, f.repo.Update(ctx, user))

	require.NoError(t, f.service.RequestPasswordReset(ctx, "ana@example.com"))
	mail := f.mailer.wait(t)
	require.NotEqual(t, user.AuthCode, mail.code)

	refreshed, err := f.repo.GetByEmailHash(ctx, user.EmailHash)
	require.NoError(t, err)
	require.Equal(t, refreshed.AuthCode, mail.code)
}

func TestResetPasswordRejectsBadCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signupVerified(t, "ana@example.com")

	require.ErrorIs(t, f.service.ResetPassword(ctx, "garbage", "newpassword"), auth.ErrInvalidAuthCode)

	stale, err := f.codes.Encode("ana@example.com")
	require.NoError(t, err)
	require.ErrorIs(t, f.service.ResetPassword(ctx, stale, "newpassword"), ErrCodeMismatch)

	// expired stored code
	user.AuthCodeCreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, f.repo.Update(ctx, user))
	require.ErrorIs(t, f.service.ResetPassword(ctx, user.AuthCode, "newpassword"), auth.ErrInvalidAuthCode)
}

func TestProfileRecoversEmailAndLists(t *testing.T) {
	f := newFixture(t)
	user := f.signupVerified(t, "ana@example.com")

	profile, err := f.service.Profile(context.Background(), user.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "Ana", profile.Name)
	require.Equal(t, "ana@example.com", profile.Email)
	require.Len(t, profile.Created, 1)
	require.Empty(t, profile.Attending)
	require.Empty(t, profile.Pending)
}

func TestUpdateProfileResetsPhoneVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signupVerified(t, "ana@example.com")

	require.NoError(t, f.service.RequestOTP(ctx, user.ID.Hex()))
	code := f.sms.wait(t)
	require.NoError(t, f.service.VerifyOTP(ctx, user.ID.Hex(), code))

	newPhone := "+15559992222"
	name := "Ana B"
	require.NoError(t, f.service.UpdateProfile(ctx, user.ID.Hex(), UpdateProfileParams{
		Name:  &name,
		Phone: &newPhone,
	}))

	updated, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana B", updated.Name)
	require.Equal(t, newPhone, updated.Phone)
	require.False(t, updated.PhoneVerified)
	require.Empty(t, updated.OTP)
}

func TestOTPFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signupVerified(t, "ana@example.com")

	require.NoError(t, f.service.RequestOTP(ctx, user.ID.Hex()))
	code := f.sms.wait(t)
	require.Len(t, code, 6)

	require.ErrorIs(t, f.service.VerifyOTP(ctx, user.ID.Hex(), "000000x"), ErrOTPMismatch)

	require.NoError(t, f.service.VerifyOTP(ctx, user.ID.Hex(), code))

	verified, err := f.service.IsPhoneVerified(ctx, user.ID.Hex())
	require.NoError(t, err)
	require.True(t, verified)

	// the code is cleared and the state is terminal
	require.ErrorIs(t, f.service.VerifyOTP(ctx, user.ID.Hex(), code), ErrPhoneVerified)
	require.ErrorIs(t, f.service.RequestOTP(ctx, user.ID.Hex()), ErrPhoneVerified)

	stored, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, stored.OTP)
}
