package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lifestyle-api/internal/hashing"
	"lifestyle-api/internal/models"
)

var testHasher = hashing.NewHasher(hashing.WithBcryptCost(bcrypt.MinCost))

func mustHash(t *testing.T, password string) *string {
	t.Helper()
	h, err := testHasher.Hash(password)
	require.NoError(t, err)
	return &h
}

type authFixture struct {
	svc    *AuthService
	users  *memUserStore
	events *recordingPublisher
	audit  *recordingAudit
}

func newAuthFixture(t *testing.T, limiter RateLimiter) *authFixture {
	t.Helper()
	previous := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	avatar := "https://cdn.example.com/a.png"

	users := newMemUserStore(
		&models.User{ID: "u-1", Email: "alice@example.com", PasswordHash: mustHash(t, "correct-password"),
			Name: "Alice", Avatar: &avatar, Verified: true, MembershipTier: models.TierPremium, LastActive: &previous},
		&models.User{ID: "u-2", Email: "banned@example.com", PasswordHash: mustHash(t, "correct-password"),
			Name: "Banned", IsBanned: true, MembershipTier: models.TierFree},
		&models.User{ID: "u-3", Email: "oauth@example.com", Name: "OAuth Only", MembershipTier: models.TierFree},
	)
	events := &recordingPublisher{}
	audit := &recordingAudit{}
	svc := NewAuthService(users, testHasher, limiter, LimitRule{Limit: 5, Window: time.Minute}, events, audit, zap.NewNop())
	return &authFixture{svc: svc, users: users, events: events, audit: audit}
}

func TestAuthenticate_Success(t *testing.T) {
	f := newAuthFixture(t, nil)
	before := *f.users.get("alice@example.com").LastActive

	id, err := f.svc.Authenticate(context.Background(), Credentials{Email: " Alice@Example.com ", Password: "correct-password"}, RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, "alice@example.com", id.Email)
	assert.Equal(t, "Alice", id.Name)
	assert.True(t, id.Verified)
	assert.Equal(t, models.TierPremium, id.MembershipTier)
	require.NotNil(t, id.Avatar)

	after := f.users.get("alice@example.com").LastActive
	require.NotNil(t, after)
	assert.False(t, after.Before(before))

	assert.Equal(t, []string{models.DomainEventUserLoggedIn}, f.events.types())
	assert.Equal(t, []models.SecurityEventType{models.EventLoginSucceeded}, f.audit.types())
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	_, unknown := f.svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "whatever1"}, RequestMeta{})
	_, wrong := f.svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "wrong-password"}, RequestMeta{})
	_, noHash := f.svc.Authenticate(ctx, Credentials{Email: "oauth@example.com", Password: "whatever1"}, RequestMeta{})

	for _, err := range []error{unknown, wrong, noHash} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, unknown.Error(), err.Error())
	}
	assert.Empty(t, f.events.types())
	assert.Len(t, f.audit.types(), 3)
}

func TestAuthenticate_BannedIsSuspended(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.Authenticate(context.Background(), Credentials{Email: "banned@example.com", Password: "correct-password"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrAccountSuspended)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, []models.SecurityEventType{models.EventLoginSuspended}, f.audit.types())
}

func TestAuthenticate_BannedWithWrongPasswordIsInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.Authenticate(context.Background(), Credentials{Email: "banned@example.com", Password: "wrong-password"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrAccountSuspended)
	assert.NotContains(t, f.audit.types(), models.EventLoginSuspended)
}

func TestAuthenticate_LastActiveFailureIsNotReturned(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.users.lastActiveErr = errors.New("replica read-only")

	id, err := f.svc.Authenticate(context.Background(), Credentials{Email: "alice@example.com", Password: "correct-password"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.ID)
}

func TestAuthenticate_StoreErrorIsInternal(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.users.lookupErr = errors.New("connection reset")

	_, err := f.svc.Authenticate(context.Background(), Credentials{Email: "alice@example.com", Password: "correct-password"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_MalformedStoredHash(t *testing.T) {
	f := newAuthFixture(t, nil)
	bad := "md5:5f4dcc3b5aa765d61d8327deb882cf99"
	f.users.get("alice@example.com").PasswordHash = &bad

	_, err := f.svc.Authenticate(context.Background(), Credentials{Email: "alice@example.com", Password: "correct-password"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_MissingFields(t *testing.T) {
	f := newAuthFixture(t, nil)

	for _, c := range []Credentials{{}, {Email: "a@example.com"}, {Password: "pw"}, {Email: "   ", Password: "pw"}} {
		_, err := f.svc.Authenticate(context.Background(), c, RequestMeta{})
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestAuthenticate_RateLimited(t *testing.T) {
	limiter := &stubLimiter{allow: false, retry: 30 * time.Second}
	f := newAuthFixture(t, limiter)

	_, err := f.svc.Authenticate(context.Background(), Credentials{Email: "alice@example.com", Password: "correct-password"}, RequestMeta{IPAddress: "10.0.0.9"})
	require.ErrorIs(t, err, ErrRateLimited)

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
	assert.Equal(t, []string{"login:alice@example.com:10.0.0.9"}, limiter.keys)
}

func TestAuthenticate_LimiterErrorFailsOpen(t *testing.T) {
	f := newAuthFixture(t, &stubLimiter{err: errors.New("redis down")})

	_, err := f.svc.Authenticate(context.Background(), Credentials{Email: "alice@example.com", Password: "correct-password"}, RequestMeta{})
	assert.NoError(t, err)
}

func validSignup() SignupRequest {
	return SignupRequest{
		Email:       "New.User@Example.com",
		Password:    "longenough",
		Name:        "  New User ",
		DateOfBirth: "1990-06-15",
		AccountType: "couple",
	}
}

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t, nil)

	u, err := f.svc.Register(context.Background(), validSignup(), RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "new.user@example.com", u.Email)
	assert.Equal(t, "New User", u.Name)
	assert.Equal(t, models.AccountCouple, u.AccountType)
	assert.Equal(t, models.TierFree, u.MembershipTier)
	require.NotNil(t, u.PasswordHash)

	ok, err := testHasher.Verify("longenough", *u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Contains(t, f.events.types(), models.DomainEventUserSignedUp)

	id, err := f.svc.Authenticate(context.Background(), Credentials{Email: "new.user@example.com", Password: "longenough"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.ID)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newAuthFixture(t, nil)
	req := validSignup()
	req.Email = "alice@example.com"

	_, err := f.svc.Register(context.Background(), req, RequestMeta{})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		mutate  func(*SignupRequest)
		field   string
		message string
	}{
		{"bad email", func(r *SignupRequest) { r.Email = "not-an-email" }, "email", "Invalid email address"},
		{"short password", func(r *SignupRequest) { r.Password = "short" }, "password", "Password must be at least 8 characters"},
		{"empty name", func(r *SignupRequest) { r.Name = "   " }, "name", "Name must be between 1 and 100 characters"},
		{"markup in name", func(r *SignupRequest) { r.Name = "<script>" }, "name", "Name contains invalid characters"},
		{"bad date", func(r *SignupRequest) { r.DateOfBirth = "15/06/1990" }, "dateOfBirth", "Date of birth must be in YYYY-MM-DD format"},
		{"underage by a day", func(r *SignupRequest) { r.DateOfBirth = "2006-06-16" }, "dateOfBirth", "You must be at least 18 years old"},
		{"bad account type", func(r *SignupRequest) { r.AccountType = "group" }, "accountType", "Account type must be single or couple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSignup()
			tt.mutate(&req)

			_, err := f.svc.Register(context.Background(), req, RequestMeta{})
			require.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.message, ve.Message)
		})
	}

	req := validSignup()
	req.DateOfBirth = "2006-06-15"
	_, err := f.svc.Register(context.Background(), req, RequestMeta{})
	assert.NoError(t, err)
}

func TestAgeOn(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 18, ageOn(time.Date(2006, 3, 10, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 17, ageOn(time.Date(2006, 3, 11, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 17, ageOn(time.Date(2006, 4, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 34, ageOn(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), now))
}
