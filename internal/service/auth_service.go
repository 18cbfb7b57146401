package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"lifestyle-api/internal/metrics"
	"lifestyle-api/internal/models"
	"lifestyle-api/internal/repository"
	"lifestyle-api/internal/util"
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
	maxNameLength     = 100
	minimumAge        = 18
	dateOfBirthLayout = "2006-01-02"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	AccountType string `json:"accountType"`
}

// AuthService verifies credentials and creates accounts
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	limit  limitCheck
	notify notifier
	logger *zap.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users UserStore,
	hasher PasswordHasher,
	limiter RateLimiter,
	loginRule LimitRule,
	events EventPublisher,
	audit AuditSink,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		limit:  limitCheck{limiter: limiter, rule: loginRule, scope: "login", logger: logger},
		notify: newNotifier(events, audit, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Authenticate returns the identity for a correct email/password pair.
// Unknown email, missing local credential and wrong password all yield
// ErrInvalidCredentials; a banned account yields ErrAccountSuspended once
// the password has matched.
func (s *AuthService) Authenticate(ctx context.Context, creds Credentials, meta RequestMeta) (*models.Identity, error) {
	email := util.NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, newValidationError("email", "Email and password are required")
	}

	if err := s.limit.allow(ctx, email+":"+meta.IPAddress); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.burnHash(creds.Password)
			s.loginFailed(ctx, "", email, meta, "unknown_email")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Credential lookup failed", util.Email("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: credential lookup: %v", ErrInternal, err)
	}

	if !user.HasLocalCredential() {
		s.burnHash(creds.Password)
		s.loginFailed(ctx, user.ID, email, meta, "no_local_credential")
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(creds.Password, *user.PasswordHash)
	if err != nil {
		s.logger.Error("Stored password hash is unreadable",
			zap.String("user_id", user.ID),
			zap.Error(err))
		s.loginFailed(ctx, user.ID, email, meta, "bad_hash")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.loginFailed(ctx, user.ID, email, meta, "wrong_password")
		return nil, ErrInvalidCredentials
	}

	// Only a caller holding the password learns that the account is banned
	if user.IsBanned {
		metrics.LoginAttempts.WithLabelValues("suspended").Inc()
		s.notify.record(ctx, models.EventLoginSuspended, user.ID, email, meta)
		return nil, ErrAccountSuspended
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastActive(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to update last active",
			zap.String("user_id", user.ID),
			zap.Error(err))
	} else {
		user.LastActive = &now
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.notify.record(ctx, models.EventLoginSucceeded, user.ID, email, meta)
	s.notify.publish(ctx, models.DomainEventUserLoggedIn, user.ID, map[string]interface{}{
		"userId": user.ID,
	})

	s.logger.Info("User logged in", zap.String("user_id", user.ID))
	return user.Identity(), nil
}

// Register creates a FREE account with a local credential
func (s *AuthService) Register(ctx context.Context, req SignupRequest, meta RequestMeta) (*models.User, error) {
	user, err := s.validateSignup(req)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("%w: hash password: %v", ErrInternal, err)
	}
	user.PasswordHash = &hash

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user", util.Email("email", user.Email), zap.Error(err))
		return nil, fmt.Errorf("%w: create user: %v", ErrInternal, err)
	}

	s.notify.record(ctx, models.EventSignup, created.ID, created.Email, meta)
	s.notify.publish(ctx, models.DomainEventUserSignedUp, created.ID, map[string]interface{}{
		"userId":      created.ID,
		"accountType": string(created.AccountType),
	})

	s.logger.Info("User registered",
		zap.String("user_id", created.ID),
		util.Email("email", created.Email))
	return created, nil
}

func (s *AuthService) validateSignup(req SignupRequest) (*models.User, error) {
	email := util.NormalizeEmail(req.Email)
	if !util.IsValidEmail(email) {
		return nil, newValidationError("email", "Invalid email address")
	}

	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return nil, newValidationError("password", "Password must be at least 8 characters")
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, newValidationError("password", "Password must be at most 72 bytes")
	}

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLength {
		return nil, newValidationError("name", "Name must be between 1 and 100 characters")
	}
	if util.ContainsSuspicious(name) {
		return nil, newValidationError("name", "Name contains invalid characters")
	}

	dob, err := time.Parse(dateOfBirthLayout, req.DateOfBirth)
	if err != nil {
		return nil, newValidationError("dateOfBirth", "Date of birth must be in YYYY-MM-DD format")
	}
	if ageOn(dob, s.now().UTC()) < minimumAge {
		return nil, newValidationError("dateOfBirth", "You must be at least 18 years old")
	}

	accountType := models.AccountType(req.AccountType)
	if !accountType.Valid() {
		return nil, newValidationError("accountType", "Account type must be single or couple")
	}

	return &models.User{
		Email:          email,
		Name:           name,
		DateOfBirth:    &dob,
		AccountType:    accountType,
		MembershipTier: models.TierFree,
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email string, meta RequestMeta, reason string) {
	metrics.LoginAttempts.WithLabelValues("invalid").Inc()
	s.logger.Info("Login failed",
		util.Email("email", email),
		zap.String("reason", reason))
	s.notify.record(ctx, models.EventLoginFailed, userID, email, meta)
}

// burnHash spends one hash comparison so that failures without a stored
// hash take about as long as a wrong password.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Warn("Failed to build dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

// ageOn returns completed years between dob and now
func ageOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
