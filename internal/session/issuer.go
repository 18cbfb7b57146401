package session

import (
	"errors"
	"fmt"
	"time"

	"lifestyle-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSession    = errors.New("no session")
	ErrTokenExpired = errors.New("session token expired")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims is the signed payload. The trust fields are a snapshot taken at
// issuance and are not re-read until the user logs in again.
type Claims struct {
	jwt.RegisteredClaims
	Verified       bool                  `json:"verified"`
	MembershipTier models.MembershipTier `json:"membershipTier"`
	Email          string                `json:"email,omitempty"`
	Name           string                `json:"name,omitempty"`
	Avatar         *string               `json:"avatar,omitempty"`
}

// SessionUser is the request-scoped view of the signed claims
type SessionUser struct {
	ID             string                `json:"id"`
	Verified       bool                  `json:"verified"`
	MembershipTier models.MembershipTier `json:"membershipTier"`
	Email          string                `json:"email,omitempty"`
	Name           string                `json:"name,omitempty"`
	Avatar         *string               `json:"avatar,omitempty"`
}

type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}

// Token is an encoded session plus its expiry
type Token struct {
	Value   string
	Expires time.Time
}

// Issuer signs and parses HS256 session tokens. It holds no mutable state
// and is safe for concurrent use.
type Issuer struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string, expiry time.Duration) *Issuer {
	return &Issuer{
		secret: secret,
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// Encode signs the identity returned by a successful login
func (i *Issuer) Encode(id *models.Identity) (*Token, error) {
	if id == nil || id.ID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	now := i.now()
	expires := now.Add(i.expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Verified:       id.Verified,
		MembershipTier: id.MembershipTier,
		Email:          id.Email,
		Name:           id.Name,
		Avatar:         id.Avatar,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Token{Value: signed, Expires: expires.Truncate(time.Second)}, nil
}

// Decode verifies the signature, issuer and expiry of raw. Callers treat any
// error as "unauthenticated".
func (i *Issuer) Decode(raw string) (*Session, error) {
	if raw == "" {
		return nil, ErrNoSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Session{
		User: SessionUser{
			ID:             claims.Subject,
			Verified:       claims.Verified,
			MembershipTier: claims.MembershipTier,
			Email:          claims.Email,
			Name:           claims.Name,
			Avatar:         claims.Avatar,
		},
		Expires: claims.ExpiresAt.Time,
	}, nil
}

func (i *Issuer) Expiry() time.Duration {
	return i.expiry
}
