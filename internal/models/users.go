package models

import "time"

// MembershipTier is the account level that gates premium features
type MembershipTier string

const (
	TierFree    MembershipTier = "FREE"
	TierPremium MembershipTier = "PREMIUM"
	TierVIP     MembershipTier = "VIP"
)

func (t MembershipTier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierVIP:
		return true
	}
	return false
}

// AccountType is chosen at signup
type AccountType string

const (
	AccountSingle AccountType = "single"
	AccountCouple AccountType = "couple"
)

func (a AccountType) Valid() bool {
	return a == AccountSingle || a == AccountCouple
}

// User is a row of the credential store. PasswordHash is nil for
// accounts without a local credential.
type User struct {
	ID             string         `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   *string        `db:"password_hash" json:"-"`
	Name           string         `db:"name" json:"name"`
	Avatar         *string        `db:"avatar" json:"avatar,omitempty"`
	DateOfBirth    *time.Time     `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	AccountType    AccountType    `db:"account_type" json:"accountType"`
	IsBanned       bool           `db:"is_banned" json:"isBanned"`
	Verified       bool           `db:"verified" json:"verified"`
	MembershipTier MembershipTier `db:"membership_tier" json:"membershipTier"`
	LastActive     *time.Time     `db:"last_active" json:"lastActive,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// HasLocalCredential reports whether password login is possible
func (u *User) HasLocalCredential() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Identity is the claim set returned by a successful login
type Identity struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Avatar         *string        `json:"avatar"`
	Verified       bool           `json:"verified"`
	MembershipTier MembershipTier `json:"membershipTier"`
}

func (u *User) Identity() *Identity {
	return &Identity{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Avatar:         u.Avatar,
		Verified:       u.Verified,
		MembershipTier: u.MembershipTier,
	}
}
