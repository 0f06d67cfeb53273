// Package model holds the domain types shared across the db, service and
// handler layers.
package model

import "time"

// AccountStatus is the verification lifecycle state of an account.
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "pending_verification"
	StatusActive              AccountStatus = "active"
	StatusDisabled            AccountStatus = "disabled"
)

// LockState is the login-throttling state of an account at a point in time.
type LockState string

const (
	LockNone   LockState = "none"
	LockActive LockState = "locked"
)

type User struct {
	ID            int64
	Username      string
	Email         string
	PasswordHash  string
	FullName      string
	Bio           string
	PreferredLang string

	IsActive      bool
	EmailVerified bool

	RoleID *int64
	RankID *int64
	Role   *Role
	Rank   *Rank

	TotalComments      int
	TotalLikesReceived int

	VerificationCodeHash  *string
	VerificationToken     *string
	VerificationExpiresAt *time.Time

	PasswordResetToken     *string
	PasswordResetExpiresAt *time.Time

	FailedLoginAttempts int
	LockedUntil         *time.Time
	RefreshTokenID      *string

	LastLoginAt      *time.Time
	AccountExpiresAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Status derives the lifecycle state from the verification and active flags.
func (u *User) Status() AccountStatus {
	switch {
	case !u.EmailVerified:
		return StatusPendingVerification
	case !u.IsActive:
		return StatusDisabled
	default:
		return StatusActive
	}
}

// LockStateAt reports whether the account is locked out at the given instant.
// An expired lock counts as unlocked even before the row is cleaned up.
func (u *User) LockStateAt(now time.Time) LockState {
	if u.LockedUntil != nil && u.LockedUntil.After(now) {
		return LockActive
	}
	return LockNone
}

type Role struct {
	ID          int64
	Name        string
	DisplayName string
	Description string
	Color       string
	Permissions []string
	Level       int
	IsActive    bool
}

type Rank struct {
	ID          int64
	Name        string
	DisplayName string
	Description string
	Icon        string
	Color       string
	MinComments int
	MinLikes    int
	Level       int
	IsActive    bool
}

// AuthUser is the request-scoped identity attached by the auth middleware.
type AuthUser struct {
	ID    int64
	Email string
	User  *User
}

// PromotionResult describes the outcome of a rank evaluation.
type PromotionResult struct {
	Promoted bool
	NewRank  *Rank
	Comments int
	Likes    int
}
