package service

import (
	"time"

	"github.com/polyblog/backend/internal/model"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 30 * time.Minute
)

// LockStateOf reports the account's lockout state at the given instant.
func LockStateOf(u *model.User, now time.Time) model.LockState {
	return u.LockStateAt(now)
}
