package db

import (
	"context"
	"time"

	"github.com/polyblog/backend/internal/model"
)

const userColumns = `
	id, username, email, password_hash, full_name, bio, preferred_lang,
	is_active, email_verified, role_id, rank_id,
	total_comments, total_likes_received,
	verification_code_hash, verification_token, verification_expires_at,
	password_reset_token, password_reset_expires_at,
	failed_login_attempts, locked_until, refresh_token_id,
	last_login_at, account_expires_at, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &u.PreferredLang,
		&u.IsActive, &u.EmailVerified, &u.RoleID, &u.RankID,
		&u.TotalComments, &u.TotalLikesReceived,
		&u.VerificationCodeHash, &u.VerificationToken, &u.VerificationExpiresAt,
		&u.PasswordResetToken, &u.PasswordResetExpiresAt,
		&u.FailedLoginAttempts, &u.LockedUntil, &u.RefreshTokenID,
		&u.LastLoginAt, &u.AccountExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *Postgres) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (
			username, email, password_hash, full_name, bio, preferred_lang,
			is_active, email_verified, role_id, rank_id,
			verification_code_hash, verification_token, verification_expires_at,
			account_expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING ` + userColumns
	row := db.Pool.QueryRow(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.Bio, u.PreferredLang,
		u.IsActive, u.EmailVerified, u.RoleID, u.RankID,
		u.VerificationCodeHash, u.VerificationToken, u.VerificationExpiresAt,
		u.AccountExpiresAt,
	)
	return scanUser(row)
}

func (db *Postgres) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.Pool.QueryRow(ctx, query, id))
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(db.Pool.QueryRow(ctx, query, email))
}

// LoadRoleRank fills in the user's role and rank references when assigned.
func (db *Postgres) LoadRoleRank(ctx context.Context, u *model.User) error {
	if u.RoleID != nil {
		role, err := db.GetRoleByID(ctx, *u.RoleID)
		if err != nil && !IsNoRows(err) {
			return err
		}
		u.Role = role
	}
	if u.RankID != nil {
		rank, err := db.GetRankByID(ctx, *u.RankID)
		if err != nil && !IsNoRows(err) {
			return err
		}
		u.Rank = rank
	}
	return nil
}

func (db *Postgres) DeleteUser(ctx context.Context, id int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// SetVerificationChallenge overwrites any previous challenge, so a resend
// always invalidates the code issued before it.
func (db *Postgres) SetVerificationChallenge(ctx context.Context, userID int64, codeHash, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET verification_code_hash = $2,
		    verification_token = $3,
		    verification_expires_at = $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID, codeHash, token, expiresAt)
	return err
}

// MarkEmailVerified activates the account and consumes the challenge in one
// statement, so an accepted code cannot be replayed.
func (db *Postgres) MarkEmailVerified(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET email_verified = TRUE,
		    is_active = TRUE,
		    verification_code_hash = NULL,
		    verification_token = NULL,
		    verification_expires_at = NULL,
		    account_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID)
	return err
}

// RecordFailedLogin increments the failure counter and arms the lock in a
// single conditional update, so concurrent failures cannot under-count the
// threshold. An already armed lock is left untouched.
func (db *Postgres) RecordFailedLogin(ctx context.Context, email string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2
		             AND (locked_until IS NULL OR locked_until <= NOW())
		        THEN $3
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE email = $1
		RETURNING failed_login_attempts, locked_until
	`
	var attempts int
	var lockedUntil *time.Time
	err := db.Pool.QueryRow(ctx, query, email, threshold, lockUntil).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, err
	}
	return attempts, lockedUntil, nil
}

func (db *Postgres) RecordSuccessfulLogin(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_login_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID)
	return err
}

// SetRefreshTokenID stores the token ID of the currently valid refresh
// token; pass nil to revoke it (logout).
func (db *Postgres) SetRefreshTokenID(ctx context.Context, userID int64, tokenID *string) error {
	query := `UPDATE users SET refresh_token_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := db.Pool.Exec(ctx, query, userID, tokenID)
	return err
}

func (db *Postgres) SetPasswordReset(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token = $2,
		    password_reset_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID, token, expiresAt)
	return err
}

// ResetPassword swaps in the new hash, consumes the reset token and clears
// any lockout state.
func (db *Postgres) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    password_reset_token = NULL,
		    password_reset_expires_at = NULL,
		    failed_login_attempts = 0,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID, passwordHash)
	return err
}

// AddComment atomically bumps the comment counter and returns both counters
// for the rank evaluation that follows.
func (db *Postgres) AddComment(ctx context.Context, userID int64) (comments, likes int, err error) {
	query := `
		UPDATE users
		SET total_comments = total_comments + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING total_comments, total_likes_received
	`
	err = db.Pool.QueryRow(ctx, query, userID).Scan(&comments, &likes)
	return comments, likes, err
}

// AddLike is the counterpart of AddComment for received likes.
func (db *Postgres) AddLike(ctx context.Context, userID int64) (comments, likes int, err error) {
	query := `
		UPDATE users
		SET total_likes_received = total_likes_received + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING total_comments, total_likes_received
	`
	err = db.Pool.QueryRow(ctx, query, userID).Scan(&comments, &likes)
	return comments, likes, err
}

func (db *Postgres) SetRank(ctx context.Context, userID, rankID int64) error {
	query := `UPDATE users SET rank_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := db.Pool.Exec(ctx, query, userID, rankID)
	return err
}
