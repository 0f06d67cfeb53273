package db

import "context"

// DeleteExpiredUnverified removes accounts that never verified their email
// before the 24-hour deadline.
func (db *Postgres) DeleteExpiredUnverified(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM users
		WHERE email_verified = FALSE
		  AND account_expires_at IS NOT NULL
		  AND account_expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClearExpiredVerifications drops verification challenges past their TTL.
func (db *Postgres) ClearExpiredVerifications(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users
		SET verification_code_hash = NULL,
		    verification_token = NULL,
		    verification_expires_at = NULL,
		    updated_at = NOW()
		WHERE verification_expires_at IS NOT NULL
		  AND verification_expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClearExpiredPasswordResets drops reset tokens past their TTL.
func (db *Postgres) ClearExpiredPasswordResets(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users
		SET password_reset_token = NULL,
		    password_reset_expires_at = NULL,
		    updated_at = NOW()
		WHERE password_reset_expires_at IS NOT NULL
		  AND password_reset_expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
