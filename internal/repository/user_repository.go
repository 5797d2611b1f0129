package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/password"
)

// UserRepo is the credential store. Every mutation that used to live in a
// schema lifecycle hook is an explicit step here: plaintext passwords are
// hashed before any INSERT or UPDATE, password_changed_at is stamped on
// password mutation (never on creation), and every default read filters out
// soft-deleted rows.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, name, email, photo, password_hash, role,
	password_changed_at, password_reset_token, password_reset_expires,
	is_active, created_at, updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		changedAt sql.NullTime
		resetTok  sql.NullString
		resetExp  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.PasswordHash, &u.Role,
		&changedAt, &resetTok, &resetExp, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	if resetTok.Valid {
		s := resetTok.String
		u.PasswordResetToken = &s
	}
	if resetExp.Valid {
		t := resetExp.Time
		u.PasswordResetExpires = &t
	}
	return u, nil
}

// Create hashes the password and inserts the user, returning the new id.
// password_changed_at stays NULL on creation so freshly issued tokens are
// never considered stale.
func (r *UserRepo) Create(ctx context.Context, name, email, plain, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := password.Hash(plain, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an active user by normalized email. The password hash is
// included for credential checks; callers must not serialize the model.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? AND is_active=1 LIMIT 1", email))
}

// GetByID fetches an active user by id. Soft-deleted users come back as
// sql.ErrNoRows, which is what invalidates their outstanding tokens.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? AND is_active=1 LIMIT 1", id))
}

// GetByResetToken fetches the active user holding the given reset-token hash
// with an unexpired window. No match means invalid or expired.
func (r *UserRepo) GetByResetToken(ctx context.Context, tokenHash string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+` FROM users
		 WHERE password_reset_token=? AND password_reset_expires > UTC_TIMESTAMP()
		   AND is_active=1 LIMIT 1`, tokenHash))
}

// SetResetToken stores the hash of a freshly generated reset secret together
// with its expiry. Both columns are always written together.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token=?, password_reset_expires=? WHERE id=?",
		tokenHash, expires.UTC(), id)
	return err
}

// ClearResetToken removes a pending reset. Called when the reset mail cannot
// be delivered and after a successful consume.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token=NULL, password_reset_expires=NULL WHERE id=?", id)
	return err
}

// UpdatePassword hashes and stores a new password, clears any pending reset
// and stamps password_changed_at one second in the past. The back-date keeps
// the session token issued right after the save from failing the staleness
// check when both fall into the same second.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, plain string, cost int) error {
	hash, err := password.Hash(plain, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?,
			password_changed_at=DATE_SUB(UTC_TIMESTAMP(), INTERVAL 1 SECOND),
			password_reset_token=NULL, password_reset_expires=NULL
		 WHERE id=?`, hash, id)
	return err
}

// UpdateProfile changes name and email only. Password mutations go through
// UpdatePassword so the changed-at stamp cannot be skipped.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=? WHERE id=?", name, email, id)
	if err != nil && isDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

// Deactivate soft-deletes a user. The row stays in place but disappears from
// every default lookup, which also blocks authentication.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=0 WHERE id=?", id)
	return err
}

// List returns all active users, for the admin surface.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users WHERE is_active=1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u         model.User
			changedAt sql.NullTime
			resetTok  sql.NullString
			resetExp  sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.PasswordHash, &u.Role,
			&changedAt, &resetTok, &resetExp, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if changedAt.Valid {
			t := changedAt.Time
			u.PasswordChangedAt = &t
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update is the admin mutation for name, email and role.
func (r *UserRepo) Update(ctx context.Context, id uint64, name, email, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, role=? WHERE id=?", name, email, role, id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return requireAffected(res)
}

// Delete hard-deletes a user row. Admin-only; the auth subsystem itself only
// ever soft-deletes via Deactivate.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// requireAffected converts a zero-row UPDATE/DELETE into sql.ErrNoRows so
// handlers can answer 404 uniformly.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
