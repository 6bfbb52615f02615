package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/inventory-api/internal/model"
)

const userColumns = "id,name,email,password_hash,role,store_id,refresh_token,created_at,updated_at"

// UserRepo persists user records, including the single refresh token each
// user may hold.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u and returns its ID. The unique index on email is the
// source of truth for duplicates.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, store_id) VALUES (?,?,?,?,?)",
		u.Name, NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), nullUint(u.StoreID))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// UpdateRefreshToken overwrites the stored refresh token; nil clears it.
func (r *UserRepo) UpdateRefreshToken(ctx context.Context, id uint64, token *string) error {
	var v sql.NullString
	if token != nil {
		v = sql.NullString{String: *token, Valid: true}
	}
	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET refresh_token=? WHERE id=?", v, id); err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	return nil
}

// SwapRefreshToken replaces the stored refresh token with next only while it
// still equals expected. It reports whether the swap happened; false means
// another request rotated or cleared the token first.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id uint64, expected, next string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?", next, id, expected)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return n == 1, nil
}

// UpdateFields applies a partial update. An empty update is a no-op.
func (r *UserRepo) UpdateFields(ctx context.Context, id uint64, upd model.UserUpdate) error {
	if upd.Empty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, NormalizeEmail(*upd.Email))
	}
	if upd.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *upd.PasswordHash)
	}
	if upd.ClearRefreshToken {
		sets = append(sets, "refresh_token=NULL")
	}
	args = append(args, id)

	_, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collectUsers(rows)
}

// ListByStore returns the users affiliated with storeID, newest first.
func (r *UserRepo) ListByStore(ctx context.Context, storeID uint64) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE store_id=? ORDER BY created_at DESC, id DESC", storeID)
	if err != nil {
		return nil, fmt.Errorf("list users by store: %w", err)
	}
	return collectUsers(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u       model.User
		role    string
		storeID sql.NullInt64
		refresh sql.NullString
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &storeID, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = model.Role(role)
	if storeID.Valid {
		id := uint64(storeID.Int64)
		u.StoreID = &id
	}
	if refresh.Valid {
		tok := refresh.String
		u.RefreshToken = &tok
	}
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func nullUint(v *uint64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
