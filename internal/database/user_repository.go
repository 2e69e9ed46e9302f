package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

// userColumns must match the Scan order in scanUser.
const userColumns = `id, email, username, full_name, hashed_password, is_active, is_superuser, role,
	company, position, phone, timezone, language, notification_preferences, last_login, created_at, updated_at`

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a UserRepo from the shared DB connection.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db.DB}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user      domain.User
		prefs     []byte
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.FullName, &user.HashedPassword,
		&user.IsActive, &user.IsSuperuser, &user.Role,
		&user.Company, &user.Position, &user.Phone, &user.Timezone, &user.Language,
		&prefs, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.NotificationPrefs = prefs
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

// mapUniqueViolation translates unique constraint violations into the
// matching domain error so handlers can return a 409.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return domain.ErrEmailTaken
	case strings.Contains(pqErr.Constraint, "username"):
		return domain.ErrUsernameTaken
	}
	return err
}

func (r *UserRepo) Create(ctx context.Context, email, username, fullName, hashedPassword, role string) (user *domain.User, err error) {
	defer observe("user_create", time.Now(), &err)

	user, err = scanUser(r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, full_name, hashed_password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+userColumns+`
	`, email, username, fullName, hashedPassword, role))
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, update domain.UserUpdate) (user *domain.User, err error) {
	defer observe("user_update_profile", time.Now(), &err)

	user, err = scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET
			full_name = $2,
			company = $3,
			position = $4,
			phone = $5,
			timezone = $6,
			language = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, update.FullName, update.Company, update.Position, update.Phone, update.Timezone, update.Language))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	return user, nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
