package data

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// User is a dashboard account scoped to one society (admins of the
// platform itself carry an empty SocietyCode).
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	APIKeyHash   string    `json:"-"`
	SocietyCode  string    `json:"society_code"`
	Role         string    `json:"role"`
	IsDisabled   bool      `json:"is_disabled"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserModel struct {
	DB DBTX
}

const userColumns = `id, email, display_name, password_hash, api_key_hash, society_code, role, is_disabled, created_at`

func (m UserModel) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, email, display_name, password_hash, api_key_hash, society_code, role, is_disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err := m.DB.QueryRowContext(ctx, query,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.APIKeyHash, u.SocietyCode, u.Role, u.IsDisabled,
	).Scan(&u.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "unique") {
		return ErrDuplicateEmail
	}
	return err
}

func (m UserModel) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return m.scanOne(m.DB.QueryRowContext(ctx, query, email))
}

func (m UserModel) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return m.scanOne(m.DB.QueryRowContext(ctx, query, id))
}

// GetByAPIKeyHash resolves an API key (already hashed by the caller) to a
// user. Disabled users do not authenticate.
func (m UserModel) GetByAPIKeyHash(ctx context.Context, hash string) (*User, error) {
	if hash == "" {
		return nil, ErrRecordNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE api_key_hash = $1 AND NOT is_disabled`
	return m.scanOne(m.DB.QueryRowContext(ctx, query, hash))
}

func (m UserModel) List(ctx context.Context, societyCode string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE ($1 = '' OR society_code = $1)
		ORDER BY created_at DESC`
	rows, err := m.DB.QueryContext(ctx, query, societyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.APIKeyHash,
			&u.SocietyCode, &u.Role, &u.IsDisabled, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (m UserModel) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	res, err := m.DB.ExecContext(ctx, `UPDATE users SET is_disabled = $1 WHERE id = $2`, disabled, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListActiveAdmins feeds the daily reporter: enabled admins whose society
// is active.
func (m UserModel) ListActiveAdmins(ctx context.Context) ([]User, error) {
	query := `
		SELECT u.id, u.email, u.display_name, u.password_hash, u.api_key_hash,
		       u.society_code, u.role, u.is_disabled, u.created_at
		FROM users u
		JOIN societies s ON s.code = u.society_code
		WHERE u.role = $1 AND NOT u.is_disabled AND s.is_active
		ORDER BY u.society_code, u.email`
	rows, err := m.DB.QueryContext(ctx, query, RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.APIKeyHash,
			&u.SocietyCode, &u.Role, &u.IsDisabled, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (m UserModel) scanOne(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.APIKeyHash,
		&u.SocietyCode, &u.Role, &u.IsDisabled, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
