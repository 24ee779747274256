package data

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Society is a managed tenant. Events reference Code loosely: a vendor may
// send a code with no society row and the event is kept regardless.
type Society struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SocietyModel struct {
	DB DBTX
}

func (m SocietyModel) Create(ctx context.Context, s *Society) error {
	query := `
		INSERT INTO societies (code, name, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := m.DB.QueryRowContext(ctx, query, s.Code, s.Name, s.IsActive).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "unique") {
		return ErrDuplicateCode
	}
	return err
}

func (m SocietyModel) GetByCode(ctx context.Context, code string) (*Society, error) {
	query := `
		SELECT id, code, name, is_active, created_at, updated_at
		FROM societies
		WHERE code = $1`
	var s Society
	err := m.DB.QueryRowContext(ctx, query, code).Scan(&s.ID, &s.Code, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m SocietyModel) List(ctx context.Context) ([]Society, error) {
	query := `
		SELECT id, code, name, is_active, created_at, updated_at
		FROM societies
		ORDER BY code ASC`
	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var societies []Society
	for rows.Next() {
		var s Society
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		societies = append(societies, s)
	}
	return societies, rows.Err()
}

func (m SocietyModel) Update(ctx context.Context, s *Society) error {
	query := `
		UPDATE societies
		SET name = $1, is_active = $2, updated_at = NOW()
		WHERE code = $3
		RETURNING updated_at`
	err := m.DB.QueryRowContext(ctx, query, s.Name, s.IsActive, s.Code).Scan(&s.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrRecordNotFound
	}
	return err
}

func (m SocietyModel) Delete(ctx context.Context, code string) error {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM societies WHERE code = $1`, code)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ResolveTenantCode maps a vendor integration hint to a society code.
// Matches by code first, then by internal numeric id when the hint is a
// number. ErrRecordNotFound means the caller decides the fallback; events
// are never rejected over an unmapped hint.
func (m SocietyModel) ResolveTenantCode(ctx context.Context, hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", ErrRecordNotFound
	}

	var code string
	err := m.DB.QueryRowContext(ctx, `SELECT code FROM societies WHERE code = $1`, hint).Scan(&code)
	if err == nil {
		return code, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	if id, convErr := strconv.ParseInt(hint, 10, 64); convErr == nil {
		err = m.DB.QueryRowContext(ctx, `SELECT code FROM societies WHERE id = $1`, id).Scan(&code)
		if err == nil {
			return code, nil
		}
		if err != sql.ErrNoRows {
			return "", err
		}
	}
	return "", ErrRecordNotFound
}
