package data

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Camera maps a vendor/device-supplied identifier to a display name. The
// name is denormalized onto events at ingestion time, so renaming a camera
// does not rewrite history.
type Camera struct {
	ID          int64     `json:"id"`
	DeviceID    string    `json:"device_id"`
	Name        string    `json:"name"`
	SocietyCode string    `json:"society_code"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CameraModel struct {
	DB DBTX
}

func (m CameraModel) Create(ctx context.Context, c *Camera) error {
	query := `
		INSERT INTO cameras (device_id, name, society_code, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := m.DB.QueryRowContext(ctx, query, c.DeviceID, c.Name, c.SocietyCode, c.IsActive).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "unique") {
		return ErrDuplicateCode
	}
	return err
}

func (m CameraModel) GetByDeviceID(ctx context.Context, deviceID string) (*Camera, error) {
	query := `
		SELECT id, device_id, name, society_code, is_active, created_at, updated_at
		FROM cameras
		WHERE device_id = $1`
	var c Camera
	err := m.DB.QueryRowContext(ctx, query, deviceID).Scan(&c.ID, &c.DeviceID, &c.Name, &c.SocietyCode, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m CameraModel) List(ctx context.Context, societyCode string) ([]Camera, error) {
	query := `
		SELECT id, device_id, name, society_code, is_active, created_at, updated_at
		FROM cameras
		WHERE ($1 = '' OR society_code = $1)
		ORDER BY device_id ASC`
	rows, err := m.DB.QueryContext(ctx, query, societyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cameras []Camera
	for rows.Next() {
		var c Camera
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.Name, &c.SocietyCode, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cameras = append(cameras, c)
	}
	return cameras, rows.Err()
}

func (m CameraModel) Update(ctx context.Context, c *Camera) error {
	query := `
		UPDATE cameras
		SET name = $1, society_code = $2, is_active = $3, updated_at = NOW()
		WHERE device_id = $4
		RETURNING updated_at`
	err := m.DB.QueryRowContext(ctx, query, c.Name, c.SocietyCode, c.IsActive, c.DeviceID).Scan(&c.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrRecordNotFound
	}
	return err
}

func (m CameraModel) Delete(ctx context.Context, deviceID string) error {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM cameras WHERE device_id = $1`, deviceID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ResolveCameraName returns the registered display name for a device id.
// ErrRecordNotFound tells the caller to fall back to a generated label.
func (m CameraModel) ResolveCameraName(ctx context.Context, deviceID string) (string, error) {
	var name string
	err := m.DB.QueryRowContext(ctx, `SELECT name FROM cameras WHERE device_id = $1`, deviceID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}
