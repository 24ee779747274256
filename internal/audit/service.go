package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit row. EventID is the idempotency key so a retried
// write never duplicates.
type Entry struct {
	ID        int64           `json:"id"`
	EventID   uuid.UUID       `json:"event_id"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity,omitempty"`
	EntityID  string          `json:"entity_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	ClientID  string          `json:"client_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Filter struct {
	ClientID string
	Action   string
	Limit    int
}

type Service struct {
	DB *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Record is fire-and-forget: a failed insert is logged and swallowed so
// auditing can never take down the operation it describes.
func (s *Service) Record(ctx context.Context, e Entry) {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_logs (event_id, action, entity, entity_id, details, actor, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`

	_, err := s.DB.ExecContext(ctx, query,
		e.EventID, e.Action, e.Entity, e.EntityID, []byte(e.Details), e.Actor, e.ClientID, e.CreatedAt,
	)
	if err != nil {
		log.Printf("[audit] write failed action=%s entity=%s/%s: %v", e.Action, e.Entity, e.EntityID, err)
	}
}

// Query lists audit entries newest-first. Append-only: there is no update
// or delete path.
func (s *Service) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT id, event_id, action, entity, entity_id, details, actor, client_id, created_at
	      FROM audit_logs WHERE 1=1`
	var args []any
	idx := 1

	if f.ClientID != "" {
		q += fmt.Sprintf(" AND client_id = $%d", idx)
		args = append(args, f.ClientID)
		idx++
	}
	if f.Action != "" {
		q += fmt.Sprintf(" AND action = $%d", idx)
		args = append(args, f.Action)
		idx++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.EventID, &e.Action, &e.Entity, &e.EntityID, &details, &e.Actor, &e.ClientID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
