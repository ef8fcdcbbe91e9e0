package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bullet-relay/bulletd/pkg/models"
)

// TicketStore provides the operations spec.md §4.A names: fetch by id,
// find by secondary field (ack token), find-many by project+status, and
// whole-document insert/save.
type TicketStore struct {
	db execer
}

// NewTicketStore builds a TicketStore over the given connection pool.
func NewTicketStore(db *sql.DB) *TicketStore {
	return &TicketStore{db: db}
}

// Get fetches a ticket by id. Returns ErrNotFound if absent.
func (s *TicketStore) Get(ctx context.Context, id string) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM tickets WHERE id = $1`, id)
	return scanTicket(row)
}

// FindByAckToken fetches the ticket whose ack_token matches. Returns
// ErrNotFound if absent.
func (s *TicketStore) FindByAckToken(ctx context.Context, token string) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM tickets WHERE ack_token = $1`, token)
	return scanTicket(row)
}

// FindByProjectAndStatuses returns all tickets for a project whose
// status is one of the given values, in no particular order.
func (s *TicketStore) FindByProjectAndStatuses(ctx context.Context, projectID string, statuses []models.TicketStatus) ([]*models.Ticket, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, projectID)
	for i, st := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, string(st))
	}
	query := fmt.Sprintf(
		`SELECT document FROM tickets WHERE project_id = $1 AND status IN (%s)`,
		joinPlaceholders(placeholders),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var out []*models.Ticket
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		var t models.Ticket
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("unmarshal ticket: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Insert stores a newly created ticket.
func (s *TicketStore) Insert(ctx context.Context, t *models.Ticket) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, project_id, status, ack_token, created_at, document)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.ProjectID, string(t.Status), t.AckToken, t.CreatedAt, doc,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// Save overwrites the ticket's full document — the whole-document
// overwrite semantics spec.md §5 builds its concurrency story around.
func (s *TicketStore) Save(ctx context.Context, t *models.Ticket) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET project_id = $2, status = $3, ack_token = $4, document = $5 WHERE id = $1`,
		t.ID, t.ProjectID, string(t.Status), t.AckToken, doc,
	)
	if err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTicket(row *sql.Row) (*models.Ticket, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}
	var t models.Ticket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unmarshal ticket: %w", err)
	}
	return &t, nil
}

func joinPlaceholders(ps []string) string {
	out := ps[0]
	for _, p := range ps[1:] {
		out += ", " + p
	}
	return out
}
