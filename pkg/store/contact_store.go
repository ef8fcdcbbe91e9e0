package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bullet-relay/bulletd/pkg/models"
)

// ContactStore resolves contacts by id, tolerating dangling ids the way
// every other loose reference in this module does.
type ContactStore struct {
	db execer
}

// NewContactStore builds a ContactStore over the given connection pool.
func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

// Get fetches a contact by id. Returns ErrNotFound if absent.
func (s *ContactStore) Get(ctx context.Context, id string) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM contacts WHERE id = $1`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	var c models.Contact
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unmarshal contact: %w", err)
	}
	return &c, nil
}

// GetMany fetches contacts by id, silently skipping ids that no longer
// exist (spec.md §4.B step 3: "contacts whose id no longer exists are
// skipped with a warning" — the warning is logged by the caller, which
// has the channel-config context this store does not).
func (s *ContactStore) GetMany(ctx context.Context, ids []string) ([]*models.Contact, error) {
	out := make([]*models.Contact, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		c, err := s.Get(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Insert stores a newly created contact.
func (s *ContactStore) Insert(ctx context.Context, c *models.Contact) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal contact: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO contacts (id, document) VALUES ($1, $2)`, c.ID, doc)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}
