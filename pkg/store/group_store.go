package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bullet-relay/bulletd/pkg/models"
)

// NotificationGroupStore resolves notification groups by id.
type NotificationGroupStore struct {
	db execer
}

// NewNotificationGroupStore builds a NotificationGroupStore over the
// given connection pool.
func NewNotificationGroupStore(db *sql.DB) *NotificationGroupStore {
	return &NotificationGroupStore{db: db}
}

// Get fetches a notification group by id. Returns ErrNotFound if
// absent — group references are loose and must tolerate this.
func (s *NotificationGroupStore) Get(ctx context.Context, id string) (*models.NotificationGroup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM notification_groups WHERE id = $1`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan notification group: %w", err)
	}
	var g models.NotificationGroup
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("unmarshal notification group: %w", err)
	}
	return &g, nil
}

// Insert stores a newly created notification group.
func (s *NotificationGroupStore) Insert(ctx context.Context, g *models.NotificationGroup) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal notification group: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notification_groups (id, document) VALUES ($1, $2)`, g.ID, doc,
	)
	if err != nil {
		return fmt.Errorf("insert notification group: %w", err)
	}
	return nil
}
