package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bullet-relay/bulletd/pkg/models"
)

// NamespaceStore resolves namespaces by slug, for the webhook route's
// namespace-then-project lookup chain.
type NamespaceStore struct {
	db execer
}

// NewNamespaceStore builds a NamespaceStore over the given connection pool.
func NewNamespaceStore(db *sql.DB) *NamespaceStore {
	return &NamespaceStore{db: db}
}

// FindBySlug fetches a namespace by its URL slug. Returns ErrNotFound if
// absent.
func (s *NamespaceStore) FindBySlug(ctx context.Context, slug string) (*models.Namespace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM namespaces WHERE slug = $1`, slug)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan namespace: %w", err)
	}
	var n models.Namespace
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("unmarshal namespace: %w", err)
	}
	return &n, nil
}

// Insert stores a newly created namespace.
func (s *NamespaceStore) Insert(ctx context.Context, n *models.Namespace) error {
	doc, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal namespace: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO namespaces (id, slug, document) VALUES ($1, $2, $3)`,
		n.ID, n.Slug, doc,
	)
	if err != nil {
		return fmt.Errorf("insert namespace: %w", err)
	}
	return nil
}
