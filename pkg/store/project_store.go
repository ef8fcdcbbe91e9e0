package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bullet-relay/bulletd/pkg/models"
)

// ProjectStore resolves projects by id and lists the ones the
// escalation scheduler needs to sweep.
type ProjectStore struct {
	db execer
}

// NewProjectStore builds a ProjectStore over the given connection pool.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Get fetches a project by id. Returns ErrNotFound if absent — callers
// must tolerate this since project/group/contact references are loose.
func (s *ProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM projects WHERE id = $1`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	var p models.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return &p, nil
}

// FindEscalationEnabled returns every active project with escalation
// enabled, for the scheduler's per-tick sweep.
func (s *ProjectStore) FindEscalationEnabled(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM projects WHERE is_active = true AND document->'escalation_config'->>'enabled' = 'true'`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		var p models.Project
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal project: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Insert stores a newly created project.
func (s *ProjectStore) Insert(ctx context.Context, p *models.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, namespace_id, is_active, document) VALUES ($1, $2, $3, $4)`,
		p.ID, p.NamespaceID, p.IsActive, doc,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// Save overwrites a project's full document.
func (s *ProjectStore) Save(ctx context.Context, p *models.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET namespace_id = $2, is_active = $3, document = $4 WHERE id = $1`,
		p.ID, p.NamespaceID, p.IsActive, doc,
	)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
