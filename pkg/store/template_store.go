package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bullet-relay/bulletd/pkg/models"
)

// TemplateStore resolves notification templates by id or name, and
// seeds the built-in template bundle on startup.
type TemplateStore struct {
	db execer
}

// NewTemplateStore builds a TemplateStore over the given connection pool.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Get fetches a template by id. Returns ErrNotFound if absent.
func (s *TemplateStore) Get(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM notification_templates WHERE id = $1`, id)
	return scanTemplate(row)
}

// FindByName fetches a template by its unique name (e.g. "default").
// Returns ErrNotFound if absent.
func (s *TemplateStore) FindByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM notification_templates WHERE name = $1`, name)
	return scanTemplate(row)
}

func scanTemplate(row *sql.Row) (*models.NotificationTemplate, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	var t models.NotificationTemplate
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unmarshal template: %w", err)
	}
	return &t, nil
}

// EnsureBuiltinTemplates upserts the built-in template bundle
// (models.BuiltinTemplates), called once during application startup so
// get_template_for_project always has a "default" fallback to find.
func (s *TemplateStore) EnsureBuiltinTemplates(ctx context.Context, idGen func() string) error {
	for name, tmpl := range models.BuiltinTemplates {
		existing, err := s.FindByName(ctx, name)
		if err != nil && err != ErrNotFound {
			return err
		}
		if existing != nil {
			if !existing.IsBuiltin {
				continue
			}
			existing.Description = tmpl.Description
			existing.FeishuCard = tmpl.FeishuCard
			existing.EmailSubject = tmpl.EmailSubject
			existing.EmailBody = tmpl.EmailBody
			existing.SMSMessage = tmpl.SMSMessage
			if err := s.update(ctx, existing); err != nil {
				return err
			}
			continue
		}
		tmpl.ID = idGen()
		if err := s.insert(ctx, &tmpl); err != nil {
			return err
		}
	}
	return nil
}

func (s *TemplateStore) insert(ctx context.Context, t *models.NotificationTemplate) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notification_templates (id, name, document) VALUES ($1, $2, $3)`,
		t.ID, t.Name, doc,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *TemplateStore) update(ctx context.Context, t *models.NotificationTemplate) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE notification_templates SET document = $2 WHERE id = $1`, t.ID, doc,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}
