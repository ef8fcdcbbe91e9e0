package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates an index not expressed in the plain migration
// SQL: a GIN index over the tickets JSONB document, for ad-hoc operator
// queries against title/description/labels. Kept separate from the
// migration files since it is advisory, not part of the document-store
// contract pkg/store depends on.
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_tickets_document_gin
		ON tickets USING gin(document jsonb_path_ops)`); err != nil {
		return fmt.Errorf("failed to create tickets document GIN index: %w", err)
	}
	return nil
}
