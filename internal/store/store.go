// Package store defines the durable entry store contract and its
// backends. The bot only ever talks to the Store interface; the default
// backend is the HTTP client against the knowledge-base service, with
// Postgres available for single-binary deployments and an in-memory
// implementation for tests and local development.
package store

import (
	"context"

	"keeperbot/internal/models"
)

type Store interface {
	// CreateEntry persists a new entry and returns it with its id and
	// timestamps populated.
	CreateEntry(ctx context.Context, e *models.Entry) (*models.Entry, error)
	// UpdateEntry applies a partial update; nil fields are untouched.
	UpdateEntry(ctx context.Context, id string, upd models.EntryUpdate) (*models.Entry, error)
	// ArchiveEntry removes an entry from active search without deleting it.
	ArchiveEntry(ctx context.Context, id string) error
	// GetEntry returns nil, nil when no entry exists for id.
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	// SearchEntries returns up to limit non-archived entries ranked by
	// similarity to query.
	SearchEntries(ctx context.Context, query string, limit int) ([]*models.Entry, error)

	CountByCategory(ctx context.Context, c models.Category) (int, error)
	CountByStatus(ctx context.Context, s models.Status) (int, error)

	CreateAuditRecord(ctx context.Context, rec *models.AuditRecord) error

	// SuggestRelations returns entries similar to the given one, above
	// the similarity threshold.
	SuggestRelations(ctx context.Context, entryID string, limit int, threshold float64) ([]*models.Entry, error)
	AddRelation(ctx context.Context, aID, bID, relType string) error

	// GetDigest fetches the precomputed digest for period "daily" or
	// "weekly".
	GetDigest(ctx context.Context, period string) (*models.Digest, error)

	// DeleteSession removes the durable conversation-session record.
	DeleteSession(ctx context.Context, sessionID string) error

	Close() error
}
