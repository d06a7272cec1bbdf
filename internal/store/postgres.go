package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"keeperbot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStore backs the Store contract with Postgres for
// single-binary deployments. Similarity search is approximated with
// full-text ranking; the external service's vector search is only
// available through the HTTP backend.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(config DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

const entryColumns = "id, category, title, priority, content, status, due_date, archived, created_at, updated_at"

func (s *PostgresStore) CreateEntry(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	status := e.Status
	if status == "" {
		status = models.StatusOptions(e.Category)[0]
	}
	content, err := json.Marshal(contentOrEmpty(e.Content))
	if err != nil {
		return nil, fmt.Errorf("error encoding content: %w", err)
	}

	query := `
		INSERT INTO entries (category, title, priority, content, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + entryColumns

	row := s.db.QueryRowContext(ctx, query, e.Category, e.Title, e.Priority, content, status, e.DueDate)
	created, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("error creating entry: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateEntry(ctx context.Context, id string, upd models.EntryUpdate) (*models.Entry, error) {
	query := `
		UPDATE entries SET
			title = COALESCE($2, title),
			status = COALESCE($3, status),
			due_date = COALESCE($4, due_date),
			content = content || COALESCE($5, '{}'::jsonb),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + entryColumns

	var contentPatch []byte
	if len(upd.Content) > 0 {
		b, err := json.Marshal(upd.Content)
		if err != nil {
			return nil, fmt.Errorf("error encoding content patch: %w", err)
		}
		contentPatch = b
	}

	row := s.db.QueryRowContext(ctx, query, id, upd.Title, (*string)(upd.Status), upd.DueDate, contentPatch)
	updated, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("error updating entry %s: %w", id, err)
	}
	return updated, nil
}

func (s *PostgresStore) ArchiveEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE entries SET archived = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error archiving entry %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	return nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying entry %s: %w", id, err)
	}
	return e, nil
}

func (s *PostgresStore) SearchEntries(ctx context.Context, query string, limit int) ([]*models.Entry, error) {
	q := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE NOT archived
		  AND to_tsvector('english', title || ' ' || content::text) @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', title || ' ' || content::text),
		                 plainto_tsquery('english', $1)) DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error searching entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) CountByCategory(ctx context.Context, c models.Category) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE NOT archived AND category = $1`, c).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting entries by category: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, st models.Status) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE NOT archived AND status = $1`, st).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting entries by status: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CreateAuditRecord(ctx context.Context, rec *models.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_records (raw_input, category, confidence, destination_id, status)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.RawInput, rec.Category, rec.Confidence, rec.DestinationID, rec.Status)
	if err != nil {
		return fmt.Errorf("error creating audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) SuggestRelations(ctx context.Context, entryID string, limit int, threshold float64) ([]*models.Entry, error) {
	e, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("entry %s not found", entryID)
	}

	results, err := s.SearchEntries(ctx, e.Title, limit+1)
	if err != nil {
		return nil, err
	}
	suggestions := make([]*models.Entry, 0, limit)
	for _, r := range results {
		if r.ID == entryID {
			continue
		}
		suggestions = append(suggestions, r)
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

func (s *PostgresStore) AddRelation(ctx context.Context, aID, bID, relType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relations (a_id, b_id, rel_type)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, aID, bID, relType)
	if err != nil {
		return fmt.Errorf("error adding relation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDigest(ctx context.Context, period string) (*models.Digest, error) {
	d := &models.Digest{Period: period}
	err := s.db.QueryRowContext(ctx, `
		SELECT summary, generated_at FROM digests
		WHERE period = $1
		ORDER BY generated_at DESC
		LIMIT 1`, period).Scan(&d.Summary, &d.GeneratedAt)
	if err == sql.ErrNoRows {
		return &models.Digest{Period: period, Summary: "Nothing captured yet.", GeneratedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying %s digest: %w", period, err)
	}
	return d, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("error deleting session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e       models.Entry
		content []byte
		due     sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Category, &e.Title, &e.Priority, &content,
		&e.Status, &due, &e.Archived, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		t := due.Time
		e.DueDate = &t
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &e.Content); err != nil {
			return nil, fmt.Errorf("error decoding entry content: %w", err)
		}
	}
	return &e, nil
}

func contentOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
