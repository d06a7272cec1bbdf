package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"keeperbot/internal/models"
)

type relation struct {
	A, B, Type string
}

// MemoryStorage keeps everything in mutex-guarded maps. Used by tests
// and local development.
type MemoryStorage struct {
	mu        sync.RWMutex
	entries   map[string]*models.Entry
	audits    []*models.AuditRecord
	relations []relation
	sessions  map[string]struct{}
	digests   map[string]*models.Digest
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries:  make(map[string]*models.Entry),
		sessions: make(map[string]struct{}),
		digests:  make(map[string]*models.Digest),
	}
}

func (s *MemoryStorage) CreateEntry(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *e
	created.ID = uuid.New().String()
	if created.Status == "" {
		created.Status = models.StatusOptions(created.Category)[0]
	}
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	s.entries[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStorage) UpdateEntry(ctx context.Context, id string, upd models.EntryUpdate) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s not found", id)
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.DueDate != nil {
		e.DueDate = upd.DueDate
	}
	for k, v := range upd.Content {
		if e.Content == nil {
			e.Content = make(map[string]string)
		}
		e.Content[k] = v
	}
	e.UpdatedAt = time.Now()

	out := *e
	return &out, nil
}

func (s *MemoryStorage) ArchiveEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("entry %s not found", id)
	}
	e.Archived = true
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStorage) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (s *MemoryStorage) SearchEntries(ctx context.Context, query string, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry *models.Entry
		score int
	}
	terms := strings.Fields(strings.ToLower(query))

	var hits []scored
	for _, e := range s.entries {
		if e.Archived {
			continue
		}
		score := similarity(e, terms)
		if score > 0 {
			out := *e
			hits = append(hits, scored{&out, score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.CreatedAt.After(hits[j].entry.CreatedAt)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]*models.Entry, len(hits))
	for i, h := range hits {
		results[i] = h.entry
	}
	return results, nil
}

// similarity is a term-overlap stand-in for the vector search the
// external service provides.
func similarity(e *models.Entry, terms []string) int {
	haystack := strings.ToLower(e.Title)
	for _, v := range e.Content {
		haystack += " " + strings.ToLower(v)
	}
	score := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			score++
		}
	}
	return score
}

func (s *MemoryStorage) CountByCategory(ctx context.Context, c models.Category) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if !e.Archived && e.Category == c {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) CountByStatus(ctx context.Context, st models.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if !e.Archived && e.Status == st {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) CreateAuditRecord(ctx context.Context, rec *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rec
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now()
	s.audits = append(s.audits, &r)
	return nil
}

func (s *MemoryStorage) SuggestRelations(ctx context.Context, entryID string, limit int, threshold float64) ([]*models.Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[entryID]
	s.mu.RUnlock()
	if !ok {
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

func (s *MemoryStorage) AddRelation(ctx context.Context, aID, bID, relType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.relations = append(s.relations, relation{A: aID, B: bID, Type: relType})
	return nil
}

func (s *MemoryStorage) GetDigest(ctx context.Context, period string) (*models.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.digests[period]; ok {
		out := *d
		return &out, nil
	}
	return &models.Digest{
		Period:      period,
		Summary:     "Nothing captured yet.",
		GeneratedAt: time.Now(),
	}, nil
}

// SetDigest seeds a digest, for tests.
func (s *MemoryStorage) SetDigest(d *models.Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests[d.Period] = d
}

func (s *MemoryStorage) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// SaveSession records a session id, for tests.
func (s *MemoryStorage) SaveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = struct{}{}
}

// HasSession reports whether a session id exists, for tests.
func (s *MemoryStorage) HasSession(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// AuditRecords returns a copy of all audit records, for tests.
func (s *MemoryStorage) AuditRecords() []*models.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AuditRecord, len(s.audits))
	copy(out, s.audits)
	return out
}

// Relations returns a copy of all recorded relations, for tests.
func (s *MemoryStorage) Relations() [][3]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][3]string, len(s.relations))
	for i, r := range s.relations {
		out[i] = [3]string{r.A, r.B, r.Type}
	}
	return out
}

// AllEntries returns a snapshot of every entry, archived included, for
// tests.
func (s *MemoryStorage) AllEntries() []*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		c := *e
		out = append(out, &c)
	}
	return out
}

func (s *MemoryStorage) Close() error {
	return nil
}
