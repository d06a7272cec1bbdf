package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"keeperbot/internal/models"
)

// HTTPStore talks to the knowledge-base service over its REST API.
// This is the default backend; the service owns vector-similarity
// search, digests, relations and sessions.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPStore) CreateEntry(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	var created models.Entry
	if err := s.do(ctx, http.MethodPost, "/entries", e, &created); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return &created, nil
}

func (s *HTTPStore) UpdateEntry(ctx context.Context, id string, upd models.EntryUpdate) (*models.Entry, error) {
	var updated models.Entry
	if err := s.do(ctx, http.MethodPatch, "/entries/"+url.PathEscape(id), upd, &updated); err != nil {
		return nil, fmt.Errorf("update entry %s: %w", id, err)
	}
	return &updated, nil
}

func (s *HTTPStore) ArchiveEntry(ctx context.Context, id string) error {
	if err := s.do(ctx, http.MethodPost, "/entries/"+url.PathEscape(id)+"/archive", nil, nil); err != nil {
		return fmt.Errorf("archive entry %s: %w", id, err)
	}
	return nil
}

func (s *HTTPStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var e models.Entry
	err := s.do(ctx, http.MethodGet, "/entries/"+url.PathEscape(id), nil, &e)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	return &e, nil
}

func (s *HTTPStore) SearchEntries(ctx context.Context, query string, limit int) ([]*models.Entry, error) {
	path := "/entries/search?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
	var results []*models.Entry
	if err := s.do(ctx, http.MethodGet, path, nil, &results); err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return results, nil
}

func (s *HTTPStore) CountByCategory(ctx context.Context, c models.Category) (int, error) {
	return s.count(ctx, "category", string(c))
}

func (s *HTTPStore) CountByStatus(ctx context.Context, st models.Status) (int, error) {
	return s.count(ctx, "status", string(st))
}

func (s *HTTPStore) count(ctx context.Context, field, value string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	path := "/entries/count?" + field + "=" + url.QueryEscape(value)
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, fmt.Errorf("count entries by %s: %w", field, err)
	}
	return out.Count, nil
}

func (s *HTTPStore) CreateAuditRecord(ctx context.Context, rec *models.AuditRecord) error {
	if err := s.do(ctx, http.MethodPost, "/audit", rec, nil); err != nil {
		return fmt.Errorf("create audit record: %w", err)
	}
	return nil
}

func (s *HTTPStore) SuggestRelations(ctx context.Context, entryID string, limit int, threshold float64) ([]*models.Entry, error) {
	path := fmt.Sprintf("/entries/%s/relations/suggest?limit=%d&threshold=%g",
		url.PathEscape(entryID), limit, threshold)
	var results []*models.Entry
	if err := s.do(ctx, http.MethodGet, path, nil, &results); err != nil {
		return nil, fmt.Errorf("suggest relations for %s: %w", entryID, err)
	}
	return results, nil
}

func (s *HTTPStore) AddRelation(ctx context.Context, aID, bID, relType string) error {
	body := map[string]string{"a": aID, "b": bID, "type": relType}
	if err := s.do(ctx, http.MethodPost, "/relations", body, nil); err != nil {
		return fmt.Errorf("add relation: %w", err)
	}
	return nil
}

func (s *HTTPStore) GetDigest(ctx context.Context, period string) (*models.Digest, error) {
	var d models.Digest
	if err := s.do(ctx, http.MethodGet, "/digests/"+url.PathEscape(period), nil, &d); err != nil {
		return nil, fmt.Errorf("get %s digest: %w", period, err)
	}
	return &d, nil
}

func (s *HTTPStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("store returned %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func (s *HTTPStore) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
