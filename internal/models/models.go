package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the bucket an entry lives in. The classifier only ever
// assigns the first four; Note is the fallback bucket for failed
// classifications and URL captures.
type Category string

const (
	CategoryPeople  Category = "People"
	CategoryProject Category = "Project"
	CategoryIdea    Category = "Idea"
	CategoryAdmin   Category = "Admin"
	CategoryNote    Category = "Note"
)

// Categories lists every stored category, classifier taxonomy first.
var Categories = []Category{
	CategoryPeople,
	CategoryProject,
	CategoryIdea,
	CategoryAdmin,
	CategoryNote,
}

// ClassifierCategories is the closed taxonomy the classifier chooses from.
var ClassifierCategories = []Category{
	CategoryPeople,
	CategoryProject,
	CategoryIdea,
	CategoryAdmin,
}

type Status string

const (
	StatusActive     Status = "Active"
	StatusFollowUp   Status = "FollowUp"
	StatusDormant    Status = "Dormant"
	StatusOnHold     Status = "OnHold"
	StatusIncubating Status = "Incubating"
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusDone       Status = "Done"
	StatusComplete   Status = "Complete"
)

// statusOptions is the closed per-category status set offered by the
// edit flow. Values are encoded verbatim into callback tokens, so none
// may contain the token delimiter; init enforces that.
var statusOptions = map[Category][]Status{
	CategoryPeople:  {StatusActive, StatusFollowUp, StatusDormant, StatusDone},
	CategoryProject: {StatusActive, StatusOnHold, StatusComplete},
	CategoryIdea:    {StatusActive, StatusIncubating, StatusDone},
	CategoryAdmin:   {StatusPending, StatusInProgress, StatusDone},
	CategoryNote:    {StatusActive, StatusDone},
}

func init() {
	for cat, opts := range statusOptions {
		if strings.Contains(string(cat), ":") {
			panic(fmt.Sprintf("category %q contains token delimiter", cat))
		}
		for _, s := range opts {
			if strings.Contains(string(s), ":") {
				panic(fmt.Sprintf("status %q contains token delimiter", s))
			}
		}
	}
}

// StatusOptions returns the closed status set for a category.
func StatusOptions(c Category) []Status {
	if opts, ok := statusOptions[c]; ok {
		return opts
	}
	return statusOptions[CategoryNote]
}

// TerminalStatus is the "done" value for a category: Complete for
// projects, Done for everything else.
func TerminalStatus(c Category) Status {
	if c == CategoryProject {
		return StatusComplete
	}
	return StatusDone
}

// IsTerminal reports whether a status means the entry is no longer
// active. Dormant people are inactive even though no done handler ever
// sets Dormant directly.
func IsTerminal(s Status) bool {
	return s == StatusDone || s == StatusComplete || s == StatusDormant
}

// ParseCategory returns the category matching name, case-insensitively.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// ParseStatus validates a status value against a category's option set.
func ParseStatus(c Category, name string) (Status, bool) {
	for _, s := range StatusOptions(c) {
		if strings.EqualFold(string(s), name) {
			return s, true
		}
	}
	return "", false
}

// Entry is a stored unit of knowledge or work.
type Entry struct {
	ID        string            `json:"id"`
	Category  Category          `json:"category"`
	Title     string            `json:"title"`
	Priority  int               `json:"priority,omitempty"`
	Content   map[string]string `json:"content,omitempty"`
	Status    Status            `json:"status"`
	DueDate   *time.Time        `json:"due_date,omitempty"`
	Archived  bool              `json:"archived"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// EntryUpdate carries a partial update; nil fields are left untouched.
type EntryUpdate struct {
	Title   *string           `json:"title,omitempty"`
	Status  *Status           `json:"status,omitempty"`
	DueDate *time.Time        `json:"due_date,omitempty"`
	Content map[string]string `json:"content,omitempty"`
}

// Classification is the result of one classifier call. Produced once
// per capture, never mutated.
type Classification struct {
	Category   Category          `json:"category"`
	Confidence float64           `json:"confidence"`
	Fields     map[string]string `json:"fields,omitempty"`
	Reasoning  string            `json:"reasoning,omitempty"`
}

// AuditRecord is the inbox trail written after each capture.
type AuditRecord struct {
	ID            string    `json:"id"`
	RawInput      string    `json:"raw_input"`
	Category      Category  `json:"category"`
	Confidence    float64   `json:"confidence"`
	DestinationID string    `json:"destination_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Digest is a precomputed daily or weekly narrative summary.
type Digest struct {
	Period      string    `json:"period"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}
