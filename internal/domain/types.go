package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultLimit is the number of results requested when a query does not set one.
const DefaultLimit = 10

// Query is a single search submission. It is never persisted.
type Query struct {
	Text       string
	TeamFilter string // empty means all teams
	Limit      int
	Year       int // zero means no year filter
}

// Normalized returns the query with trimmed text and a usable limit.
func (q Query) Normalized() Query {
	q.Text = strings.TrimSpace(q.Text)
	q.TeamFilter = strings.TrimSpace(q.TeamFilter)
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Blank reports whether the query text is empty after trimming.
func (q Query) Blank() bool { return strings.TrimSpace(q.Text) == "" }

// MarshalJSON writes the backend search request body.
func (q Query) MarshalJSON() ([]byte, error) {
	type wire struct {
		Query      string  `json:"query"`
		FilterTeam *string `json:"filter_team"`
		FilterYear *int    `json:"filter_year,omitempty"`
		Limit      int     `json:"limit"`
	}
	w := wire{Query: q.Text, Limit: q.Limit}
	if q.TeamFilter != "" {
		team := q.TeamFilter
		w.FilterTeam = &team
	}
	if q.Year != 0 {
		year := q.Year
		w.FilterYear = &year
	}
	return json.Marshal(w)
}

// RationaleShape tells how a rationale arrived on the wire.
type RationaleShape int

const (
	// RationaleSequence is the current shape: a list of points.
	RationaleSequence RationaleShape = iota
	// RationaleSingle is the legacy shape: one bare string.
	RationaleSingle
)

// Rationale is the reasoning behind a decision. Older records carry a bare
// string instead of a list; both decode into the same value.
type Rationale struct {
	points []string
	shape  RationaleShape
}

// NewRationale builds a sequence-shaped rationale.
func NewRationale(points ...string) Rationale {
	return Rationale{points: append([]string(nil), points...), shape: RationaleSequence}
}

// LegacyRationale builds a rationale from a single legacy string.
func LegacyRationale(text string) Rationale {
	return Rationale{points: []string{text}, shape: RationaleSingle}
}

// Points returns the rationale items in order.
func (r Rationale) Points() []string { return append([]string(nil), r.points...) }

// Shape returns the wire shape the rationale was decoded from.
func (r Rationale) Shape() RationaleShape { return r.shape }

// Len returns the number of rationale items.
func (r Rationale) Len() int { return len(r.points) }

// UnmarshalJSON accepts a list of strings, a bare string or null.
func (r *Rationale) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = Rationale{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("rationale: %w", err)
		}
		*r = LegacyRationale(s)
		return nil
	case data[0] == '[':
		var points []string
		if err := json.Unmarshal(data, &points); err != nil {
			return fmt.Errorf("rationale: %w", err)
		}
		*r = Rationale{points: points, shape: RationaleSequence}
		return nil
	default:
		return errors.New("rationale: expected string or list of strings")
	}
}

// MarshalJSON always writes the list shape.
func (r Rationale) MarshalJSON() ([]byte, error) {
	if r.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.points)
}

// Decision is a past decision record returned by the memory store.
type Decision struct {
	Title        string    `json:"decision_title"`
	Date         string    `json:"decision_date"`
	Team         string    `json:"team"`
	Rationale    Rationale `json:"rationale"`
	Alternatives []string  `json:"alternatives"`
	Outcome      *string   `json:"outcome,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	SourceFile   string    `json:"source_file"`
}

// SearchResult is one scored decision with the matching source snippet.
type SearchResult struct {
	Score    float64  `json:"score"`
	Decision Decision `json:"decision"`
	Context  string   `json:"context"`
}

// UploadStatus is the state of a single upload attempt.
type UploadStatus string

const (
	UploadIdle      UploadStatus = "idle"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
)

// Terminal reports whether the status ends an attempt.
func (s UploadStatus) Terminal() bool {
	return s == UploadSuccess || s == UploadError
}

// UploadSession is the client-side state of the current (or last) upload attempt.
type UploadSession struct {
	Status UploadStatus
	File   string
	Err    error
}

// UploadedFileRecord is one entry of the backend upload history.
type UploadedFileRecord struct {
	Filename   string `json:"filename"`
	UploadTime string `json:"upload_time"`
	UploadedBy string `json:"uploaded_by"`
}
