package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"precedent/internal/domain"
	"precedent/internal/logger"
)

const module = "SEARCH"

// User-facing messages.
const (
	NoResultsMessage = "No results found in memory."
	FailureMessage   = "Failed to reach the memory backend. Is it running?"
)

var (
	// ErrBlankQuery is returned for whitespace-only text. Nothing is sent and state is untouched.
	ErrBlankQuery = errors.New("search: blank query")
	// ErrSuperseded is returned when a newer submission was issued before this one completed.
	ErrSuperseded = errors.New("search: superseded by a newer query")
)

// Outcome is the result of the last applied request.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeResults
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResults:
		return "results"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// State is a snapshot of the controller.
type State struct {
	Query      string
	TeamFilter string
	InFlight   bool
	Results    []domain.SearchResult
	Outcome    Outcome
	// Message is informational for OutcomeEmpty and an error for OutcomeFailed.
	Message string
	Err     error
}

// Controller issues searches and keeps the result set of the most recently
// submitted query. Safe for concurrent use.
type Controller struct {
	backend      domain.Searcher
	logger       logger.ILogger
	timeout      time.Duration
	defaultLimit int

	mu     sync.Mutex
	issued uint64
	state  State
}

type Option func(*Controller)

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(c *Controller) { c.timeout = d } }

// WithDefaultLimit sets the limit used when a query leaves it unset.
func WithDefaultLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.defaultLimit = n
		}
	}
}

func WithLogger(l logger.ILogger) Option { return func(c *Controller) { c.logger = l } }

func NewController(backend domain.Searcher, opts ...Option) *Controller {
	c := &Controller{backend: backend, logger: logger.NewNop(), defaultLimit: domain.DefaultLimit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit runs q and applies the response if q is still the latest submission.
func (c *Controller) Submit(ctx context.Context, q domain.Query) ([]domain.SearchResult, error) {
	if q.Blank() {
		return nil, ErrBlankQuery
	}
	if q.Limit <= 0 {
		q.Limit = c.defaultLimit
	}
	q = q.Normalized()

	c.mu.Lock()
	c.issued++
	id := c.issued
	c.state.Query = q.Text
	c.state.TeamFilter = q.TeamFilter
	c.state.InFlight = true
	if c.state.Outcome == OutcomeFailed {
		c.state.Outcome = OutcomeNone
		c.state.Message = ""
		c.state.Err = nil
	}
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	results, err := c.backend.Search(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.issued {
		c.logger.Debug(module, "discarding stale response", map[string]interface{}{"request": id, "latest": c.issued})
		return nil, ErrSuperseded
	}
	c.state.InFlight = false
	if err != nil {
		c.state.Results = nil
		c.state.Outcome = OutcomeFailed
		c.state.Message = FailureMessage
		c.state.Err = err
		c.logger.Warn(module, "search failed", map[string]interface{}{"request": id, "error": err.Error()})
		return nil, fmt.Errorf("search %q: %w", q.Text, err)
	}

	applied := append([]domain.SearchResult(nil), results...)
	c.state.Results = applied
	c.state.Err = nil
	if len(applied) == 0 {
		c.state.Outcome = OutcomeEmpty
		c.state.Message = NoResultsMessage
	} else {
		c.state.Outcome = OutcomeResults
		c.state.Message = ""
	}
	c.logger.Info(module, "results applied", map[string]interface{}{"request": id, "results": len(applied)})
	return append([]domain.SearchResult(nil), applied...), nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Results = append([]domain.SearchResult(nil), c.state.Results...)
	return s
}
