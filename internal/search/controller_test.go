package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precedent/internal/domain"
)

type call struct {
	query   domain.Query
	release chan reply
}

type reply struct {
	results []domain.SearchResult
	err     error
}

// gatedSearcher blocks every Search until the test releases it.
type gatedSearcher struct {
	calls chan call
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{calls: make(chan call, 8)}
}

func (g *gatedSearcher) Search(ctx context.Context, q domain.Query) ([]domain.SearchResult, error) {
	c := call{query: q, release: make(chan reply, 1)}
	g.calls <- c
	select {
	case r := <-c.release:
		return r.results, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSearcher) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("search was not issued")
		return call{}
	}
}

type stubSearcher struct {
	mu      sync.Mutex
	calls   int
	last    domain.Query
	results []domain.SearchResult
	err     error
}

func (s *stubSearcher) Search(_ context.Context, q domain.Query) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = q
	return s.results, s.err
}

func result(title string, score float64) domain.SearchResult {
	return domain.SearchResult{Score: score, Decision: domain.Decision{Title: title, Team: "Engineering"}}
}

func TestSubmit_BlankQueryIsNoop(t *testing.T) {
	backend := &stubSearcher{results: []domain.SearchResult{result("A", 0.5)}}
	c := NewController(backend)
	_, err := c.Submit(context.Background(), domain.Query{Text: "seed"})
	require.NoError(t, err)
	before := c.Snapshot()

	for _, text := range []string{"", " ", "\t\n", "   \r\n  "} {
		_, err := c.Submit(context.Background(), domain.Query{Text: text})
		assert.ErrorIs(t, err, ErrBlankQuery)
	}

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, before, c.Snapshot())
}

func TestSubmit_SuccessReplacesResults(t *testing.T) {
	backend := &stubSearcher{results: []domain.SearchResult{result("A", 0.9), result("B", 0.4)}}
	c := NewController(backend)

	got, err := c.Submit(context.Background(), domain.Query{Text: "  why kafka  ", TeamFilter: "Engineering"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "why kafka", backend.last.Text)
	assert.Equal(t, domain.DefaultLimit, backend.last.Limit)

	backend.results = []domain.SearchResult{result("C", 0.7)}
	_, err = c.Submit(context.Background(), domain.Query{Text: "why kafka"})
	require.NoError(t, err)

	s := c.Snapshot()
	require.Len(t, s.Results, 1)
	assert.Equal(t, "C", s.Results[0].Decision.Title)
	assert.Equal(t, OutcomeResults, s.Outcome)
	assert.Empty(t, s.Message)
	assert.False(t, s.InFlight)
}

func TestSubmit_EmptyResultIsInformational(t *testing.T) {
	backend := &stubSearcher{results: []domain.SearchResult{}}
	c := NewController(backend)

	got, err := c.Submit(context.Background(), domain.Query{Text: "nothing matches"})
	require.NoError(t, err)
	assert.Empty(t, got)

	s := c.Snapshot()
	assert.Equal(t, OutcomeEmpty, s.Outcome)
	assert.Equal(t, NoResultsMessage, s.Message)
	assert.NoError(t, s.Err)
	assert.False(t, s.InFlight)
}

func TestSubmit_FailureClearsResults(t *testing.T) {
	backend := &stubSearcher{results: []domain.SearchResult{result("A", 0.9)}}
	c := NewController(backend)
	_, err := c.Submit(context.Background(), domain.Query{Text: "first"})
	require.NoError(t, err)

	boom := errors.New("connection refused")
	backend.err = boom
	_, err = c.Submit(context.Background(), domain.Query{Text: "second"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	s := c.Snapshot()
	assert.Empty(t, s.Results)
	assert.Equal(t, OutcomeFailed, s.Outcome)
	assert.Equal(t, FailureMessage, s.Message)
	assert.NotEqual(t, NoResultsMessage, s.Message)
	assert.False(t, s.InFlight)
}

func TestSubmit_NewRequestClearsPreviousFailure(t *testing.T) {
	g := newGatedSearcher()
	c := NewController(g)

	done := make(chan error, 1)
	go func() { _, err := c.Submit(context.Background(), domain.Query{Text: "a"}); done <- err }()
	g.next(t).release <- reply{err: errors.New("down")}
	require.Error(t, <-done)
	require.Equal(t, OutcomeFailed, c.Snapshot().Outcome)

	go func() { _, err := c.Submit(context.Background(), domain.Query{Text: "b"}); done <- err }()
	pending := g.next(t)
	s := c.Snapshot()
	assert.True(t, s.InFlight)
	assert.Equal(t, OutcomeNone, s.Outcome)
	assert.Empty(t, s.Message)

	pending.release <- reply{results: []domain.SearchResult{result("B", 1)}}
	require.NoError(t, <-done)
}

func TestSubmit_InFlightFlag(t *testing.T) {
	g := newGatedSearcher()
	c := NewController(g)

	done := make(chan error, 1)
	go func() { _, err := c.Submit(context.Background(), domain.Query{Text: "slow"}); done <- err }()
	pending := g.next(t)

	assert.True(t, c.Snapshot().InFlight)
	assert.Equal(t, "slow", c.Snapshot().Query)

	pending.release <- reply{results: []domain.SearchResult{result("A", 0.3)}}
	require.NoError(t, <-done)
	assert.False(t, c.Snapshot().InFlight)
}

func TestSubmit_LastSubmittedWinsWhenResponsesArriveOutOfOrder(t *testing.T) {
	g := newGatedSearcher()
	c := NewController(g)

	doneA := make(chan error, 1)
	go func() { _, err := c.Submit(context.Background(), domain.Query{Text: "query A"}); doneA <- err }()
	callA := g.next(t)

	doneB := make(chan error, 1)
	go func() { _, err := c.Submit(context.Background(), domain.Query{Text: "query B"}); doneB <- err }()
	callB := g.next(t)

	callB.release <- reply{results: []domain.SearchResult{result("B result", 0.8)}}
	require.NoError(t, <-doneB)

	callA.release <- reply{results: []domain.SearchResult{result("A result", 0.9)}}
	assert.ErrorIs(t, <-doneA, ErrSuperseded)

	s := c.Snapshot()
	require.Len(t, s.Results, 1)
	assert.Equal(t, "B result", s.Results[0].Decision.Title)
	assert.Equal(t, "query B", s.Query)
	assert.False(t, s.InFlight)
}

func TestSubmit_StaleResponseBeforeLatestIsDiscarded(t *testing.T) {
	g := newGatedSearcher()
	c := NewController(g)

	doneA := make(chan error, 1)
	go func() { _, err := c.Submit(context.Background(), domain.Query{Text: "A"}); doneA <- err }()
	callA := g.next(t)
	doneB := make(chan error, 1)
	go func() { _, err := c.Submit(context.Background(), domain.Query{Text: "B"}); doneB <- err }()
	callB := g.next(t)

	callA.release <- reply{results: []domain.SearchResult{result("A result", 0.9)}}
	assert.ErrorIs(t, <-doneA, ErrSuperseded)
	s := c.Snapshot()
	assert.True(t, s.InFlight, "B is still pending")
	assert.Empty(t, s.Results)

	callB.release <- reply{err: errors.New("timeout")}
	require.Error(t, <-doneB)
	s = c.Snapshot()
	assert.Equal(t, OutcomeFailed, s.Outcome)
	assert.Empty(t, s.Results)
}

func TestSubmit_TimeoutIsFailure(t *testing.T) {
	g := newGatedSearcher()
	c := NewController(g, WithTimeout(30*time.Millisecond))

	_, err := c.Submit(context.Background(), domain.Query{Text: "never answers"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s := c.Snapshot()
	assert.False(t, s.InFlight)
	assert.Equal(t, OutcomeFailed, s.Outcome)
}

func TestSubmit_DefaultLimitOption(t *testing.T) {
	backend := &stubSearcher{}
	c := NewController(backend, WithDefaultLimit(25))
	_, err := c.Submit(context.Background(), domain.Query{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 25, backend.last.Limit)

	_, err = c.Submit(context.Background(), domain.Query{Text: "x", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, backend.last.Limit)
}

func TestSnapshot_IsACopy(t *testing.T) {
	backend := &stubSearcher{results: []domain.SearchResult{result("A", 0.5)}}
	c := NewController(backend)
	_, err := c.Submit(context.Background(), domain.Query{Text: "x"})
	require.NoError(t, err)

	s := c.Snapshot()
	s.Results[0].Decision.Title = "mutated"
	assert.Equal(t, "A", c.Snapshot().Results[0].Decision.Title)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "none", OutcomeNone.String())
	assert.Equal(t, "results", OutcomeResults.String())
	assert.Equal(t, "empty", OutcomeEmpty.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
