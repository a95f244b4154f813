package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"precedent/internal/domain"
	"precedent/internal/logger"
)

const module = "HISTORY"

// Snapshot is the tracker state at one point in time.
type Snapshot struct {
	Loading bool
	Files   []domain.UploadedFileRecord
}

// Visible reports whether there is anything to show.
func (s Snapshot) Visible() bool { return !s.Loading && len(s.Files) > 0 }

// Tracker keeps the latest upload history snapshot. Fetch failures are
// logged and show up as an empty list; they are never returned.
type Tracker struct {
	backend domain.UploadLister
	logger  logger.ILogger
	timeout time.Duration

	mu        sync.Mutex
	issued    uint64
	snapshot  Snapshot
	onRefresh []func(Snapshot)
}

type Option func(*Tracker)

func WithLogger(l logger.ILogger) Option { return func(t *Tracker) { t.logger = l } }

// WithTimeout bounds every fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(t *Tracker) { t.timeout = d } }

func NewTracker(backend domain.UploadLister, opts ...Option) *Tracker {
	t := &Tracker{backend: backend, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnRefresh registers fn to be called after every applied refresh.
func (t *Tracker) OnRefresh(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRefresh = append(t.onRefresh, fn)
}

// Refresh fetches the full history and replaces the snapshot. A response
// overtaken by a later Refresh is dropped.
func (t *Tracker) Refresh(ctx context.Context) []domain.UploadedFileRecord {
	t.mu.Lock()
	t.issued++
	id := t.issued
	t.snapshot.Loading = true
	t.mu.Unlock()

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	files, err := t.backend.ListUploads(ctx)
	if err != nil {
		t.logger.Warn(module, "failed to load history", map[string]interface{}{"error": err.Error()})
		files = nil
	}

	t.mu.Lock()
	if id != t.issued {
		current := append([]domain.UploadedFileRecord(nil), t.snapshot.Files...)
		t.mu.Unlock()
		return current
	}
	t.snapshot = Snapshot{Files: append([]domain.UploadedFileRecord(nil), files...)}
	snap := t.copyLocked()
	hooks := slices.Clone(t.onRefresh)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(snap)
	}
	return snap.Files
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

// Visible reports whether the history list should be shown.
func (t *Tracker) Visible() bool { return t.Snapshot().Visible() }

// Listen refreshes once per message until messages closes or ctx ends.
func (t *Tracker) Listen(ctx context.Context, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			msg.Ack()
			t.Refresh(ctx)
		}
	}
}

func (t *Tracker) copyLocked() Snapshot {
	return Snapshot{
		Loading: t.snapshot.Loading,
		Files:   append([]domain.UploadedFileRecord(nil), t.snapshot.Files...),
	}
}
