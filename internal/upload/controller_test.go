package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precedent/internal/domain"
)

type fakeIngester struct {
	mu      sync.Mutex
	names   []string
	bodies  []string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeIngester) Ingest(ctx context.Context, filename string, content io.Reader) error {
	data, _ := io.ReadAll(content)
	f.mu.Lock()
	f.names = append(f.names, filename)
	f.bodies = append(f.bodies, string(data))
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeIngester) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

type countingNotifier struct {
	mu    sync.Mutex
	files []string
}

func (n *countingNotifier) IngestSucceeded(_ context.Context, filename string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.files = append(n.files, filename)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.files)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func recordStatuses(c *Controller) func() []domain.UploadStatus {
	var (
		mu  sync.Mutex
		got []domain.UploadStatus
	)
	c.OnTransition(func(s domain.UploadSession) {
		mu.Lock()
		got = append(got, s.Status)
		mu.Unlock()
	})
	return func() []domain.UploadStatus {
		mu.Lock()
		defer mu.Unlock()
		return append([]domain.UploadStatus(nil), got...)
	}
}

func TestUpload_SuccessTransitionsAndNotifiesOnce(t *testing.T) {
	backend := &fakeIngester{}
	notifier := &countingNotifier{}
	c := NewController(backend, WithNotifier(notifier))
	statuses := recordStatuses(c)
	path := writeFile(t, "meeting-notes.md", "We chose Postgres.")

	s, err := c.Upload(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, domain.UploadSuccess, s.Status)
	assert.Equal(t, path, s.File)
	assert.Equal(t, []domain.UploadStatus{domain.UploadIdle, domain.UploadUploading, domain.UploadSuccess}, statuses())
	assert.Equal(t, []string{"meeting-notes.md"}, backend.calls())
	assert.Equal(t, []string{"We chose Postgres."}, backend.bodies)
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, domain.UploadSuccess, c.Session().Status)
}

func TestUpload_FailureTransitionsWithoutNotifying(t *testing.T) {
	rejected := errors.New("415 unsupported media type")
	backend := &fakeIngester{err: rejected}
	notifier := &countingNotifier{}
	c := NewController(backend, WithNotifier(notifier))
	statuses := recordStatuses(c)

	s, err := c.Upload(context.Background(), writeFile(t, "binary.exe", "MZ"))
	require.Error(t, err)
	assert.ErrorIs(t, err, rejected)

	assert.Equal(t, domain.UploadError, s.Status)
	assert.ErrorIs(t, s.Err, rejected)
	assert.Equal(t, []domain.UploadStatus{domain.UploadIdle, domain.UploadUploading, domain.UploadError}, statuses())
	assert.Equal(t, 0, notifier.count())
}

func TestUpload_MissingFileIsError(t *testing.T) {
	backend := &fakeIngester{}
	notifier := &countingNotifier{}
	c := NewController(backend, WithNotifier(notifier))

	s, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, domain.UploadError, s.Status)
	assert.Empty(t, backend.calls())
	assert.Equal(t, 0, notifier.count())
}

func TestUpload_EmptyPathChangesNothing(t *testing.T) {
	c := NewController(&fakeIngester{})
	statuses := recordStatuses(c)

	s, err := c.Upload(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Equal(t, domain.UploadIdle, s.Status)
	assert.Empty(t, statuses())
}

func TestUpload_NewAttemptRestartsFromIdle(t *testing.T) {
	backend := &fakeIngester{err: errors.New("down")}
	c := NewController(backend)
	statuses := recordStatuses(c)

	_, err := c.Upload(context.Background(), writeFile(t, "a.txt", "a"))
	require.Error(t, err)
	backend.err = nil
	s, err := c.Upload(context.Background(), writeFile(t, "b.txt", "b"))
	require.NoError(t, err)
	assert.Equal(t, domain.UploadSuccess, s.Status)

	assert.Equal(t, []domain.UploadStatus{
		domain.UploadIdle, domain.UploadUploading, domain.UploadError,
		domain.UploadIdle, domain.UploadUploading, domain.UploadSuccess,
	}, statuses())
}

func TestUpload_SingleSlot(t *testing.T) {
	backend := &fakeIngester{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := NewController(backend)

	first := writeFile(t, "first.pdf", "1")
	second := writeFile(t, "second.pdf", "2")
	done := make(chan error, 1)
	go func() {
		_, err := c.Upload(context.Background(), first)
		done <- err
	}()
	select {
	case <-backend.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first upload did not start")
	}

	s, err := c.Upload(context.Background(), second)
	assert.ErrorIs(t, err, ErrUploadInProgress)
	assert.Equal(t, domain.UploadUploading, s.Status)
	assert.Equal(t, "first.pdf", filepath.Base(s.File))

	close(backend.release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"first.pdf"}, backend.calls())
}

func TestUpload_Timeout(t *testing.T) {
	backend := &fakeIngester{release: make(chan struct{})}
	c := NewController(backend, WithTimeout(30*time.Millisecond))

	s, err := c.Upload(context.Background(), writeFile(t, "slow.pdf", "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.UploadError, s.Status)
}

func TestDrop_OnlyFirstFileIsProcessed(t *testing.T) {
	backend := &fakeIngester{}
	notifier := &countingNotifier{}
	c := NewController(backend, WithNotifier(notifier))

	first := writeFile(t, "one.pdf", "1")
	paths := []string{first, writeFile(t, "two.pdf", "2"), writeFile(t, "three.txt", "3")}
	s, err := c.Drop(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, domain.UploadSuccess, s.Status)
	assert.Equal(t, first, s.File)
	assert.Equal(t, []string{"one.pdf"}, backend.calls())
	assert.Equal(t, 1, notifier.count())
}

func TestDrop_EmptyIsNoop(t *testing.T) {
	backend := &fakeIngester{}
	c := NewController(backend)
	c.DragEnter()

	s, err := c.Drop(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadIdle, s.Status)
	assert.Empty(t, backend.calls())
	assert.False(t, c.Dragging())
}

func TestDragging_IsVisualOnly(t *testing.T) {
	backend := &fakeIngester{}
	c := NewController(backend)

	c.DragEnter()
	assert.True(t, c.Dragging())
	c.DragLeave()
	assert.False(t, c.Dragging())

	s, err := c.Upload(context.Background(), writeFile(t, "x.md", "x"))
	require.NoError(t, err)
	assert.Equal(t, domain.UploadSuccess, s.Status)
}

func TestAccepts(t *testing.T) {
	c := NewController(&fakeIngester{})
	assert.True(t, c.Accepts("notes.MD"))
	assert.True(t, c.Accepts("/a/b/report.pdf"))
	assert.False(t, c.Accepts("slides.pptx"))

	c = NewController(&fakeIngester{}, WithExtensions([]string{".docx"}))
	assert.True(t, c.Accepts("memo.docx"))
	assert.False(t, c.Accepts("memo.pdf"))
	assert.Equal(t, []string{".docx"}, c.Extensions())
}

func TestUpload_UnhintedExtensionStillSent(t *testing.T) {
	backend := &fakeIngester{}
	c := NewController(backend)
	_, err := c.Upload(context.Background(), writeFile(t, "deck.pptx", "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"deck.pptx"}, backend.calls())
}

func TestOnTransition_HookAddedDuringEmitWaitsForNextTransition(t *testing.T) {
	c := NewController(&fakeIngester{})
	var late []domain.UploadStatus
	added := false
	c.OnTransition(func(s domain.UploadSession) {
		if !added {
			added = true
			c.OnTransition(func(s domain.UploadSession) { late = append(late, s.Status) })
		}
	})
	path := writeFile(t, "notes.txt", "decided")

	_, err := c.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []domain.UploadStatus{domain.UploadSuccess}, late)
}
