package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"precedent/internal/domain"
	"precedent/internal/logger"
)

const module = "UPLOAD"

var (
	// ErrNoFile is returned when no file reference was given.
	ErrNoFile = errors.New("upload: no file")
	// ErrUploadInProgress is returned while another attempt holds the session.
	ErrUploadInProgress = errors.New("upload: another upload is in progress")
)

// DefaultExtensions is the input hint used when none is configured.
var DefaultExtensions = []string{".pdf", ".txt", ".md"}

// Controller owns the single upload session. Drops and picker selections
// both go through Upload, so at most one attempt runs at a time.
type Controller struct {
	backend    domain.Ingester
	notifier   domain.IngestNotifier
	logger     logger.ILogger
	timeout    time.Duration
	extensions []string

	mu          sync.Mutex
	emitMu      sync.Mutex // keeps hook calls in transition order
	session     domain.UploadSession
	dragging    bool
	transitions []func(domain.UploadSession)
}

type Option func(*Controller)

// WithNotifier sets who is told about accepted uploads.
func WithNotifier(n domain.IngestNotifier) Option { return func(c *Controller) { c.notifier = n } }

func WithLogger(l logger.ILogger) Option { return func(c *Controller) { c.logger = l } }

// WithTimeout bounds every upload request. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(c *Controller) { c.timeout = d } }

// WithExtensions sets the accepted-extension hint.
func WithExtensions(exts []string) Option {
	return func(c *Controller) {
		if len(exts) > 0 {
			c.extensions = append([]string(nil), exts...)
		}
	}
}

func NewController(backend domain.Ingester, opts ...Option) *Controller {
	c := &Controller{
		backend:    backend,
		logger:     logger.NewNop(),
		extensions: DefaultExtensions,
		session:    domain.UploadSession{Status: domain.UploadIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTransition registers fn to be called, in order, with every session state change.
func (c *Controller) OnTransition(fn func(domain.UploadSession)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions = append(c.transitions, fn)
}

// Session returns the current session.
func (c *Controller) Session() domain.UploadSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Extensions returns the accepted-extension hint.
func (c *Controller) Extensions() []string {
	return append([]string(nil), c.extensions...)
}

// Accepts reports whether name carries a hinted extension. It never blocks an upload.
func (c *Controller) Accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (c *Controller) DragEnter() { c.setDragging(true) }

func (c *Controller) DragLeave() { c.setDragging(false) }

// Dragging is a purely visual flag.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

func (c *Controller) setDragging(v bool) {
	c.mu.Lock()
	c.dragging = v
	c.mu.Unlock()
}

// Drop handles a drop of one or more files. Only the first is uploaded; the
// rest are ignored. An empty drop does nothing.
func (c *Controller) Drop(ctx context.Context, paths []string) (domain.UploadSession, error) {
	c.DragLeave()
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if len(paths) > 1 {
			c.logger.Debug(module, "multiple files dropped, using the first", map[string]interface{}{"count": len(paths)})
		}
		return c.Upload(ctx, p)
	}
	return c.Session(), nil
}

// Upload runs one attempt: idle, uploading, then success or error.
func (c *Controller) Upload(ctx context.Context, path string) (domain.UploadSession, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return c.Session(), ErrNoFile
	}

	c.mu.Lock()
	if c.session.Status == domain.UploadUploading {
		s := c.session
		c.mu.Unlock()
		return s, ErrUploadInProgress
	}
	c.session = domain.UploadSession{Status: domain.UploadUploading, File: path}
	hooks := slices.Clone(c.transitions)
	c.emitMu.Lock()
	c.mu.Unlock()
	emit(hooks, domain.UploadSession{Status: domain.UploadIdle})
	emit(hooks, domain.UploadSession{Status: domain.UploadUploading, File: path})
	c.emitMu.Unlock()

	if !c.Accepts(path) {
		c.logger.Debug(module, "extension outside the input hint, leaving it to the backend", map[string]interface{}{"file": path})
	}

	err := c.send(ctx, path)
	if err != nil {
		c.logger.Warn(module, "upload failed", map[string]interface{}{"file": path, "error": err.Error()})
		return c.finish(domain.UploadSession{Status: domain.UploadError, File: path, Err: err}), err
	}

	s := c.finish(domain.UploadSession{Status: domain.UploadSuccess, File: path})
	c.logger.Info(module, "upload accepted", map[string]interface{}{"file": path})
	if c.notifier != nil {
		if nerr := c.notifier.IngestSucceeded(ctx, filepath.Base(path)); nerr != nil {
			c.logger.Warn(module, "ingest notification failed", map[string]interface{}{"file": path, "error": nerr.Error()})
		}
	}
	return s, nil
}

func (c *Controller) send(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.backend.Ingest(ctx, filepath.Base(path), f); err != nil {
		return fmt.Errorf("ingest %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (c *Controller) finish(s domain.UploadSession) domain.UploadSession {
	c.mu.Lock()
	c.session = s
	hooks := slices.Clone(c.transitions)
	c.emitMu.Lock()
	c.mu.Unlock()
	emit(hooks, s)
	c.emitMu.Unlock()
	return s
}

func emit(hooks []func(domain.UploadSession), s domain.UploadSession) {
	for _, fn := range hooks {
		fn(s)
	}
}
