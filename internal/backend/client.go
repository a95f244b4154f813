package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"precedent/internal/domain"
	"precedent/internal/logger"
)

const module = "BACKEND"

// Client is a REST client for the memory service. Every call resolves
// against one base URL.
type Client struct {
	base   string
	client *http.Client
	logger logger.ILogger
	tracer trace.Tracer
}

type Config struct {
	BaseURL string
	// Timeout bounds a whole exchange. Zero leaves deadlines to the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logger.ILogger
}

var _ domain.Backend = (*Client)(nil)

// NewClient validates the base URL and builds a client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	u.RawQuery = ""
	u.Fragment = ""
	return &Client{
		base:   strings.TrimRight(u.String(), "/"),
		client: hc,
		logger: log,
		tracer: otel.Tracer("precedent/backend"),
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.base }

// DocumentURL returns the retrieval link for a source document.
func (c *Client) DocumentURL(sourceFile string) string {
	segments := strings.Split(strings.TrimLeft(sourceFile, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.base + "/documents/" + strings.Join(segments, "/")
}

// Search posts a query and returns results in backend order.
func (c *Client) Search(ctx context.Context, q domain.Query) ([]domain.SearchResult, error) {
	ctx, span := c.tracer.Start(ctx, "backend.search", trace.WithAttributes(
		attribute.String("precedent.team_filter", q.TeamFilter),
		attribute.Int("precedent.limit", q.Limit),
	))
	defer span.End()

	var out []domain.SearchResult
	if err := c.postJSON(ctx, "search", c.base+"/search/", q, &out); err != nil {
		recordError(span, err)
		return nil, err
	}
	if out == nil {
		out = []domain.SearchResult{}
	}
	span.SetAttributes(attribute.Int("precedent.results", len(out)))
	return out, nil
}

// Ingest uploads content as the multipart field "file". The response body is ignored.
func (c *Client) Ingest(ctx context.Context, filename string, content io.Reader) error {
	name := filepath.Base(filename)
	ctx, span := c.tracer.Start(ctx, "backend.ingest", trace.WithAttributes(
		attribute.String("precedent.filename", name),
	))
	defer span.End()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/ingest/", pr)
	if err != nil {
		pr.CloseWithError(err)
		recordError(span, err)
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.do(req, "ingest")
	if err != nil {
		recordError(span, err)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ListUploads returns the backend upload history, newest first as sent.
func (c *Client) ListUploads(ctx context.Context) ([]domain.UploadedFileRecord, error) {
	ctx, span := c.tracer.Start(ctx, "backend.uploads")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/uploads/", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, "uploads")
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	var out []domain.UploadedFileRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		err = fmt.Errorf("decode uploads: %w", err)
		recordError(span, err)
		return nil, err
	}
	return out, nil
}

// FetchDocument streams the raw bytes of a source document into w.
func (c *Client) FetchDocument(ctx context.Context, sourceFile string, w io.Writer) (int64, error) {
	ctx, span := c.tracer.Start(ctx, "backend.document", trace.WithAttributes(
		attribute.String("precedent.source_file", sourceFile),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DocumentURL(sourceFile), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(req, "document")
	if err != nil {
		recordError(span, err)
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		recordError(span, err)
	}
	return n, err
}

func (c *Client) postJSON(ctx context.Context, op, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
	}
	return nil
}

// do sends req and turns any status >= 300 into a *StatusError.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn(module, "request failed", map[string]interface{}{
			"op": op, "request_id": requestID, "error": err.Error(),
		})
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.logger.Debug(module, "response received", map[string]interface{}{
		"op": op, "request_id": requestID, "status": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status, Detail: parseDetail(payload)}
	}
	return resp, nil
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Op     string
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed: %s: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Status)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// parseDetail extracts the "detail" member of an error body; FastAPI sends
// either a string or a list of validation errors there.
func parseDetail(payload []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(payload))
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body.Detail); err != nil {
		return string(body.Detail)
	}
	return buf.String()
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
