package domain

import (
	"context"
	"io"
)

// Searcher runs a query against the memory store.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]SearchResult, error)
}

// Ingester submits a raw artifact for ingestion.
type Ingester interface {
	Ingest(ctx context.Context, filename string, content io.Reader) error
}

// UploadLister lists previously ingested artifacts.
type UploadLister interface {
	ListUploads(ctx context.Context) ([]UploadedFileRecord, error)
}

// DocumentLinker builds retrieval links for source documents.
type DocumentLinker interface {
	DocumentURL(sourceFile string) string
}

// Backend defines the operations exposed by the memory service.
type Backend interface {
	Searcher
	Ingester
	UploadLister
	DocumentLinker
	FetchDocument(ctx context.Context, sourceFile string, w io.Writer) (int64, error)
}

// IngestNotifier is told when an ingestion was accepted by the backend.
type IngestNotifier interface {
	IngestSucceeded(ctx context.Context, filename string) error
}

// IngestNotifierFunc adapts a function to IngestNotifier.
type IngestNotifierFunc func(ctx context.Context, filename string) error

func (f IngestNotifierFunc) IngestSucceeded(ctx context.Context, filename string) error {
	return f(ctx, filename)
}
