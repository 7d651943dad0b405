package db

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document does not exist in the store.
var ErrNotFound = errors.New("document not found")

// Document is one stored document: its ID (last path segment) and its fields.
type Document struct {
	ID     string
	Fields map[string]interface{}
}

// Snapshot is the full content of a collection at one point in time,
// ordered by document ID.
type Snapshot struct {
	Documents []Document
	ReadTime  time.Time
}

// SnapshotIterator yields full-collection snapshots as the server pushes them.
// Next blocks until a snapshot is available. After Stop, or once the context the
// iterator was opened with is done, Next returns iterator.Done.
// Stop may be called from another goroutine while Next is blocked; it unblocks Next
// and the underlying stream is released on the goroutine running Next.
// Stop is idempotent and returns without waiting for the stream to drain.
type SnapshotIterator interface {
	Next() (*Snapshot, error)
	Stop()
}

// DocumentStore defines the document operations the dashboard consumes.
// Paths are slash-separated Firestore-style paths, e.g. "artifacts/app/admin/uid/clients".
type DocumentStore interface {
	// Snapshots opens a live subscription on a collection.
	Snapshots(ctx context.Context, collectionPath string) SnapshotIterator
	// Create adds a document with a store-assigned ID and returns that ID.
	Create(ctx context.Context, collectionPath string, fields map[string]interface{}) (string, error)
	// Delete removes the document at docPath.
	Delete(ctx context.Context, docPath string) error
	// List reads a collection once.
	List(ctx context.Context, collectionPath string) ([]Document, error)
}
