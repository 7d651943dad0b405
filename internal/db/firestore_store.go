package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreStore implements DocumentStore on top of Cloud Firestore.
type firestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore creates a DocumentStore backed by client.
func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) DocumentStore {
	if client == nil {
		logger.Fatal("Firestore client is not initialized for DocumentStore.")
	}
	return &firestoreStore{client: client, logger: logger}
}

func (s *firestoreStore) collection(path string) (*firestore.CollectionRef, error) {
	col := s.client.Collection(path)
	if col == nil {
		return nil, fmt.Errorf("%w: malformed collection path %q", ErrInvalidID, path)
	}
	return col, nil
}

// Snapshots listens to a collection. Every QuerySnapshot is materialized into a full,
// ID-ordered Snapshot.
func (s *firestoreStore) Snapshots(ctx context.Context, collectionPath string) SnapshotIterator {
	col, err := s.collection(collectionPath)
	if err != nil {
		return &failedIterator{err: err}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &firestoreSnapshotIterator{
		ctx:    ctx,
		cancel: cancel,
		it:     col.OrderBy(firestore.DocumentID, firestore.Asc).Snapshots(ctx),
	}
}

// Create adds a document with an auto-generated ID.
func (s *firestoreStore) Create(ctx context.Context, collectionPath string, fields map[string]interface{}) (string, error) {
	col, err := s.collection(collectionPath)
	if err != nil {
		return "", err
	}
	docRef, _, err := col.Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create document in '%s': %w", collectionPath, err)
	}
	return docRef.ID, nil
}

// Delete removes one document. Deleting a missing document is not an error in Firestore.
func (s *firestoreStore) Delete(ctx context.Context, docPath string) error {
	docRef := s.client.Doc(docPath)
	if docRef == nil {
		return fmt.Errorf("%w: malformed document path %q", ErrInvalidID, docPath)
	}
	if _, err := docRef.Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("document '%s' not found for deletion: %w", docPath, ErrNotFound)
		}
		return fmt.Errorf("failed to delete document '%s': %w", docPath, err)
	}
	return nil
}

// List reads every document of a collection once.
func (s *firestoreStore) List(ctx context.Context, collectionPath string) ([]Document, error) {
	col, err := s.collection(collectionPath)
	if err != nil {
		return nil, err
	}
	iter := col.Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate documents in '%s': %w", collectionPath, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: normalizeFields(snap.Data())})
	}
	return docs, nil
}

// querySnapshots is the part of *firestore.QuerySnapshotIterator the adapter uses.
type querySnapshots interface {
	Next() (*firestore.QuerySnapshot, error)
	Stop()
}

// firestoreSnapshotIterator adapts firestore.QuerySnapshotIterator to SnapshotIterator.
// The SDK iterator must not be stopped while Next runs, so Stop only cancels the
// listen context when a Next is in flight and that Next releases the iterator.
type firestoreSnapshotIterator struct {
	ctx    context.Context
	cancel context.CancelFunc
	it     querySnapshots

	mu       sync.Mutex
	inNext   bool
	stopped  bool
	released bool
}

func (i *firestoreSnapshotIterator) Next() (*Snapshot, error) {
	i.mu.Lock()
	if i.stopped {
		i.releaseLocked()
		i.mu.Unlock()
		return nil, iterator.Done
	}
	i.inNext = true
	i.mu.Unlock()

	qs, err := i.it.Next()

	i.mu.Lock()
	i.inNext = false
	if i.stopped || i.ctx.Err() != nil {
		i.releaseLocked()
		i.mu.Unlock()
		return nil, iterator.Done
	}
	if err != nil {
		i.releaseLocked()
		i.mu.Unlock()
		if errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
			return nil, iterator.Done
		}
		return nil, err
	}
	i.mu.Unlock()

	docSnaps, err := qs.Documents.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot documents: %w", err)
	}
	snap := &Snapshot{Documents: make([]Document, 0, len(docSnaps)), ReadTime: qs.ReadTime}
	for _, d := range docSnaps {
		snap.Documents = append(snap.Documents, Document{ID: d.Ref.ID, Fields: normalizeFields(d.Data())})
	}
	return snap, nil
}

func (i *firestoreSnapshotIterator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopped = true
	i.cancel()
	if !i.inNext {
		i.releaseLocked()
	}
}

func (i *firestoreSnapshotIterator) releaseLocked() {
	if i.released {
		return
	}
	i.released = true
	i.cancel()
	i.it.Stop()
}

// normalizeFields replaces document references with their paths, so that decoders
// only see plain values.
func normalizeFields(fields map[string]interface{}) map[string]interface{} {
	for k, v := range fields {
		if ref, ok := v.(*firestore.DocumentRef); ok && ref != nil {
			fields[k] = ref.Path
		}
	}
	return fields
}

// failedIterator reports a setup error once, then behaves as a stopped iterator.
type failedIterator struct {
	mu   sync.Mutex
	err  error
	done bool
}

func (i *failedIterator) Next() (*Snapshot, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done {
		return nil, iterator.Done
	}
	i.done = true
	return nil, i.err
}

func (i *failedIterator) Stop() {
	i.mu.Lock()
	i.done = true
	i.mu.Unlock()
}
