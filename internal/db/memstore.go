package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// MemStore is an in-process DocumentStore with live subscriptions.
// It backs the "memory" store backend and the tests.
type MemStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]interface{} // collection path -> doc ID -> fields
	watchers    map[string]map[*memIterator]struct{}
	newID       func() string
	now         func() time.Time
}

// NewMemStore returns an empty MemStore assigning UUID document IDs.
func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[string]map[string]map[string]interface{}),
		watchers:    make(map[string]map[*memIterator]struct{}),
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// Snapshots registers a watcher on collectionPath. The current content is delivered
// as the first snapshot.
func (m *MemStore) Snapshots(ctx context.Context, collectionPath string) SnapshotIterator {
	it := &memIterator{store: m, path: collectionPath}
	it.cond = sync.NewCond(&it.mu)

	m.mu.Lock()
	if m.watchers[collectionPath] == nil {
		m.watchers[collectionPath] = make(map[*memIterator]struct{})
	}
	m.watchers[collectionPath][it] = struct{}{}
	it.push(m.snapshotLocked(collectionPath))
	m.mu.Unlock()

	stop := context.AfterFunc(ctx, it.Stop)
	it.mu.Lock()
	it.stopAfter = stop
	it.mu.Unlock()
	return it
}

// Create stores fields under a fresh ID.
func (m *MemStore) Create(ctx context.Context, collectionPath string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := m.newID()
	m.Put(collectionPath, id, fields)
	return id, nil
}

// Delete removes the document at docPath. Missing documents are ignored, as in Firestore.
func (m *MemStore) Delete(ctx context.Context, docPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collectionPath, id, err := splitDocPath(docPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.collections[collectionPath]
	if !ok {
		return nil
	}
	if _, ok := docs[id]; !ok {
		return nil
	}
	delete(docs, id)
	if len(docs) == 0 {
		delete(m.collections, collectionPath)
	}
	m.publishLocked(collectionPath)
	return nil
}

// List returns the documents of a collection ordered by ID.
func (m *MemStore) List(ctx context.Context, collectionPath string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(collectionPath).Documents, nil
}

// Put writes a document with a caller-chosen ID, replacing any previous content.
// It is how leads written by other systems enter the memory backend.
func (m *MemStore) Put(collectionPath, id string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.collections[collectionPath]
	if !ok {
		docs = make(map[string]map[string]interface{})
		m.collections[collectionPath] = docs
	}
	docs[id] = copyFields(fields)
	m.publishLocked(collectionPath)
}

// Interrupt fails every live subscription on collectionPath with err,
// the way a dropped listen stream surfaces in Firestore.
func (m *MemStore) Interrupt(collectionPath string, err error) {
	m.mu.Lock()
	watchers := make([]*memIterator, 0, len(m.watchers[collectionPath]))
	for it := range m.watchers[collectionPath] {
		watchers = append(watchers, it)
	}
	delete(m.watchers, collectionPath)
	m.mu.Unlock()

	for _, it := range watchers {
		it.fail(err)
	}
}

// Watchers reports how many live subscriptions exist on collectionPath.
func (m *MemStore) Watchers(collectionPath string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[collectionPath])
}

func (m *MemStore) snapshotLocked(collectionPath string) *Snapshot {
	docs := m.collections[collectionPath]
	snap := &Snapshot{Documents: make([]Document, 0, len(docs)), ReadTime: m.now()}
	for id, fields := range docs {
		snap.Documents = append(snap.Documents, Document{ID: id, Fields: copyFields(fields)})
	}
	sort.Slice(snap.Documents, func(i, j int) bool { return snap.Documents[i].ID < snap.Documents[j].ID })
	return snap
}

func (m *MemStore) publishLocked(collectionPath string) {
	watchers := m.watchers[collectionPath]
	if len(watchers) == 0 {
		return
	}
	for it := range watchers {
		it.push(m.snapshotLocked(collectionPath))
	}
}

func (m *MemStore) unregister(it *memIterator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if watchers, ok := m.watchers[it.path]; ok {
		delete(watchers, it)
		if len(watchers) == 0 {
			delete(m.watchers, it.path)
		}
	}
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// memIterator queues snapshots in push order.
// Lock order: MemStore.mu before memIterator.mu, never the reverse.
type memIterator struct {
	store     *MemStore
	path      string
	stopAfter func() bool

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Snapshot
	err     error
	stopped bool
}

func (it *memIterator) push(snap *Snapshot) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped || it.err != nil {
		return
	}
	it.queue = append(it.queue, snap)
	it.cond.Broadcast()
}

func (it *memIterator) fail(err error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped || it.err != nil {
		return
	}
	if err == nil {
		err = fmt.Errorf("subscription on '%s' interrupted", it.path)
	}
	it.err = err
	it.cond.Broadcast()
}

func (it *memIterator) Next() (*Snapshot, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	for len(it.queue) == 0 && it.err == nil && !it.stopped {
		it.cond.Wait()
	}
	if it.stopped {
		return nil, iterator.Done
	}
	if len(it.queue) > 0 {
		snap := it.queue[0]
		it.queue = it.queue[1:]
		return snap, nil
	}
	err := it.err
	it.stopped = true
	return nil, err
}

func (it *memIterator) Stop() {
	it.mu.Lock()
	it.stopped = true
	it.queue = nil
	stopAfter := it.stopAfter
	it.cond.Broadcast()
	it.mu.Unlock()

	if stopAfter != nil {
		stopAfter()
	}
	it.store.unregister(it)
}
