package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"leadboard-go/internal/db"
	"leadboard-go/internal/metrics"
)

// Mirror roles.
const (
	RoleClients = "clients"
	RoleLeads   = "leads"
)

// Decoder turns a stored document into a T. It must accept any document, so that a
// mirrored list always holds every document of the snapshot.
type Decoder[T any] func(db.Document) T

// Mirror keeps at most one live subscription to a collection and hands every
// snapshot, decoded and in store order, to the subscriber.
type Mirror[T any] struct {
	store   db.DocumentStore
	role    string
	decode  Decoder[T]
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	active *Subscription
}

// NewMirror creates a Mirror for one collection role.
func NewMirror[T any](store db.DocumentStore, role string, decode Decoder[T], logger *zap.Logger, m *metrics.Metrics) *Mirror[T] {
	return &Mirror[T]{
		store:   store,
		role:    role,
		decode:  decode,
		logger:  logger.With(zap.String("role", role)),
		metrics: m,
	}
}

// Subscribe stops the previous subscription, then listens on collectionPath.
// onChange receives every snapshot in push order, each replacing the last.
// onError is called at most once, when the store ends the subscription with an error;
// the subscription is not retried.
func (m *Mirror[T]) Subscribe(ctx context.Context, collectionPath string, onChange func([]T), onError func(error)) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.active.Unsubscribe()
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel: cancel,
		iter:   m.store.Snapshots(subCtx, collectionPath),
		done:   make(chan struct{}),
		onStop: func() { m.metrics.SubscriptionClosed(m.role) },
	}
	m.active = sub
	m.metrics.SubscriptionOpened(m.role)
	m.logger.Debug("Subscribed", zap.String("path", collectionPath))

	go m.run(sub, collectionPath, onChange, onError)
	return sub
}

// Unsubscribe stops the live subscription, if any.
func (m *Mirror[T]) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.Unsubscribe()
		m.active = nil
	}
}

// Active reports whether a subscription is live.
func (m *Mirror[T]) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil && !m.active.Stopped()
}

func (m *Mirror[T]) run(sub *Subscription, collectionPath string, onChange func([]T), onError func(error)) {
	defer close(sub.done)
	for {
		snap, err := sub.iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) || sub.Stopped() {
				return
			}
			m.metrics.SubscriptionFailed(m.role)
			m.logger.Error("Subscription failed", zap.String("path", collectionPath), zap.Error(err))
			sub.Unsubscribe()
			if onError != nil {
				onError(err)
			}
			return
		}
		if sub.Stopped() {
			return
		}
		m.metrics.SnapshotReceived(m.role)
		m.logger.Debug("Snapshot received",
			zap.String("path", collectionPath),
			zap.Int("documents", len(snap.Documents)),
			zap.Time("readTime", snap.ReadTime),
		)
		onChange(m.decodeAll(snap))
	}
}

func (m *Mirror[T]) decodeAll(snap *db.Snapshot) []T {
	items := make([]T, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		items = append(items, m.decode(doc))
	}
	return items
}

// Subscription is a handle on one live subscription.
type Subscription struct {
	cancel  context.CancelFunc
	iter    db.SnapshotIterator
	done    chan struct{}
	onStop  func()
	once    sync.Once
	mu      sync.Mutex
	stopped bool
}

// Unsubscribe stops the subscription. It is idempotent and safe on a nil handle.
// A callback already in progress may still finish.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
		s.iter.Stop()
		if s.onStop != nil {
			s.onStop()
		}
	})
}

// Stopped reports whether Unsubscribe has run.
func (s *Subscription) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Done is closed when the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
