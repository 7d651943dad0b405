package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// blockingQuery stands in for a Firestore listen stream. Next blocks until ctx is
// done or an error is injected, and Stop records whether it overlapped a Next.
type blockingQuery struct {
	ctx     context.Context
	entered chan struct{}
	fail    chan error

	mu         sync.Mutex
	inNext     bool
	stops      int
	overlapped bool
}

func newBlockingQuery(ctx context.Context) *blockingQuery {
	return &blockingQuery{ctx: ctx, entered: make(chan struct{}, 1), fail: make(chan error, 1)}
}

func (q *blockingQuery) Next() (*firestore.QuerySnapshot, error) {
	q.mu.Lock()
	q.inNext = true
	q.mu.Unlock()
	q.entered <- struct{}{}

	var err error
	select {
	case <-q.ctx.Done():
		err = status.Error(codes.Canceled, "listen canceled")
	case err = <-q.fail:
	}
	// Give a concurrent Stop the chance to run before Next returns.
	time.Sleep(10 * time.Millisecond)

	q.mu.Lock()
	q.inNext = false
	q.mu.Unlock()
	return nil, err
}

func (q *blockingQuery) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stops++
	if q.inNext {
		q.overlapped = true
	}
}

func (q *blockingQuery) result() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stops, q.overlapped
}

func newTestSnapshotIterator() (*firestoreSnapshotIterator, *blockingQuery) {
	ctx, cancel := context.WithCancel(context.Background())
	q := newBlockingQuery(ctx)
	return &firestoreSnapshotIterator{ctx: ctx, cancel: cancel, it: q}, q
}

func TestFirestoreSnapshotIterator_StopWhileNextIsBlocked(t *testing.T) {
	it, q := newTestSnapshotIterator()

	errc := make(chan error, 1)
	go func() {
		_, err := it.Next()
		errc <- err
	}()
	<-q.entered

	it.Stop()
	it.Stop()

	select {
	case err := <-errc:
		if !errors.Is(err, iterator.Done) {
			t.Fatalf("Next() error = %v, want iterator.Done", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Stop")
	}
	stops, overlapped := q.result()
	if overlapped {
		t.Fatal("stream stopped while Next was running")
	}
	if stops != 1 {
		t.Fatalf("stream stopped %d times, want 1", stops)
	}
}

func TestFirestoreSnapshotIterator_StopBeforeNext(t *testing.T) {
	it, q := newTestSnapshotIterator()

	it.Stop()
	if stops, _ := q.result(); stops != 1 {
		t.Fatalf("idle Stop released the stream %d times, want 1", stops)
	}
	if _, err := it.Next(); !errors.Is(err, iterator.Done) {
		t.Fatalf("Next() after Stop error = %v, want iterator.Done", err)
	}
	if stops, _ := q.result(); stops != 1 {
		t.Fatalf("stream stopped %d times, want 1", stops)
	}
}

func TestFirestoreSnapshotIterator_StreamErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"unavailable", status.Error(codes.Unavailable, "backend down"), nil},
		{"canceled by server", status.Error(codes.Canceled, "canceled"), iterator.Done},
		{"done", iterator.Done, iterator.Done},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it, q := newTestSnapshotIterator()
			q.fail <- tc.err

			_, err := it.Next()
			<-q.entered
			want := tc.wantErr
			if want == nil {
				want = tc.err
			}
			if !errors.Is(err, want) {
				t.Fatalf("Next() error = %v, want %v", err, want)
			}
			if stops, overlapped := q.result(); stops != 1 || overlapped {
				t.Fatalf("stops = %d, overlapped = %v; want one release after Next", stops, overlapped)
			}
			it.Stop()
			if stops, _ := q.result(); stops != 1 {
				t.Fatalf("Stop after release stopped the stream again")
			}
		})
	}
}

func TestNormalizeFields(t *testing.T) {
	ref := &firestore.DocumentRef{ID: "C1", Path: "projects/p/databases/(default)/documents/clients/C1"}
	fields := normalizeFields(map[string]interface{}{"client": ref, "nome": "Ana"})
	if fields["client"] != ref.Path || fields["nome"] != "Ana" {
		t.Fatalf("fields = %v", fields)
	}
}
