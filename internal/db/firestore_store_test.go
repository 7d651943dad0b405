package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// These tests run against the Firestore emulator and are skipped without it:
//
//	gcloud emulators firestore start --host-port=localhost:8081
//	FIRESTORE_EMULATOR_HOST=localhost:8081 go test ./internal/db/...
func newEmulatorStore(t *testing.T) (DocumentStore, *firestore.Client, Paths) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "demo-leadboard")
	if err != nil {
		t.Fatalf("firestore.NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	// A fresh app id keeps every test in its own part of the tree.
	return NewFirestoreStore(client, zap.NewNop()), client, NewPaths("test-" + uuid.NewString())
}

func nextSnapshot(t *testing.T, it SnapshotIterator) *Snapshot {
	t.Helper()
	type result struct {
		snap *Snapshot
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		snap, err := it.Next()
		ch <- result{snap, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("Next: %v", r.err)
		}
		return r.snap
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
	}
	return nil
}

func snapshotIDs(snap *Snapshot) []string {
	ids := make([]string, 0, len(snap.Documents))
	for _, d := range snap.Documents {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestFirestoreStore_CreateListDelete(t *testing.T) {
	store, _, paths := newEmulatorStore(t)
	ctx := context.Background()
	col, err := paths.Clients("U1")
	if err != nil {
		t.Fatal(err)
	}

	id, err := store.Create(ctx, col, map[string]interface{}{"name": "Acme", "createdAt": time.Now().UTC()})
	if err != nil || id == "" {
		t.Fatalf("Create = %q, %v", id, err)
	}
	docs, err := store.List(ctx, col)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != id || docs[0].Fields["name"] != "Acme" {
		t.Fatalf("List = %+v", docs)
	}

	doc, _ := paths.Client("U1", id)
	if err := store.Delete(ctx, doc); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Deleting a missing document is not an error in Firestore.
	if err := store.Delete(ctx, doc); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if docs, _ := store.List(ctx, col); len(docs) != 0 {
		t.Fatalf("List after delete = %+v", docs)
	}
}

func TestFirestoreStore_SnapshotsOrderedAndReplaced(t *testing.T) {
	store, client, paths := newEmulatorStore(t)
	ctx := context.Background()
	col, _ := paths.Leads("C1")

	for _, id := range []string{"b", "a", "c"} {
		if _, err := client.Collection(col).Doc(id).Set(ctx, map[string]interface{}{"nome": id}); err != nil {
			t.Fatal(err)
		}
	}

	it := store.Snapshots(ctx, col)
	defer it.Stop()

	first := nextSnapshot(t, it)
	if got := snapshotIDs(first); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("first snapshot ids = %v, want [a b c]", got)
	}
	if first.ReadTime.IsZero() {
		t.Error("snapshot has no read time")
	}

	leadA, _ := paths.Lead("C1", "a")
	if err := store.Delete(ctx, leadA); err != nil {
		t.Fatal(err)
	}
	second := nextSnapshot(t, it)
	if got := snapshotIDs(second); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("second snapshot ids = %v, want exactly [b c]", got)
	}
}

func TestFirestoreStore_StopUnblocksNext(t *testing.T) {
	store, _, paths := newEmulatorStore(t)
	col, _ := paths.Clients("U1")

	it := store.Snapshots(context.Background(), col)
	nextSnapshot(t, it)

	errc := make(chan error, 1)
	go func() {
		_, err := it.Next()
		errc <- err
	}()
	time.Sleep(100 * time.Millisecond)
	it.Stop()

	select {
	case err := <-errc:
		if !errors.Is(err, iterator.Done) {
			t.Fatalf("Next() after Stop error = %v, want iterator.Done", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Next did not return after Stop")
	}
}

func TestFirestoreStore_MalformedCollectionPath(t *testing.T) {
	store, _, _ := newEmulatorStore(t)

	it := store.Snapshots(context.Background(), "clients/C1")
	if _, err := it.Next(); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Next() error = %v, want ErrInvalidID", err)
	}
	if _, err := it.Next(); !errors.Is(err, iterator.Done) {
		t.Fatalf("second Next() error = %v, want iterator.Done", err)
	}
	it.Stop()
}
