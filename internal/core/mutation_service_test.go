package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"leadboard-go/internal/db"
	"leadboard-go/internal/metrics"
	"leadboard-go/internal/models"
)

func newMutations(store db.DocumentStore, principal *models.Principal, reporter ErrorReporter, audit AuditService) *MutationService {
	return NewMutationService(store, db.NewPaths("test-app"), fakePrincipals{p: principal}, reporter, audit, zap.NewNop(), nil)
}

func TestAddClient_RejectsBlankNames(t *testing.T) {
	store := db.NewMemStore()
	reporter := &recordingReporter{}
	s := newMutations(store, &models.Principal{UID: "U1"}, reporter, nil)

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := s.AddClient(context.Background(), name); !errors.Is(err, ErrEmptyClientName) {
			t.Errorf("AddClient(%q) error = %v, want ErrEmptyClientName", name, err)
		}
	}
	docs, _ := store.List(context.Background(), "artifacts/test-app/admin/U1/clients")
	if len(docs) != 0 {
		t.Fatalf("%d documents created for blank names", len(docs))
	}
	if len(reporter.reported()) != 0 {
		t.Fatal("a rejection reached the error slot")
	}
}

func TestAddClient_RequiresPrincipal(t *testing.T) {
	store := db.NewMemStore()
	s := newMutations(store, nil, &recordingReporter{}, nil)
	if _, err := s.AddClient(context.Background(), "Acme"); !errors.Is(err, ErrNoPrincipal) {
		t.Fatalf("error = %v, want ErrNoPrincipal", err)
	}
	if err := s.DeleteClient(context.Background(), "C1"); !errors.Is(err, ErrNoPrincipal) {
		t.Fatalf("error = %v, want ErrNoPrincipal", err)
	}
}

func TestAddClient_WritesTrimmedNameAndAudit(t *testing.T) {
	store := db.NewMemStore()
	paths := db.NewPaths("test-app")
	s := newMutations(store, &models.Principal{UID: "U1"}, &recordingReporter{}, NewAuditService(store, paths))

	id, err := s.AddClient(context.Background(), "  Acme  ")
	if err != nil {
		t.Fatal(err)
	}
	docs, _ := store.List(context.Background(), "artifacts/test-app/admin/U1/clients")
	if len(docs) != 1 || docs[0].ID != id || docs[0].Fields["name"] != "Acme" {
		t.Fatalf("docs = %+v", docs)
	}
	if _, ok := docs[0].Fields["createdAt"]; !ok {
		t.Fatal("createdAt missing")
	}

	audit, _ := store.List(context.Background(), "artifacts/test-app/admin/U1/audit")
	if len(audit) != 1 || audit[0].Fields["action"] != models.AuditActionClientCreate || audit[0].Fields["targetId"] != id {
		t.Fatalf("audit = %+v", audit)
	}
}

func TestAddClient_StoreFailureReported(t *testing.T) {
	store := newFaultyStore()
	store.createErr = errBoom
	reporter := &recordingReporter{}
	s := newMutations(store, &models.Principal{UID: "U1"}, reporter, nil)

	_, err := s.AddClient(context.Background(), "Acme")
	if !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want errBoom", err)
	}
	got := reporter.reported()
	if len(got) != 1 || got[0].Kind != ErrKindAddClient {
		t.Fatalf("reported = %v", got)
	}
}

func TestDeleteClient_CascadeScope(t *testing.T) {
	store := newFaultyStore()
	paths := db.NewPaths("test-app")
	store.Put("artifacts/test-app/admin/U1/clients", "C1", map[string]interface{}{"name": "One"})
	store.Put("artifacts/test-app/admin/U1/clients", "C2", map[string]interface{}{"name": "Two"})
	for _, id := range []string{"L1", "L2", "L3"} {
		store.Put("artifacts/test-app/public/data/clients/C1/leads", id, map[string]interface{}{"nome": id})
	}
	store.Put("artifacts/test-app/public/data/clients/C2/leads", "K1", map[string]interface{}{"nome": "keep"})

	s := NewMutationService(store, paths, fakePrincipals{p: &models.Principal{UID: "U1"}}, &recordingReporter{}, nil, zap.NewNop(), nil)
	if err := s.DeleteClient(context.Background(), "C1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	got := store.deletedPaths()
	sort.Strings(got)
	want := []string{
		"artifacts/test-app/admin/U1/clients/C1",
		"artifacts/test-app/public/data/clients/C1/leads/L1",
		"artifacts/test-app/public/data/clients/C1/leads/L2",
		"artifacts/test-app/public/data/clients/C1/leads/L3",
	}
	if len(got) != len(want) {
		t.Fatalf("deleted = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("deleted = %q, want %q", got, want)
		}
	}
	kept, _ := store.List(context.Background(), "artifacts/test-app/public/data/clients/C2/leads")
	if len(kept) != 1 {
		t.Fatal("lead of another client was deleted")
	}
}

func TestDeleteClient_LeadFailureIsNotFatal(t *testing.T) {
	store := newFaultyStore()
	store.Put("artifacts/test-app/admin/U1/clients", "C1", map[string]interface{}{"name": "One"})
	for _, id := range []string{"L1", "L2", "L3"} {
		store.Put("artifacts/test-app/public/data/clients/C1/leads", id, map[string]interface{}{"nome": id})
	}
	store.deleteErrs["artifacts/test-app/public/data/clients/C1/leads/L2"] = errBoom
	reporter := &recordingReporter{}
	s := newMutations(store, &models.Principal{UID: "U1"}, reporter, nil)

	if err := s.DeleteClient(context.Background(), "C1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	left, _ := store.List(context.Background(), "artifacts/test-app/public/data/clients/C1/leads")
	if len(left) != 1 || left[0].ID != "L2" {
		t.Fatalf("remaining leads = %+v, want only the orphaned L2", left)
	}
	if len(reporter.reported()) != 0 {
		t.Fatal("a per-lead failure reached the error slot")
	}
}

func TestDeleteClient_MissingDocumentsCountAsDeleted(t *testing.T) {
	store := newFaultyStore()
	notFound := func(path string) error { return fmt.Errorf("document '%s' not found for deletion: %w", path, db.ErrNotFound) }
	clientPath := "artifacts/test-app/admin/U1/clients/C1"
	leadsPath := "artifacts/test-app/public/data/clients/C1/leads"
	for _, id := range []string{"L1", "L2", "L3"} {
		store.Put(leadsPath, id, map[string]interface{}{"nome": id})
	}
	store.deleteErrs[clientPath] = notFound(clientPath)
	store.deleteErrs[leadsPath+"/L2"] = notFound(leadsPath + "/L2")
	store.deleteErrs[leadsPath+"/L3"] = errBoom

	reporter := &recordingReporter{}
	m := metrics.New()
	s := NewMutationService(store, db.NewPaths("test-app"), fakePrincipals{p: &models.Principal{UID: "U1"}}, reporter, nil, zap.NewNop(), m)

	if err := s.DeleteClient(context.Background(), "C1"); err != nil {
		t.Fatalf("DeleteClient of an already deleted client: %v", err)
	}
	s.Wait()

	if len(reporter.reported()) != 0 {
		t.Fatal("a missing document reached the error slot")
	}
	expected := `
# HELP leadboard_cascade_lead_deletes_total Lead deletions issued by client cascades.
# TYPE leadboard_cascade_lead_deletes_total counter
leadboard_cascade_lead_deletes_total{outcome="failure"} 1
leadboard_cascade_lead_deletes_total{outcome="success"} 2
`
	if err := testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "leadboard_cascade_lead_deletes_total"); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteClient_ClientFailureReported(t *testing.T) {
	store := newFaultyStore()
	store.deleteErrs["artifacts/test-app/admin/U1/clients/C1"] = errBoom
	store.Put("artifacts/test-app/public/data/clients/C1/leads", "L1", map[string]interface{}{})
	reporter := &recordingReporter{}
	s := newMutations(store, &models.Principal{UID: "U1"}, reporter, nil)

	if err := s.DeleteClient(context.Background(), "C1"); !errors.Is(err, errBoom) {
		t.Fatalf("error = %v", err)
	}
	got := reporter.reported()
	if len(got) != 1 || got[0].Kind != ErrKindDeleteClient {
		t.Fatalf("reported = %v", got)
	}
	left, _ := store.List(context.Background(), "artifacts/test-app/public/data/clients/C1/leads")
	if len(left) != 1 {
		t.Fatal("leads were deleted although the client deletion failed")
	}
}

func TestDeleteClient_ListFailureReported(t *testing.T) {
	store := newFaultyStore()
	store.listErr = errBoom
	reporter := &recordingReporter{}
	s := newMutations(store, &models.Principal{UID: "U1"}, reporter, nil)

	if err := s.DeleteClient(context.Background(), "C1"); !errors.Is(err, errBoom) {
		t.Fatalf("error = %v", err)
	}
	if got := reporter.reported(); len(got) != 1 || got[0].Kind != ErrKindDeleteClient {
		t.Fatalf("reported = %v", got)
	}
}

func TestDeleteClient_RejectsInvalidID(t *testing.T) {
	store := newFaultyStore()
	s := newMutations(store, &models.Principal{UID: "U1"}, &recordingReporter{}, nil)
	for _, id := range []string{"", "a/b", ".."} {
		if err := s.DeleteClient(context.Background(), id); !errors.Is(err, db.ErrInvalidID) {
			t.Errorf("DeleteClient(%q) = %v, want ErrInvalidID", id, err)
		}
	}
	if len(store.deletedPaths()) != 0 {
		t.Fatal("invalid id reached the store")
	}
}

func TestDeleteClient_CascadeOutlivesCallerContext(t *testing.T) {
	store := newFaultyStore()
	store.Put("artifacts/test-app/public/data/clients/C1/leads", "L1", map[string]interface{}{})
	s := newMutations(store, &models.Principal{UID: "U1"}, &recordingReporter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.DeleteClient(ctx, "C1"); err != nil {
		t.Fatal(err)
	}
	cancel()
	s.Wait()

	left, _ := store.List(context.Background(), "artifacts/test-app/public/data/clients/C1/leads")
	if len(left) != 0 {
		t.Fatal("cancelling the request context aborted the cascade")
	}
}
