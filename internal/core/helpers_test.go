package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"leadboard-go/internal/db"
	"leadboard-go/internal/identity"
	"leadboard-go/internal/models"
)

const waitTimeout = 2 * time.Second

var errBoom = errors.New("boom")

type fakePrincipals struct{ p *models.Principal }

func (f fakePrincipals) CurrentPrincipal() *models.Principal { return f.p }

type recordingReporter struct {
	mu   sync.Mutex
	errs []*DashboardError
}

func (r *recordingReporter) Report(err *DashboardError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) reported() []*DashboardError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*DashboardError(nil), r.errs...)
}

// faultyStore fails selected operations of an otherwise working MemStore.
type faultyStore struct {
	*db.MemStore
	createErr error
	listErr   error

	mu         sync.Mutex
	deleteErrs map[string]error
	deleted    []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemStore: db.NewMemStore(), deleteErrs: make(map[string]error)}
}

func (s *faultyStore) Create(ctx context.Context, path string, fields map[string]interface{}) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.MemStore.Create(ctx, path, fields)
}

func (s *faultyStore) List(ctx context.Context, path string) ([]db.Document, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemStore.List(ctx, path)
}

func (s *faultyStore) Delete(ctx context.Context, docPath string) error {
	s.mu.Lock()
	err := s.deleteErrs[docPath]
	s.deleted = append(s.deleted, docPath)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemStore.Delete(ctx, docPath)
}

func (s *faultyStore) deletedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// failingProvider refuses every sign-in and counts the attempts.
type failingProvider struct {
	*identity.LocalProvider
	attempts atomic.Int32
}

func (p *failingProvider) SignInAnonymously(context.Context) (*models.Principal, error) {
	p.attempts.Add(1)
	return nil, errBoom
}

func (p *failingProvider) SignInWithCustomToken(context.Context, string) (*models.Principal, error) {
	p.attempts.Add(1)
	return nil, errBoom
}

type failingSignOut struct{}

func (failingSignOut) SignOut(context.Context) error { return errBoom }

// harness wires a running Controller onto a MemStore.
type harness struct {
	t          *testing.T
	store      *db.MemStore
	paths      db.Paths
	provider   *identity.LocalProvider
	session    *SessionService
	controller *Controller
	mutations  *MutationService
	cancel     context.CancelFunc
}

func newHarness(t *testing.T, opts ...SessionOption) *harness {
	t.Helper()
	logger := zap.NewNop()
	store := db.NewMemStore()
	paths := db.NewPaths("test-app")
	provider := identity.NewLocalProvider(logger)
	session := NewSessionService(provider, logger, opts...)

	clients := NewMirror[models.Client](store, RoleClients, DecodeClient, logger, nil)
	leads := NewMirror[models.Lead](store, RoleLeads, DecodeLead, logger, nil)
	controller := NewController(logger, paths, session, clients, leads, nil)
	mutations := NewMutationService(store, paths, controller, controller, NewAuditService(store, paths), logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go controller.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-controller.Done()
		mutations.Wait()
	})

	return &harness{
		t:          t,
		store:      store,
		paths:      paths,
		provider:   provider,
		session:    session,
		controller: controller,
		mutations:  mutations,
		cancel:     cancel,
	}
}

// signIn starts the session with a custom token and waits for the dashboard.
func (h *harness) signIn(uid string) State {
	h.t.Helper()
	h.session.token = uid
	h.session.Start(context.Background(), h.controller)
	return h.waitFor("dashboard for "+uid, func(s State) bool {
		return s.View == ViewDashboard && s.Principal != nil && s.Principal.UID == uid
	})
}

func (h *harness) waitFor(what string, cond func(State) bool) State {
	h.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		s := h.controller.State()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %s; state = %+v", what, s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) putLead(clientID, leadID string, fields map[string]interface{}) {
	h.t.Helper()
	path, err := h.paths.Leads(clientID)
	if err != nil {
		h.t.Fatal(err)
	}
	h.store.Put(path, leadID, fields)
}
