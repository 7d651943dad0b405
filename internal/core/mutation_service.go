package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"leadboard-go/internal/db"
	"leadboard-go/internal/metrics"
	"leadboard-go/internal/models"
)

// Mutation operation labels.
const (
	OpAddClient    = "add_client"
	OpDeleteClient = "delete_client"
)

// MutationService creates and deletes clients. Results reach the view through the
// clients mirror; failures go to the dashboard error slot.
type MutationService struct {
	store      db.DocumentStore
	paths      db.Paths
	principals PrincipalSource
	reporter   ErrorReporter
	audit      AuditService // nil disables auditing
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	cascades sync.WaitGroup
}

// NewMutationService creates a MutationService.
func NewMutationService(
	store db.DocumentStore,
	paths db.Paths,
	principals PrincipalSource,
	reporter ErrorReporter,
	audit AuditService,
	logger *zap.Logger,
	m *metrics.Metrics,
) *MutationService {
	return &MutationService{
		store:      store,
		paths:      paths,
		principals: principals,
		reporter:   reporter,
		audit:      audit,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// AddClient creates a client named name, trimmed, under the current principal.
// Blank names and a missing principal are rejected without touching the store.
func (s *MutationService) AddClient(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.metrics.Mutation(OpAddClient, metrics.OutcomeRejected)
		return "", ErrEmptyClientName
	}
	principal := s.principals.CurrentPrincipal()
	if principal == nil {
		s.metrics.Mutation(OpAddClient, metrics.OutcomeRejected)
		return "", ErrNoPrincipal
	}
	path, err := s.paths.Clients(principal.UID)
	if err != nil {
		return "", s.fail(OpAddClient, ErrKindAddClient, err)
	}

	id, err := s.store.Create(ctx, path, map[string]interface{}{
		models.ClientFieldName:      name,
		models.ClientFieldCreatedAt: s.now().UTC(),
	})
	if err != nil {
		return "", s.fail(OpAddClient, ErrKindAddClient, err)
	}

	s.metrics.Mutation(OpAddClient, metrics.OutcomeSuccess)
	s.logger.Info("Client created", zap.String("uid", principal.UID), zap.String("clientId", id))
	s.record(ctx, models.AuditLog{
		UserID:     principal.UID,
		Action:     models.AuditActionClientCreate,
		TargetType: "client",
		TargetID:   id,
		Details:    map[string]interface{}{"name": name},
	})
	return id, nil
}

// DeleteClient deletes a client of the current principal, then issues one delete per
// lead under the client. Lead deletions run concurrently and outlive the call; a failed
// one is logged and left behind.
func (s *MutationService) DeleteClient(ctx context.Context, clientID string) error {
	principal := s.principals.CurrentPrincipal()
	if principal == nil {
		s.metrics.Mutation(OpDeleteClient, metrics.OutcomeRejected)
		return ErrNoPrincipal
	}
	clientPath, err := s.paths.Client(principal.UID, clientID)
	if err != nil {
		s.metrics.Mutation(OpDeleteClient, metrics.OutcomeRejected)
		return err
	}
	leadsPath, err := s.paths.Leads(clientID)
	if err != nil {
		s.metrics.Mutation(OpDeleteClient, metrics.OutcomeRejected)
		return err
	}

	// A client that is already gone still gets its leads cleaned up.
	if err := s.store.Delete(ctx, clientPath); err != nil && !errors.Is(err, db.ErrNotFound) {
		return s.fail(OpDeleteClient, ErrKindDeleteClient, err)
	}
	leads, err := s.store.List(ctx, leadsPath)
	if err != nil {
		return s.fail(OpDeleteClient, ErrKindDeleteClient, err)
	}

	cascadeCtx := context.WithoutCancel(ctx)
	for _, lead := range leads {
		leadPath, err := s.paths.Lead(clientID, lead.ID)
		if err != nil {
			s.logger.Warn("Skipping lead with invalid id", zap.String("clientId", clientID), zap.String("leadId", lead.ID))
			continue
		}
		s.cascades.Add(1)
		go func(leadPath string) {
			defer s.cascades.Done()
			if err := s.store.Delete(cascadeCtx, leadPath); err != nil && !errors.Is(err, db.ErrNotFound) {
				s.metrics.CascadeDelete(metrics.OutcomeFailure)
				s.logger.Warn("Lead deletion failed; lead left orphaned", zap.String("path", leadPath), zap.Error(err))
				return
			}
			s.metrics.CascadeDelete(metrics.OutcomeSuccess)
		}(leadPath)
	}

	s.metrics.Mutation(OpDeleteClient, metrics.OutcomeSuccess)
	s.logger.Info("Client deleted",
		zap.String("uid", principal.UID),
		zap.String("clientId", clientID),
		zap.Int("leads", len(leads)),
	)
	s.record(ctx, models.AuditLog{
		UserID:     principal.UID,
		Action:     models.AuditActionClientDelete,
		TargetType: "client",
		TargetID:   clientID,
		Details:    map[string]interface{}{"leads": len(leads)},
	})
	return nil
}

// Wait blocks until every lead deletion issued so far has settled.
func (s *MutationService) Wait() {
	s.cascades.Wait()
}

func (s *MutationService) fail(op string, kind ErrorKind, err error) error {
	s.metrics.Mutation(op, metrics.OutcomeFailure)
	s.logger.Error("Mutation failed", zap.String("operation", op), zap.Error(err))
	dashErr := NewDashboardError(kind, err)
	if s.reporter != nil {
		s.reporter.Report(dashErr)
	}
	return fmt.Errorf("%s failed: %w", op, dashErr)
}

// record writes an audit entry. Audit failures never fail the mutation.
func (s *MutationService) record(ctx context.Context, entry models.AuditLog) {
	if s.audit == nil {
		return
	}
	entry.Timestamp = s.now().UTC()
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("Audit log not written", zap.String("action", entry.Action), zap.Error(err))
	}
}
