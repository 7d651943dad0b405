package core

import (
	"context"
	"fmt"

	"leadboard-go/internal/db"
	"leadboard-go/internal/models"
)

// auditService implements the AuditService interface on the document store.
type auditService struct {
	store db.DocumentStore
	paths db.Paths
}

// NewAuditService creates an AuditService writing under each principal's audit collection.
func NewAuditService(store db.DocumentStore, paths db.Paths) AuditService {
	return &auditService{store: store, paths: paths}
}

// CreateAuditLog stores one entry under artifacts/{appId}/admin/{userId}/audit.
func (s *auditService) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	if s.store == nil {
		return fmt.Errorf("document store not initialized in AuditService")
	}
	path, err := s.paths.Audit(logEntry.UserID)
	if err != nil {
		return fmt.Errorf("invalid audit owner: %w", err)
	}
	if _, err := s.store.Create(ctx, path, logEntry.Fields()); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}
