package core

import (
	"context"

	"leadboard-go/internal/models"
)

// IdentityProvider is the external sign-in service.
type IdentityProvider interface {
	SignInAnonymously(ctx context.Context) (*models.Principal, error)
	SignInWithCustomToken(ctx context.Context, token string) (*models.Principal, error)
	SignOut(ctx context.Context) error
	CurrentPrincipal() *models.Principal
	// OnIdentityChanged calls fn with the current principal immediately and after every change.
	OnIdentityChanged(fn func(*models.Principal)) (unsubscribe func())
}

// TokenMinter issues custom tokens for a UID.
type TokenMinter interface {
	CustomToken(ctx context.Context, uid string) (string, error)
}

// EventSink accepts view events.
type EventSink interface {
	Dispatch(ev Event)
}

// ErrorReporter receives failures destined for the dashboard error slot.
type ErrorReporter interface {
	Report(err *DashboardError)
}

// PrincipalSource exposes the principal the dashboard is currently showing.
type PrincipalSource interface {
	CurrentPrincipal() *models.Principal
}

// SessionEnder signs the operator out.
type SessionEnder interface {
	SignOut(ctx context.Context) error
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}
