package db

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidID is returned when an ID cannot be used as a single path segment.
var ErrInvalidID = errors.New("invalid document id")

// DefaultAppID is used when no deployment app ID is configured.
const DefaultAppID = "default-app-id"

// Paths builds the storage paths of the dashboard.
//
// Clients are private to the principal that owns them:
//
//	artifacts/{appId}/admin/{principalId}/clients
//
// Leads live under the shared public namespace, addressable by client ID alone:
//
//	artifacts/{appId}/public/data/clients/{clientId}/leads
type Paths struct {
	AppID string
}

// NewPaths returns the path scheme for appID, falling back to DefaultAppID.
func NewPaths(appID string) Paths {
	if appID == "" {
		appID = DefaultAppID
	}
	return Paths{AppID: appID}
}

// Clients returns the collection path holding principalID's clients.
func (p Paths) Clients(principalID string) (string, error) {
	if err := ValidateID(principalID); err != nil {
		return "", fmt.Errorf("principal: %w", err)
	}
	return join("artifacts", p.AppID, "admin", principalID, "clients"), nil
}

// Client returns the document path of one client.
func (p Paths) Client(principalID, clientID string) (string, error) {
	collection, err := p.Clients(principalID)
	if err != nil {
		return "", err
	}
	if err := ValidateID(clientID); err != nil {
		return "", fmt.Errorf("client: %w", err)
	}
	return join(collection, clientID), nil
}

// Leads returns the collection path holding clientID's leads.
func (p Paths) Leads(clientID string) (string, error) {
	if err := ValidateID(clientID); err != nil {
		return "", fmt.Errorf("client: %w", err)
	}
	return join("artifacts", p.AppID, "public", "data", "clients", clientID, "leads"), nil
}

// Lead returns the document path of one lead.
func (p Paths) Lead(clientID, leadID string) (string, error) {
	collection, err := p.Leads(clientID)
	if err != nil {
		return "", err
	}
	if err := ValidateID(leadID); err != nil {
		return "", fmt.Errorf("lead: %w", err)
	}
	return join(collection, leadID), nil
}

// Audit returns the collection path holding principalID's audit trail.
func (p Paths) Audit(principalID string) (string, error) {
	if err := ValidateID(principalID); err != nil {
		return "", fmt.Errorf("principal: %w", err)
	}
	return join("artifacts", p.AppID, "admin", principalID, "audit"), nil
}

// ValidateID reports whether id is usable as exactly one path segment.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case strings.Contains(id, "/"):
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidID, id)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func join(segments ...string) string {
	return strings.Join(segments, "/")
}

// splitDocPath separates a document path into its parent collection and ID.
func splitDocPath(docPath string) (collection, id string, err error) {
	i := strings.LastIndex(docPath, "/")
	if i <= 0 || i == len(docPath)-1 {
		return "", "", fmt.Errorf("%w: malformed document path %q", ErrInvalidID, docPath)
	}
	return docPath[:i], docPath[i+1:], nil
}
