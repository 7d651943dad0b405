package models

import "time"

// Client is a customer account owned by exactly one principal.
// Its owner is implied by the storage path, not stored as a field.
type Client struct {
	ID        string    `json:"id" firestore:"-"` // Document ID, assigned by the store
	Name      string    `json:"name" firestore:"name"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Field names used by client documents.
const (
	ClientFieldName      = "name"
	ClientFieldCreatedAt = "createdAt"
)
