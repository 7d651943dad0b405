package models

// CreateClientRequest represents the request body for creating a new client.
// Name is not marked required: an empty name is a silent no-op, not a validation error.
type CreateClientRequest struct {
	Name string `json:"name" form:"clientName"`
}
