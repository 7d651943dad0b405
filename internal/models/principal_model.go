package models

// Principal is the signed-in operator as reported by the identity provider.
type Principal struct {
	UID       string `json:"uid"`                 // Stable unique identifier from the identity provider
	Anonymous bool   `json:"anonymous,omitempty"` // True when the session came from an anonymous sign-in
}
