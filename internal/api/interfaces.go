package api

import (
	"context"

	"leadboard-go/internal/core"
)

// ViewController is the part of core.Controller the handlers drive.
type ViewController interface {
	State() core.State
	Do(ctx context.Context, ev core.Event) (core.State, error)
	Watch() (<-chan core.State, func())
}

// ClientMutator is the part of core.MutationService the handlers drive.
type ClientMutator interface {
	AddClient(ctx context.Context, name string) (string, error)
	DeleteClient(ctx context.Context, clientID string) error
}

// Dashboard is the controller as seen by the router: screens plus the session guard.
type Dashboard interface {
	ViewController
	core.PrincipalSource
}
