package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"leadboard-go/internal/core"
	"leadboard-go/internal/db"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty name", core.ErrEmptyClientName, http.StatusBadRequest},
		{"invalid id", fmt.Errorf("client: %w", db.ErrInvalidID), http.StatusBadRequest},
		{"not found", fmt.Errorf("document 'x' not found for deletion: %w", db.ErrNotFound), http.StatusNotFound},
		{"no principal", core.ErrNoPrincipal, http.StatusUnauthorized},
		{"stopped", core.ErrControllerStopped, http.StatusServiceUnavailable},
		{"store failure", fmt.Errorf("add_client failed: %w", core.NewDashboardError(core.ErrKindAddClient, errors.New("x"))), http.StatusBadGateway},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := errorStatus(tc.err)
			if status != tc.want {
				t.Fatalf("status = %d, want %d", status, tc.want)
			}
			if resp.Error == "" {
				t.Fatal("empty error message")
			}
		})
	}
}
