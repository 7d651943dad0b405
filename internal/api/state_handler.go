package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leadboard-go/internal/core"
	"leadboard-go/internal/models"
)

// StateHandler exposes the dashboard as a JSON API and an SSE stream.
type StateHandler struct {
	controller ViewController
	mutations  ClientMutator
	logger     *zap.Logger
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(controller ViewController, mutations ClientMutator, logger *zap.Logger) *StateHandler {
	return &StateHandler{controller: controller, mutations: mutations, logger: logger}
}

// GetState handles GET /api/v1/state
func (h *StateHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, Present(h.controller.State()))
}

// Events handles GET /api/v1/events. It sends the current screen, then one event per change.
func (h *StateHandler) Events(c *gin.Context) {
	states, stop := h.controller.Watch()
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case s, ok := <-states:
			if !ok {
				return false
			}
			c.SSEvent("state", Present(s))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// CreateClient handles POST /api/v1/clients
func (h *StateHandler) CreateClient(c *gin.Context) {
	var req models.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	id, err := h.mutations.AddClient(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedClientResponse{ID: id})
}

// DeleteClient handles DELETE /api/v1/clients/:clientId. Lead deletions may still be
// in flight when it answers.
func (h *StateHandler) DeleteClient(c *gin.Context) {
	if err := h.mutations.DeleteClient(c.Request.Context(), c.Param("clientId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Client deleted; lead cleanup in progress"})
}

// ViewLeads handles POST /api/v1/clients/:clientId/leads
func (h *StateHandler) ViewLeads(c *gin.Context) {
	h.do(c, core.ViewLeads{ClientID: c.Param("clientId")})
}

// Back handles POST /api/v1/back
func (h *StateHandler) Back(c *gin.Context) {
	h.do(c, core.Back{})
}

// Logout handles POST /api/v1/logout
func (h *StateHandler) Logout(c *gin.Context) {
	h.do(c, core.SignOut{})
}

func (h *StateHandler) do(c *gin.Context, ev core.Event) {
	s, err := h.controller.Do(c.Request.Context(), ev)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, Present(s))
}
