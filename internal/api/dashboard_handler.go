package api

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"leadboard-go/internal/core"
	"leadboard-go/internal/db"
	"leadboard-go/internal/models"
)

// DashboardHandler serves the server-rendered screens and their form actions.
// Every action redirects back to the page, which renders whatever state results.
type DashboardHandler struct {
	controller ViewController
	mutations  ClientMutator
	logger     *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(controller ViewController, mutations ClientMutator, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{controller: controller, mutations: mutations, logger: logger}
}

type pageData struct {
	Screen    Screen
	CSRFField template.HTML
}

// Page handles GET /
func (h *DashboardHandler) Page(c *gin.Context) {
	c.HTML(http.StatusOK, "page", pageData{
		Screen:    Present(h.controller.State()),
		CSRFField: csrf.TemplateField(c.Request),
	})
}

// AddClient handles POST /clients
func (h *DashboardHandler) AddClient(c *gin.Context) {
	var req models.CreateClientRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid form body", Details: err.Error()})
		return
	}
	_, err := h.mutations.AddClient(c.Request.Context(), req.Name)
	h.finish(c, err)
}

// DeleteClient handles POST /clients/:clientId/delete
func (h *DashboardHandler) DeleteClient(c *gin.Context) {
	err := h.mutations.DeleteClient(c.Request.Context(), c.Param("clientId"))
	h.finish(c, err)
}

// ViewLeads handles POST /clients/:clientId/leads
func (h *DashboardHandler) ViewLeads(c *gin.Context) {
	_, err := h.controller.Do(c.Request.Context(), core.ViewLeads{ClientID: c.Param("clientId")})
	h.finish(c, err)
}

// Back handles POST /back
func (h *DashboardHandler) Back(c *gin.Context) {
	_, err := h.controller.Do(c.Request.Context(), core.Back{})
	h.finish(c, err)
}

// Logout handles POST /logout
func (h *DashboardHandler) Logout(c *gin.Context) {
	_, err := h.controller.Do(c.Request.Context(), core.SignOut{})
	h.finish(c, err)
}

// finish redirects to the page unless err is something the page cannot show.
// Rejected input and a missing session leave the page as it is, and failures
// already sit in the error slot.
func (h *DashboardHandler) finish(c *gin.Context, err error) {
	if err != nil && !pageHandles(err) {
		respondError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func pageHandles(err error) bool {
	var dashErr *core.DashboardError
	switch {
	case errors.Is(err, core.ErrEmptyClientName),
		errors.Is(err, core.ErrNoPrincipal),
		errors.Is(err, db.ErrInvalidID),
		errors.As(err, &dashErr):
		return true
	}
	return false
}
