package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leadboard-go/internal/core"
	"leadboard-go/internal/db"
)

// errorStatus maps errors from the core and db packages to an HTTP status and ErrorResponse.
func errorStatus(err error) (int, ErrorResponse) {
	var dashErr *core.DashboardError
	switch {
	case errors.Is(err, core.ErrEmptyClientName):
		return http.StatusBadRequest, ErrorResponse{Error: core.ErrEmptyClientName.Error()}
	case errors.Is(err, db.ErrInvalidID):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid identifier", Details: err.Error()}
	case errors.Is(err, core.ErrNoPrincipal):
		return http.StatusUnauthorized, ErrorResponse{Error: core.ErrNoPrincipal.Error()}
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found", Details: err.Error()}
	case errors.Is(err, core.ErrControllerStopped):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "dashboard is shutting down"}
	case errors.As(err, &dashErr):
		return http.StatusBadGateway, ErrorResponse{Error: dashErr.Message(), Details: dashErr.Kind.String()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, resp := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, resp)
}
