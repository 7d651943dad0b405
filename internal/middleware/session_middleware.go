package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadboard-go/internal/core"
)

// ContextPrincipalID is the gin context key holding the signed-in operator's UID.
const ContextPrincipalID = "principalID"

// ErrorResponse is a local definition for sending standardized error messages.
// It mirrors the one in internal/api/dto_models.go to avoid import cycles.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RequireSession aborts with 401 unless the dashboard has a signed-in operator.
// The dashboard holds one session for the whole process, so there is no per-request token.
func RequireSession(principals core.PrincipalSource) gin.HandlerFunc {
	if principals == nil {
		panic("RequireSession requires a non-nil principal source")
	}
	return func(c *gin.Context) {
		principal := principals.CurrentPrincipal()
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "No operator is signed in"})
			return
		}
		c.Set(ContextPrincipalID, principal.UID)
		c.Next()
	}
}
