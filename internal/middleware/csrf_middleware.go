package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFOptions configures CSRF.
type CSRFOptions struct {
	// Secure marks the cookie Secure and enforces the HTTPS origin checks.
	Secure         bool
	TrustedOrigins []string
}

// CSRF protects form submissions with gorilla/csrf. authKey must be 32 bytes.
// JSON API requests (Content-Type: application/json) are exempted from CSRF.
func CSRF(authKey []byte, opts CSRFOptions) gin.HandlerFunc {
	protect := csrf.Protect(
		authKey,
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.TrustedOrigins(opts.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			msg := "Forbidden - CSRF token invalid"
			if reason := csrf.FailureReason(r); reason != nil {
				msg += ": " + reason.Error()
			}
			http.Error(w, msg, http.StatusForbidden)
		})),
	)

	return func(c *gin.Context) {
		if strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
			c.Next()
			return
		}

		req := c.Request
		if !opts.Secure {
			req = csrf.PlaintextHTTPRequest(req)
		}
		passed := false
		protect(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			// r carries the token for csrf.TemplateField.
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, req)
		if !passed {
			c.Abort()
		}
	}
}
