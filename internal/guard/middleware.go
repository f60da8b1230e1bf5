package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medrex/clinic-portal/pkg/types"
)

// ResultKey is the gin context key holding the guard Result
const ResultKey = "guard_result"

// RequireAccess rejects requests the current session may not make.
// Unauthenticated callers get 401, denied callers get 403; both bodies
// carry the redirect target.
func (g *Guard) RequireAccess(req Requirement, policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := g.Check(c.Request.Context(), req, policy)
		c.Set(ResultKey, result)

		if result.Allowed() {
			c.Next()
			return
		}

		status := http.StatusForbidden
		code := types.ErrCodeForbidden
		if result.Reason == ReasonUnauthenticated {
			status = http.StatusUnauthorized
			code = types.ErrCodeUnauthorized
		}

		c.AbortWithStatusJSON(status, gin.H{
			"error":    code,
			"message":  "Access denied",
			"decision": result.Decision,
			"reason":   result.Reason,
			"redirect": result.Target,
		})
	}
}
