package httptransport

import (
	"github.com/gin-gonic/gin"

	"liveness-playground/internal/app/session"
	"liveness-playground/internal/domain/liveness"
)

const (
	SessionHeader = "X-Session-Id"
	APIKeyHeader  = "X-Api-Key"

	evaluatorKey = "playground.evaluator"
	sessionKey   = "playground.session"
)

// SessionMiddleware attaches the caller's evaluator to the context and
// echoes the session id, issuing one when the caller has none.
func SessionMiddleware(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, evaluator := manager.Acquire(c.GetHeader(SessionHeader))
		c.Header(SessionHeader, id)
		c.Set(sessionKey, id)
		c.Set(evaluatorKey, evaluator)
		c.Next()
	}
}

// EvaluatorFrom returns the evaluator set by SessionMiddleware.
func EvaluatorFrom(c *gin.Context) (*liveness.Evaluator, bool) {
	v, ok := c.Get(evaluatorKey)
	if !ok {
		return nil, false
	}
	evaluator, ok := v.(*liveness.Evaluator)
	return evaluator, ok
}

// SessionFrom returns the session id set by SessionMiddleware.
func SessionFrom(c *gin.Context) string {
	return c.GetString(sessionKey)
}
