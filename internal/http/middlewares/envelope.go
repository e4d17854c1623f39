package middlewares

import "github.com/gin-gonic/gin"

// errorEnvelope builds the standard error body, carrying the request id when
// one was attached upstream. Middleware denials use the same shape handlers do.
func errorEnvelope(c *gin.Context, code, message string) gin.H {
	inner := gin.H{
		"code":    code,
		"message": message,
	}

	if v, ok := c.Get(CtxRequestID); ok {
		if id, ok := v.(string); ok && id != "" {
			inner["requestId"] = id
		}
	}

	return gin.H{"error": inner}
}
