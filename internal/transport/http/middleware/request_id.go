package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mentorchat/internal/logging"
)

const HeaderRequestID = "X-Request-ID"

// RequestID reuses a sane incoming X-Request-ID or generates one, echoes it on
// the response and makes it available to loggers through the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
