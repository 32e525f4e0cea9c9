package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Eotel/live-graphic-recorder/internal/auth"
)

const (
	contextKeyUserID    = "userID"
	contextKeyRequestID = "requestID"
)

// RequestLogger tags every request with an id and logs method, path,
// status and latency once the handler chain finishes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set(contextKeyRequestID, requestID)
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()

		slog.Info("http request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// AuthRequired resolves the caller's identity and aborts with 401 when the
// request carries no valid credential.
func AuthRequired(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolver.Resolve(c.Request)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthorized) {
				slog.Error("failed to resolve request identity", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}

func userIDFrom(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}
