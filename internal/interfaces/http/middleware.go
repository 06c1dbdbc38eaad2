package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

const (
	actorKey        = "actor"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// requestID propagates the caller's X-Request-ID or assigns a new one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog writes one line per request; server errors go to the error level
func accessLog(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if actor := actorFrom(c); actor != nil {
			kv = append(kv, "actor_id", actor.ID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("HTTP request failed", kv...)
			return
		}
		logger.Info("HTTP request", kv...)
	}
}

// authMiddleware verifies the bearer token and loads the caller as an actor
func authMiddleware(tokens TokenVerifier, users service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWithError(c, apperr.Unauthenticated("missing bearer token"))
			return
		}

		userID, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortWithError(c, apperr.Unauthenticated("invalid token"))
			return
		}

		actor, err := users.Authenticate(c.Request.Context(), userID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the authenticated actor, or nil on unauthenticated routes
func actorFrom(c *gin.Context) *role.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(*role.Actor); ok {
			return actor
		}
	}
	return nil
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), errorResponse(err))
}
