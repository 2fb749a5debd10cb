package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linkpulse/internal/logging"
	"github.com/linkpulse/internal/metrics"
	"github.com/linkpulse/internal/service"
)

const (
	identityContextKey  = "__identity"
	requestIDContextKey = "__request_id"
	requestIDHeader     = "X-Request-ID"

	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
)

// RequestLogger 为每个请求分配 request id，记录访问日志与 Prometheus 指标。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		event := logging.Info()
		if status >= http.StatusInternalServerError {
			event = logging.Error()
		} else if status >= http.StatusBadRequest {
			event = logging.Warn()
		}
		event.
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", elapsed).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// AuthRequired resolves the caller from a bearer token, falling back to the cookie
// session set by Login. Requests without either are rejected with 401.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.resolveIdentity(c)
		if err != nil {
			respondServiceError(c, err)
			c.Abort()
			return
		}
		c.Set(identityContextKey, identity)
		c.Next()
	}
}

func (a *API) resolveIdentity(c *gin.Context) (service.Identity, error) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return service.Identity{}, service.ErrInvalidToken
		}
		return a.auth.ParseToken(c.Request.Context(), strings.TrimSpace(token))
	}

	session := sessions.Default(c)
	userID, ok := sessionUserID(session.Get(sessionUserIDKey))
	if !ok {
		return service.Identity{}, service.ErrUnauthenticated
	}
	identity, err := a.auth.IdentityFor(c.Request.Context(), userID)
	if err != nil {
		// 会话指向的用户已不存在
		session.Clear()
		_ = session.Save()
		return service.Identity{}, err
	}
	return identity, nil
}

func sessionUserID(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// currentIdentity returns the identity stored by AuthRequired.
func currentIdentity(c *gin.Context) service.Identity {
	if value, exists := c.Get(identityContextKey); exists {
		if identity, ok := value.(service.Identity); ok {
			return identity
		}
	}
	return service.Identity{}
}
