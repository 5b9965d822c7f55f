// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Request correlation, access logging and panic recovery live here. The
// request-scoped zerolog.Logger is stored both on the Gin context and on the
// request's context.Context, so services logging through log.Ctx(ctx) carry
// the same request_id as the access line.
//
// Recommended order: RequestID, Logger (or RedactingLogger), Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	loggerKey       = "logger"
	requestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds client-supplied correlation IDs.
	maxRequestIDLength = 128
	// maxQueryLogLength caps the raw query bytes copied into a log line.
	maxQueryLogLength = 2048
)

// RequestID reuses a well-formed incoming X-Request-ID or mints a UUIDv4.
// The ID is echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// validRequestID accepts IDs made of URL-safe characters only, so a client
// cannot smuggle quotes or control bytes into logs and response headers.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '_', b == '.', b == ':':
		default:
			return false
		}
	}
	return true
}

// RequestIDFrom returns the correlation ID stored by RequestID, if any.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger writes one access line per request. The level follows the outcome
// (see emitAccess). user_id is read after the chain ran, so it is filled in
// whenever Authenticate accepted the caller.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := requestLogger(c, routeOrPath(c, nil), truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		attachLogger(c, &l)

		c.Next()

		ev := l.With().
			Str("user_id", c.GetString("userID")).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()
		emitAccess(c, &ev)
	}
}

// routeOrPath returns the matched route template, or the raw URL path passed
// through scrub when nothing matched.
func routeOrPath(c *gin.Context, scrub func(string) string) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	if scrub != nil {
		return scrub(c.Request.URL.Path)
	}
	return c.Request.URL.Path
}

func requestLogger(c *gin.Context, path, query string) zerolog.Logger {
	return log.With().
		Str("request_id", RequestIDFrom(c)).
		Str("method", c.Request.Method).
		Str("path", path).
		Str("remote_ip", c.ClientIP()).
		Str("user_agent", c.Request.UserAgent()).
		Str("query", query).
		Int64("bytes_in", c.Request.ContentLength). // -1 when unknown
		Logger()
}

// attachLogger makes l reachable from both LoggerFrom(c) and log.Ctx(ctx).
func attachLogger(c *gin.Context, l *zerolog.Logger) {
	c.Set(loggerKey, l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// emitAccess logs at error for 5xx or recorded Gin errors, warn for 4xx and
// info otherwise.
func emitAccess(c *gin.Context, l *zerolog.Logger) {
	var ev *zerolog.Event
	switch status := c.Writer.Status(); {
	case len(c.Errors) > 0:
		ev = l.Error().Str("errors", c.Errors.String())
	case status >= http.StatusInternalServerError:
		ev = l.Error()
	case status >= http.StatusBadRequest:
		ev = l.Warn()
	default:
		ev = l.Info()
	}
	ev.Msg("request")
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// none was attached.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if lg, ok := c.Value(loggerKey).(*zerolog.Logger); ok {
		return lg
	}
	l := log.With().Logger()
	return &l
}

// abortWith stops the chain with the standard error envelope. Statuses below
// 500 are reported as "fail", the rest as "error".
func abortWith(c *gin.Context, status int, code, message string) {
	envelope := "fail"
	if status >= http.StatusInternalServerError {
		envelope = "error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"status":     envelope,
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    message,
	})
}

// Recovery converts panics into a logged stack trace and a JSON 500. When the
// response has already started only the status is set.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			abortWith(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		c.Next()
	}
}

// truncate caps s at max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
