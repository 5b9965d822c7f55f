// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelopes shared by all endpoints and the
// translation from service error kinds to HTTP statuses.
//
// Conventions:
//   - Every error body is an ErrorResponse with a stable `code`. Status is
//     "fail" for client errors (4xx) and "error" for server errors (5xx).
//   - `fail()` centralizes error logging; 5xx responses are logged with the
//     request-scoped logger.
//   - `failErr()` classifies a service error with services.KindOf. Outside
//     production, 5xx bodies also carry the error chain in `detail`.
//
// Example error response:
//
//	HTTP/1.1 403 Forbidden
//	{
//	  "status": "fail",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "forbidden",
//	  "message": "Unauthorized access to user data"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recently-viewed/internal/http/middleware"
	"github.com/tbourn/go-recently-viewed/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// "fail" for 4xx, "error" for 5xx
	Status string `json:"status" example:"fail"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Product not found"`
	// Error chain, only outside production
	Detail string `json:"detail,omitempty"`
}

// MessageResponse is a success envelope without data.
type MessageResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"Cache cleared"`
}

func statusWord(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}

// fail aborts the request with a structured error. Server errors (>=500) are
// logged using the request-scoped logger from middleware.
func fail(c *gin.Context, status int, code, msg string) {
	failWithDetail(c, status, code, msg, "")
}

func failWithDetail(c *gin.Context, status int, code, msg, detail string) {
	resp := ErrorResponse{
		Status:    statusWord(status),
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Detail:    detail,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Str("detail", detail).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), used by the router for fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error onto the HTTP boundary. Client-facing kinds
// map 1:1 onto their status; everything else is a 500.
func (h *Handlers) failErr(c *gin.Context, err error, serverMsg string) {
	switch services.KindOf(err) {
	case services.KindInvalidInput:
		msg := "invalid input"
		if errors.Is(err, services.ErrProductIDRequired) {
			msg = "Product ID is required"
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
		return
	case services.KindUnauthorized:
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	case services.KindForbidden:
		fail(c, http.StatusForbidden, ErrCodeForbidden, "Unauthorized access to user data")
		return
	case services.KindNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Product not found")
		return
	}

	code := ErrCodeInternal
	switch services.KindOf(err) {
	case services.KindTransactionFailed:
		code = ErrCodeTransactionFailed
	case services.KindUpstreamUnavailable:
		code = ErrCodeUpstreamUnavailable
	}
	var detail string
	if h.exposeDetail && err != nil {
		detail = err.Error()
	}
	failWithDetail(c, http.StatusInternalServerError, code, serverMsg, detail)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
