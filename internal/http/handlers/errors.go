// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics, the domain
// codes name server-side failures the status alone cannot convey.
//
// Example response:
//
//	{
//	  "status": "error",
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "transaction_failed",
//	  "message": "Failed to record product view"
//	}

package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeTransactionFailed   = "transaction_failed"
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeNotReady            = "not_ready"
)
