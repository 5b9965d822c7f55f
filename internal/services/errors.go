// Package services defines the business logic for view recording, recency
// reads, the top-viewed ranking and the product catalog. This file
// centralizes the closed set of service-level error kinds so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Provider errors (GORM, sqlite, JWT) are translated into
// these values at the boundary where they occur.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Kind is the closed enumeration of failure categories.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindTransactionFailed
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindTransactionFailed:
		return "transaction_failed"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

var (
	// ErrInvalidInput is returned when a required field is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProductIDRequired is returned when a view is recorded without a
	// product ID.
	ErrProductIDRequired = fmt.Errorf("%w: productId is required", ErrInvalidInput)

	// ErrUnauthorized indicates a missing or invalid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an authenticated caller acts on another
	// user's data.
	ErrForbidden = errors.New("forbidden")

	// ErrProductNotFound indicates that the referenced product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrTransactionFailed indicates a durable-store write conflict or
	// constraint violation. The whole operation may be retried.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrUpstreamUnavailable indicates the durable store could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// KindOf classifies err. Unknown errors, including nil, map to KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrProductNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransactionFailed):
		return KindTransactionFailed
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	default:
		return KindInternal
	}
}

// translateStoreError maps GORM and sqlite failures onto the
// closed taxonomy. The original error stays in the chain for logging.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrProductNotFound, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.Join(ErrProductNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return errors.Join(ErrTransactionFailed, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "foreign key constraint"):
		return errors.Join(ErrProductNotFound, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "busy"),
		strings.Contains(msg, "constraint failed"):
		return errors.Join(ErrTransactionFailed, err)
	case strings.Contains(msg, "unable to open"),
		strings.Contains(msg, "sql: database is closed"),
		strings.Contains(msg, "disk i/o"):
		return errors.Join(ErrUpstreamUnavailable, err)
	}
	return errors.Join(ErrTransactionFailed, err)
}
