// Package auth verifies bearer identity tokens and yields the caller's
// identity. Provider-specific failures are translated into a closed set of
// reasons at this boundary; every such error also matches
// services.ErrUnauthorized.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-recently-viewed/internal/services"
)

// Identity is a verified caller.
type Identity struct {
	UserID string
	Email  string
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

// Reason classifies why a token was rejected.
type Reason int

const (
	ReasonMissing Reason = iota + 1
	ReasonMalformed
	ReasonExpired
	ReasonNotYetValid
	ReasonBadSignature
	ReasonBadIssuer
	ReasonNoSubject
	ReasonUnknown
)

var reasonMessages = map[Reason]string{
	ReasonMissing:      "no authentication token provided",
	ReasonMalformed:    "authentication token is malformed",
	ReasonExpired:      "authentication token has expired",
	ReasonNotYetValid:  "authentication token is not valid yet",
	ReasonBadSignature: "authentication token signature is invalid",
	ReasonBadIssuer:    "authentication token issuer is not trusted",
	ReasonNoSubject:    "authentication token has no subject",
	ReasonUnknown:      "authentication failed",
}

func (r Reason) String() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return reasonMessages[ReasonUnknown]
}

// Error is a rejected token.
type Error struct {
	Reason Reason
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.cause)
	}
	return e.Reason.String()
}

// Is makes every *Error match services.ErrUnauthorized.
func (e *Error) Is(target error) bool { return target == services.ErrUnauthorized }

func (e *Error) Unwrap() error { return e.cause }

func reject(r Reason, cause error) error { return &Error{Reason: r, cause: cause} }

// ReasonOf extracts the rejection reason from err, or 0 when err is not a
// token rejection.
func ReasonOf(err error) Reason {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return 0
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "bearer "
	h := strings.TrimSpace(header)
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", reject(ReasonMissing, nil)
	}
	tok := strings.TrimSpace(h[len(prefix):])
	if tok == "" {
		return "", reject(ReasonMissing, nil)
	}
	return tok, nil
}

// Chain tries each verifier in order and returns the first success. When all
// fail, the last rejection is returned.
type Chain []Verifier

func (c Chain) VerifyToken(ctx context.Context, token string) (Identity, error) {
	err := reject(ReasonUnknown, nil)
	for _, v := range c {
		var id Identity
		if id, err = v.VerifyToken(ctx, token); err == nil {
			return id, nil
		}
	}
	return Identity{}, err
}
