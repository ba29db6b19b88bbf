package deposit

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies order-creation failures
type ErrorKind string

const (
	// ErrUnauthenticated means no identity was available for the attempt.
	// Never retried automatically.
	ErrUnauthenticated ErrorKind = "unauthenticated"
	// ErrAuthorizationRejected is a 401 from an order endpoint. It locks
	// the owning provider family until the session is reset.
	ErrAuthorizationRejected ErrorKind = "authorization_rejected"
	// ErrValidationRejected means the backend reported a missing or invalid
	// amount or payment name. Transient; the user may correct and retry.
	ErrValidationRejected ErrorKind = "validation_rejected"
	// ErrMethodUnavailable means the backend reported the method or service
	// unavailable. Transient.
	ErrMethodUnavailable ErrorKind = "method_unavailable"
	// ErrServerFault covers HTTP 500 and unrecognized responses.
	ErrServerFault ErrorKind = "server_fault"
)

// OrderError is a typed order-creation failure
type OrderError struct {
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("deposit: %s: %s", e.Kind, e.Message)
}

// Sticky reports whether this error locks the provider family until reset
func (e *OrderError) Sticky() bool {
	return e.Kind == ErrAuthorizationRejected
}

// ClassifyResponse maps a non-2xx order endpoint response into the error
// taxonomy. The backend reports errors as plain text; known substrings are
// matched case-insensitively.
func ClassifyResponse(status int, body string) *OrderError {
	lower := strings.ToLower(body)

	if status == http.StatusUnauthorized {
		return &OrderError{
			Kind:    ErrAuthorizationRejected,
			Message: "your session is no longer valid, please reload the page",
			Status:  status,
		}
	}

	if strings.Contains(lower, "amount") || strings.Contains(lower, "payment name") || strings.Contains(lower, "paymentname") {
		return &OrderError{
			Kind:    ErrValidationRejected,
			Message: "the payment request was rejected, check the amount and try again",
			Status:  status,
		}
	}

	if status == http.StatusServiceUnavailable || strings.Contains(lower, "unavailable") {
		return &OrderError{
			Kind:    ErrMethodUnavailable,
			Message: "this payment method is temporarily unavailable, try again later",
			Status:  status,
		}
	}

	return &OrderError{
		Kind:    ErrServerFault,
		Message: "something went wrong, please contact support",
		Status:  status,
	}
}
