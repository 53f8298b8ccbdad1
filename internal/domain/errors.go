package domain

import (
	"errors"
	"fmt"
)

// Error categories shared by the API client, the chat controller and the dev server
var (
	// ErrValidation rejected locally, nothing was sent
	ErrValidation = errors.New("validation error")
	// ErrNetworkFailure request could not be sent or the response never arrived
	ErrNetworkFailure = errors.New("network failure")
	// ErrServerRejected server answered with a non-2xx status
	ErrServerRejected = errors.New("server rejected request")
	// ErrMalformedResponse success status but the payload could not be used
	ErrMalformedResponse = errors.New("malformed response")
	// ErrAuthExpired bearer token refused (401)
	ErrAuthExpired = errors.New("authentication expired")
)

// Validation failures with a fixed meaning
var (
	// ErrSendInFlight another message is still being answered
	ErrSendInFlight = NewValidationError("a message is already being sent")
	// ErrInsufficientCredits credit balance is zero
	ErrInsufficientCredits = NewValidationError("not enough credits")
	// ErrNotLoggedIn no usable session
	ErrNotLoggedIn = &DomainError{
		Code:    "AUTH_EXPIRED",
		Message: "not logged in",
		Err:     ErrAuthExpired,
	}
)

// DomainError carries one category of the taxonomy plus diagnostic detail
type DomainError struct {
	Code    string
	Message string
	// Status and Body are set for errors produced from an HTTP response
	Status int
	Body   string
	Err    error
}

// Error implements the error interface (diagnostic form, includes status and body)
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil && !isSentinel(e.Err) {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

// UserMessage returns the user-facing message without internal detail
func (e *DomainError) UserMessage() string {
	return e.Message
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

func isSentinel(err error) bool {
	switch err {
	case ErrValidation, ErrNetworkFailure, ErrServerRejected, ErrMalformedResponse, ErrAuthExpired,
		ErrNotFound, ErrAlreadyExists, ErrPaymentRequired, ErrForbidden, ErrUpstream:
		return true
	}
	return false
}

// NewValidationError creates a local validation error
func NewValidationError(message string) error {
	return &DomainError{
		Code:    "VALIDATION",
		Message: message,
		Err:     ErrValidation,
	}
}

// NewNetworkError wraps a transport failure
func NewNetworkError(err error) error {
	return &DomainError{
		Code:    "NETWORK_FAILURE",
		Message: "request could not be completed",
		Err:     fmt.Errorf("%w: %w", ErrNetworkFailure, err),
	}
}

// NewServerRejectedError records a non-2xx status together with the body.
// detail is the server's own explanation, when it sent one.
func NewServerRejectedError(status int, body, detail string) error {
	msg := detail
	if msg == "" {
		msg = "server rejected the request"
	}
	return &DomainError{
		Code:    "SERVER_REJECTED",
		Message: msg,
		Status:  status,
		Body:    body,
		Err:     ErrServerRejected,
	}
}

// NewMalformedResponseError reports an unusable success payload
func NewMalformedResponseError(message string) error {
	return &DomainError{
		Code:    "MALFORMED_RESPONSE",
		Message: message,
		Err:     ErrMalformedResponse,
	}
}

// NewAuthExpiredError reports a 401
func NewAuthExpiredError(body string) error {
	return &DomainError{
		Code:    "AUTH_EXPIRED",
		Message: "session expired, please log in again",
		Status:  401,
		Body:    body,
		Err:     ErrAuthExpired,
	}
}

// IsValidation reports whether err is a local validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNetworkFailure reports whether err is a transport failure
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}

// IsServerRejected reports whether err is a non-2xx response
func IsServerRejected(err error) bool {
	return errors.Is(err, ErrServerRejected)
}

// IsMalformedResponse reports whether err is an unusable payload
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsAuthExpired reports whether err means the session is no longer valid
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Status
	}
	return 0
}

// Kind returns the taxonomy code of err for diagnostics
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return "VALIDATION"
	case IsAuthExpired(err):
		return "AUTH_EXPIRED"
	case IsNetworkFailure(err):
		return "NETWORK_FAILURE"
	case IsServerRejected(err):
		return "SERVER_REJECTED"
	case IsMalformedResponse(err):
		return "MALFORMED_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Errors raised by the dev server's backend
var (
	// ErrForbidden caller may not touch another user's data
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound resource does not exist
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists resource already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrPaymentRequired account has no credits left
	ErrPaymentRequired = errors.New("insufficient credits")
	// ErrUpstream the responder failed to produce a reply
	ErrUpstream = errors.New("upstream failure")
)

// NewNotFoundError creates a not-found error
func NewNotFoundError(resourceType, name string) error {
	return &DomainError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s '%s' not found", resourceType, name),
		Err:     ErrNotFound,
	}
}

// NewAlreadyExistsError creates an already-exists error
func NewAlreadyExistsError(resourceType, name string) error {
	return &DomainError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s '%s' already exists", resourceType, name),
		Err:     ErrAlreadyExists,
	}
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is an already-exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// NewUnauthorizedError rejects credentials or a bearer token with a caller-visible reason
func NewUnauthorizedError(message string) error {
	return &DomainError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Err:     ErrAuthExpired,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &DomainError{
		Code:    "FORBIDDEN",
		Message: message,
		Err:     ErrForbidden,
	}
}

// NewPaymentRequiredError reports an empty credit balance
func NewPaymentRequiredError() error {
	return &DomainError{
		Code:    "PAYMENT_REQUIRED",
		Message: "Insufficient credits",
		Err:     ErrPaymentRequired,
	}
}

// IsForbidden reports whether err is a forbidden error
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsPaymentRequired reports whether err means the balance is exhausted
func IsPaymentRequired(err error) bool {
	return errors.Is(err, ErrPaymentRequired)
}

// NewDuplicateError reports a uniqueness conflict with a caller-visible message
func NewDuplicateError(message string) error {
	return &DomainError{
		Code:    "ALREADY_EXISTS",
		Message: message,
		Err:     ErrAlreadyExists,
	}
}

// NewUpstreamError reports a failed reply
func NewUpstreamError(err error) error {
	return &DomainError{
		Code:    "UPSTREAM",
		Message: fmt.Sprintf("Failed to generate AI response: %v", err),
		Err:     fmt.Errorf("%w: %w", ErrUpstream, err),
	}
}

// IsUpstream reports whether err is a failed reply
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}
