package numista

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the well-known catalog failure modes. Wrapped
// errors preserve these for errors.Is checks at the call site.
var (
	// ErrUnauthorized means the service rejected the API key (HTTP 401).
	ErrUnauthorized = eris.New("numista: unauthorized")
	// ErrRateLimited means the service throttled the request (HTTP 429).
	ErrRateLimited = eris.New("numista: rate limited")
	// ErrNotFound means the requested type, issue, or issuer does not
	// exist (HTTP 404).
	ErrNotFound = eris.New("numista: not found")
	// ErrQuotaExceeded means the configured monthly request quota is
	// spent; no request was sent. Cached reads still succeed.
	ErrQuotaExceeded = eris.New("numista: monthly request quota exceeded")
)

// ServiceError is any other non-2xx response from the catalog service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("numista: service error %d: %s", e.Status, e.Message)
}

// NetworkError means no response was received: DNS failure, connection
// refused, or the request timeout elapsed.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("numista: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ClientError means the request could not be constructed or sent at all.
type ClientError struct {
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("numista: client error: %v", e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }
