package resilience

import (
	"errors"
	"net"

	"github.com/open-collect/numisync/pkg/numista"
)

// IsTransient reports whether an error is safe to retry. Throttling,
// server-side failures, and network errors pass; everything the caller
// can't fix by waiting (bad key, missing type, spent quota) does not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, numista.ErrRateLimited) {
		return true
	}
	// Quota exhaustion looks like throttling but waiting won't help
	// until next month.
	if errors.Is(err, numista.ErrQuotaExceeded) {
		return false
	}

	var svcErr *numista.ServiceError
	if errors.As(err, &svcErr) {
		return isTransientStatus(svcErr.Status)
	}

	var netErr *numista.NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	// Timeouts surfacing outside the client's own wrapping.
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	return false
}

func isTransientStatus(status int) bool {
	switch status {
	case 408, // Request Timeout
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
