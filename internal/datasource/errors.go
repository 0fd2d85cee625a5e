package datasource

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError describes a non-success HTTP response from the Overpass
// endpoint. The status code drives the retry policy: 429 and 504 are
// transient, everything else is final.
type ProviderError struct {
	StatusCode int
	Status     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("overpass request failed: %s", e.Status)
}

// Retryable reports whether another attempt could succeed.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusGatewayTimeout
}

// Throttled reports whether the provider asked us to slow down.
func (e *ProviderError) Throttled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// AsProviderError unwraps err into a ProviderError if one is in the chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
