package anthropic

import (
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

// StatusCode returns the HTTP status of an API error, or 0 when err did not
// come from the API.
func StatusCode(err error) int {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether the API rejected the call for a reason that may
// clear on its own: rate limiting, overload, or a server error.
func IsRetryable(err error) bool {
	switch code := StatusCode(err); {
	case code == 408, code == 409, code == 429:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}
