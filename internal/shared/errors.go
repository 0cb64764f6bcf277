package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrDecodeResponse = fmt.Errorf("failed to decode response")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFormat   = fmt.Errorf("%w: invalid format", ErrInvalidInput)
	ErrInvalidFlag     = fmt.Errorf("%w: invalid flag value", ErrInvalidInput)
	ErrMissingToken    = fmt.Errorf("%w: token required", ErrInvalidInput)
)
