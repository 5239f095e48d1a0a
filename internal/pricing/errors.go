package pricing

import "errors"

var (
	// ErrNotFound means the referenced record id does not exist
	ErrNotFound = errors.New("pricing record not found")
	// ErrDuplicateKey means an active record with the same key already exists
	ErrDuplicateKey = errors.New("pricing record already exists")
	// ErrValidation wraps every input validation failure
	ErrValidation = errors.New("invalid pricing record")
	// ErrPricingUnavailable is what the API reports when resolution finds nothing.
	// Resolve itself returns a nil record, not this error.
	ErrPricingUnavailable = errors.New("pricing not configured")
	// ErrTripTypeMismatch means a fare was asked for a trip type the record does not price
	ErrTripTypeMismatch = errors.New("trip type does not match pricing record")
)
