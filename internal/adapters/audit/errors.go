package audit

import "errors"

// ErrInvalidLimit is returned for a non-positive query limit.
var ErrInvalidLimit = errors.New("limit must be positive")
