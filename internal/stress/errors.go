package stress

import "errors"

// ErrMismatch is returned when the consumed values differ from the produced ones.
var ErrMismatch = errors.New("stress: consumed values do not match produced values")
