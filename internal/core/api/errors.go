package api

import "errors"

// ErrSourceUnavailable indicates the backing store could not be read.
// The admin server maps it to UNAVAILABLE; anything else maps to INTERNAL.
var ErrSourceUnavailable = errors.New("condition source unavailable")
