package addressing

import "errors"

// ErrOutOfBounds is returned when a logical coordinate falls outside the
// configured extents.
var ErrOutOfBounds = errors.New("coordinate out of bounds")

// ErrInvalidExtents is returned when an address space is created with a
// non-positive extent, or with more cells than 64-bit addresses can hold.
var ErrInvalidExtents = errors.New("invalid extents")
