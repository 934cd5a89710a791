package hyperarray

import (
	"errors"

	"github.com/rf-peixoto/hyperarray/addressing"
	"github.com/rf-peixoto/hyperarray/dimension"
)

var (
	// ErrTrapAccess is returned when a trap dimension is accessed while trap
	// exceptions are enabled.
	ErrTrapAccess = errors.New("trap dimension accessed")

	// ErrNoRealDimension is returned when no dimension has the real role.
	ErrNoRealDimension = errors.New("at least one dimension must have role real")

	// ErrInvalidKey is returned for an unusable encoder key.
	ErrInvalidKey = errors.New("invalid address key")
)

// Errors of the underlying components, re-exported for callers of this
// package.
var (
	ErrOutOfBounds         = addressing.ErrOutOfBounds
	ErrInvalidExtents      = addressing.ErrInvalidExtents
	ErrUnknownDimension    = dimension.ErrUnknownDimension
	ErrNoDimensionSelected = dimension.ErrNoDimensionSelected
	ErrDuplicateName       = dimension.ErrDuplicateName
)
