package addressing

import (
	"fmt"
	"math/bits"
)

// A Coord is a logical (x, y, z) position inside a dimension.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Extents is the logical shape (X, Y, Z) shared by every dimension.
type Extents struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

func (e Extents) String() string {
	return fmt.Sprintf("%dx%dx%d", e.X, e.Y, e.Z)
}

// Validate checks that all extents are positive.
func (e Extents) Validate() error {
	if e.X <= 0 || e.Y <= 0 || e.Z <= 0 {
		return fmt.Errorf("%w: non-positive extent in %s", ErrInvalidExtents, e)
	}

	return nil
}

// Contains tells if the coordinate is inside the extents.
func (e Extents) Contains(c Coord) bool {
	return c.X >= 0 && c.X < e.X &&
		c.Y >= 0 && c.Y < e.Y &&
		c.Z >= 0 && c.Z < e.Z
}

// CheckCapacity checks that dims dimensions of this shape fit in the 64-bit
// address space, that is dims*X*Y*Z <= 2^64.
func (e Extents) CheckCapacity(dims int) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if dims <= 0 {
		return fmt.Errorf("%w: %d dimensions", ErrInvalidExtents, dims)
	}

	if !fitsAddressSpace(uint64(dims), uint64(e.Z), uint64(e.Y), uint64(e.X)) {
		return fmt.Errorf("%w: %d dimensions of %s exceed 2^64 addresses",
			ErrInvalidExtents, dims, e)
	}

	return nil
}

// fitsAddressSpace tells if the product of the factors is at most 2^64.
func fitsAddressSpace(factors ...uint64) bool {
	product := uint64(1)
	full := false // product == 2^64

	for _, f := range factors {
		if full {
			if f != 1 {
				return false
			}

			continue
		}

		hi, lo := bits.Mul64(product, f)

		switch {
		case hi == 0:
			product = lo
		case hi == 1 && lo == 0:
			full = true
		default:
			return false
		}
	}

	return true
}

// Volume returns the number of logical cells in one dimension.
func (e Extents) Volume() uint64 {
	return uint64(e.X) * uint64(e.Y) * uint64(e.Z)
}

// Each visits every coordinate in z-major, then y, then x order. It stops
// early if fn returns false.
func (e Extents) Each(fn func(c Coord) bool) {
	for z := 0; z < e.Z; z++ {
		for y := 0; y < e.Y; y++ {
			for x := 0; x < e.X; x++ {
				if !fn(Coord{X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}
