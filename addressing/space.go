// Package addressing translates logical coordinates into physical addresses
// and owns the sparse physical store behind them.
package addressing

import (
	"fmt"
	"sort"
)

type emptyValue struct{}

func (emptyValue) String() string { return "<empty>" }

// Empty is returned by reads of addresses that were never written.
var Empty any = emptyValue{}

// IsEmpty tells if v is the Empty sentinel.
func IsEmpty(v any) bool {
	_, ok := v.(emptyValue)
	return ok
}

// A Cell is one written physical address and its value.
type Cell struct {
	Address uint64 `json:"address"`
	Value   any    `json:"value"`
}

// A Space keeps the physical data of all dimensions.
//
// Only addresses touched by Write are stored; nothing is allocated for the
// rest of the address space.
type Space struct {
	extents Extents
	dims    int
	encoder Encoder
	data    map[uint64]any
}

// NewSpace creates an address space holding dims dimensions of the given
// logical extents. If encoder is nil, a MixedRadixEncoder is used.
func NewSpace(extents Extents, dims int, encoder Encoder) (*Space, error) {
	if err := extents.CheckCapacity(dims); err != nil {
		return nil, err
	}

	if encoder == nil {
		encoder = NewMixedRadixEncoder(extents)
	}

	s := &Space{
		extents: extents,
		dims:    dims,
		encoder: encoder,
		data:    make(map[uint64]any),
	}

	return s, nil
}

// Extents returns the logical shape of the space.
func (s *Space) Extents() Extents {
	return s.extents
}

// AddressOf returns the physical address of (x, y, z) in the dimension with
// the given index.
func (s *Space) AddressOf(dimIndex int, x, y, z int) (uint64, error) {
	c := Coord{X: x, Y: y, Z: z}

	if dimIndex < 0 || dimIndex >= s.dims {
		return 0, fmt.Errorf("%w: dimension index %d", ErrOutOfBounds, dimIndex)
	}

	if !s.extents.Contains(c) {
		return 0, fmt.Errorf("%w: index %s for shape %s",
			ErrOutOfBounds, c, s.extents)
	}

	return s.encoder.Encode(dimIndex, c), nil
}

// Write inserts or overwrites the value at the address.
func (s *Space) Write(address uint64, value any) {
	s.data[address] = value
}

// Read returns the value at the address, or Empty.
func (s *Space) Read(address uint64) any {
	v, ok := s.data[address]
	if !ok {
		return Empty
	}

	return v
}

// Contains tells if the address has been written.
func (s *Space) Contains(address uint64) bool {
	_, ok := s.data[address]
	return ok
}

// Len returns the number of written addresses.
func (s *Space) Len() int {
	return len(s.data)
}

// Dump returns all written cells in ascending address order.
func (s *Space) Dump() []Cell {
	cells := make([]Cell, 0, len(s.data))
	for addr, v := range s.data {
		cells = append(cells, Cell{Address: addr, Value: v})
	}

	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Address < cells[j].Address
	})

	return cells
}
