// Package hyperarray provides a sparse 3-D array whose cells are multiplexed
// across named dimensions on one physical store.
//
// Each dimension occupies a disjoint slice of the physical address space, so
// the same logical coordinate holds unrelated values in different dimensions.
// A real dimension holds genuine data, decoy dimensions hold plausible false
// data, and trap dimensions raise ErrTrapAccess when touched. Every Get and
// Set, trapped or not, is appended to the access log.
//
// A HyperArray is not safe for concurrent use.
package hyperarray

import (
	"fmt"

	"github.com/rf-peixoto/hyperarray/accesslog"
	"github.com/rf-peixoto/hyperarray/addressing"
	"github.com/rf-peixoto/hyperarray/dimension"
	"github.com/sirupsen/logrus"
)

// A LogicalCell is a populated coordinate of one dimension.
type LogicalCell struct {
	Coord addressing.Coord `json:"coord"`
	Value any              `json:"value"`
}

// HyperArray composes the address space, the dimension registry and the
// access log.
type HyperArray struct {
	space    *addressing.Space
	registry *dimension.Registry
	log      *accesslog.Log
	logger   *logrus.Logger

	trapException          bool
	dumpRespectsTrapPolicy bool
}

type decision int

const (
	allow decision = iota
	deny
)

func (h *HyperArray) policy(role dimension.Role) decision {
	switch role {
	case dimension.RoleTrap:
		if h.trapException {
			return deny
		}

		return allow
	default:
		return allow
	}
}

// Shape returns the logical extents.
func (h *HyperArray) Shape() addressing.Extents {
	return h.space.Extents()
}

// SelectDimension sets the dimension used by Get and Set.
func (h *HyperArray) SelectDimension(name string) error {
	err := h.registry.Select(name)
	if err != nil {
		return err
	}

	h.logger.WithField("dimension", name).Debug("dimension selected")

	return nil
}

// CurrentDimension returns the selected dimension.
func (h *HyperArray) CurrentDimension() (dimension.Dimension, error) {
	return h.registry.Current()
}

// ListDimensions returns all dimensions in declaration order.
func (h *HyperArray) ListDimensions() []dimension.Dimension {
	return h.registry.List()
}

// Role returns the role of the named dimension.
func (h *HyperArray) Role(name string) (dimension.Role, error) {
	d, err := h.registry.Lookup(name)
	if err != nil {
		return "", err
	}

	return d.Role, nil
}

// Set writes value at (x, y, z) in the selected dimension.
func (h *HyperArray) Set(x, y, z int, value any) error {
	dim, addr, err := h.locate(x, y, z)
	if err != nil {
		return err
	}

	coord := addressing.Coord{X: x, Y: y, Z: z}

	if h.policy(dim.Role) == deny {
		h.log.Append(accesslog.OpWrite, dim, coord, addr, true)
		return fmt.Errorf("%w: write in %q at %s", ErrTrapAccess, dim.Name, coord)
	}

	h.space.Write(addr, value)
	h.log.Append(accesslog.OpWrite, dim, coord, addr, false)

	return nil
}

// Get reads (x, y, z) in the selected dimension. Cells that were never
// written read as addressing.Empty.
func (h *HyperArray) Get(x, y, z int) (any, error) {
	dim, addr, err := h.locate(x, y, z)
	if err != nil {
		return nil, err
	}

	coord := addressing.Coord{X: x, Y: y, Z: z}

	if h.policy(dim.Role) == deny {
		h.log.Append(accesslog.OpRead, dim, coord, addr, true)
		return nil, fmt.Errorf("%w: read in %q at %s", ErrTrapAccess, dim.Name, coord)
	}

	value := h.space.Read(addr)
	h.log.Append(accesslog.OpRead, dim, coord, addr, false)

	return value, nil
}

// Exists tells if (x, y, z) has been written in the selected dimension. It is
// not access-logged.
func (h *HyperArray) Exists(x, y, z int) (bool, error) {
	dim, addr, err := h.locate(x, y, z)
	if err != nil {
		return false, err
	}

	if err := h.checkDiagnostic(dim); err != nil {
		return false, err
	}

	return h.space.Contains(addr), nil
}

func (h *HyperArray) locate(x, y, z int) (dimension.Dimension, uint64, error) {
	dim, err := h.registry.Current()
	if err != nil {
		return dimension.Dimension{}, 0, err
	}

	addr, err := h.space.AddressOf(dim.Index, x, y, z)
	if err != nil {
		return dimension.Dimension{}, 0, err
	}

	return dim, addr, nil
}

// checkDiagnostic applies the trap policy to dumps only when configured to.
func (h *HyperArray) checkDiagnostic(dim dimension.Dimension) error {
	if !h.dumpRespectsTrapPolicy {
		return nil
	}

	if h.policy(dim.Role) == deny {
		return fmt.Errorf("%w: dump of %q", ErrTrapAccess, dim.Name)
	}

	return nil
}

// DumpDimension returns every populated cell of the named dimension in
// z-major, then y, then x order. An empty name means the selected dimension.
// Trap policy is bypassed unless the array was built with
// WithDumpRespectsTrapPolicy(true).
func (h *HyperArray) DumpDimension(name string) ([]LogicalCell, error) {
	var (
		dim dimension.Dimension
		err error
	)

	if name == "" {
		dim, err = h.registry.Current()
	} else {
		dim, err = h.registry.Lookup(name)
	}

	if err != nil {
		return nil, err
	}

	if err := h.checkDiagnostic(dim); err != nil {
		return nil, err
	}

	cells := []LogicalCell{}
	h.space.Extents().Each(func(c addressing.Coord) bool {
		// In-bounds by construction of the scan.
		addr, _ := h.space.AddressOf(dim.Index, c.X, c.Y, c.Z)
		if h.space.Contains(addr) {
			cells = append(cells, LogicalCell{Coord: c, Value: h.space.Read(addr)})
		}

		return true
	})

	return cells, nil
}

// DumpStorageRaw returns the whole physical store in ascending address
// order, across all dimensions.
func (h *HyperArray) DumpStorageRaw() []addressing.Cell {
	return h.space.Dump()
}

// StoredCells returns the number of written physical addresses.
func (h *HyperArray) StoredCells() int {
	return h.space.Len()
}

// AccessLog returns all access records in insertion order.
func (h *HyperArray) AccessLog() []accesslog.Record {
	return h.log.Records()
}

// AddRecorder attaches another access sink to the log.
func (h *HyperArray) AddRecorder(r accesslog.Recorder) {
	h.log.AddRecorder(r)
}
