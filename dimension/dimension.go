// Package dimension keeps the declared dimensions of a hyperarray and the
// dimension that is currently selected.
package dimension

import (
	"errors"
	"fmt"
)

// A Role classifies what a dimension is meant to hold. The set of roles is
// open; labels other than the predefined ones are accepted.
type Role string

// Predefined roles.
const (
	RoleReal  Role = "real"
	RoleDecoy Role = "decoy"
	RoleTrap  Role = "trap"
)

func (r Role) String() string {
	return string(r)
}

// Config declares a dimension.
type Config struct {
	Name string `json:"name" yaml:"name"`
	Role Role   `json:"role" yaml:"role"`
}

// A Dimension is a named, role-tagged view over the shared coordinate space.
// It holds no reference to the storage.
type Dimension struct {
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Index int    `json:"index"`
}

var (
	// ErrUnknownDimension is returned when a name was not registered.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrNoDimensionSelected is returned when no dimension has been selected
	// yet.
	ErrNoDimensionSelected = errors.New("no dimension selected")

	// ErrDuplicateName is returned when two configs share a name.
	ErrDuplicateName = errors.New("duplicate dimension name")

	// ErrNoDimensions is returned when a registry is built from an empty list.
	ErrNoDimensions = errors.New("at least one dimension must be defined")

	// ErrEmptyName is returned for a config without a name.
	ErrEmptyName = errors.New("dimension name must not be empty")
)

// Registry owns the ordered list of dimensions and the selection pointer.
type Registry struct {
	dimensions []Dimension
	byName     map[string]int
	current    int
}

// NewRegistry registers the configs in order. Indices are assigned 0..N-1.
func NewRegistry(configs []Config) (*Registry, error) {
	if len(configs) == 0 {
		return nil, ErrNoDimensions
	}

	r := &Registry{
		dimensions: make([]Dimension, 0, len(configs)),
		byName:     make(map[string]int, len(configs)),
		current:    -1,
	}

	for i, c := range configs {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: config %d", ErrEmptyName, i)
		}

		if _, found := r.byName[c.Name]; found {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, c.Name)
		}

		r.byName[c.Name] = i
		r.dimensions = append(r.dimensions, Dimension{
			Name:  c.Name,
			Role:  c.Role,
			Index: i,
		})
	}

	return r, nil
}

// Select sets the active dimension.
func (r *Registry) Select(name string) error {
	i, found := r.byName[name]
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownDimension, name)
	}

	r.current = i

	return nil
}

// Selected tells if Select has been called successfully.
func (r *Registry) Selected() bool {
	return r.current >= 0
}

// Current returns the active dimension.
func (r *Registry) Current() (Dimension, error) {
	if r.current < 0 {
		return Dimension{}, ErrNoDimensionSelected
	}

	return r.dimensions[r.current], nil
}

// Lookup finds a dimension by name.
func (r *Registry) Lookup(name string) (Dimension, error) {
	i, found := r.byName[name]
	if !found {
		return Dimension{}, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
	}

	return r.dimensions[i], nil
}

// List returns all dimensions in declaration order.
func (r *Registry) List() []Dimension {
	list := make([]Dimension, len(r.dimensions))
	copy(list, r.dimensions)

	return list
}

// Len returns the number of dimensions.
func (r *Registry) Len() int {
	return len(r.dimensions)
}

// HasRole tells if any dimension has the role.
func (r *Registry) HasRole(role Role) bool {
	for _, d := range r.dimensions {
		if d.Role == role {
			return true
		}
	}

	return false
}
