package hyperarray

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/rf-peixoto/hyperarray/dimension"
	"gopkg.in/yaml.v3"
)

// Layout is the file form of a hyperarray configuration.
//
//	shape: {x: 4, y: 4, z: 4}
//	dimensions:
//	  - {name: real, role: real}
//	  - {name: decoy, role: decoy}
//	  - {name: trap, role: trap}
//	trap_exception: true
//	dump_respects_trap_policy: false
//	key: random            # or hex bytes, or empty for the plain layout
type Layout struct {
	Shape                  Shape              `yaml:"shape"`
	Dimensions             []dimension.Config `yaml:"dimensions"`
	TrapException          *bool              `yaml:"trap_exception,omitempty"`
	DumpRespectsTrapPolicy bool               `yaml:"dump_respects_trap_policy,omitempty"`
	Key                    string             `yaml:"key,omitempty"`
}

// Shape is the logical extents of a layout.
type Shape struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// RandomKeyLiteral requests a random key in a layout file.
const RandomKeyLiteral = "random"

// DefaultLayout returns a 4x4x4 layout with a real, a decoy and a trap
// dimension.
func DefaultLayout() Layout {
	return Layout{
		Shape: Shape{X: 4, Y: 4, Z: 4},
		Dimensions: []dimension.Config{
			{Name: "real", Role: dimension.RoleReal},
			{Name: "decoy", Role: dimension.RoleDecoy},
			{Name: "trap", Role: dimension.RoleTrap},
		},
	}
}

// LoadLayout reads a YAML layout file.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("error reading layout %s: %w", path, err)
	}

	return ParseLayout(data)
}

// ParseLayout decodes a YAML layout.
func ParseLayout(data []byte) (Layout, error) {
	var l Layout

	err := yaml.Unmarshal(data, &l)
	if err != nil {
		return Layout{}, fmt.Errorf("error parsing layout: %w", err)
	}

	return l, nil
}

// Marshal encodes the layout as YAML.
func (l Layout) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

// Builder turns the layout into a Builder. Loggers and recorders can still
// be added to the result.
func (l Layout) Builder() (Builder, error) {
	b := MakeBuilder().
		WithExtents(l.Shape.X, l.Shape.Y, l.Shape.Z).
		WithDimensions(l.Dimensions...).
		WithDumpRespectsTrapPolicy(l.DumpRespectsTrapPolicy)

	if l.TrapException != nil {
		b = b.WithTrapException(*l.TrapException)
	}

	switch l.Key {
	case "":
	case RandomKeyLiteral:
		b = b.WithRandomKey()
	default:
		key, err := hex.DecodeString(l.Key)
		if err != nil {
			return Builder{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}

		b = b.WithKey(key)
	}

	return b, nil
}
