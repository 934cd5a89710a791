package hyperarray

import (
	"fmt"

	"github.com/rf-peixoto/hyperarray/accesslog"
	"github.com/rf-peixoto/hyperarray/addressing"
	"github.com/rf-peixoto/hyperarray/dimension"
	"github.com/sirupsen/logrus"
)

// A Builder can create hyperarrays.
type Builder struct {
	extents                addressing.Extents
	dimensions             []dimension.Config
	trapException          bool
	dumpRespectsTrapPolicy bool
	key                    []byte
	randomKey              bool
	logger                 *logrus.Logger
	recorders              []accesslog.Recorder
}

// MakeBuilder creates a new builder with trap exceptions enabled.
func MakeBuilder() Builder {
	return Builder{
		trapException: true,
	}
}

// WithExtents sets the logical shape shared by all dimensions.
func (b Builder) WithExtents(x, y, z int) Builder {
	b.extents = addressing.Extents{X: x, Y: y, Z: z}
	return b
}

// WithDimensions sets the dimensions, in declaration order.
func (b Builder) WithDimensions(configs ...dimension.Config) Builder {
	b.dimensions = append([]dimension.Config(nil), configs...)
	return b
}

// WithTrapException sets whether accessing a trap dimension fails with
// ErrTrapAccess. When disabled, trap dimensions behave like any other.
func (b Builder) WithTrapException(enabled bool) Builder {
	b.trapException = enabled
	return b
}

// WithDumpRespectsTrapPolicy sets whether DumpDimension and Exists apply the
// trap policy. By default they bypass it.
func (b Builder) WithDumpRespectsTrapPolicy(enabled bool) Builder {
	b.dumpRespectsTrapPolicy = enabled
	return b
}

// WithKey makes the hyperarray scramble physical addresses with the key.
func (b Builder) WithKey(key []byte) Builder {
	b.key = append([]byte(nil), key...)
	b.randomKey = false
	return b
}

// WithRandomKey makes the hyperarray scramble physical addresses with a
// freshly generated key.
func (b Builder) WithRandomKey() Builder {
	b.key = nil
	b.randomKey = true
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// WithRecorders adds sinks that receive every access record.
func (b Builder) WithRecorders(recorders ...accesslog.Recorder) Builder {
	b.recorders = append(
		append([]accesslog.Recorder(nil), b.recorders...),
		recorders...)
	return b
}

// Build creates the hyperarray. No dimension is selected afterwards.
func (b Builder) Build() (*HyperArray, error) {
	registry, err := dimension.NewRegistry(b.dimensions)
	if err != nil {
		return nil, err
	}

	if !registry.HasRole(dimension.RoleReal) {
		return nil, ErrNoRealDimension
	}

	encoder, keyed, err := b.buildEncoder()
	if err != nil {
		return nil, err
	}

	space, err := addressing.NewSpace(b.extents, registry.Len(), encoder)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.New()
	}

	ha := &HyperArray{
		space:                  space,
		registry:               registry,
		log:                    accesslog.NewLog(b.recorders...),
		trapException:          b.trapException,
		dumpRespectsTrapPolicy: b.dumpRespectsTrapPolicy,
		logger:                 logger,
	}

	logger.WithFields(logrus.Fields{
		"shape":          b.extents.String(),
		"dimensions":     registry.Len(),
		"keyed":          keyed,
		"trap_exception": b.trapException,
	}).Debug("hyperarray created")

	return ha, nil
}

func (b Builder) buildEncoder() (addressing.Encoder, bool, error) {
	key := b.key

	if b.randomKey {
		var err error

		key, err = addressing.RandomKey()
		if err != nil {
			return nil, false, err
		}
	}

	if key == nil {
		return nil, false, nil
	}

	encoder, err := addressing.NewKeyedEncoder(b.extents, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return encoder, true, nil
}
