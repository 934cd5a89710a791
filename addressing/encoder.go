package addressing

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// An Encoder turns a dimension index and a logical coordinate into a physical
// address. Implementations must be pure and collision-free over all valid
// inputs.
type Encoder interface {
	Encode(dimIndex int, c Coord) uint64
}

// MixedRadixEncoder lays dimensions out as consecutive slices of the address
// space. Each slice holds Volume() cells, x varying fastest.
type MixedRadixEncoder struct {
	Extents Extents
}

// NewMixedRadixEncoder creates a mixed-radix encoder for the given extents.
func NewMixedRadixEncoder(extents Extents) *MixedRadixEncoder {
	return &MixedRadixEncoder{Extents: extents}
}

// Encode returns ((d*Z + z)*Y + y)*X + x. The result is only collision-free
// when the extents passed Extents.CheckCapacity for the dimension count.
func (e *MixedRadixEncoder) Encode(dimIndex int, c Coord) uint64 {
	x := uint64(e.Extents.X)
	y := uint64(e.Extents.Y)
	z := uint64(e.Extents.Z)

	return ((uint64(dimIndex)*z+uint64(c.Z))*y+uint64(c.Y))*x + uint64(c.X)
}

// KeySize is the length of the keys generated by RandomKey.
const KeySize = 32

const feistelRounds = 4

// KeyedEncoder scrambles the mixed-radix address with a keyed Feistel
// permutation over the 64-bit space. The round function is keyed BLAKE2b.
// Without the key, raw addresses carry no visible link to (dimension, x, y,
// z), yet two distinct inputs never share an address.
type KeyedEncoder struct {
	base *MixedRadixEncoder
	key  []byte
}

// NewKeyedEncoder creates a keyed encoder. The key must be 1 to 64 bytes.
func NewKeyedEncoder(extents Extents, key []byte) (*KeyedEncoder, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("key must be 1 to %d bytes, got %d",
			blake2b.Size, len(key))
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &KeyedEncoder{
		base: NewMixedRadixEncoder(extents),
		key:  k,
	}, nil
}

// RandomKey returns KeySize bytes from crypto/rand.
func RandomKey() ([]byte, error) {
	key := make([]byte, KeySize)

	_, err := rand.Read(key)
	if err != nil {
		return nil, err
	}

	return key, nil
}

// Encode permutes the mixed-radix address.
func (e *KeyedEncoder) Encode(dimIndex int, c Coord) uint64 {
	return e.permute(e.base.Encode(dimIndex, c))
}

func (e *KeyedEncoder) permute(addr uint64) uint64 {
	left := uint32(addr >> 32)
	right := uint32(addr)

	for i := 0; i < feistelRounds; i++ {
		left, right = right, left^e.round(uint32(i), right)
	}

	return uint64(left)<<32 | uint64(right)
}

func (e *KeyedEncoder) round(i, half uint32) uint32 {
	h, err := blake2b.New(8, e.key)
	if err != nil {
		// Key length is checked on construction.
		panic(err)
	}

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], i)
	binary.LittleEndian.PutUint32(buf[4:8], half)
	h.Write(buf[:])

	return binary.LittleEndian.Uint32(h.Sum(nil))
}
