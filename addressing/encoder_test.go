package addressing_test

import (
	"github.com/rf-peixoto/hyperarray/addressing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("KeyedEncoder", func() {
	var (
		extents addressing.Extents
		key     []byte
	)

	BeforeEach(func() {
		extents = addressing.Extents{X: 4, Y: 3, Z: 5}
		key = []byte("0123456789abcdef0123456789abcdef")
	})

	It("should reject empty keys", func() {
		_, err := addressing.NewKeyedEncoder(extents, nil)
		Expect(err).To(HaveOccurred())
	})

	It("should reject keys longer than 64 bytes", func() {
		_, err := addressing.NewKeyedEncoder(extents, make([]byte, 65))
		Expect(err).To(HaveOccurred())
	})

	It("should be deterministic for the same key", func() {
		a, _ := addressing.NewKeyedEncoder(extents, key)
		b, _ := addressing.NewKeyedEncoder(extents, key)
		c := addressing.Coord{X: 1, Y: 2, Z: 3}
		Expect(a.Encode(2, c)).To(Equal(b.Encode(2, c)))
	})

	It("should not alias its key with the caller", func() {
		enc, _ := addressing.NewKeyedEncoder(extents, key)
		c := addressing.Coord{X: 1, Y: 1, Z: 1}
		before := enc.Encode(0, c)
		key[0] ^= 0xff
		Expect(enc.Encode(0, c)).To(Equal(before))
	})

	It("should differ from the plain layout", func() {
		enc, _ := addressing.NewKeyedEncoder(extents, key)
		plain := addressing.NewMixedRadixEncoder(extents)

		differs := 0
		extents.Each(func(c addressing.Coord) bool {
			if enc.Encode(0, c) != plain.Encode(0, c) {
				differs++
			}
			return true
		})
		Expect(differs).To(BeNumerically(">", 0))
	})

	It("should depend on the key", func() {
		a, _ := addressing.NewKeyedEncoder(extents, key)
		b, _ := addressing.NewKeyedEncoder(extents, []byte("another key"))
		c := addressing.Coord{X: 0, Y: 0, Z: 0}
		Expect(a.Encode(0, c)).NotTo(Equal(b.Encode(0, c)))
	})

	It("should be collision free over all valid tuples", func() {
		enc, err := addressing.NewKeyedEncoder(extents, key)
		Expect(err).NotTo(HaveOccurred())

		seen := make(map[uint64]bool)
		for d := 0; d < 4; d++ {
			extents.Each(func(c addressing.Coord) bool {
				addr := enc.Encode(d, c)
				Expect(seen).NotTo(HaveKey(addr))
				seen[addr] = true
				return true
			})
		}
		Expect(seen).To(HaveLen(4 * 60))
	})

	It("should generate random keys of KeySize bytes", func() {
		k1, err := addressing.RandomKey()
		Expect(err).NotTo(HaveOccurred())
		k2, _ := addressing.RandomKey()
		Expect(k1).To(HaveLen(addressing.KeySize))
		Expect(k1).NotTo(Equal(k2))
	})
})
