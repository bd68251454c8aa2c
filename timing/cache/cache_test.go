package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/config"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		// Small cache for testing: 4KB, 4-way, 64B lines, 16 sets
		c = cache.New(cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		})
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			result := c.Read(0x1000)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on a second access", func() {
			c.Read(0x1000)

			result := c.Read(0x1000)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(c.Stats().HitRate()).To(BeNumerically("~", 0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			c.Read(0x1000)

			Expect(c.Read(0x1004).Hit).To(BeTrue())
			Expect(c.Read(0x103F).Hit).To(BeTrue())
			Expect(c.Read(0x1040).Hit).To(BeFalse())
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			Expect(c.Write(0x2000).Hit).To(BeFalse())
			Expect(c.Probe(0x2000)).To(BeTrue())
			Expect(c.Read(0x2000).Hit).To(BeTrue())
		})
	})

	Describe("Eviction", func() {
		It("should evict the least recently used block", func() {
			c.Write(0x0000)
			c.Write(0x0400)
			c.Write(0x0800)
			c.Write(0x0C00)

			// Touch the last three so 0x0000 becomes the LRU block.
			c.Read(0x0400)
			c.Read(0x0800)
			c.Read(0x0C00)

			result := c.Read(0x1000)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint32(0)))
			Expect(result.Writeback).To(BeTrue())

			stats := c.Stats()
			Expect(stats.Evictions).To(Equal(uint64(1)))
			Expect(stats.Writebacks).To(Equal(uint64(1)))
			Expect(c.Probe(0x0000)).To(BeFalse())
		})

		It("should not write back clean blocks", func() {
			for _, addr := range []uint32{0x0000, 0x0400, 0x0800, 0x0C00, 0x1000} {
				c.Read(addr)
			}

			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
			Expect(c.Stats().Writebacks).To(BeZero())
		})
	})

	Describe("Invalidation", func() {
		It("should invalidate single lines and reset everything", func() {
			c.Read(0x0000)
			c.Read(0x0040)
			Expect(c.ValidLines()).To(Equal(2))

			c.Invalidate(0x0000)
			Expect(c.Probe(0x0000)).To(BeFalse())
			Expect(c.ValidLines()).To(Equal(1))

			c.Reset()
			Expect(c.ValidLines()).To(BeZero())
			Expect(c.Stats()).To(Equal(cache.Statistics{}))
		})
	})

	Describe("Configuration", func() {
		It("should convert the core data cache settings", func() {
			dc := config.DefaultConfig().DCache
			cfg := cache.FromCoreConfig(dc)

			Expect(cfg.Size).To(Equal(dc.Size))
			Expect(cfg.MissLatency).To(Equal(dc.MissLatency))
			Expect(cache.New(cfg).Config()).To(Equal(cfg))
		})

		It("should provide an L1D default", func() {
			Expect(cache.DefaultL1DConfig().Associativity).To(Equal(4))
		})
	})
})
