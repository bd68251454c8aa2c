// Package latency provides the memory timing model of the load/store units.
//
// Each load waits a configured minimum number of cycles, plus a seeded
// pseudo-random jitter, plus the data cache latency when the cache model is
// enabled. Runs with the same seed see the same latencies.
package latency

import (
	"golang.org/x/exp/rand"

	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/config"
)

// Table provides load latency lookups.
type Table struct {
	loadLatency uint64
	jitter      uint64
	seed        uint64

	rng    *rand.Rand
	dcache *cache.Cache
}

// NewTable creates a latency table from the core configuration.
func NewTable(cfg *config.Config) *Table {
	t := &Table{
		loadLatency: cfg.LoadLatency,
		jitter:      cfg.LoadJitter,
		seed:        cfg.Seed,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}

	if cfg.DCache.Enabled {
		t.dcache = cache.New(cache.FromCoreConfig(cfg.DCache))
	}

	return t
}

// LoadLatency returns the number of cycles before a load of addr may access
// memory.
func (t *Table) LoadLatency(addr uint32) uint64 {
	latency := t.loadLatency
	if t.jitter > 0 {
		latency += t.rng.Uint64n(t.jitter + 1)
	}
	if t.dcache != nil {
		latency += t.dcache.Read(addr).Latency
	}
	return latency
}

// MinLoadLatency returns the smallest latency LoadLatency can return.
func (t *Table) MinLoadLatency() uint64 {
	if t.dcache != nil {
		return t.loadLatency + t.dcache.Config().HitLatency
	}
	return t.loadLatency
}

// StoreCommitted records a committed store in the cache model.
func (t *Table) StoreCommitted(addr uint32) {
	if t.dcache != nil {
		t.dcache.Write(addr)
	}
}

// DCache returns the data cache model, or nil when it is disabled.
func (t *Table) DCache() *cache.Cache {
	return t.dcache
}

// Reset restores the jitter sequence and empties the cache.
func (t *Table) Reset() {
	t.rng = rand.New(rand.NewSource(t.seed))
	if t.dcache != nil {
		t.dcache.Reset()
	}
}
