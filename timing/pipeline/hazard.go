package pipeline

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// StoreHazard is the outcome of checking a load against the stores ahead of
// it in the reorder buffer.
type StoreHazard uint8

// Store hazard outcomes.
const (
	// HazardNone means no earlier store may touch the loaded bytes.
	HazardNone StoreHazard = iota
	// HazardForward means the nearest overlapping store supplies the value.
	HazardForward
	// HazardStoreAddr means an earlier store's address is still unknown.
	HazardStoreAddr
	// HazardStoreData means an earlier store overlaps and its value cannot
	// be used yet.
	HazardStoreData
)

func (h StoreHazard) String() string {
	switch h {
	case HazardForward:
		return "forward"
	case HazardStoreAddr:
		return "wait-store-addr"
	case HazardStoreData:
		return "wait-store-data"
	}
	return "none"
}

// HazardUnit checks loads against in-flight stores.
type HazardUnit struct {
	// StoreCheck makes a store with an unknown address block every later
	// load.
	StoreCheck bool

	// StoreForward allows an exactly matching store to supply its value.
	StoreForward bool
}

// mayOverlap reports whether the store e can write any byte of the load
// [addr, addr+width). An unknown store address (0) overlaps everything when
// StoreCheck is on. This is a guard against null stores, not an aliasing
// model.
func (h *HazardUnit) mayOverlap(e *ROBEntry, addr, width uint32) bool {
	if e.Addr == 0 {
		return h.StoreCheck
	}

	sBegin, sEnd := uint64(e.Addr), uint64(e.Addr)+uint64(e.StoreWidth)
	lBegin, lEnd := uint64(addr), uint64(addr)+uint64(width)
	return sBegin < lEnd && lBegin < sEnd
}

// Check scans the stores between the oldest live entry of s and the load's
// own entry. The nearest overlapping store decides the outcome; on
// HazardForward the second result is the load value.
func (h *HazardUnit) Check(s *State, load Tag, op insts.Op, addr uint32) (StoreHazard, uint32) {
	width := op.MemWidth()
	mask := len(s.ROB) - 1
	own := int(load-1) & mask

	var nearest *ROBEntry
	found := false
	for i := s.ROBTail; i != s.ROBHead; i = (i + 1) & mask {
		if i == own {
			found = true
			break
		}
		e := &s.ROB[i]
		if e.Type == ROBStore && h.mayOverlap(e, addr, width) {
			nearest = e
		}
	}
	if !found {
		panic(fmt.Sprintf("pipeline: load #%d is not in the ROB", load))
	}

	switch {
	case nearest == nil:
		return HazardNone, 0
	case nearest.Addr == 0:
		return HazardStoreAddr, 0
	case h.StoreForward && nearest.Ready &&
		nearest.Addr == addr && nearest.StoreWidth >= width:
		return HazardForward, emu.ExtendLoad(op, nearest.Value)
	}
	return HazardStoreData, 0
}
