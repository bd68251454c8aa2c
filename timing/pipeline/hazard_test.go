package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		state *pipeline.State
		unit  *pipeline.HazardUnit
	)

	// push appends an entry at the ROB head and returns its tag.
	push := func(e pipeline.ROBEntry) pipeline.Tag {
		e.ID = pipeline.Tag(state.ROBHead + 1)
		state.ROB[state.ROBHead] = e
		state.ROBHead = (state.ROBHead + 1) & (len(state.ROB) - 1)
		return e.ID
	}
	store := func(addr, width, value uint32, ready bool) pipeline.Tag {
		return push(pipeline.ROBEntry{
			Type:       pipeline.ROBStore,
			Addr:       addr,
			StoreWidth: width,
			Value:      value,
			Ready:      ready,
		})
	}
	load := func() pipeline.Tag {
		return push(pipeline.ROBEntry{Type: pipeline.ROBRegister, WasLoad: true})
	}

	BeforeEach(func() {
		cfg := config.DefaultConfig()
		cfg.ROBSize = 8
		state = pipeline.NewState(cfg)
		unit = &pipeline.HazardUnit{StoreCheck: true, StoreForward: true}
	})

	It("should report no hazard without earlier stores", func() {
		push(pipeline.ROBEntry{Type: pipeline.ROBRegister})
		ld := load()

		h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardNone))
	})

	It("should ignore stores younger than the load", func() {
		ld := load()
		store(0x2000, 4, 1, true)

		h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardNone))
	})

	It("should ignore disjoint stores", func() {
		store(0x2004, 4, 1, true)
		store(0x1ffc, 4, 1, false)
		ld := load()

		h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardNone))
	})

	It("should forward from an exactly matching ready store", func() {
		store(0x2000, 4, 0x11111111, true)
		ld := load()

		h, v := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardForward))
		Expect(v).To(Equal(uint32(0x11111111)))
	})

	It("should extend a narrower forwarded value", func() {
		store(0x2000, 4, 0x12345680, true)
		ld := load()

		h, v := unit.Check(state, ld, insts.OpLB, 0x2000)
		Expect(h).To(Equal(pipeline.HazardForward))
		Expect(v).To(Equal(uint32(0xFFFFFF80)))

		_, v = unit.Check(state, ld, insts.OpLHU, 0x2000)
		Expect(v).To(Equal(uint32(0x5680)))
	})

	It("should use the nearest overlapping store", func() {
		store(0x2000, 4, 1, true)
		store(0x2000, 4, 2, true)
		ld := load()

		_, v := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(v).To(Equal(uint32(2)))
	})

	It("should wait for a store whose data is not ready", func() {
		store(0x2000, 4, 1, true)
		store(0x2000, 4, 0, false)
		ld := load()

		h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardStoreData))
	})

	It("should wait for a partially overlapping store", func() {
		store(0x2002, 1, 7, true)
		ld := load()

		h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardStoreData))
	})

	It("should wait for a narrower store at the same address", func() {
		store(0x2000, 2, 7, true)
		ld := load()

		h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardStoreData))
	})

	It("should wait for a store with an unknown address", func() {
		store(0, 4, 0, false)
		store(0x3000, 4, 0, true)
		ld := load()

		h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardStoreAddr))
	})

	It("should let a nearer matching store hide an unknown address", func() {
		store(0, 4, 0, false)
		store(0x2000, 4, 9, true)
		ld := load()

		h, v := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardForward))
		Expect(v).To(Equal(uint32(9)))
	})

	It("should scan across the end of the ring", func() {
		state.ROBHead, state.ROBTail = 6, 6
		store(0x2000, 4, 5, true)
		store(0x4000, 4, 6, true)
		ld := load()
		Expect(int(ld)).To(Equal(1))

		h, v := unit.Check(state, ld, insts.OpLW, 0x2000)
		Expect(h).To(Equal(pipeline.HazardForward))
		Expect(v).To(Equal(uint32(5)))
	})

	It("should panic for a load that is not live", func() {
		store(0x2000, 4, 1, true)
		Expect(func() { unit.Check(state, 5, insts.OpLW, 0x2000) }).To(Panic())
	})

	Context("without store checking", func() {
		BeforeEach(func() {
			unit.StoreCheck = false
		})

		It("should ignore stores with unknown addresses", func() {
			store(0, 4, 0, false)
			ld := load()

			h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
			Expect(h).To(Equal(pipeline.HazardNone))
		})
	})

	Context("without forwarding", func() {
		BeforeEach(func() {
			unit.StoreForward = false
		})

		It("should wait for a ready matching store to commit", func() {
			store(0x2000, 4, 1, true)
			ld := load()

			h, _ := unit.Check(state, ld, insts.OpLW, 0x2000)
			Expect(h).To(Equal(pipeline.HazardStoreData))
		})
	})

	It("should name each outcome", func() {
		Expect(pipeline.HazardNone.String()).To(Equal("none"))
		Expect(pipeline.HazardForward.String()).To(Equal("forward"))
		Expect(pipeline.HazardStoreAddr.String()).To(Equal("wait-store-addr"))
		Expect(pipeline.HazardStoreData.String()).To(Equal("wait-store-data"))
	})
})
