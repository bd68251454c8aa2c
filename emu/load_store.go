package emu

import "github.com/sarchlab/rvsim/insts"

// NullAddress replaces an effective address of 0. Any load from it faults and
// a store to it is a fatal null-pointer write.
const NullAddress uint32 = 0xFFFFFFFF

// EffectiveAddress computes base+imm, mapping address 0 to NullAddress.
func EffectiveAddress(base uint32, imm int32) uint32 {
	addr := base + uint32(imm)
	if addr == 0 {
		return NullAddress
	}
	return addr
}

// ExtendLoad truncates raw to the width of the load op and sign- or
// zero-extends it to a register value.
func ExtendLoad(op insts.Op, raw uint32) uint32 {
	switch op {
	case insts.OpLB:
		return uint32(int32(int8(raw)))
	case insts.OpLBU:
		return raw & 0xFF
	case insts.OpLH:
		return uint32(int32(int16(raw)))
	case insts.OpLHU:
		return raw & 0xFFFF
	}
	return raw
}

// Load performs the memory access of a load operation.
func Load(mem *Memory, op insts.Op, addr uint32) (uint32, error) {
	if addr == NullAddress {
		return 0, ErrNullAccess
	}

	raw, err := mem.Read(addr, op.MemWidth())
	if err != nil {
		return 0, err
	}

	return ExtendLoad(op, raw), nil
}
