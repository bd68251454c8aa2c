// Package pipeline provides the out-of-order Tomasulo core of the timing
// simulator.
//
// The whole machine state lives in a State value. Each Tick builds the next
// State from the current one and swaps the two, so every stage observes the
// settled state of the previous cycle.
package pipeline

import "github.com/sarchlab/rvsim/insts"

// Tag names an in-flight instruction by its reorder buffer slot plus one.
type Tag uint32

// NoTag means "no producer": the value is available.
const NoTag Tag = 0

// Register is one architectural register.
type Register struct {
	// Value is the last committed value.
	Value uint32

	// Tag is the ROB entry that will next write the register, or NoTag.
	Tag Tag
}

// FetchedInst is an instruction word carried from fetch to decode together
// with the predictor entries looked up for it at fetch time.
type FetchedInst struct {
	// Valid indicates the slot holds an instruction.
	Valid bool

	PC   uint32
	Word uint32

	// Exception is set when the instruction could not be read from memory.
	Exception bool

	BTAC BTACEntry
	BHT  BHTEntry
}

// BTACHit reports whether the fetched BTAC entry belongs to this instruction.
// Empty entries never hit, even for an instruction at address 0.
func (f *FetchedInst) BTACHit() bool {
	return f.BTAC.Target != 0 && f.BTAC.BranchPC == f.PC
}

// Decode decodes the instruction word.
func (f *FetchedInst) Decode(d *insts.Decoder) *insts.Instruction {
	return d.Decode(f.Word)
}
