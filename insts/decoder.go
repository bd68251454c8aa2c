// Package insts provides RV32I instruction definitions and decoding.
package insts

// Op represents an RV32I operation.
type Op uint16

// RV32I operations.
const (
	OpUnknown Op = iota
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpFENCE
	OpECALL
	OpEBREAK
)

var opNames = map[Op]string{
	OpUnknown: "unknown",
	OpLUI:     "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLBU: "lbu", OpLHU: "lhu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori", OpORI: "ori", OpANDI: "andi",
	OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpFENCE: "fence", OpECALL: "ecall", OpEBREAK: "ebreak",
}

// String returns the assembler mnemonic of the operation.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Class groups operations by the resources they need in the pipeline.
type Class uint8

// Instruction classes.
const (
	ClassUnknown Class = iota
	ClassALU           // register-register arithmetic
	ClassALUImm        // register-immediate arithmetic
	ClassLoad
	ClassStore
	ClassBranch // conditional branch
	ClassJAL
	ClassJALR
	ClassLUI
	ClassAUIPC
	ClassFence
	ClassSystem // ECALL and EBREAK
)

// Major opcodes (bits [6:0]).
const (
	OpcodeLUI    uint32 = 0x37
	OpcodeAUIPC  uint32 = 0x17
	OpcodeJAL    uint32 = 0x6F
	OpcodeJALR   uint32 = 0x67
	OpcodeBranch uint32 = 0x63
	OpcodeLoad   uint32 = 0x03
	OpcodeStore  uint32 = 0x23
	OpcodeRegImm uint32 = 0x13
	OpcodeRegReg uint32 = 0x33
	OpcodeFence  uint32 = 0x0F
	OpcodeSystem uint32 = 0x73
)

// Instruction represents a decoded RV32I instruction.
type Instruction struct {
	Word   uint32 // Raw instruction word
	Op     Op     // Operation
	Class  Class  // Pipeline resource class
	Format Format // Encoding format

	Rd     uint8 // Destination register
	Rs1    uint8 // First source register
	Rs2    uint8 // Second source register
	Funct3 uint8
	Funct7 uint8

	// Imm is the sign-extended immediate for the instruction's format.
	// For shift-immediate operations it holds the shift amount.
	Imm int32
}

// Opcode extracts bits [6:0].
func Opcode(word uint32) uint32 { return word & 0x7F }

// Rd extracts bits [11:7].
func Rd(word uint32) uint8 { return uint8((word >> 7) & 0x1F) }

// Funct3 extracts bits [14:12].
func Funct3(word uint32) uint8 { return uint8((word >> 12) & 0x7) }

// Rs1 extracts bits [19:15].
func Rs1(word uint32) uint8 { return uint8((word >> 15) & 0x1F) }

// Rs2 extracts bits [24:20].
func Rs2(word uint32) uint8 { return uint8((word >> 20) & 0x1F) }

// Funct7 extracts bits [31:25].
func Funct7(word uint32) uint8 { return uint8(word >> 25) }

// ImmI extracts the sign-extended I-type immediate.
func ImmI(word uint32) int32 {
	return int32(word) >> 20
}

// ImmS extracts the sign-extended S-type immediate.
func ImmS(word uint32) int32 {
	return (int32(word)>>25)<<5 | int32((word>>7)&0x1F)
}

// ImmB extracts the sign-extended B-type immediate.
// Format: imm[12] | imm[10:5] | rs2 | rs1 | funct3 | imm[4:1] | imm[11] | opcode
func ImmB(word uint32) int32 {
	imm := (int32(word) >> 31) << 12    // imm[12], sign
	imm |= int32((word>>7)&0x1) << 11   // imm[11]
	imm |= int32((word>>25)&0x3F) << 5  // imm[10:5]
	imm |= int32((word>>8)&0xF) << 1    // imm[4:1]
	return imm
}

// ImmU extracts the U-type immediate (already shifted into bits [31:12]).
func ImmU(word uint32) int32 {
	return int32(word & 0xFFFFF000)
}

// ImmJ extracts the sign-extended J-type immediate.
// Format: imm[20] | imm[10:1] | imm[11] | imm[19:12] | rd | opcode
func ImmJ(word uint32) int32 {
	imm := (int32(word) >> 31) << 20     // imm[20], sign
	imm |= int32((word>>12)&0xFF) << 12  // imm[19:12]
	imm |= int32((word>>20)&0x1) << 11   // imm[11]
	imm |= int32((word>>21)&0x3FF) << 1  // imm[10:1]
	return imm
}

// Decoder decodes RV32I instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word. Words that do not encode a
// supported instruction decode to OpUnknown with ClassUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Word:   word,
		Op:     OpUnknown,
		Rd:     Rd(word),
		Rs1:    Rs1(word),
		Rs2:    Rs2(word),
		Funct3: Funct3(word),
		Funct7: Funct7(word),
	}

	switch Opcode(word) {
	case OpcodeLUI:
		d.decodeUpper(inst, OpLUI, ClassLUI)
	case OpcodeAUIPC:
		d.decodeUpper(inst, OpAUIPC, ClassAUIPC)
	case OpcodeJAL:
		inst.Op, inst.Class, inst.Format = OpJAL, ClassJAL, FormatJ
		inst.Imm = ImmJ(word)
	case OpcodeJALR:
		if inst.Funct3 == 0 {
			inst.Op, inst.Class, inst.Format = OpJALR, ClassJALR, FormatI
			inst.Imm = ImmI(word)
		}
	case OpcodeBranch:
		d.decodeBranch(inst)
	case OpcodeLoad:
		d.decodeLoad(inst)
	case OpcodeStore:
		d.decodeStore(inst)
	case OpcodeRegImm:
		d.decodeRegImm(inst)
	case OpcodeRegReg:
		d.decodeRegReg(inst)
	case OpcodeFence:
		inst.Op, inst.Class, inst.Format = OpFENCE, ClassFence, FormatI
	case OpcodeSystem:
		d.decodeSystem(inst)
	}

	if inst.Op == OpUnknown {
		inst.Class = ClassUnknown
		inst.Format = FormatUnknown
	}

	return inst
}

func (d *Decoder) decodeUpper(inst *Instruction, op Op, class Class) {
	inst.Op, inst.Class, inst.Format = op, class, FormatU
	inst.Imm = ImmU(inst.Word)
}

var branchOps = [8]Op{OpBEQ, OpBNE, OpUnknown, OpUnknown, OpBLT, OpBGE, OpBLTU, OpBGEU}

func (d *Decoder) decodeBranch(inst *Instruction) {
	inst.Op = branchOps[inst.Funct3]
	inst.Class, inst.Format = ClassBranch, FormatB
	inst.Imm = ImmB(inst.Word)
}

var loadOps = [8]Op{OpLB, OpLH, OpLW, OpUnknown, OpLBU, OpLHU, OpUnknown, OpUnknown}

func (d *Decoder) decodeLoad(inst *Instruction) {
	inst.Op = loadOps[inst.Funct3]
	inst.Class, inst.Format = ClassLoad, FormatI
	inst.Imm = ImmI(inst.Word)
}

var storeOps = [8]Op{OpSB, OpSH, OpSW, OpUnknown, OpUnknown, OpUnknown, OpUnknown, OpUnknown}

func (d *Decoder) decodeStore(inst *Instruction) {
	inst.Op = storeOps[inst.Funct3]
	inst.Class, inst.Format = ClassStore, FormatS
	inst.Imm = ImmS(inst.Word)
}

var regImmOps = [8]Op{OpADDI, OpSLLI, OpSLTI, OpSLTIU, OpXORI, OpSRLI, OpORI, OpANDI}

func (d *Decoder) decodeRegImm(inst *Instruction) {
	inst.Op = regImmOps[inst.Funct3]
	inst.Class, inst.Format = ClassALUImm, FormatI
	inst.Imm = ImmI(inst.Word)

	// Shift-immediates carry the shift amount in rs2 and select SRAI via funct7.
	switch inst.Op {
	case OpSLLI:
		if inst.Funct7 != 0 {
			inst.Op = OpUnknown
		}
		inst.Imm = int32(inst.Rs2)
	case OpSRLI:
		switch inst.Funct7 {
		case 0x00:
		case 0x20:
			inst.Op = OpSRAI
		default:
			inst.Op = OpUnknown
		}
		inst.Imm = int32(inst.Rs2)
	}
}

var regRegOps = [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}

func (d *Decoder) decodeRegReg(inst *Instruction) {
	inst.Class, inst.Format = ClassALU, FormatR

	switch inst.Funct7 {
	case 0x00:
		inst.Op = regRegOps[inst.Funct3]
	case 0x20:
		switch inst.Funct3 {
		case 0x0:
			inst.Op = OpSUB
		case 0x5:
			inst.Op = OpSRA
		}
	}
}

func (d *Decoder) decodeSystem(inst *Instruction) {
	if inst.Funct3 != 0 || inst.Rd != 0 || inst.Rs1 != 0 {
		return
	}

	inst.Class, inst.Format = ClassSystem, FormatI
	inst.Imm = ImmI(inst.Word)

	switch inst.Imm {
	case 0:
		inst.Op = OpECALL
	case 1:
		inst.Op = OpEBREAK
	}
}

// MemWidth returns the access size in bytes of a load or store operation,
// or 0 for any other operation.
func (op Op) MemWidth() uint32 {
	switch op {
	case OpLB, OpLBU, OpSB:
		return 1
	case OpLH, OpLHU, OpSH:
		return 2
	case OpLW, OpSW:
		return 4
	}
	return 0
}

// MemSigned reports whether a load sign-extends its result.
func (op Op) MemSigned() bool {
	return op == OpLB || op == OpLH || op == OpLW
}

// IsLoad reports whether op is a load.
func (op Op) IsLoad() bool { return op >= OpLB && op <= OpLHU }

// IsStore reports whether op is a store.
func (op Op) IsStore() bool { return op >= OpSB && op <= OpSW }

// IsBranch reports whether op is a conditional branch.
func (op Op) IsBranch() bool { return op >= OpBEQ && op <= OpBGEU }
