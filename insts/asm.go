package insts

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DebugOp is an operation of the simulator debug protocol. A program
// requests one by loading the opcode into t3 (and an operand into t4) and
// executing ebreak.
type DebugOp uint32

// Debug protocol operations.
const (
	DebugBreak      DebugOp = 1
	DebugQuit       DebugOp = 2
	DebugAbort      DebugOp = 3
	DebugPrint      DebugOp = 4
	DebugBenchBegin DebugOp = 5
	DebugBenchEnd   DebugOp = 6
	DebugInput      DebugOp = 7
)

var debugOpNames = map[DebugOp]string{
	DebugBreak:      "break",
	DebugQuit:       "quit",
	DebugAbort:      "abort",
	DebugPrint:      "print",
	DebugBenchBegin: "bench_begin",
	DebugBenchEnd:   "bench_end",
	DebugInput:      "input",
}

func (op DebugOp) String() string {
	if name, ok := debugOpNames[op]; ok {
		return name
	}
	return fmt.Sprintf("debug(%d)", uint32(op))
}

// Valid reports whether op is a known debug protocol operation.
func (op DebugOp) Valid() bool {
	_, ok := debugOpNames[op]
	return ok
}

// ErrUndefinedLabel is returned when a program references a label that was
// never defined.
var ErrUndefinedLabel = errors.New("undefined label")

type fixupKind uint8

const (
	fixupBranch fixupKind = iota
	fixupJAL
	fixupAddr // auipc + addi pair
)

type fixup struct {
	kind  fixupKind
	off   int // byte offset of the instruction in the image
	label string
}

// Assembler builds RV32I programs in memory. Instructions are appended in
// order starting at the base address; branch and jump targets may refer to
// labels defined later.
type Assembler struct {
	base   uint32
	image  []byte
	labels map[string]uint32
	fixups []fixup
}

// NewAssembler creates an assembler whose first instruction will live at base.
func NewAssembler(base uint32) *Assembler {
	return &Assembler{
		base:   base,
		labels: make(map[string]uint32),
	}
}

// Base returns the load address of the program.
func (a *Assembler) Base() uint32 {
	return a.base
}

// PC returns the address of the next emitted instruction or datum.
func (a *Assembler) PC() uint32 {
	return a.base + uint32(len(a.image))
}

// Label binds name to the current PC.
func (a *Assembler) Label(name string) {
	a.labels[name] = a.PC()
}

// Symbol returns the address bound to a label.
func (a *Assembler) Symbol(name string) (uint32, bool) {
	addr, ok := a.labels[name]
	return addr, ok
}

// Emit appends raw instruction words.
func (a *Assembler) Emit(words ...uint32) {
	a.Align(4)
	for _, w := range words {
		a.image = binary.LittleEndian.AppendUint32(a.image, w)
	}
}

// Word appends a 32-bit datum.
func (a *Assembler) Word(v uint32) {
	a.Emit(v)
}

// String appends a NUL-terminated string.
func (a *Assembler) String(s string) {
	a.image = append(a.image, s...)
	a.image = append(a.image, 0)
}

// Space appends n zero bytes.
func (a *Assembler) Space(n int) {
	a.image = append(a.image, make([]byte, n)...)
}

// Align pads the image with zeros up to a multiple of n bytes.
func (a *Assembler) Align(n int) {
	for len(a.image)%n != 0 {
		a.image = append(a.image, 0)
	}
}

// Li loads a 32-bit constant into rd.
func (a *Assembler) Li(rd uint8, value int32) {
	if value >= -2048 && value < 2048 {
		a.Emit(ADDI(rd, RegZero, value))
		return
	}

	hi, lo := splitImm(value)
	a.Emit(LUI(rd, hi))
	if lo != 0 {
		a.Emit(ADDI(rd, rd, lo))
	}
}

// La loads the address of label into rd with a PC-relative auipc/addi pair.
func (a *Assembler) La(rd uint8, label string) {
	a.addFixup(fixupAddr, label)
	a.Emit(AUIPC(rd, 0), ADDI(rd, rd, 0))
}

// Mv copies rs into rd.
func (a *Assembler) Mv(rd, rs uint8) {
	a.Emit(ADDI(rd, rs, 0))
}

// Beq emits beq rs1, rs2, label.
func (a *Assembler) Beq(rs1, rs2 uint8, label string) { a.branch(0, rs1, rs2, label) }

// Bne emits bne rs1, rs2, label.
func (a *Assembler) Bne(rs1, rs2 uint8, label string) { a.branch(1, rs1, rs2, label) }

// Blt emits blt rs1, rs2, label.
func (a *Assembler) Blt(rs1, rs2 uint8, label string) { a.branch(4, rs1, rs2, label) }

// Bge emits bge rs1, rs2, label.
func (a *Assembler) Bge(rs1, rs2 uint8, label string) { a.branch(5, rs1, rs2, label) }

// Bltu emits bltu rs1, rs2, label.
func (a *Assembler) Bltu(rs1, rs2 uint8, label string) { a.branch(6, rs1, rs2, label) }

// Bgeu emits bgeu rs1, rs2, label.
func (a *Assembler) Bgeu(rs1, rs2 uint8, label string) { a.branch(7, rs1, rs2, label) }

// Jal emits jal rd, label.
func (a *Assembler) Jal(rd uint8, label string) {
	a.addFixup(fixupJAL, label)
	a.Emit(EncodeJ(OpcodeJAL, rd, 0))
}

// J emits an unconditional jump to label.
func (a *Assembler) J(label string) { a.Jal(RegZero, label) }

// Call emits jal ra, label.
func (a *Assembler) Call(label string) { a.Jal(RegRA, label) }

// Ret emits jalr zero, 0(ra).
func (a *Assembler) Ret() { a.Emit(JALR(RegZero, RegRA, 0)) }

// Debug emits a debug protocol request without an operand.
func (a *Assembler) Debug(op DebugOp) {
	a.Emit(ADDI(RegT3, RegZero, int32(op)), EBREAK())
}

// DebugWith emits a debug protocol request whose operand is taken from rs.
func (a *Assembler) DebugWith(op DebugOp, rs uint8) {
	a.Emit(ADDI(RegT3, RegZero, int32(op)), ADDI(RegT4, rs, 0), EBREAK())
}

// Print emits a request to print the NUL-terminated string at label.
func (a *Assembler) Print(label string) {
	a.La(RegT4, label)
	a.Emit(ADDI(RegT3, RegZero, int32(DebugPrint)), EBREAK())
}

// Quit emits a request to stop the simulation.
func (a *Assembler) Quit() { a.Debug(DebugQuit) }

// Assemble resolves all label references and returns the program image.
func (a *Assembler) Assemble() ([]byte, error) {
	image := make([]byte, len(a.image))
	copy(image, a.image)

	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUndefinedLabel, f.label)
		}

		pc := a.base + uint32(f.off)
		offset := int32(target - pc)
		word := binary.LittleEndian.Uint32(image[f.off:])

		switch f.kind {
		case fixupBranch:
			if offset < -4096 || offset >= 4096 {
				return nil, fmt.Errorf("branch to %q out of range (%d)", f.label, offset)
			}
			word = EncodeB(OpcodeBranch, Funct3(word), Rs1(word), Rs2(word), offset)
		case fixupJAL:
			if offset < -(1<<20) || offset >= 1<<20 {
				return nil, fmt.Errorf("jump to %q out of range (%d)", f.label, offset)
			}
			word = EncodeJ(OpcodeJAL, Rd(word), offset)
		case fixupAddr:
			hi, lo := splitImm(offset)
			rd := Rd(word)
			binary.LittleEndian.PutUint32(image[f.off:], AUIPC(rd, hi))
			word = ADDI(rd, rd, lo)
			f.off += 4
		}

		binary.LittleEndian.PutUint32(image[f.off:], word)
	}

	return image, nil
}

// MustAssemble is like Assemble but panics on error. It is intended for
// programs built from constant input, such as tests and built-in kernels.
func (a *Assembler) MustAssemble() []byte {
	image, err := a.Assemble()
	if err != nil {
		panic(err)
	}
	return image
}

func (a *Assembler) branch(funct3, rs1, rs2 uint8, label string) {
	a.addFixup(fixupBranch, label)
	a.Emit(EncodeB(OpcodeBranch, funct3, rs1, rs2, 0))
}

func (a *Assembler) addFixup(kind fixupKind, label string) {
	a.Align(4)
	a.fixups = append(a.fixups, fixup{kind: kind, off: len(a.image), label: label})
}

// splitImm splits value into a 20-bit upper part and a sign-extended 12-bit
// lower part such that hi<<12 + lo == value.
func splitImm(value int32) (uint32, int32) {
	hi := uint32(value+0x800) >> 12
	lo := value - int32(hi<<12)
	return hi & 0xFFFFF, lo
}
