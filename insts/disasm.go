package insts

import "fmt"

// String renders the instruction in assembler syntax. Branch and jump
// offsets are shown relative to the instruction.
func (inst *Instruction) String() string {
	rd, rs1, rs2 := RegName(inst.Rd), RegName(inst.Rs1), RegName(inst.Rs2)

	switch inst.Class {
	case ClassALU:
		return fmt.Sprintf("%s %s, %s, %s", inst.Op, rd, rs1, rs2)
	case ClassALUImm:
		return fmt.Sprintf("%s %s, %s, %d", inst.Op, rd, rs1, inst.Imm)
	case ClassLoad:
		return fmt.Sprintf("%s %s, %d(%s)", inst.Op, rd, inst.Imm, rs1)
	case ClassStore:
		return fmt.Sprintf("%s %s, %d(%s)", inst.Op, rs2, inst.Imm, rs1)
	case ClassBranch:
		return fmt.Sprintf("%s %s, %s, %+d", inst.Op, rs1, rs2, inst.Imm)
	case ClassJAL:
		return fmt.Sprintf("jal %s, %+d", rd, inst.Imm)
	case ClassJALR:
		return fmt.Sprintf("jalr %s, %d(%s)", rd, inst.Imm, rs1)
	case ClassLUI, ClassAUIPC:
		return fmt.Sprintf("%s %s, 0x%x", inst.Op, rd, uint32(inst.Imm)>>12)
	case ClassFence, ClassSystem:
		return inst.Op.String()
	}

	return fmt.Sprintf(".word 0x%08x", inst.Word)
}

// Disassemble decodes word and renders it, resolving PC-relative branch and
// jump targets against pc.
func Disassemble(word, pc uint32) string {
	inst := NewDecoder().Decode(word)

	switch inst.Class {
	case ClassBranch:
		return fmt.Sprintf("%s %s, %s, 0x%x", inst.Op, RegName(inst.Rs1), RegName(inst.Rs2),
			pc+uint32(inst.Imm))
	case ClassJAL:
		return fmt.Sprintf("jal %s, 0x%x", RegName(inst.Rd), pc+uint32(inst.Imm))
	}

	return inst.String()
}
