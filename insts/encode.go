package insts

// EncodeR encodes an R-type instruction.
func EncodeR(opcode uint32, rd, funct3, rs1, rs2, funct7 uint8) uint32 {
	return uint32(funct7)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// EncodeI encodes an I-type instruction. Only the low 12 bits of imm are used.
func EncodeI(opcode uint32, rd, funct3, rs1 uint8, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// EncodeS encodes an S-type instruction.
func EncodeS(opcode uint32, funct3, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 | (u&0x1F)<<7 | opcode&0x7F
}

// EncodeB encodes a B-type instruction. imm is the byte offset (even).
func EncodeB(opcode uint32, funct3, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>12&0x1)<<31 | (u>>5&0x3F)<<25 | uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 | uint32(funct3&0x7)<<12 |
		(u>>1&0xF)<<8 | (u>>11&0x1)<<7 | opcode&0x7F
}

// EncodeU encodes a U-type instruction. imm holds the upper 20 bits in its
// low bits (as written in assembly, e.g. lui a0, 0x12345).
func EncodeU(opcode uint32, rd uint8, imm uint32) uint32 {
	return (imm&0xFFFFF)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// EncodeJ encodes a J-type instruction. imm is the byte offset (even).
func EncodeJ(opcode uint32, rd uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>20&0x1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&0x1)<<20 |
		(u>>12&0xFF)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// LUI encodes lui rd, imm20.
func LUI(rd uint8, imm20 uint32) uint32 { return EncodeU(OpcodeLUI, rd, imm20) }

// AUIPC encodes auipc rd, imm20.
func AUIPC(rd uint8, imm20 uint32) uint32 { return EncodeU(OpcodeAUIPC, rd, imm20) }

// JAL encodes jal rd, offset.
func JAL(rd uint8, offset int32) uint32 { return EncodeJ(OpcodeJAL, rd, offset) }

// JALR encodes jalr rd, imm(rs1).
func JALR(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeJALR, rd, 0, rs1, imm) }

// BEQ encodes beq rs1, rs2, offset.
func BEQ(rs1, rs2 uint8, offset int32) uint32 { return EncodeB(OpcodeBranch, 0, rs1, rs2, offset) }

// BNE encodes bne rs1, rs2, offset.
func BNE(rs1, rs2 uint8, offset int32) uint32 { return EncodeB(OpcodeBranch, 1, rs1, rs2, offset) }

// BLT encodes blt rs1, rs2, offset.
func BLT(rs1, rs2 uint8, offset int32) uint32 { return EncodeB(OpcodeBranch, 4, rs1, rs2, offset) }

// BGE encodes bge rs1, rs2, offset.
func BGE(rs1, rs2 uint8, offset int32) uint32 { return EncodeB(OpcodeBranch, 5, rs1, rs2, offset) }

// BLTU encodes bltu rs1, rs2, offset.
func BLTU(rs1, rs2 uint8, offset int32) uint32 { return EncodeB(OpcodeBranch, 6, rs1, rs2, offset) }

// BGEU encodes bgeu rs1, rs2, offset.
func BGEU(rs1, rs2 uint8, offset int32) uint32 { return EncodeB(OpcodeBranch, 7, rs1, rs2, offset) }

// LB encodes lb rd, imm(rs1).
func LB(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeLoad, rd, 0, rs1, imm) }

// LH encodes lh rd, imm(rs1).
func LH(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeLoad, rd, 1, rs1, imm) }

// LW encodes lw rd, imm(rs1).
func LW(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeLoad, rd, 2, rs1, imm) }

// LBU encodes lbu rd, imm(rs1).
func LBU(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeLoad, rd, 4, rs1, imm) }

// LHU encodes lhu rd, imm(rs1).
func LHU(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeLoad, rd, 5, rs1, imm) }

// SB encodes sb rs2, imm(rs1).
func SB(rs2, rs1 uint8, imm int32) uint32 { return EncodeS(OpcodeStore, 0, rs1, rs2, imm) }

// SH encodes sh rs2, imm(rs1).
func SH(rs2, rs1 uint8, imm int32) uint32 { return EncodeS(OpcodeStore, 1, rs1, rs2, imm) }

// SW encodes sw rs2, imm(rs1).
func SW(rs2, rs1 uint8, imm int32) uint32 { return EncodeS(OpcodeStore, 2, rs1, rs2, imm) }

// ADDI encodes addi rd, rs1, imm.
func ADDI(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeRegImm, rd, 0, rs1, imm) }

// SLTI encodes slti rd, rs1, imm.
func SLTI(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeRegImm, rd, 2, rs1, imm) }

// SLTIU encodes sltiu rd, rs1, imm.
func SLTIU(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeRegImm, rd, 3, rs1, imm) }

// XORI encodes xori rd, rs1, imm.
func XORI(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeRegImm, rd, 4, rs1, imm) }

// ORI encodes ori rd, rs1, imm.
func ORI(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeRegImm, rd, 6, rs1, imm) }

// ANDI encodes andi rd, rs1, imm.
func ANDI(rd, rs1 uint8, imm int32) uint32 { return EncodeI(OpcodeRegImm, rd, 7, rs1, imm) }

// SLLI encodes slli rd, rs1, shamt.
func SLLI(rd, rs1, shamt uint8) uint32 {
	return EncodeR(OpcodeRegImm, rd, 1, rs1, shamt, 0x00)
}

// SRLI encodes srli rd, rs1, shamt.
func SRLI(rd, rs1, shamt uint8) uint32 {
	return EncodeR(OpcodeRegImm, rd, 5, rs1, shamt, 0x00)
}

// SRAI encodes srai rd, rs1, shamt.
func SRAI(rd, rs1, shamt uint8) uint32 {
	return EncodeR(OpcodeRegImm, rd, 5, rs1, shamt, 0x20)
}

// ADD encodes add rd, rs1, rs2.
func ADD(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 0, rs1, rs2, 0x00) }

// SUB encodes sub rd, rs1, rs2.
func SUB(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 0, rs1, rs2, 0x20) }

// SLL encodes sll rd, rs1, rs2.
func SLL(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 1, rs1, rs2, 0x00) }

// SLT encodes slt rd, rs1, rs2.
func SLT(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 2, rs1, rs2, 0x00) }

// SLTU encodes sltu rd, rs1, rs2.
func SLTU(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 3, rs1, rs2, 0x00) }

// XOR encodes xor rd, rs1, rs2.
func XOR(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 4, rs1, rs2, 0x00) }

// SRL encodes srl rd, rs1, rs2.
func SRL(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 5, rs1, rs2, 0x00) }

// SRA encodes sra rd, rs1, rs2.
func SRA(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 5, rs1, rs2, 0x20) }

// OR encodes or rd, rs1, rs2.
func OR(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 6, rs1, rs2, 0x00) }

// AND encodes and rd, rs1, rs2.
func AND(rd, rs1, rs2 uint8) uint32 { return EncodeR(OpcodeRegReg, rd, 7, rs1, rs2, 0x00) }

// FENCE encodes a full fence.
func FENCE() uint32 { return EncodeI(OpcodeFence, 0, 0, 0, 0x0FF) }

// ECALL encodes ecall.
func ECALL() uint32 { return EncodeI(OpcodeSystem, 0, 0, 0, 0) }

// EBREAK encodes ebreak.
func EBREAK() uint32 { return EncodeI(OpcodeSystem, 0, 0, 0, 1) }

// NOP encodes addi zero, zero, 0.
func NOP() uint32 { return ADDI(RegZero, RegZero, 0) }
