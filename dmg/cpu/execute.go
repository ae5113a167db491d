package cpu

import (
	"fmt"

	"github.com/valerio/go-dmg/dmg/bit"
)

// execute runs one decoded instruction and returns the machine cycles it
// consumed. PC has already been advanced past the instruction bytes, so
// relative jumps and pushed return addresses use the incremented value.
func (c *CPU) execute(inst Instruction) int {
	switch inst.Op {
	case OpNop:
		return 1

	case OpHalt:
		// With an interrupt already pending HALT falls through without
		// halting; the pending check at the top of Step handles wake-up.
		if c.memory.PendingInterrupts() == 0 {
			c.halted = true
		}
		return 1

	case OpStop:
		c.stopped = true
		return 1

	case OpDI:
		c.ime = false
		return 1

	case OpEI:
		c.ime = true
		return 1

	case OpScf:
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlag(carryFlag)
		return 1

	case OpCcf:
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
		return 1

	case OpCpl:
		c.a = ^c.a
		c.setFlag(subFlag)
		c.setFlag(halfCarryFlag)
		return 1

	case OpDaa:
		c.daa()
		return 1

	case OpLD:
		c.writeOperand8(inst.Dst, inst.Imm, c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Dst) + operandCost(inst.Src)

	case OpLD16:
		switch {
		case inst.Dst == Ind16:
			// LD (a16),SP
			c.memory.Write(inst.Imm, bit.Low(c.sp))
			c.memory.Write(inst.Imm+1, bit.High(c.sp))
			return 5
		case inst.Src == RegHL:
			// LD SP,HL
			c.sp = c.getHL()
			return 2
		default:
			c.writeOperand16(inst.Dst, inst.Imm)
			return 3
		}

	case OpLDHLSP:
		c.setHL(c.addSignedToSP(uint8(inst.Imm)))
		return 3

	case OpAddSP:
		c.sp = c.addSignedToSP(uint8(inst.Imm))
		return 4

	case OpPush:
		c.pushStack(c.readOperand16(inst.Dst))
		return 4

	case OpPop:
		c.writeOperand16(inst.Dst, c.popStack())
		return 3

	case OpAdd:
		c.addToA(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpAdc:
		c.adcToA(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpSub:
		c.sub(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpSbc:
		c.sbc(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpAnd:
		c.and(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpXor:
		c.xor(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpOr:
		c.or(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpCp:
		c.cp(c.readOperand8(inst.Src, inst.Imm))
		return 1 + operandCost(inst.Src)

	case OpInc:
		c.writeOperand8(inst.Dst, inst.Imm, c.inc(c.readOperand8(inst.Dst, inst.Imm)))
		if inst.Dst == IndHL {
			return 3
		}
		return 1

	case OpDec:
		c.writeOperand8(inst.Dst, inst.Imm, c.dec(c.readOperand8(inst.Dst, inst.Imm)))
		if inst.Dst == IndHL {
			return 3
		}
		return 1

	case OpAdd16:
		c.addToHL(c.readOperand16(inst.Src))
		return 2

	case OpInc16:
		c.writeOperand16(inst.Dst, c.readOperand16(inst.Dst)+1)
		return 2

	case OpDec16:
		c.writeOperand16(inst.Dst, c.readOperand16(inst.Dst)-1)
		return 2

	case OpRlca:
		c.a = c.rlc(c.a, true)
		return 1

	case OpRrca:
		c.a = c.rrc(c.a, true)
		return 1

	case OpRla:
		c.a = c.rl(c.a, true)
		return 1

	case OpRra:
		c.a = c.rr(c.a, true)
		return 1

	case OpJp:
		if inst.Src == RegHL {
			c.pc = c.getHL()
			return 1
		}
		if !c.testCondition(inst.Cond) {
			return 3
		}
		c.pc = inst.Imm
		return 4

	case OpJr:
		if !c.testCondition(inst.Cond) {
			return 2
		}
		c.pc += uint16(int8(inst.Imm))
		return 3

	case OpCall:
		if !c.testCondition(inst.Cond) {
			return 3
		}
		c.pushStack(c.pc)
		c.pc = inst.Imm
		return 6

	case OpRet:
		if inst.Cond == CondAlways {
			c.pc = c.popStack()
			return 4
		}
		if !c.testCondition(inst.Cond) {
			return 2
		}
		c.pc = c.popStack()
		return 5

	case OpReti:
		c.pc = c.popStack()
		c.ime = true
		return 4

	case OpRst:
		c.pushStack(c.pc)
		c.pc = inst.Imm
		return 4

	case OpRlc:
		c.writeOperand8(inst.Dst, 0, c.rlc(c.readOperand8(inst.Dst, 0), false))
		return prefixedCost(inst.Dst)

	case OpRrc:
		c.writeOperand8(inst.Dst, 0, c.rrc(c.readOperand8(inst.Dst, 0), false))
		return prefixedCost(inst.Dst)

	case OpRl:
		c.writeOperand8(inst.Dst, 0, c.rl(c.readOperand8(inst.Dst, 0), false))
		return prefixedCost(inst.Dst)

	case OpRr:
		c.writeOperand8(inst.Dst, 0, c.rr(c.readOperand8(inst.Dst, 0), false))
		return prefixedCost(inst.Dst)

	case OpSla:
		c.writeOperand8(inst.Dst, 0, c.sla(c.readOperand8(inst.Dst, 0)))
		return prefixedCost(inst.Dst)

	case OpSra:
		c.writeOperand8(inst.Dst, 0, c.sra(c.readOperand8(inst.Dst, 0)))
		return prefixedCost(inst.Dst)

	case OpSrl:
		c.writeOperand8(inst.Dst, 0, c.srl(c.readOperand8(inst.Dst, 0)))
		return prefixedCost(inst.Dst)

	case OpSwap:
		c.writeOperand8(inst.Dst, 0, c.swap(c.readOperand8(inst.Dst, 0)))
		return prefixedCost(inst.Dst)

	case OpBit:
		c.testBit(inst.Bit, c.readOperand8(inst.Dst, 0))
		if inst.Dst == IndHL {
			return 3
		}
		return 2

	case OpRes:
		c.writeOperand8(inst.Dst, 0, bit.Reset(inst.Bit, c.readOperand8(inst.Dst, 0)))
		return prefixedCost(inst.Dst)

	case OpSet:
		c.writeOperand8(inst.Dst, 0, bit.Set(inst.Bit, c.readOperand8(inst.Dst, 0)))
		return prefixedCost(inst.Dst)
	}

	panic(fmt.Sprintf("executing invalid instruction %d", inst.Op))
}

func (c *CPU) testCondition(cond Cond) bool {
	switch cond {
	case CondAlways:
		return true
	case CondNZ:
		return !c.isSetFlag(zeroFlag)
	case CondZ:
		return c.isSetFlag(zeroFlag)
	case CondNC:
		return !c.isSetFlag(carryFlag)
	case CondC:
		return c.isSetFlag(carryFlag)
	}
	return false
}

// operandCost is the extra machine cycles an 8-bit operand adds over a plain
// register access.
func operandCost(op Operand) int {
	switch op {
	case Imm8, IndHL, IndBC, IndDE, IndHLInc, IndHLDec, HighC:
		return 1
	case HighImm8:
		return 2
	case Ind16:
		return 3
	}
	return 0
}

// prefixedCost is the machine cycles of a read-modify-write prefixed
// instruction: 2 on a register, 4 through (HL).
func prefixedCost(op Operand) int {
	if op == IndHL {
		return 4
	}
	return 2
}

func (c *CPU) readOperand8(op Operand, imm uint16) uint8 {
	switch op {
	case RegA:
		return c.a
	case RegB:
		return c.b
	case RegC:
		return c.c
	case RegD:
		return c.d
	case RegE:
		return c.e
	case RegH:
		return c.h
	case RegL:
		return c.l
	case IndHL:
		return c.memory.Read(c.getHL())
	case IndBC:
		return c.memory.Read(c.getBC())
	case IndDE:
		return c.memory.Read(c.getDE())
	case IndHLInc:
		value := c.memory.Read(c.getHL())
		c.setHL(c.getHL() + 1)
		return value
	case IndHLDec:
		value := c.memory.Read(c.getHL())
		c.setHL(c.getHL() - 1)
		return value
	case Imm8:
		return uint8(imm)
	case Ind16:
		return c.memory.Read(imm)
	case HighC:
		return c.memory.Read(0xFF00 + uint16(c.c))
	case HighImm8:
		return c.memory.Read(0xFF00 + (imm & 0xFF))
	}
	panic(fmt.Sprintf("reading invalid 8-bit operand %d", op))
}

func (c *CPU) writeOperand8(op Operand, imm uint16, value uint8) {
	switch op {
	case RegA:
		c.a = value
	case RegB:
		c.b = value
	case RegC:
		c.c = value
	case RegD:
		c.d = value
	case RegE:
		c.e = value
	case RegH:
		c.h = value
	case RegL:
		c.l = value
	case IndHL:
		c.memory.Write(c.getHL(), value)
	case IndBC:
		c.memory.Write(c.getBC(), value)
	case IndDE:
		c.memory.Write(c.getDE(), value)
	case IndHLInc:
		c.memory.Write(c.getHL(), value)
		c.setHL(c.getHL() + 1)
	case IndHLDec:
		c.memory.Write(c.getHL(), value)
		c.setHL(c.getHL() - 1)
	case Ind16:
		c.memory.Write(imm, value)
	case HighC:
		c.memory.Write(0xFF00+uint16(c.c), value)
	case HighImm8:
		c.memory.Write(0xFF00+(imm&0xFF), value)
	default:
		panic(fmt.Sprintf("writing invalid 8-bit operand %d", op))
	}
}

func (c *CPU) readOperand16(op Operand) uint16 {
	switch op {
	case RegAF:
		return c.getAF()
	case RegBC:
		return c.getBC()
	case RegDE:
		return c.getDE()
	case RegHL:
		return c.getHL()
	case RegSP:
		return c.sp
	}
	panic(fmt.Sprintf("reading invalid 16-bit operand %d", op))
}

func (c *CPU) writeOperand16(op Operand, value uint16) {
	switch op {
	case RegAF:
		c.setAF(value)
	case RegBC:
		c.setBC(value)
	case RegDE:
		c.setDE(value)
	case RegHL:
		c.setHL(value)
	case RegSP:
		c.sp = value
	default:
		panic(fmt.Sprintf("writing invalid 16-bit operand %d", op))
	}
}
