// Package cpu implements the SM83 processor core: registers and flags, the
// typed instruction decoder, the executor and interrupt dispatch.
package cpu

import (
	"github.com/valerio/go-dmg/dmg/bit"
	"github.com/valerio/go-dmg/dmg/memory"
)

// CPU is the main struct holding processor state. All memory traffic goes
// through the bus; the CPU owns nothing but its registers.
type CPU struct {
	memory *memory.MMU

	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8

	sp uint16
	pc uint16

	ime     bool
	halted  bool
	stopped bool
}

// New returns a CPU attached to the given bus. With a boot ROM mapped the
// processor starts zeroed at 0x0000; otherwise it starts in the documented
// post-boot state at 0x0100.
func New(mem *memory.MMU) *CPU {
	cpu := &CPU{memory: mem, ime: true}

	if !mem.BootROMMapped() {
		cpu.a = 0x01
		cpu.f = 0xB0
		cpu.setBC(0x0013)
		cpu.setDE(0x00D8)
		cpu.setHL(0x014D)
		cpu.sp = 0xFFFE
		cpu.pc = 0x0100
	}

	return cpu
}

// Step advances the machine by one instruction or one interrupt dispatch and
// returns the machine cycles consumed. A pending enabled interrupt always
// clears the halted state; it is dispatched only when IME is set.
func (c *CPU) Step() (int, error) {
	if c.memory.PendingInterrupts() != 0 {
		c.halted = false
		if c.ime {
			vector, _ := c.memory.ClaimInterrupt()
			c.ime = false
			c.pushStack(c.pc)
			c.pc = vector
			return 5, nil
		}
	}

	if c.halted {
		return 1, nil
	}

	inst, err := c.fetchDecode()
	if err != nil {
		return 0, err
	}

	c.pc += uint16(inst.Length)
	return c.execute(inst), nil
}

// Tick executes one Step and returns the elapsed clock cycles (4 per
// machine cycle).
func (c *CPU) Tick() (int, error) {
	mcycles, err := c.Step()
	return mcycles * 4, err
}

// fetchDecode reads the opcode bytes at PC and decodes them into a typed
// instruction, reading any embedded immediate. Undefined opcodes produce a
// DecodeError.
func (c *CPU) fetchDecode() (Instruction, error) {
	opcode := c.memory.Read(c.pc)

	if opcode == 0xCB {
		return DecodeCB(c.memory.Read(c.pc + 1)), nil
	}

	inst, ok := Decode(opcode)
	if !ok {
		return Instruction{}, DecodeError{Opcode: opcode, PC: c.pc}
	}

	switch inst.Length {
	case 2:
		inst.Imm = uint16(c.memory.Read(c.pc + 1))
	case 3:
		inst.Imm = bit.Combine(c.memory.Read(c.pc+2), c.memory.Read(c.pc+1))
	}

	return inst, nil
}

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.memory.Write(c.sp, bit.High(value))
	c.sp--
	c.memory.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.memory.Read(c.sp)
	c.sp++
	high := c.memory.Read(c.sp)
	c.sp++

	return bit.Combine(high, low)
}

// PC returns the program counter.
func (c *CPU) PC() uint16 { return c.pc }

// SP returns the stack pointer.
func (c *CPU) SP() uint16 { return c.sp }

// AF returns the accumulator/flags register pair.
func (c *CPU) AF() uint16 { return c.getAF() }

// BC returns the BC register pair.
func (c *CPU) BC() uint16 { return c.getBC() }

// DE returns the DE register pair.
func (c *CPU) DE() uint16 { return c.getDE() }

// HL returns the HL register pair.
func (c *CPU) HL() uint16 { return c.getHL() }

// IME reports whether the interrupt master enable is set.
func (c *CPU) IME() bool { return c.ime }

// Halted reports whether the processor is idling after HALT.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether the processor executed STOP.
func (c *CPU) Stopped() bool { return c.stopped }
