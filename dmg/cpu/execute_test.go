package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-dmg/dmg/memory"
)

// loadProgram writes the given bytes into work RAM and points PC at them.
func loadProgram(cpu *CPU, program ...byte) {
	const base = 0xC000
	for i, b := range program {
		cpu.memory.Write(base+uint16(i), b)
	}
	cpu.pc = base
}

func step(t *testing.T, cpu *CPU) int {
	t.Helper()
	cycles, err := cpu.Step()
	assert.NoError(t, err)
	return cycles
}

func TestExecute_loads(t *testing.T) {
	t.Run("ld r,d8", func(t *testing.T) {
		cpu := newTestCPU()
		loadProgram(cpu, 0x06, 0x42) // LD B,0x42
		cycles := step(t, cpu)
		assert.Equal(t, uint8(0x42), cpu.b)
		assert.Equal(t, 2, cycles)
		assert.Equal(t, uint16(0xC002), cpu.pc)
	})

	t.Run("ld r,r", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.b = 0x99
		loadProgram(cpu, 0x78) // LD A,B
		cycles := step(t, cpu)
		assert.Equal(t, uint8(0x99), cpu.a)
		assert.Equal(t, 1, cycles)
	})

	t.Run("ld (hl+),a", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x42
		cpu.setHL(0xD000)
		loadProgram(cpu, 0x22) // LD (HL+),A
		cycles := step(t, cpu)
		assert.Equal(t, uint8(0x42), cpu.memory.Read(0xD000))
		assert.Equal(t, uint16(0xD001), cpu.getHL())
		assert.Equal(t, 2, cycles)
	})

	t.Run("ld a,(hl-)", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.memory.Write(0xD000, 0x77)
		cpu.setHL(0xD000)
		loadProgram(cpu, 0x3A) // LD A,(HL-)
		step(t, cpu)
		assert.Equal(t, uint8(0x77), cpu.a)
		assert.Equal(t, uint16(0xCFFF), cpu.getHL())
	})

	t.Run("ld (a16),a and back", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x5A
		loadProgram(cpu,
			0xEA, 0x00, 0xD0, // LD (0xD000),A
			0x3E, 0x00, //       LD A,0x00
			0xFA, 0x00, 0xD0, // LD A,(0xD000)
		)
		assert.Equal(t, 4, step(t, cpu))
		step(t, cpu)
		assert.Equal(t, uint8(0x00), cpu.a)
		assert.Equal(t, 4, step(t, cpu))
		assert.Equal(t, uint8(0x5A), cpu.a)
	})

	t.Run("ldh forms", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x12
		loadProgram(cpu,
			0xE0, 0x80, // LDH (0x80),A
			0xF0, 0x80, // LDH A,(0x80)
		)
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint8(0x12), cpu.memory.Read(0xFF80))
		cpu.a = 0
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint8(0x12), cpu.a)
	})

	t.Run("ld (c),a", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x34
		cpu.c = 0x81
		loadProgram(cpu, 0xE2) // LD (C),A
		assert.Equal(t, 2, step(t, cpu))
		assert.Equal(t, uint8(0x34), cpu.memory.Read(0xFF81))
	})

	t.Run("ld rr,d16", func(t *testing.T) {
		cpu := newTestCPU()
		loadProgram(cpu, 0x21, 0x34, 0x12) // LD HL,0x1234
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint16(0x1234), cpu.getHL())
	})

	t.Run("ld (a16),sp", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.sp = 0xBEEF
		loadProgram(cpu, 0x08, 0x00, 0xD0) // LD (0xD000),SP
		assert.Equal(t, 5, step(t, cpu))
		assert.Equal(t, uint8(0xEF), cpu.memory.Read(0xD000))
		assert.Equal(t, uint8(0xBE), cpu.memory.Read(0xD001))
	})

	t.Run("ld sp,hl", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xD123)
		loadProgram(cpu, 0xF9) // LD SP,HL
		assert.Equal(t, 2, step(t, cpu))
		assert.Equal(t, uint16(0xD123), cpu.sp)
	})

	t.Run("ld hl,sp+s8", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.sp = 0xFFF0
		loadProgram(cpu, 0xF8, 0xFE) // LD HL,SP-2
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint16(0xFFEE), cpu.getHL())
	})
}

func TestExecute_stack(t *testing.T) {
	t.Run("push pop round trip", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.sp = 0xDFFF
		cpu.setBC(0x1234)
		loadProgram(cpu,
			0xC5, // PUSH BC
			0xD1, // POP DE
		)
		assert.Equal(t, 4, step(t, cpu))
		assert.Equal(t, uint16(0xDFFD), cpu.sp)
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint16(0x1234), cpu.getDE())
		assert.Equal(t, uint16(0xDFFF), cpu.sp)
	})

	t.Run("pop af masks the low nibble", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.sp = 0xDFFF
		cpu.setBC(0x12FF)
		loadProgram(cpu,
			0xC5, // PUSH BC
			0xF1, // POP AF
		)
		step(t, cpu)
		step(t, cpu)
		assert.Equal(t, uint16(0x12F0), cpu.getAF())
	})
}

func TestExecute_controlFlow(t *testing.T) {
	t.Run("jp taken and not taken", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.f = 0
		loadProgram(cpu, 0xCA, 0x00, 0x20) // JP Z,0x2000
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint16(0xC003), cpu.pc)

		cpu.setFlag(zeroFlag)
		loadProgram(cpu, 0xCA, 0x00, 0x20)
		assert.Equal(t, 4, step(t, cpu))
		assert.Equal(t, uint16(0x2000), cpu.pc)
	})

	t.Run("jp hl", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0x4000)
		loadProgram(cpu, 0xE9) // JP (HL)
		assert.Equal(t, 1, step(t, cpu))
		assert.Equal(t, uint16(0x4000), cpu.pc)
	})

	t.Run("jr with negative offset", func(t *testing.T) {
		cpu := newTestCPU()
		loadProgram(cpu, 0x18, 0xFE) // JR -2 (tight loop)
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint16(0xC000), cpu.pc)
	})

	t.Run("jr not taken", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.f = 0
		loadProgram(cpu, 0x38, 0x10) // JR C,+16
		assert.Equal(t, 2, step(t, cpu))
		assert.Equal(t, uint16(0xC002), cpu.pc)
	})

	t.Run("call and ret", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.sp = 0xDFFF
		loadProgram(cpu, 0xCD, 0x00, 0xD1) // CALL 0xD100
		cpu.memory.Write(0xD100, 0xC9)     // RET
		assert.Equal(t, 6, step(t, cpu))
		assert.Equal(t, uint16(0xD100), cpu.pc)
		// return address on the stack, low byte first
		assert.Equal(t, uint8(0x03), cpu.memory.Read(cpu.sp))
		assert.Equal(t, uint8(0xC0), cpu.memory.Read(cpu.sp+1))

		assert.Equal(t, 4, step(t, cpu))
		assert.Equal(t, uint16(0xC003), cpu.pc)
		assert.Equal(t, uint16(0xDFFF), cpu.sp)
	})

	t.Run("conditional call not taken", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.f = 0
		loadProgram(cpu, 0xDC, 0x00, 0xD1) // CALL C,0xD100
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint16(0xC003), cpu.pc)
	})

	t.Run("conditional ret", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.sp = 0xDFFD
		cpu.memory.Write(0xDFFD, 0x00)
		cpu.memory.Write(0xDFFE, 0x30)
		cpu.f = 0

		loadProgram(cpu, 0xC8) // RET Z, not taken
		assert.Equal(t, 2, step(t, cpu))
		assert.Equal(t, uint16(0xC001), cpu.pc)

		cpu.setFlag(zeroFlag)
		loadProgram(cpu, 0xC8) // RET Z, taken
		assert.Equal(t, 5, step(t, cpu))
		assert.Equal(t, uint16(0x3000), cpu.pc)
	})

	t.Run("rst", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.sp = 0xDFFF
		loadProgram(cpu, 0xEF) // RST 0x28
		assert.Equal(t, 4, step(t, cpu))
		assert.Equal(t, uint16(0x0028), cpu.pc)
		assert.Equal(t, uint8(0x01), cpu.memory.Read(cpu.sp))
		assert.Equal(t, uint8(0xC0), cpu.memory.Read(cpu.sp+1))
	})
}

func TestExecute_prefixed(t *testing.T) {
	t.Run("srl b", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.b = 0xFF
		cpu.f = 0
		loadProgram(cpu, 0xCB, 0x38) // SRL B
		assert.Equal(t, 2, step(t, cpu))
		assert.Equal(t, uint8(0x7F), cpu.b)
		assert.Equal(t, uint8(carryFlag), cpu.f)
		assert.Equal(t, uint16(0xC002), cpu.pc)
	})

	t.Run("set 7,(hl)", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xD000)
		cpu.memory.Write(0xD000, 0x00)
		loadProgram(cpu, 0xCB, 0xFE) // SET 7,(HL)
		assert.Equal(t, 4, step(t, cpu))
		assert.Equal(t, uint8(0x80), cpu.memory.Read(0xD000))
	})

	t.Run("bit 7,(hl)", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xD000)
		cpu.memory.Write(0xD000, 0x80)
		cpu.f = 0
		loadProgram(cpu, 0xCB, 0x7E) // BIT 7,(HL)
		assert.Equal(t, 3, step(t, cpu))
		assert.Equal(t, uint8(halfCarryFlag), cpu.f)
	})

	t.Run("swap a", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0xF1
		loadProgram(cpu, 0xCB, 0x37) // SWAP A
		assert.Equal(t, 2, step(t, cpu))
		assert.Equal(t, uint8(0x1F), cpu.a)
	})
}

func TestExecute_alu16(t *testing.T) {
	cpu := newTestCPU()
	cpu.setHL(0x1000)
	cpu.setBC(0x0234)
	loadProgram(cpu,
		0x09, // ADD HL,BC
		0x03, // INC BC
		0x0B, // DEC BC
		0x33, // INC SP
	)
	assert.Equal(t, 2, step(t, cpu))
	assert.Equal(t, uint16(0x1234), cpu.getHL())
	assert.Equal(t, 2, step(t, cpu))
	assert.Equal(t, uint16(0x0235), cpu.getBC())
	assert.Equal(t, 2, step(t, cpu))
	assert.Equal(t, uint16(0x0234), cpu.getBC())

	cpu.sp = 0xFFFF
	assert.Equal(t, 2, step(t, cpu))
	assert.Equal(t, uint16(0x0000), cpu.sp, "SP wraps")
}

func TestExecute_addSP(t *testing.T) {
	cpu := newTestCPU()
	cpu.sp = 0xD000
	loadProgram(cpu, 0xE8, 0xFF) // ADD SP,-1
	assert.Equal(t, 4, step(t, cpu))
	assert.Equal(t, uint16(0xCFFF), cpu.sp)
}

func TestExecute_incDecIndirect(t *testing.T) {
	cpu := newTestCPU()
	cpu.setHL(0xD000)
	cpu.memory.Write(0xD000, 0x0F)
	loadProgram(cpu,
		0x34, // INC (HL)
		0x35, // DEC (HL)
	)
	assert.Equal(t, 3, step(t, cpu))
	assert.Equal(t, uint8(0x10), cpu.memory.Read(0xD000))
	assert.Equal(t, 3, step(t, cpu))
	assert.Equal(t, uint8(0x0F), cpu.memory.Read(0xD000))
}

func TestExecute_flagLowNibbleStaysZero(t *testing.T) {
	cpu := newTestCPU()
	program := []byte{
		0x3E, 0xFF, // LD A,0xFF
		0xC6, 0x01, // ADD A,0x01
		0xD6, 0x0F, // SUB 0x0F
		0x27,       // DAA
		0x37,       // SCF
		0x3F,       // CCF
		0x2F,       // CPL
		0xCB, 0x11, // RL C
	}
	loadProgram(cpu, program...)

	for cpu.pc < 0xC000+uint16(len(program)) {
		step(t, cpu)
		assert.Equal(t, uint8(0), cpu.f&0x0F, "low nibble of F must read zero")
	}
}

func TestExecute_misc(t *testing.T) {
	t.Run("scf ccf cpl", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.f = 0
		cpu.a = 0x0F
		loadProgram(cpu, 0x37, 0x3F, 0x2F)
		assert.Equal(t, 1, step(t, cpu))
		assert.Equal(t, uint8(carryFlag), cpu.f)
		assert.Equal(t, 1, step(t, cpu))
		assert.Equal(t, uint8(0), cpu.f)
		assert.Equal(t, 1, step(t, cpu))
		assert.Equal(t, uint8(0xF0), cpu.a)
		assert.Equal(t, uint8(subFlag|halfCarryFlag), cpu.f)
	})

	t.Run("stop", func(t *testing.T) {
		cpu := newTestCPU()
		loadProgram(cpu, 0x10, 0x00)
		assert.Equal(t, 1, step(t, cpu))
		assert.True(t, cpu.Stopped())
		assert.Equal(t, uint16(0xC002), cpu.pc)
	})
}

func TestStep_decodeError(t *testing.T) {
	cpu := newTestCPU()
	loadProgram(cpu, 0xDB)

	_, err := cpu.Step()
	assert.Error(t, err)

	var decodeErr DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, byte(0xDB), decodeErr.Opcode)
	assert.Equal(t, uint16(0xC000), decodeErr.PC)
}

func TestStep_pcWraps(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)
	cpu.pc = 0xFFFF
	// 0xFFFF is the IE register; write a NOP pattern there so fetch sees 0x00.
	mmu.Write(0xFFFF, 0x00)

	cycles := step(t, cpu)
	assert.Equal(t, 1, cycles)
	assert.Equal(t, uint16(0x0000), cpu.pc)
}
