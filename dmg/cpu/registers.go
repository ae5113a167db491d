package cpu

import "github.com/valerio/go-dmg/dmg/bit"

// Flag is one of the 4 possible flags used in the flag register (low part of AF).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// flagMask keeps the low nibble of F at zero; it is the only legal flag carrier.
const flagMask = 0xF0

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

// flagToBit returns 1 if the flag is set, 0 otherwise.
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

// PackFlags packs the four flag booleans into the flag byte. The low nibble
// is always zero.
func PackFlags(zero, sub, halfCarry, carry bool) uint8 {
	var f uint8
	if zero {
		f |= uint8(zeroFlag)
	}
	if sub {
		f |= uint8(subFlag)
	}
	if halfCarry {
		f |= uint8(halfCarryFlag)
	}
	if carry {
		f |= uint8(carryFlag)
	}
	return f
}

// UnpackFlags splits a flag byte into the four flag booleans, ignoring the
// low nibble.
func UnpackFlags(f uint8) (zero, sub, halfCarry, carry bool) {
	return f&uint8(zeroFlag) != 0,
		f&uint8(subFlag) != 0,
		f&uint8(halfCarryFlag) != 0,
		f&uint8(carryFlag) != 0
}

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }
func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	c.f = bit.Low(value) & flagMask
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}
