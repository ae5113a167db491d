package memory

import "github.com/valerio/go-dmg/dmg/bit"

// JoypadKey represents a key on the Gameboy joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

func (k JoypadKey) String() string {
	switch k {
	case JoypadRight:
		return "Right"
	case JoypadLeft:
		return "Left"
	case JoypadUp:
		return "Up"
	case JoypadDown:
		return "Down"
	case JoypadA:
		return "A"
	case JoypadB:
		return "B"
	case JoypadSelect:
		return "Select"
	case JoypadStart:
		return "Start"
	}
	return "Unknown"
}

// Joypad tracks the pressed state of the eight buttons and encodes the P1
// register. Only the selector bits (4-5) of P1 are writable; bit 5 selects
// the direction nibble, bit 4 the button nibble. In register reads a pressed
// button is 0 and bits 6-7 always read as 1.
type Joypad struct {
	selector byte
	state    byte // one bit per JoypadKey, 1 = pressed

	// JoypadInterruptHandler is called when a button transitions to pressed,
	// should be wired to request the Joypad interrupt.
	JoypadInterruptHandler func()
}

// Write stores the selector bits of P1.
func (j *Joypad) Write(value byte) {
	j.selector = value & 0x30
}

// Read encodes the P1 register from the selector and the button states.
func (j *Joypad) Read() byte {
	result := 0xC0 | j.selector

	switch {
	case j.selector&0x20 != 0:
		result |= j.nibble(JoypadDown, JoypadUp, JoypadLeft, JoypadRight)
	case j.selector&0x10 != 0:
		result |= j.nibble(JoypadStart, JoypadSelect, JoypadB, JoypadA)
	default:
		result |= 0x0F
	}

	return result
}

// nibble packs four button states into bits 3-0, pressed reading as 0.
func (j *Joypad) nibble(b3, b2, b1, b0 JoypadKey) byte {
	var result byte
	if !j.pressed(b3) {
		result |= 1 << 3
	}
	if !j.pressed(b2) {
		result |= 1 << 2
	}
	if !j.pressed(b1) {
		result |= 1 << 1
	}
	if !j.pressed(b0) {
		result |= 1
	}
	return result
}

func (j *Joypad) pressed(key JoypadKey) bool {
	return bit.IsSet(uint8(key), j.state)
}

// Press marks a key as pressed and, on a released-to-pressed transition,
// raises the Joypad interrupt.
func (j *Joypad) Press(key JoypadKey) {
	if !j.pressed(key) && j.JoypadInterruptHandler != nil {
		j.JoypadInterruptHandler()
	}
	j.state = bit.Set(uint8(key), j.state)
}

// Release marks a key as released.
func (j *Joypad) Release(key JoypadKey) {
	j.state = bit.Reset(uint8(key), j.state)
}
