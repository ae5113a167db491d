package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoypad_noSelection(t *testing.T) {
	joypad := &Joypad{}

	joypad.Write(0x00)
	assert.Equal(t, byte(0xCF), joypad.Read(), "no selection reads high impedance")

	joypad.Press(JoypadA)
	assert.Equal(t, byte(0xCF), joypad.Read(), "presses invisible without a selection")
}

func TestJoypad_directionNibble(t *testing.T) {
	joypad := &Joypad{}

	joypad.Write(0x20)
	assert.Equal(t, byte(0xE0|0b1111), joypad.Read(), "nothing pressed")

	joypad.Press(JoypadUp)
	assert.Equal(t, byte(0xE0|0b1011), joypad.Read(), "up pressed reads bit 2 low")

	joypad.Press(JoypadRight)
	assert.Equal(t, byte(0xE0|0b1010), joypad.Read())

	joypad.Release(JoypadUp)
	assert.Equal(t, byte(0xE0|0b1110), joypad.Read())
}

func TestJoypad_buttonNibble(t *testing.T) {
	joypad := &Joypad{}

	joypad.Write(0x10)
	assert.Equal(t, byte(0xD0|0b1111), joypad.Read())

	joypad.Press(JoypadA)
	assert.Equal(t, byte(0xD0|0b1110), joypad.Read(), "A pressed reads bit 0 low")

	joypad.Press(JoypadStart)
	assert.Equal(t, byte(0xD0|0b0110), joypad.Read())
}

func TestJoypad_selectorSwitches(t *testing.T) {
	joypad := &Joypad{}
	joypad.Press(JoypadDown)
	joypad.Press(JoypadB)

	joypad.Write(0x20)
	assert.Equal(t, byte(0xE0|0b0111), joypad.Read(), "directions visible")

	joypad.Write(0x10)
	assert.Equal(t, byte(0xD0|0b1101), joypad.Read(), "buttons visible")
}

func TestJoypad_interruptOnPress(t *testing.T) {
	fired := 0
	joypad := &Joypad{JoypadInterruptHandler: func() { fired++ }}

	joypad.Press(JoypadStart)
	assert.Equal(t, 1, fired)

	// holding does not re-trigger
	joypad.Press(JoypadStart)
	assert.Equal(t, 1, fired)

	joypad.Release(JoypadStart)
	joypad.Press(JoypadStart)
	assert.Equal(t, 2, fired)
}
