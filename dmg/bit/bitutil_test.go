package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.Equal(t, uint16(0x1234), Combine(0x12, 0x34))
	assert.Equal(t, uint16(0xFF00), Combine(0xFF, 0x00))
	assert.Equal(t, uint16(0x00FF), Combine(0x00, 0xFF))
}

func TestHighLow(t *testing.T) {
	assert.Equal(t, uint8(0x12), High(0x1234))
	assert.Equal(t, uint8(0x34), Low(0x1234))
	assert.Equal(t, Combine(High(0xBEEF), Low(0xBEEF)), uint16(0xBEEF))
}

func TestIsSet(t *testing.T) {
	assert.True(t, IsSet(0, 0b0000_0001))
	assert.True(t, IsSet(7, 0b1000_0000))
	assert.False(t, IsSet(3, 0b0000_0000))
	assert.False(t, IsSet(4, 0b0000_1111))
}

func TestIsSet16(t *testing.T) {
	assert.True(t, IsSet16(9, 1<<9))
	assert.False(t, IsSet16(9, 1<<8))
}

func TestSetReset(t *testing.T) {
	value := uint8(0)

	value = Set(3, value)
	assert.Equal(t, uint8(0b0000_1000), value)

	value = Set(0, value)
	assert.Equal(t, uint8(0b0000_1001), value)

	value = Reset(3, value)
	assert.Equal(t, uint8(0b0000_0001), value)

	assert.Equal(t, value, Reset(7, value), "resetting a clear bit is a no-op")
}

func TestGetBitValue(t *testing.T) {
	assert.Equal(t, uint8(1), GetBitValue(4, 0b0001_0000))
	assert.Equal(t, uint8(0), GetBitValue(4, 0b0000_0000))
}
