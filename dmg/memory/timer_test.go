package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-dmg/dmg/addr"
)

func TestTimer_divIncrements(t *testing.T) {
	timer := &Timer{}

	timer.Tick(255)
	assert.Equal(t, byte(0x00), timer.Read(addr.DIV))

	timer.Tick(1)
	assert.Equal(t, byte(0x01), timer.Read(addr.DIV))

	for i := 0; i < 256/4; i++ {
		timer.Tick(4)
	}
	assert.Equal(t, byte(0x02), timer.Read(addr.DIV))
}

func TestTimer_divWriteResets(t *testing.T) {
	timer := &Timer{}

	timer.Tick(1000)
	assert.NotZero(t, timer.Read(addr.DIV))

	timer.Write(addr.DIV, 0x55)
	assert.Equal(t, byte(0x00), timer.Read(addr.DIV))
	assert.Equal(t, uint8(0), timer.divCounter)
}

func TestTimer_timaOverflow(t *testing.T) {
	fired := 0
	timer := &Timer{TimerInterruptHandler: func() { fired++ }}

	// enabled, 16 clocks per increment
	timer.Write(addr.TAC, 0x05)
	timer.Write(addr.TMA, 0xAB)
	timer.Write(addr.TIMA, 0xFF)

	timer.Tick(16)

	assert.Equal(t, byte(0xAB), timer.Read(addr.TIMA), "TIMA reloads from TMA on overflow")
	assert.Equal(t, 1, fired, "overflow raises the Timer interrupt")
}

func TestTimer_disabledDoesNotCount(t *testing.T) {
	timer := &Timer{}

	timer.Write(addr.TAC, 0x00)
	timer.Write(addr.TIMA, 0x00)
	timer.Tick(4096)

	assert.Equal(t, byte(0x00), timer.Read(addr.TIMA))
}

func TestTimer_frequencies(t *testing.T) {
	testCases := []struct {
		desc   string
		tac    byte
		clocks int
		want   byte
	}{
		{desc: "1024 clocks", tac: 0x04, clocks: 1024, want: 0x01},
		{desc: "16 clocks", tac: 0x05, clocks: 16 * 3, want: 0x03},
		{desc: "64 clocks", tac: 0x06, clocks: 64 * 2, want: 0x02},
		{desc: "256 clocks", tac: 0x07, clocks: 256, want: 0x01},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			timer := &Timer{}
			timer.Write(addr.TAC, tC.tac)
			timer.Tick(tC.clocks)
			assert.Equal(t, tC.want, timer.Read(addr.TIMA))
		})
	}
}

func TestTimer_accumulatesAcrossTicks(t *testing.T) {
	timer := &Timer{}
	timer.Write(addr.TAC, 0x05) // 16 clocks per increment

	for i := 0; i < 4; i++ {
		timer.Tick(4)
	}

	assert.Equal(t, byte(0x01), timer.Read(addr.TIMA))
}
