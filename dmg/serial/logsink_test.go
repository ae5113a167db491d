package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-dmg/dmg/addr"
)

func TestLogSink_transfer(t *testing.T) {
	fired := 0
	var bytes []byte
	sink := NewLogSink(func() { fired++ }, WithByteHook(func(b byte) { bytes = append(bytes, b) }))

	sink.Write(addr.SB, 'A')
	sink.Write(addr.SC, 0x81)

	assert.Equal(t, 1, fired, "completed transfer raises the Serial interrupt")
	assert.Equal(t, []byte{'A'}, bytes)
	assert.Equal(t, "A", sink.Transcript())
	assert.Equal(t, byte(0xFF), sink.Read(addr.SB), "no peer: SB reads 0xFF after transfer")
	assert.Equal(t, byte(0x01), sink.Read(addr.SC), "start bit cleared on completion")
}

func TestLogSink_noTransferWithoutStartBit(t *testing.T) {
	fired := 0
	sink := NewLogSink(func() { fired++ })

	sink.Write(addr.SB, 'A')
	sink.Write(addr.SC, 0x01) // clock bit only

	assert.Equal(t, 0, fired)
	assert.Equal(t, "", sink.Transcript())
	assert.Equal(t, byte('A'), sink.Read(addr.SB))
}

func TestLogSink_noTransferOnExternalClock(t *testing.T) {
	fired := 0
	sink := NewLogSink(func() { fired++ })

	sink.Write(addr.SB, 'A')
	sink.Write(addr.SC, 0x80) // start bit, external clock

	assert.Equal(t, 0, fired)
}

func TestLogSink_fixedTiming(t *testing.T) {
	fired := 0
	sink := NewLogSink(func() { fired++ }, WithFixedTiming())

	sink.Write(addr.SB, 'X')
	sink.Write(addr.SC, 0x81)

	assert.Equal(t, 0, fired, "transfer still in flight")
	assert.Equal(t, byte(0x81), sink.Read(addr.SC))

	sink.Tick(4095)
	assert.Equal(t, 0, fired)

	sink.Tick(1)
	assert.Equal(t, 1, fired)
	assert.Equal(t, byte(0x01), sink.Read(addr.SC))
}

func TestLogSink_transcriptAccumulates(t *testing.T) {
	sink := NewLogSink(nil)

	for _, b := range []byte("Passed") {
		sink.Write(addr.SB, b)
		sink.Write(addr.SC, 0x81)
	}

	assert.Equal(t, "Passed", sink.Transcript())

	sink.Reset()
	assert.Equal(t, "", sink.Transcript())
}
