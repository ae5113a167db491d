// Package serial implements devices for the SB/SC game link port.
package serial

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// Port is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type Port interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// SC bit indices: bit 7 starts a transfer, bit 0 selects the internal clock.
const (
	scStartBit = 7
	scClockBit = 0
)

// noPeer is what SB holds after a transfer with nothing on the link cable.
const noPeer = 0xFF

// transferCycles is roughly how long one byte takes on the DMG's internal
// clock (8 bits at 8192 Hz).
const transferCycles = 4096

// LogSink is a serial device with no peer on the other end of the cable.
// Every byte shifted out lands in a transcript, which is how the Blargg test
// ROMs report results. Completed transfers raise the Serial interrupt.
type LogSink struct {
	irq    func()
	onByte func(byte)

	data    byte // SB
	control byte // SC

	// remaining counts down the cycles left in the active transfer;
	// zero or less means the port is idle.
	remaining int
	instant   bool

	transcript []byte
}

type LogSinkOption func(*LogSink)

// WithFixedTiming makes transfers take their real ~4096-cycle duration
// instead of completing on the SC write.
func WithFixedTiming() LogSinkOption { return func(s *LogSink) { s.instant = false } }

// WithByteHook registers a function called once per transferred byte, as the
// transfer starts. The driver uses it to surface serial output per step.
func WithByteHook(fn func(byte)) LogSinkOption { return func(s *LogSink) { s.onByte = fn } }

// NewLogSink creates a new logging serial device.
// The passed function is called when a transfer is completed, should be wired
// to request the Serial interrupt.
func NewLogSink(irq func(), opts ...LogSinkOption) *LogSink {
	s := &LogSink{irq: irq, instant: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.data = value
	case addr.SC:
		s.control = value
		if s.shouldStart() {
			s.shiftOut()
		}
	default:
		panic("serial.LogSink: invalid write address")
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.data
	case addr.SC:
		return s.control
	default:
		panic("serial.LogSink: invalid read address")
	}
}

// Tick counts down an in-flight transfer.
func (s *LogSink) Tick(cycles int) {
	if s.remaining <= 0 {
		return
	}
	s.remaining -= cycles
	if s.remaining <= 0 {
		s.finish()
	}
}

func (s *LogSink) Reset() {
	s.data = 0
	s.control = 0
	s.remaining = 0
	s.transcript = s.transcript[:0]
}

// Transcript returns every byte transferred out since the last Reset.
func (s *LogSink) Transcript() string {
	return string(s.transcript)
}

// shouldStart reports whether the last SC write requests a transfer the port
// can begin: start bit and internal clock set, nothing already in flight.
// With an external clock and no peer there are no pulses, so nothing happens.
func (s *LogSink) shouldStart() bool {
	if s.remaining > 0 {
		return false
	}
	return bit.IsSet(scStartBit, s.control) && bit.IsSet(scClockBit, s.control)
}

// shiftOut records the outgoing byte and either completes the transfer right
// away or leaves it in flight for Tick to finish.
func (s *LogSink) shiftOut() {
	b := s.data
	s.transcript = append(s.transcript, b)
	if s.onByte != nil {
		s.onByte(b)
	}
	slog.Debug("serial out", "byte", fmt.Sprintf("0x%02X", b))

	if s.instant {
		s.finish()
		return
	}
	s.remaining = transferCycles
}

// finish completes the transfer: with no peer the received byte is 0xFF,
// hardware clears the start bit and the Serial interrupt fires.
func (s *LogSink) finish() {
	s.data = noPeer
	s.control = bit.Reset(scStartBit, s.control)
	s.remaining = 0
	if s.irq != nil {
		s.irq()
	}
}
