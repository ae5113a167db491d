package memory

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// interruptPriority lists the five sources highest priority first; the
// arbiter always picks the lowest-index pending source.
var interruptPriority = [5]addr.Interrupt{
	addr.VBlankInterrupt,
	addr.LCDSTATInterrupt,
	addr.TimerInterrupt,
	addr.SerialInterrupt,
	addr.JoypadInterrupt,
}

// Interrupts holds the IE and IF register pair and arbitrates between
// pending interrupt sources.
type Interrupts struct {
	enable byte
	flags  byte
}

func (i *Interrupts) WriteEnable(value byte) {
	i.enable = value
}

func (i *Interrupts) ReadEnable() byte {
	return i.enable
}

func (i *Interrupts) WriteFlags(value byte) {
	// The upper 3 bits of IF are unused and always read as 1. Storing them
	// set keeps reads consistent no matter what software writes.
	i.flags = value | 0xE0
}

func (i *Interrupts) ReadFlags() byte {
	return i.flags | 0xE0
}

// Request sets the interrupt's flag bit in IF.
func (i *Interrupts) Request(interrupt addr.Interrupt) {
	i.flags = bit.Set(interrupt.BitIndex(), i.flags)
}

// Pending returns the set of interrupts that are both enabled and flagged.
func (i *Interrupts) Pending() byte {
	return i.enable & i.flags & 0x1F
}

// Claim selects the highest-priority pending interrupt, clears its flag bit
// and returns it. The second return is false when nothing is pending.
func (i *Interrupts) Claim() (addr.Interrupt, bool) {
	pending := i.Pending()
	if pending == 0 {
		return 0, false
	}
	for _, interrupt := range interruptPriority {
		if bit.IsSet(interrupt.BitIndex(), pending) {
			i.flags = bit.Reset(interrupt.BitIndex(), i.flags)
			return interrupt, true
		}
	}
	return 0, false
}
