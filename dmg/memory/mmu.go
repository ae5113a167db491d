// Package memory implements the bus (MMU), the cartridge and the small
// state machines mapped into the IO region: interrupts, timer and joypad.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/serial"
	"github.com/valerio/go-dmg/dmg/video"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

const bootROMSize = 0x100

// ProhibitedAccessError reports a read or write to the echo RAM or
// not-usable regions. It only surfaces in strict bus mode.
type ProhibitedAccessError struct {
	Address uint16
	Write   bool
}

func (e ProhibitedAccessError) Error() string {
	kind := "read"
	if e.Write {
		kind = "write"
	}
	return fmt.Sprintf("prohibited %s at 0x%04X", kind, e.Address)
}

// MMU is the bus: the sole authority on which component owns which address.
// It owns work RAM, high RAM, external RAM and the boot ROM overlay, and
// routes every other region to its owning component.
type MMU struct {
	cart *Cartridge

	// GPU owns VRAM, OAM and the LCD registers.
	GPU *video.GPU

	Interrupts Interrupts
	Joypad     Joypad
	Timer      Timer

	serialPort serial.Port

	bootROM    [bootROMSize]byte
	bootMapped bool

	eram [0x2000]byte
	wram [0x2000]byte
	hram [0x7F]byte
	io   [0x80]byte

	strict    bool
	regionMap [256]memRegion
}

// Option configures an MMU at construction time.
type Option func(*MMU)

// WithBootROM overlays the given 256-byte image over 0x0000-0x00FF until
// software writes 0x01 to the boot disable register.
func WithBootROM(data []byte) Option {
	return func(m *MMU) {
		copy(m.bootROM[:], data)
		m.bootMapped = true
	}
}

// WithStrictAccess makes prohibited accesses fault instead of being dropped.
// Meant for debugging; real software relies on the lenient default.
func WithStrictAccess() Option {
	return func(m *MMU) { m.strict = true }
}

// New creates a memory unit with no cartridge loaded, equivalent to turning
// on a Gameboy with an empty slot.
func New(opts ...Option) *MMU {
	return NewWithCartridge(NewCartridge(), opts...)
}

// NewWithCartridge creates a memory unit with the provided cartridge loaded.
func NewWithCartridge(cart *Cartridge, opts ...Option) *MMU {
	m := &MMU{cart: cart}
	m.GPU = video.NewGPU(m.RequestInterrupt)
	m.Timer.TimerInterruptHandler = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.Joypad.JoypadInterruptHandler = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.initRegionMap()

	for _, opt := range opts {
		opt(m)
	}

	if !m.bootMapped {
		m.applyPostBootState()
	}

	return m
}

func (m *MMU) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// applyPostBootState puts the IO registers in the state the boot ROM leaves
// behind, for running without a boot image.
func (m *MMU) applyPostBootState() {
	m.GPU.WriteRegister(addr.LCDC, 0x91)
	m.GPU.WriteRegister(addr.BGP, 0xFC)
	m.GPU.WriteRegister(addr.OBP0, 0xFF)
	m.GPU.WriteRegister(addr.OBP1, 0xFF)
	m.Timer.div = 0xAB
}

// AttachSerial connects a device to the SB/SC registers.
func (m *MMU) AttachSerial(port serial.Port) {
	m.serialPort = port
}

// Cartridge returns the loaded cartridge.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

// BootROMMapped reports whether the boot overlay is still mapped.
func (m *MMU) BootROMMapped() bool {
	return m.bootMapped
}

// Tick advances the IO devices that consume time.
func (m *MMU) Tick(cycles int) {
	m.Timer.Tick(cycles)
	if m.serialPort != nil {
		m.serialPort.Tick(cycles)
	}
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.Interrupts.Request(interrupt)
}

// PendingInterrupts returns the set of interrupts both enabled and flagged.
func (m *MMU) PendingInterrupts() byte {
	return m.Interrupts.Pending()
}

// ClaimInterrupt arbitrates the pending interrupts, clears the winner's flag
// bit and returns its handler vector.
func (m *MMU) ClaimInterrupt() (uint16, bool) {
	interrupt, ok := m.Interrupts.Claim()
	if !ok {
		return 0, false
	}
	return interrupt.Vector(), true
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.bootMapped && address < bootROMSize {
			return m.bootROM[address]
		}
		return m.cart.Read(address)
	case regionVRAM:
		return m.GPU.PPU.ReadVRAM(address)
	case regionExtRAM:
		return m.eram[address-0xA000]
	case regionWRAM:
		return m.wram[address-0xC000]
	case regionEcho:
		return m.prohibitedRead(address)
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.GPU.PPU.ReadOAM(address)
		}
		return m.prohibitedRead(address)
	case regionIO:
		return m.readIO(address)
	}
	return 0xFF
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM:
		// Plain ROM: writes are dropped. Mapper registers would live here.
		slog.Debug("ignoring write to ROM", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
	case regionVRAM:
		m.GPU.PPU.WriteVRAM(address, value)
	case regionExtRAM:
		m.eram[address-0xA000] = value
	case regionWRAM:
		m.wram[address-0xC000] = value
	case regionEcho:
		m.prohibitedWrite(address)
	case regionOAM:
		if address <= addr.OAMEnd {
			m.GPU.PPU.WriteOAM(address, value)
			return
		}
		m.prohibitedWrite(address)
	case regionIO:
		m.writeIO(address, value)
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.Joypad.Read()
	case address == addr.SB || address == addr.SC:
		if m.serialPort == nil {
			return 0xFF
		}
		return m.serialPort.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return m.Timer.Read(address)
	case address == addr.IF:
		return m.Interrupts.ReadFlags()
	case address == addr.DMA:
		return m.io[address-0xFF00]
	case address >= addr.LCDC && address <= addr.WX:
		return m.GPU.ReadRegister(address)
	case address == addr.IE:
		return m.Interrupts.ReadEnable()
	case address >= 0xFF80:
		return m.hram[address-0xFF80]
	default:
		return m.io[address-0xFF00]
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.Joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		if m.serialPort != nil {
			m.serialPort.Write(address, value)
		}
	case address >= addr.DIV && address <= addr.TAC:
		m.Timer.Write(address, value)
	case address == addr.IF:
		m.Interrupts.WriteFlags(value)
	case address == addr.DMA:
		m.dmaTransfer(value)
	case address >= addr.LCDC && address <= addr.WX:
		m.GPU.WriteRegister(address, value)
	case address == addr.Boot:
		if m.bootMapped && value == 0x01 {
			m.bootMapped = false
			slog.Debug("boot ROM unmapped")
		}
		m.io[address-0xFF00] = value
	case address == addr.IE:
		m.Interrupts.WriteEnable(value)
	case address >= 0xFF80:
		m.hram[address-0xFF80] = value
	default:
		m.io[address-0xFF00] = value
	}
}

// dmaTransfer copies 160 bytes from value<<8 into OAM.
func (m *MMU) dmaTransfer(value byte) {
	source := uint16(value) << 8
	for i := uint16(0); i < 160; i++ {
		m.GPU.PPU.WriteOAM(addr.OAMStart+i, m.Read(source+i))
	}
	m.io[addr.DMA-0xFF00] = value
}

func (m *MMU) prohibitedRead(address uint16) byte {
	if m.strict {
		panic(ProhibitedAccessError{Address: address})
	}
	slog.Warn("prohibited read", "addr", fmt.Sprintf("0x%04X", address))
	return 0xFF
}

func (m *MMU) prohibitedWrite(address uint16) {
	if m.strict {
		panic(ProhibitedAccessError{Address: address, Write: true})
	}
	slog.Warn("prohibited write", "addr", fmt.Sprintf("0x%04X", address))
}
