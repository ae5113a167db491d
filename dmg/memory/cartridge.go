package memory

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	titleAddress         = 0x0134
	titleLength          = 15
	cartridgeTypeAddress = 0x0147
	romSizeAddress       = 0x0148
	ramSizeAddress       = 0x0149
	versionNumberAddress = 0x014C
)

// CartridgeType identifies the mapper hardware declared in the header.
type CartridgeType uint8

const (
	ROMOnly CartridgeType = iota
	MBC1
	MBC2
	MBC3
	MBC5
	UnknownMapper
)

func (t CartridgeType) String() string {
	switch t {
	case ROMOnly:
		return "ROM"
	case MBC1:
		return "MBC1"
	case MBC2:
		return "MBC2"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	}
	return "Unknown"
}

// cartridgeTypeFromCode maps the header type code (byte 0x0147) to the
// mapper family. Codes that only add RAM/battery/rumble extras collapse
// onto the same family.
func cartridgeTypeFromCode(code byte) CartridgeType {
	switch code {
	case 0x00, 0x08, 0x09:
		return ROMOnly
	case 0x01, 0x02, 0x03:
		return MBC1
	case 0x05, 0x06:
		return MBC2
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return MBC3
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return MBC5
	}
	return UnknownMapper
}

// Cartridge is a read-only program image plus its parsed header. Only plain
// ROM cartridges are banked correctly; other mappers load and read
// straight-through.
type Cartridge struct {
	data []byte

	title    string
	typeCode byte
	mapper   CartridgeType
	romSize  byte
	ramSize  byte
	version  byte
}

// NewCartridge creates an empty cartridge. All reads return 0xFF, like a
// Gameboy turned on with nothing in the slot.
func NewCartridge() *Cartridge {
	return &Cartridge{}
}

// NewCartridgeWithData initializes a Cartridge from a program image. Header
// fields that fall outside a short image read as zero; a title that is not
// valid text is replaced with a lossy placeholder, never an error.
func NewCartridgeWithData(data []byte) *Cartridge {
	cart := &Cartridge{
		data:     make([]byte, len(data)),
		title:    parseTitle(data),
		typeCode: headerByte(data, cartridgeTypeAddress),
		romSize:  headerByte(data, romSizeAddress),
		ramSize:  headerByte(data, ramSizeAddress),
		version:  headerByte(data, versionNumberAddress),
	}
	copy(cart.data, data)
	cart.mapper = cartridgeTypeFromCode(cart.typeCode)

	slog.Debug("loaded cartridge",
		"title", cart.title,
		"type", cart.mapper,
		"rom_size", cart.romSize,
		"ram_size", cart.ramSize)

	return cart
}

// Read returns the byte at the given address. Addresses beyond the image
// read as 0xFF, like unconnected bus lines.
func (c *Cartridge) Read(address uint16) byte {
	if int(address) >= len(c.data) {
		return 0xFF
	}
	return c.data[address]
}

// Title returns the game title parsed from the header.
func (c *Cartridge) Title() string {
	return c.title
}

// Type returns the mapper family declared in the header.
func (c *Cartridge) Type() CartridgeType {
	return c.mapper
}

// TypeCode returns the raw cartridge-type byte from the header.
func (c *Cartridge) TypeCode() byte {
	return c.typeCode
}

func headerByte(data []byte, address int) byte {
	if address >= len(data) {
		return 0
	}
	return data[address]
}

func parseTitle(data []byte) string {
	if len(data) < titleAddress+titleLength {
		return ""
	}

	raw := data[titleAddress : titleAddress+titleLength]
	title := strings.TrimRight(string(raw), "\x00")
	if !utf8.ValidString(title) {
		slog.Warn("cartridge title is not valid text, using lossy replacement")
		title = strings.ToValidUTF8(title, "?")
	}

	return title
}
