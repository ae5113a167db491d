package video

import (
	"log/slog"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// LCDMode represents the LCD controller's current rendering stage.
type LCDMode uint8

const (
	// ModeHBlank (Mode 0): horizontal blank at the end of a scanline.
	ModeHBlank LCDMode = 0
	// ModeVBlank (Mode 1): vertical blank, entered when LY reaches 143 and
	// held through LY 153.
	ModeVBlank LCDMode = 1
	// ModeSearchingOAM (Mode 2): the controller scans OAM for the line's sprites.
	ModeSearchingOAM LCDMode = 2
	// ModeTransfering (Mode 3): pixel data is transferred to the screen.
	ModeTransfering LCDMode = 3
)

// Mode durations in clock cycles. A full scanline is 456 clocks; the eleven
// VBlank lines (LY 143-153) take one scanline's worth of clocks each.
const (
	clocksSearchingOAM = 80
	clocksTransfering  = 172
	clocksHBlank       = 204
	clocksVBlank       = 456
)

// LCDC (LCD Control) register bit indices.
// Bit 7 - LCD Display Enable
// Bit 6 - Window Tile Map Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF signed, 1=8000-8FFF)
// Bit 3 - BG Tile Map Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ Size (0=8x8, 1=8x16)
// Bit 1 - OBJ Display Enable
// Bit 0 - BG Display
const (
	lcdDisplayEnable    = 7
	windowTileMapSelect = 6
	windowEnable        = 5
	bgTileDataSelect    = 4
	bgTileMapSelect     = 3
	spriteSize          = 2
	spriteEnable        = 1
	bgEnable            = 0
)

// STAT register bit indices.
// Bit 6 - LYC==LY interrupt enable
// Bit 5 - Mode 2 (OAM) interrupt enable
// Bit 4 - Mode 1 (VBlank) interrupt enable
// Bit 3 - Mode 0 (HBlank) interrupt enable
// Bit 2 - LYC==LY coincidence flag
// Bits 1-0 - current mode
const (
	statLycIrq       = 6
	statOamIrq       = 5
	statVblankIrq    = 4
	statHblankIrq    = 3
	statLycCoincides = 2
)

// GPU is the LCD controller: the mode state machine, the memory-mapped LCD
// registers and the frame buffers it produces. It owns the PPU and through it
// VRAM, OAM and the decoded tile set.
type GPU struct {
	PPU *PPU

	requestInterrupt func(addr.Interrupt)

	// LCD registers
	lcdc byte
	stat byte
	scy  byte
	scx  byte
	lyc  byte
	bgp  byte
	obp0 byte
	obp1 byte
	wy   byte
	wx   byte

	mode  LCDMode
	clock int
	line  int

	screen     *FrameBuffer
	tileData   *FrameBuffer
	background *FrameBuffer
}

// NewGPU creates an LCD controller in OAM search at scanline 0. The irq
// callback is invoked to raise VBlank and LCDStat interrupts.
func NewGPU(irq func(addr.Interrupt)) *GPU {
	return &GPU{
		PPU:              NewPPU(),
		requestInterrupt: irq,
		mode:             ModeSearchingOAM,
		screen:           NewScreenBuffer(),
		tileData:         NewFrameBuffer(TileDataWidth, TileDataHeight),
		background:       NewFrameBuffer(BackgroundSize, BackgroundSize),
	}
}

// Screen returns the 160x144 frame buffer for the visible LCD.
func (g *GPU) Screen() *FrameBuffer {
	return g.screen
}

// TileDataFrame returns the debug frame tiling all 384 decoded tiles.
// It is snapshotted at each VBlank.
func (g *GPU) TileDataFrame() *FrameBuffer {
	return g.tileData
}

// BackgroundFrame returns the debug frame composing the full 32x32
// background map. It is snapshotted at each VBlank.
func (g *GPU) BackgroundFrame() *FrameBuffer {
	return g.background
}

// Mode returns the controller's current mode.
func (g *GPU) Mode() LCDMode {
	return g.mode
}

// Line returns the current scanline (the LY register).
func (g *GPU) Line() int {
	return g.line
}

// Tick advances the LCD state machine by the given number of clock cycles.
// Reference: https://gbdev.io/pandocs/STAT.html#stat-modes
func (g *GPU) Tick(cycles int) {
	g.clock += cycles
	for g.advance() {
	}
}

// advance performs at most one mode transition, reporting whether the
// accumulated clock reached the current mode's threshold.
func (g *GPU) advance() bool {
	switch g.mode {
	case ModeSearchingOAM:
		if g.clock >= clocksSearchingOAM {
			g.clock -= clocksSearchingOAM
			g.setMode(ModeTransfering)
			return true
		}
	case ModeTransfering:
		if g.clock >= clocksTransfering {
			g.clock -= clocksTransfering
			g.setMode(ModeHBlank)
			g.renderScanline()
			if bit.IsSet(statHblankIrq, g.stat) {
				g.requestInterrupt(addr.LCDSTATInterrupt)
			}
			return true
		}
	case ModeHBlank:
		if g.clock >= clocksHBlank {
			g.clock -= clocksHBlank
			g.setLine(g.line + 1)

			if g.line == ScreenHeight-1 {
				g.setMode(ModeVBlank)
				g.requestInterrupt(addr.VBlankInterrupt)
				g.renderTileDataFrame()
				g.renderBackgroundFrame()
				if bit.IsSet(statVblankIrq, g.stat) {
					g.requestInterrupt(addr.LCDSTATInterrupt)
				}
			} else {
				g.setMode(ModeSearchingOAM)
				if bit.IsSet(statOamIrq, g.stat) {
					g.requestInterrupt(addr.LCDSTATInterrupt)
				}
			}
			return true
		}
	case ModeVBlank:
		if g.clock >= clocksVBlank {
			g.clock -= clocksVBlank
			g.setLine(g.line + 1)

			if g.line > 153 {
				g.setLine(0)
				g.setMode(ModeSearchingOAM)
				if bit.IsSet(statOamIrq, g.stat) {
					g.requestInterrupt(addr.LCDSTATInterrupt)
				}
			}
			return true
		}
	}
	return false
}

// ReadRegister reads one of the LCD registers (0xFF40-0xFF4B, except DMA
// which belongs to the bus).
func (g *GPU) ReadRegister(address uint16) byte {
	switch address {
	case addr.LCDC:
		return g.lcdc
	case addr.STAT:
		return g.stat&0xF8 | byte(g.mode) | g.coincidenceBit()
	case addr.SCY:
		return g.scy
	case addr.SCX:
		return g.scx
	case addr.LY:
		return byte(g.line)
	case addr.LYC:
		return g.lyc
	case addr.BGP:
		return g.bgp
	case addr.OBP0:
		return g.obp0
	case addr.OBP1:
		return g.obp1
	case addr.WY:
		return g.wy
	case addr.WX:
		return g.wx
	}
	return 0xFF
}

// WriteRegister writes one of the LCD registers. LY is owned by the state
// machine: the write is observed but the controller keeps its own line.
func (g *GPU) WriteRegister(address uint16, value byte) {
	switch address {
	case addr.LCDC:
		g.lcdc = value
	case addr.STAT:
		// Bits 2-0 are read-only status bits.
		g.stat = value & 0xF8
	case addr.SCY:
		g.scy = value
	case addr.SCX:
		g.scx = value
	case addr.LY:
		slog.Debug("ignoring write to LY", "value", value)
	case addr.LYC:
		g.lyc = value
		g.compareLine()
	case addr.BGP:
		g.bgp = value
	case addr.OBP0:
		g.obp0 = value
	case addr.OBP1:
		g.obp1 = value
	case addr.WY:
		g.wy = value
	case addr.WX:
		g.wx = value
	}
}

func (g *GPU) coincidenceBit() byte {
	if byte(g.line) == g.lyc {
		return 1 << statLycCoincides
	}
	return 0
}

func (g *GPU) setMode(mode LCDMode) {
	g.mode = mode
}

func (g *GPU) setLine(line int) {
	g.line = line
	g.compareLine()
}

func (g *GPU) compareLine() {
	if byte(g.line) == g.lyc && bit.IsSet(statLycIrq, g.stat) {
		g.requestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) control(index uint8) bool {
	return bit.IsSet(index, g.lcdc)
}

// palette maps a 2-bit tile pixel value through the BG palette register.
func (g *GPU) palette(value uint8) Pixel {
	return Pixel((g.bgp >> (2 * value)) & 0x03)
}

// tileIndex resolves a tile map entry to a tile set index, honoring the
// LCDC tile data select bit (unsigned from 0x8000 or signed from 0x9000).
func (g *GPU) tileIndex(mapValue byte) int {
	if g.control(bgTileDataSelect) {
		return int(mapValue)
	}
	return 256 + int(int8(mapValue))
}

func (g *GPU) bgTileMapBase() uint16 {
	if g.control(bgTileMapSelect) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

// renderScanline draws the current line of the background into the screen
// buffer. When the background is disabled the line is left untouched.
func (g *GPU) renderScanline() {
	if !g.control(bgEnable) {
		return
	}

	mapBase := g.bgTileMapBase() - vramBegin

	// The y coordinate in background space wraps at 256; the map row is the
	// coordinate broken into 8-pixel chunks times the 32-tile map width.
	tileY := (g.line + int(g.scy)) & 0xFF
	rowOffset := uint16(tileY/8) * 32
	tileRow := tileY % 8

	tileX := int(g.scx) / 8
	pixelX := int(g.scx) % 8

	bufferOffset := g.line * ScreenWidth
	for x := 0; x < ScreenWidth; x++ {
		mapValue := g.PPU.vram[mapBase+rowOffset+uint16(tileX%32)]
		tile := g.PPU.tileSet[g.tileIndex(mapValue)]

		g.screen.pix[bufferOffset+x] = g.palette(tile[tileRow][pixelX])

		pixelX = (pixelX + 1) % 8
		if pixelX == 0 {
			tileX++
		}
	}
}

// renderTileDataFrame tiles the 384 decoded tiles into a 16x24 grid.
func (g *GPU) renderTileDataFrame() {
	const cols = TileDataWidth / 8

	for t := 0; t < TileCount; t++ {
		baseX := (t % cols) * 8
		baseY := (t / cols) * 8
		tile := g.PPU.tileSet[t]

		for row := 0; row < 8; row++ {
			for px := 0; px < 8; px++ {
				g.tileData.SetPixel(baseX+px, baseY+row, g.palette(tile[row][px]))
			}
		}
	}
}

// renderBackgroundFrame composes the full 32x32 background map.
func (g *GPU) renderBackgroundFrame() {
	mapBase := g.bgTileMapBase() - vramBegin

	for ty := 0; ty < 32; ty++ {
		for tx := 0; tx < 32; tx++ {
			mapValue := g.PPU.vram[mapBase+uint16(ty*32+tx)]
			tile := g.PPU.tileSet[g.tileIndex(mapValue)]

			for row := 0; row < 8; row++ {
				for px := 0; px < 8; px++ {
					g.background.SetPixel(tx*8+px, ty*8+row, g.palette(tile[row][px]))
				}
			}
		}
	}
}
