// Package dmg drives the emulator core: it composes CPU, bus and LCD into a
// machine advanced tick by tick, and exposes frames, serial output and cycle
// totals to front-ends.
package dmg

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/cpu"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/serial"
	"github.com/valerio/go-dmg/dmg/video"
)

const (
	// ClockHz is the system clock frequency.
	ClockHz = 4_194_304
	// FramesPerSecond is the LCD refresh rate.
	FramesPerSecond = 59.7
	// CyclesPerFrame is the number of clock cycles composing one frame
	// (154 scanlines of 456 clocks each).
	CyclesPerFrame = 70224
)

// StepResult reports what a single tick produced.
type StepResult struct {
	// Cycles is the number of clock cycles the instruction (or interrupt
	// dispatch) consumed.
	Cycles int
	// Serial holds a byte sent out the link port during this tick, if any.
	Serial byte
	// HasSerial reports whether Serial is meaningful.
	HasSerial bool
}

// Option configures an Emulator at construction time.
type Option func(*config)

type config struct {
	mmuOpts []memory.Option
}

// WithBootROM runs the machine through the given 256-byte boot image instead
// of starting in the post-boot state.
func WithBootROM(data []byte) Option {
	return func(c *config) { c.mmuOpts = append(c.mmuOpts, memory.WithBootROM(data)) }
}

// WithStrictAccess makes prohibited bus accesses fault instead of being
// dropped. Meant for debugging.
func WithStrictAccess() Option {
	return func(c *config) { c.mmuOpts = append(c.mmuOpts, memory.WithStrictAccess()) }
}

// Emulator is the root struct and entry point for running the emulation.
type Emulator struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	serialSink    *serial.LogSink
	pendingSerial []byte

	totalCycles      uint64
	instructionCount uint64
	frameCount       uint64
}

// New creates a new emulator instance with no cartridge loaded.
func New(opts ...Option) *Emulator {
	return NewWithCartridge(memory.NewCartridge(), opts...)
}

// NewWithCartridge creates a new emulator instance around a loaded cartridge.
func NewWithCartridge(cart *memory.Cartridge, opts ...Option) *Emulator {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	e := &Emulator{}
	e.mem = memory.NewWithCartridge(cart, cfg.mmuOpts...)
	e.serialSink = serial.NewLogSink(
		func() { e.mem.RequestInterrupt(addr.SerialInterrupt) },
		serial.WithByteHook(func(b byte) { e.pendingSerial = append(e.pendingSerial, b) }),
	)
	e.mem.AttachSerial(e.serialSink)
	e.gpu = e.mem.GPU
	e.cpu = cpu.New(e.mem)

	return e
}

// NewWithFile creates a new emulator instance and loads the file specified into it.
func NewWithFile(path string, opts ...Option) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("loaded ROM data", "size", len(data))

	return NewWithCartridge(memory.NewCartridgeWithData(data), opts...), nil
}

// Tick advances the machine by exactly one CPU instruction or one interrupt
// dispatch, then applies the elapsed cycles to the timer, serial and LCD
// units. A decode error stops the emulation and surfaces to the caller.
func (e *Emulator) Tick() (StepResult, error) {
	cycles, err := e.cpu.Tick()
	if err != nil {
		return StepResult{}, fmt.Errorf("emulation stopped: %w", err)
	}

	e.mem.Tick(cycles)
	e.gpu.Tick(cycles)

	e.totalCycles += uint64(cycles)
	e.instructionCount++

	result := StepResult{Cycles: cycles}
	if len(e.pendingSerial) > 0 {
		result.Serial = e.pendingSerial[0]
		result.HasSerial = true
		e.pendingSerial = e.pendingSerial[1:]
	}

	return result, nil
}

// RunUntilFrame ticks the machine until one frame's worth of cycles has
// elapsed.
func (e *Emulator) RunUntilFrame() error {
	total := 0
	for total < CyclesPerFrame {
		result, err := e.Tick()
		if err != nil {
			return err
		}
		total += result.Cycles
	}

	e.frameCount++
	if e.frameCount%60 == 0 {
		slog.Debug("frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.PC()))
	}
	return nil
}

// RunUntilSerial runs frames until the serial transcript contains one of the
// given markers, or the frame budget runs out. It returns the transcript.
func (e *Emulator) RunUntilSerial(maxFrames int, markers ...string) (string, error) {
	for frame := 0; frame < maxFrames; frame++ {
		if err := e.RunUntilFrame(); err != nil {
			return e.SerialTranscript(), err
		}
		transcript := e.SerialTranscript()
		for _, marker := range markers {
			if strings.Contains(transcript, marker) {
				return transcript, nil
			}
		}
	}
	return e.SerialTranscript(), nil
}

// Screen returns the 160x144 frame produced by the LCD.
func (e *Emulator) Screen() *video.FrameBuffer {
	return e.gpu.Screen()
}

// TileDataFrame returns the 128x192 debug frame of the decoded tile set.
func (e *Emulator) TileDataFrame() *video.FrameBuffer {
	return e.gpu.TileDataFrame()
}

// BackgroundFrame returns the 256x256 debug frame of the background map.
func (e *Emulator) BackgroundFrame() *video.FrameBuffer {
	return e.gpu.BackgroundFrame()
}

// SerialTranscript returns every byte sent out the link port so far.
func (e *Emulator) SerialTranscript() string {
	return e.serialSink.Transcript()
}

// HandleKeyPress applies a button press to the joypad matrix, raising the
// Joypad interrupt on a released-to-pressed transition.
func (e *Emulator) HandleKeyPress(key memory.JoypadKey) {
	e.mem.Joypad.Press(key)
}

// HandleKeyRelease applies a button release to the joypad matrix.
func (e *Emulator) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.Joypad.Release(key)
}

// CPU returns the processor, for front-ends that display machine state.
func (e *Emulator) CPU() *cpu.CPU {
	return e.cpu
}

// MMU returns the bus.
func (e *Emulator) MMU() *memory.MMU {
	return e.mem
}

// TotalCycles returns the running total of executed clock cycles.
func (e *Emulator) TotalCycles() uint64 {
	return e.totalCycles
}

// InstructionCount returns the number of ticks executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// FrameCount returns the number of completed frames.
func (e *Emulator) FrameCount() uint64 {
	return e.frameCount
}
