package render

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

const frameTime = time.Second / 60

// shadeStyles maps the four pixel shades to terminal colors.
var shadeStyles = [4]tcell.Style{
	tcell.StyleDefault.Foreground(tcell.ColorWhite),
	tcell.StyleDefault.Foreground(tcell.ColorLightGray),
	tcell.StyleDefault.Foreground(tcell.ColorDarkGray),
	tcell.StyleDefault.Foreground(tcell.ColorBlack),
}

// keyBindings maps terminal keys to joypad buttons. Terminals deliver no key
// release events, so presses are released after a short hold.
var keyBindings = map[rune]memory.JoypadKey{
	'a': memory.JoypadA,
	's': memory.JoypadB,
	'q': memory.JoypadSelect,
	'w': memory.JoypadStart,
}

const keyHold = 6 // frames a key stays pressed after the event

// TerminalRenderer draws the emulator screen in a terminal using half-block
// characters and feeds key events to the joypad.
type TerminalRenderer struct {
	screen   tcell.Screen
	emulator *dmg.Emulator
	running  bool

	heldKeys map[memory.JoypadKey]int
}

// NewTerminalRenderer creates a renderer around an initialized terminal screen.
func NewTerminalRenderer(emu *dmg.Emulator) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	return &TerminalRenderer{
		screen:   screen,
		emulator: emu,
		running:  true,
		heldKeys: make(map[memory.JoypadKey]int),
	}, nil
}

// Run drives the emulator at roughly 60 frames per second until the user
// quits with ESC or Ctrl-C.
func (t *TerminalRenderer) Run() error {
	defer func() {
		slog.Info("finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			events <- t.screen.PollEvent()
		}
	}()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for t.running {
		select {
		case ev := <-events:
			t.handleEvent(ev)
		case <-ticker.C:
			t.releaseExpiredKeys()
			if err := t.emulator.RunUntilFrame(); err != nil {
				return err
			}
			t.draw()
		}
	}

	return nil
}

func (t *TerminalRenderer) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		t.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			t.running = false
		case tcell.KeyUp:
			t.press(memory.JoypadUp)
		case tcell.KeyDown:
			t.press(memory.JoypadDown)
		case tcell.KeyLeft:
			t.press(memory.JoypadLeft)
		case tcell.KeyRight:
			t.press(memory.JoypadRight)
		case tcell.KeyEnter:
			t.press(memory.JoypadStart)
		case tcell.KeyRune:
			if key, ok := keyBindings[ev.Rune()]; ok {
				t.press(key)
			}
		}
	}
}

func (t *TerminalRenderer) press(key memory.JoypadKey) {
	if _, held := t.heldKeys[key]; !held {
		t.emulator.HandleKeyPress(key)
	}
	t.heldKeys[key] = keyHold
}

func (t *TerminalRenderer) releaseExpiredKeys() {
	for key, frames := range t.heldKeys {
		if frames <= 1 {
			t.emulator.HandleKeyRelease(key)
			delete(t.heldKeys, key)
			continue
		}
		t.heldKeys[key] = frames - 1
	}
}

func (t *TerminalRenderer) draw() {
	fb := t.emulator.Screen()

	for y := 0; y < fb.Height(); y += 2 {
		for x := 0; x < fb.Width(); x++ {
			top := fb.At(x, y)
			bottom := video.White
			if y+1 < fb.Height() {
				bottom = fb.At(x, y+1)
			}
			t.screen.SetContent(x, y/2, halfBlockRune(top, bottom), nil, shadeStyles[top])
		}
	}

	t.screen.Show()
}
