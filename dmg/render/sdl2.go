//go:build sdl2

package render

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

const pixelScale = 4

// grayscale levels for the four shades, white to black.
var sdlShades = [4]byte{0xFF, 0x98, 0x4C, 0x00}

// SDL2Renderer draws the emulator screen in an SDL window.
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use a stubbed renderer, see build tags (sdl2).
type SDL2Renderer struct {
	emulator *dmg.Emulator
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
}

// NewSDL2Renderer creates an SDL window sized for the LCD.
func NewSDL2Renderer(emu *dmg.Emulator) (*SDL2Renderer, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL2: %v", err)
	}

	window, err := sdl.CreateWindow(
		"go-dmg",
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		video.ScreenWidth*pixelScale,
		video.ScreenHeight*pixelScale,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("failed to create window: %v", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("failed to create renderer: %v", err)
	}

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.ScreenWidth,
		video.ScreenHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("failed to create texture: %v", err)
	}

	slog.Info("SDL2 renderer initialized")

	return &SDL2Renderer{
		emulator: emu,
		window:   window,
		renderer: renderer,
		texture:  texture,
		running:  true,
	}, nil
}

// Run drives the emulator until the window is closed.
func (s *SDL2Renderer) Run() error {
	defer s.cleanup()

	for s.running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			s.handleEvent(event)
		}

		if err := s.emulator.RunUntilFrame(); err != nil {
			return err
		}
		s.drawFrame()
	}

	return nil
}

func (s *SDL2Renderer) cleanup() {
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
}

func (s *SDL2Renderer) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		s.running = false
	case *sdl.KeyboardEvent:
		key, ok := joypadKeyFor(e.Keysym.Sym)
		if !ok {
			if e.Keysym.Sym == sdl.K_ESCAPE && e.Type == sdl.KEYDOWN {
				s.running = false
			}
			return
		}
		if e.Type == sdl.KEYDOWN {
			s.emulator.HandleKeyPress(key)
		} else if e.Type == sdl.KEYUP {
			s.emulator.HandleKeyRelease(key)
		}
	}
}

func joypadKeyFor(sym sdl.Keycode) (memory.JoypadKey, bool) {
	switch sym {
	case sdl.K_RIGHT:
		return memory.JoypadRight, true
	case sdl.K_LEFT:
		return memory.JoypadLeft, true
	case sdl.K_UP:
		return memory.JoypadUp, true
	case sdl.K_DOWN:
		return memory.JoypadDown, true
	case sdl.K_a:
		return memory.JoypadA, true
	case sdl.K_s:
		return memory.JoypadB, true
	case sdl.K_q:
		return memory.JoypadSelect, true
	case sdl.K_RETURN:
		return memory.JoypadStart, true
	}
	return 0, false
}

func (s *SDL2Renderer) drawFrame() {
	fb := s.emulator.Screen()
	pix := fb.Pix()

	// ABGR byte order for little-endian RGBA8888
	pixels := make([]byte, len(pix)*4)
	for i, p := range pix {
		shade := sdlShades[p]
		pixels[i*4] = 0xFF
		pixels[i*4+1] = shade
		pixels[i*4+2] = shade
		pixels[i*4+3] = shade
	}

	s.texture.Update(nil, unsafe.Pointer(&pixels[0]), video.ScreenWidth*4)
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
}
