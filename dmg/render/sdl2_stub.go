//go:build !sdl2

package render

import (
	"fmt"

	"github.com/valerio/go-dmg/dmg"
)

// SDL2Renderer stub for when SDL2 is not available.
type SDL2Renderer struct{}

func NewSDL2Renderer(emu *dmg.Emulator) (*SDL2Renderer, error) {
	return nil, fmt.Errorf("SDL2 renderer not available - compile with -tags sdl2 and install SDL2 development libraries")
}

func (s *SDL2Renderer) Run() error {
	return fmt.Errorf("SDL2 renderer not available")
}
