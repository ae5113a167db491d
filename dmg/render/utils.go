// Package render holds the display front-ends: a tcell terminal renderer, an
// optional SDL2 window and the shared frame-to-text utilities.
package render

import "github.com/valerio/go-dmg/dmg/video"

// shadeRunes maps a pixel shade to a block character, white to black.
var shadeRunes = [4]rune{' ', '░', '▒', '█'}

// halfBlockRune picks a character for a pair of vertically stacked pixels.
func halfBlockRune(top, bottom video.Pixel) rune {
	switch {
	case top == bottom:
		return shadeRunes[top]
	case top == video.White:
		return '▄'
	case bottom == video.White:
		return '▀'
	default:
		return '▀'
	}
}

// FrameToHalfBlocks converts a frame buffer to a half-block text
// representation, two pixel rows per text line.
func FrameToHalfBlocks(fb *video.FrameBuffer) []string {
	width, height := fb.Width(), fb.Height()
	lines := make([]string, 0, (height+1)/2)

	for y := 0; y < height; y += 2 {
		line := make([]rune, width)
		for x := 0; x < width; x++ {
			top := fb.At(x, y)
			bottom := video.White
			if y+1 < height {
				bottom = fb.At(x, y+1)
			}
			line[x] = halfBlockRune(top, bottom)
		}
		lines = append(lines, string(line))
	}

	return lines
}
