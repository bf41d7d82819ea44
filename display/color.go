package display

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a packed 24-bit RGB value, R<<16 | G<<8 | B.
type Color uint32

const Black Color = 0x000000

func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Compose builds a color from per-channel on/off flags scaled by a single
// brightness: each channel is flag*brightness. Flags other than 0 and 1 use
// their low bit.
func Compose(r, g, b uint8, brightness uint8) Color {
	return RGB((r&1)*brightness, (g&1)*brightness, (b&1)*brightness)
}

// Gray is the color with all three channels at level.
func Gray(level uint8) Color {
	return RGB(level, level, level)
}

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// Display converts the LED drive levels, which are linear light intensity,
// into sRGB for screens. Without it the dim icon colors render as black.
func (c Color) Display() color.RGBA {
	lin := colorful.LinearRgb(float64(c.R())/255, float64(c.G())/255, float64(c.B())/255)
	r, g, b := lin.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
