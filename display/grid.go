// Package display holds the LED matrix frame buffer and the two layers drawn
// into it each frame: the relay icon and the ambient snowflake animation.
package display

import (
	"errors"
	"fmt"
)

const (
	Width  = 5
	Height = 5
	Size   = Width * Height
)

var ErrOutOfRange = errors.New("pixel index out of range")

// Grid is the frame buffer for the 5x5 matrix, indexed row-major from the
// top left corner.
type Grid struct {
	cells [Size]Color
}

func NewGrid() *Grid {
	return &Grid{}
}

func (g *Grid) Set(index int, c Color) error {
	if index < 0 || index >= Size {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	g.cells[index] = c
	return nil
}

func (g *Grid) At(index int) (Color, error) {
	if index < 0 || index >= Size {
		return Black, fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	return g.cells[index], nil
}

// Clear resets every cell to black.
func (g *Grid) Clear() {
	g.cells = [Size]Color{}
}

// Cells returns a copy of the buffer.
func (g *Grid) Cells() [Size]Color {
	return g.cells
}

// Index maps a matrix coordinate to a pixel index.
func Index(x, y int) (int, error) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, x, y)
	}
	return y*Width + x, nil
}

// Coord maps a pixel index to its matrix coordinate.
func Coord(index int) (x, y int, err error) {
	if index < 0 || index >= Size {
		return 0, 0, fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	return index % Width, index / Width, nil
}
