package display

import (
	"bufio"
	"fmt"
	"io"
)

// ConsoleFlusher draws the matrix in a terminal with 24-bit ANSI colors,
// redrawing in place when the frame changes.
type ConsoleFlusher struct {
	out   io.Writer
	dedup frameDedup
	drawn bool
}

func NewConsoleFlusher(out io.Writer) *ConsoleFlusher {
	return &ConsoleFlusher{out: out}
}

func (f *ConsoleFlusher) Flush(grid *Grid) error {
	cells := grid.Cells()
	sum, changed := f.dedup.changed(cells)
	if !changed {
		return nil
	}
	w := bufio.NewWriter(f.out)
	if f.drawn {
		fmt.Fprintf(w, "\x1b[%dA", Height)
	}
	for i, cell := range cells {
		x, _, err := Coord(i)
		if err != nil {
			return err
		}
		c := cell.Display()
		fmt.Fprintf(w, "\x1b[38;2;%d;%d;%dm██", c.R, c.G, c.B)
		if x == Width-1 {
			fmt.Fprint(w, "\x1b[0m\x1b[K\n")
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("drawing console frame: %w", err)
	}
	f.dedup.commit(sum)
	f.drawn = true
	return nil
}
