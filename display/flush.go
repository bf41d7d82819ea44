package display

import (
	"bytes"

	"github.com/cnf/structhash"
)

// Flusher pushes a finished frame to a physical or virtual display.
type Flusher interface {
	Flush(grid *Grid) error
}

type NopFlusher struct{}

func (NopFlusher) Flush(*Grid) error { return nil }

type frame struct {
	Cells [Size]Color
}

// frameDedup tracks the last frame written to an output, so flushers skip
// redundant writes to slow outputs. A frame only counts as written once
// commit is called, so a failed write is retried on the next flush.
type frameDedup struct {
	last []byte
}

// changed hashes cells and reports whether they differ from the last
// committed frame.
func (d *frameDedup) changed(cells [Size]Color) ([]byte, bool) {
	sum := structhash.Md5(frame{Cells: cells}, 1)
	if d.last != nil && bytes.Equal(sum, d.last) {
		return sum, false
	}
	return sum, true
}

func (d *frameDedup) commit(sum []byte) {
	d.last = sum
}
