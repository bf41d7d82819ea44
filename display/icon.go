package display

import (
	"github.com/elijahnyp/relay_controller/state"
)

// Mask is the set of pixels owned by the icon layer.
type Mask [Size]bool

func NewMask(indices ...int) Mask {
	var m Mask
	for _, i := range indices {
		if i >= 0 && i < Size {
			m[i] = true
		}
	}
	return m
}

func (m Mask) Contains(index int) bool {
	return index >= 0 && index < Size && m[index]
}

func (m Mask) Indices() []int {
	var out []int
	for i, set := range m {
		if set {
			out = append(out, i)
		}
	}
	return out
}

func (m Mask) Count() int {
	n := 0
	for _, set := range m {
		if set {
			n++
		}
	}
	return n
}

var (
	// four corners
	OffIcon = NewMask(0, 4, 20, 24)
	// house outline
	OnIcon = NewMask(5, 6, 7, 10, 13, 15, 16, 17)
)

// IconRenderer draws the relay state icon. OFF is red corners at the low
// brightness, ON is a white house at the high brightness.
type IconRenderer struct {
	low  uint8
	high uint8
	prev Mask
}

func NewIconRenderer(low, high uint8) *IconRenderer {
	return &IconRenderer{low: low, high: high}
}

func (r *IconRenderer) IconFor(s state.RelayState) (Mask, Color) {
	if s == state.On {
		return OnIcon, Compose(1, 1, 1, r.high)
	}
	return OffIcon, Compose(1, 0, 0, r.low)
}

// Render blanks the previously drawn icon and draws the one for s.
func (r *IconRenderer) Render(s state.RelayState, grid *Grid) (Mask, error) {
	for _, i := range r.prev.Indices() {
		if err := grid.Set(i, Black); err != nil {
			return r.prev, err
		}
	}
	mask, c := r.IconFor(s)
	for _, i := range mask.Indices() {
		if err := grid.Set(i, c); err != nil {
			return mask, err
		}
	}
	r.prev = mask
	return mask, nil
}
