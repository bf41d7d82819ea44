package display

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/elijahnyp/relay_controller/clock"
)

var ErrInvalidCycle = errors.New("animation cycle must be positive")

// Brightness is the sine fade of one snowflake: 0 at the start and end of
// the cycle, peak at the midpoint.
func Brightness(elapsed, cycle time.Duration, peak uint8) uint8 {
	if cycle <= 0 || elapsed <= 0 || elapsed >= cycle {
		return 0
	}
	level := math.Round(math.Sin(math.Pi*float64(elapsed)/float64(cycle)) * float64(peak))
	if level < 0 {
		return 0
	}
	if level > float64(peak) {
		return peak
	}
	return uint8(level)
}

// Animator fades one pixel at a time in and out, walking a fixed random
// permutation of the grid and skipping pixels owned by the icon.
type Animator struct {
	order      [Size]int
	cursor     int
	phaseStart clock.Millis
	cycle      time.Duration
	peak       uint8
}

func NewAnimator(rng *rand.Rand, cycle time.Duration, peak uint8) (*Animator, error) {
	if cycle <= 0 {
		return nil, ErrInvalidCycle
	}
	a := &Animator{cursor: -1, cycle: cycle, peak: peak}
	for i := range a.order {
		a.order[i] = i
	}
	rng.Shuffle(Size, func(i, j int) {
		a.order[i], a.order[j] = a.order[j], a.order[i]
	})
	return a, nil
}

// Order returns the traversal permutation.
func (a *Animator) Order() [Size]int {
	return a.order
}

// Cursor is the position in the traversal, -1 while inactive.
func (a *Animator) Cursor() int {
	return a.cursor
}

// Current is the pixel being faded, if any.
func (a *Animator) Current() (int, bool) {
	if a.cursor < 0 {
		return 0, false
	}
	return a.order[a.cursor], true
}

// Resume restarts the phase of the frozen pixel so it fades in from zero.
func (a *Animator) Resume(now clock.Millis) {
	if a.cursor >= 0 {
		a.phaseStart = now
	}
}

// Tick draws the current frame of the animation into grid. It never writes a
// pixel contained in mask.
func (a *Animator) Tick(now clock.Millis, grid *Grid, mask Mask) error {
	if a.cursor < 0 {
		a.cursor = 0
		a.phaseStart = now
		if !a.skipMasked(mask) {
			a.cursor = -1
			return nil
		}
	} else if mask.Contains(a.order[a.cursor]) {
		// the icon changed under the cursor
		if !a.advance(mask) {
			a.cursor = -1
			return nil
		}
		a.phaseStart = now
	}

	elapsed := now.Sub(a.phaseStart)
	if elapsed >= a.cycle {
		if err := grid.Set(a.order[a.cursor], Black); err != nil {
			return err
		}
		if !a.advance(mask) {
			a.cursor = -1
			return nil
		}
		a.phaseStart = now
		elapsed = 0
	}
	return grid.Set(a.order[a.cursor], Gray(Brightness(elapsed, a.cycle, a.peak)))
}

func (a *Animator) advance(mask Mask) bool {
	a.cursor = (a.cursor + 1) % Size
	return a.skipMasked(mask)
}

// skipMasked moves the cursor forward to the next unmasked slot, checking
// each slot at most once.
func (a *Animator) skipMasked(mask Mask) bool {
	for n := 0; n < Size; n++ {
		if !mask.Contains(a.order[a.cursor]) {
			return true
		}
		a.cursor = (a.cursor + 1) % Size
	}
	return false
}
