// Package clock provides the millisecond time base used by the main loop.
//
// Millis is a free-running 32-bit millisecond counter. It wraps roughly every
// 49.7 days; Sub relies on unsigned subtraction so intervals stay correct
// across the wrap as long as they are shorter than the wrap period.
package clock

import (
	"context"
	"time"
)

// Millis is a wrapping millisecond timestamp.
type Millis uint32

// Sub returns the time elapsed from earlier to m, correct across wraparound.
func (m Millis) Sub(earlier Millis) time.Duration {
	return time.Duration(m-earlier) * time.Millisecond
}

// Add returns m advanced by d, wrapping.
func (m Millis) Add(d time.Duration) Millis {
	return m + Millis(d/time.Millisecond)
}

type Clock interface {
	Now() Millis
	// Sleep waits for d or until ctx is done, whichever comes first, and
	// returns ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// System is a Clock backed by the monotonic wall clock. The counter starts at
// zero when the clock is created.
type System struct {
	start time.Time
}

func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) Now() Millis {
	return Millis(uint64(time.Since(s.start) / time.Millisecond))
}

func (s *System) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fake is a manually driven Clock. Sleep advances the fake time instead of
// blocking, so loops that sleep between retries run instantly under test.
type Fake struct {
	now    Millis
	Sleeps []time.Duration
}

func NewFake(start Millis) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() Millis {
	return f.now
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Sleeps = append(f.Sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set jumps the fake time to t.
func (f *Fake) Set(t Millis) {
	f.now = t
}
