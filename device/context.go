// Package device ties the relay, the LED matrix and the remote link together
// and runs them from a single polling loop.
package device

import (
	"time"

	"github.com/elijahnyp/relay_controller/clock"
	"github.com/elijahnyp/relay_controller/display"
	"github.com/elijahnyp/relay_controller/state"
	"github.com/elijahnyp/relay_controller/util"
)

// DeviceContext owns all mutable device state. Only the scheduler goroutine
// touches it.
type DeviceContext struct {
	Grid     *display.Grid
	Relay    *state.Machine
	Icons    *display.IconRenderer
	Mask     display.Mask
	Animator *display.Animator
	Timer    *PublishTimer
}

func NewDeviceContext(relay *state.Machine, icons *display.IconRenderer, animator *display.Animator, timer *PublishTimer) *DeviceContext {
	dc := &DeviceContext{
		Grid:     display.NewGrid(),
		Relay:    relay,
		Icons:    icons,
		Animator: animator,
		Timer:    timer,
	}
	relay.SetPublisher(timer)
	relay.RegisterTransitionListener(dc.onTransition)
	dc.Mask, _ = icons.IconFor(relay.State())
	return dc
}

func (dc *DeviceContext) onTransition(from, to state.RelayState) {
	mask, err := dc.Icons.Render(to, dc.Grid)
	if err != nil {
		util.Logger.Error().Err(err).Msgf("rendering %v icon", to)
		return
	}
	dc.Mask = mask
}

// PublishTimer remembers when the state was last sent so the heartbeat can
// tell when it is due. Every attempt counts, successful or not.
type PublishTimer struct {
	clock clock.Clock
	link  state.Publisher
	last  clock.Millis
}

func NewPublishTimer(clk clock.Clock, link state.Publisher) *PublishTimer {
	return &PublishTimer{clock: clk, link: link, last: clk.Now()}
}

func (p *PublishTimer) PublishStatus(payload string) error {
	p.last = p.clock.Now()
	return p.link.PublishStatus(payload)
}

func (p *PublishTimer) Last() clock.Millis {
	return p.last
}

func (p *PublishTimer) Due(now clock.Millis, interval time.Duration) bool {
	return now.Sub(p.last) >= interval
}
