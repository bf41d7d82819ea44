package device

import (
	"context"
	"errors"
	"time"

	"github.com/elijahnyp/relay_controller/clock"
	"github.com/elijahnyp/relay_controller/display"
	"github.com/elijahnyp/relay_controller/state"
	"github.com/elijahnyp/relay_controller/util"
)

// Button reports presses, one per call at most.
type Button interface {
	Poll() bool
}

// RemoteLink is the MQTT side of the device as the loop sees it.
type RemoteLink interface {
	state.Publisher
	Poll() []util.Message
	IsConnected() bool
	Connect() error
	Model() util.DeviceModel
}

// Status is a copy of the device state taken at the end of a tick.
type Status struct {
	Relay       state.RelayState
	Connected   bool
	Cursor      int
	Lit         int // -1 when nothing is animating
	LastPublish clock.Millis
	Cells       [display.Size]display.Color
}

type Options struct {
	Tick      time.Duration
	Heartbeat time.Duration
	Reconnect time.Duration
}

var DefaultOptions = Options{
	Tick:      50 * time.Millisecond,
	Heartbeat: 10 * time.Second,
	Reconnect: 5 * time.Second,
}

// OptionsFromConfig reads the loop timings from util.Config.
func OptionsFromConfig() Options {
	return Options{
		Tick:      time.Duration(util.Config.GetInt("tick_ms")) * time.Millisecond,
		Heartbeat: time.Duration(util.Config.GetInt("heartbeat_seconds")) * time.Second,
		Reconnect: time.Duration(util.Config.GetInt("reconnect_seconds")) * time.Second,
	}
}

type Scheduler struct {
	dc        *DeviceContext
	clock     clock.Clock
	button    Button
	link      RemoteLink
	flusher   display.Flusher
	opts      Options
	observers []func(Status)
	animating bool
}

func NewScheduler(dc *DeviceContext, clk clock.Clock, button Button, link RemoteLink, flusher display.Flusher, opts Options) *Scheduler {
	if opts.Tick <= 0 {
		opts.Tick = DefaultOptions.Tick
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultOptions.Heartbeat
	}
	if opts.Reconnect <= 0 {
		opts.Reconnect = DefaultOptions.Reconnect
	}
	if flusher == nil {
		flusher = display.NopFlusher{}
	}
	return &Scheduler{dc: dc, clock: clk, button: button, link: link, flusher: flusher, opts: opts}
}

// AddObserver registers fn to receive a Status after every tick.
func (s *Scheduler) AddObserver(fn func(Status)) {
	s.observers = append(s.observers, fn)
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	util.Logger.Info().Msgf("main loop running every %v", s.opts.Tick)
	for {
		if err := s.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := s.clock.Sleep(ctx, s.opts.Tick); err != nil {
			return nil
		}
	}
}

// Tick runs one iteration of the loop. Only display errors are returned;
// connectivity and relay problems are logged and retried on later ticks.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.button.Poll() {
		s.handle(state.Event{Kind: state.ButtonPressed})
	}

	if !s.link.IsConnected() {
		if err := s.reconnect(ctx); err != nil {
			return err
		}
	}

	model := s.link.Model()
	for _, m := range s.link.Poll() {
		if model.FindTopicType(m.Topic) != util.COMMAND {
			util.Logger.Debug().Msgf("ignoring message on %v, not a command topic", m.Topic)
			continue
		}
		target, err := state.ParseCommand(string(m.Payload))
		if err != nil {
			util.Logger.Debug().Err(err).Msgf("ignoring message on %v", m.Topic)
			continue
		}
		s.handle(state.Event{Kind: state.RemoteCommand, Target: target})
	}

	now := s.clock.Now()
	if err := s.drawFrame(now); err != nil {
		return err
	}

	if s.dc.Timer.Due(now, s.opts.Heartbeat) {
		util.Logger.Trace().Msg("heartbeat")
		s.dc.Relay.Publish()
	}

	s.notify()
	return nil
}

func (s *Scheduler) handle(e state.Event) {
	if err := s.dc.Relay.HandleEvent(e); err != nil {
		util.Logger.Error().Err(err).Msg("relay event failed")
	}
}

// reconnect blocks until the link is up, then publishes the current state.
func (s *Scheduler) reconnect(ctx context.Context) error {
	util.Logger.Info().Msg("connecting to broker")
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.link.Connect()
		if err == nil {
			break
		}
		util.Logger.Warn().Err(err).Msgf("connect attempt %d failed, retrying in %v", attempt, s.opts.Reconnect)
		if err := s.clock.Sleep(ctx, s.opts.Reconnect); err != nil {
			return err
		}
	}
	s.dc.Relay.Publish()
	return nil
}

func (s *Scheduler) drawFrame(now clock.Millis) error {
	dc := s.dc
	dc.Grid.Clear()
	mask, err := dc.Icons.Render(dc.Relay.State(), dc.Grid)
	if err != nil {
		return err
	}
	dc.Mask = mask

	if dc.Relay.State() == state.On {
		if !s.animating {
			dc.Animator.Resume(now)
			s.animating = true
		}
		if err := dc.Animator.Tick(now, dc.Grid, dc.Mask); err != nil {
			return err
		}
	} else {
		s.animating = false
	}

	if err := s.flusher.Flush(dc.Grid); err != nil {
		util.Logger.Warn().Err(err).Msg("unable to flush frame")
	}
	return nil
}

func (s *Scheduler) Status() Status {
	lit, ok := s.dc.Animator.Current()
	if !ok || s.dc.Relay.State() != state.On {
		lit = -1
	}
	return Status{
		Relay:       s.dc.Relay.State(),
		Connected:   s.link.IsConnected(),
		Cursor:      s.dc.Animator.Cursor(),
		Lit:         lit,
		LastPublish: s.dc.Timer.Last(),
		Cells:       s.dc.Grid.Cells(),
	}
}

func (s *Scheduler) notify() {
	if len(s.observers) == 0 {
		return
	}
	st := s.Status()
	for _, fn := range s.observers {
		fn(st)
	}
}
