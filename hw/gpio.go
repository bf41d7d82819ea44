package hw

import (
	"errors"
	"fmt"

	"github.com/elijahnyp/relay_controller/util"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var ErrNoPin = errors.New("gpio pin not found")

func openPin(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising host drivers: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPin, name)
	}
	return p, nil
}

// PinRelay drives an active-high relay module.
type PinRelay struct {
	pin gpio.PinOut
}

func OpenRelay(name string) (*PinRelay, error) {
	p, err := openPin(name)
	if err != nil {
		return nil, err
	}
	r := &PinRelay{pin: p}
	if err := r.SetRelay(false); err != nil {
		return nil, err
	}
	util.Logger.Info().Msgf("relay on %v", p.Name())
	return r, nil
}

func (r *PinRelay) SetRelay(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := r.pin.Out(level); err != nil {
		return fmt.Errorf("setting %v to %v: %w", r.pin.Name(), level, err)
	}
	return nil
}

// OpenButton configures a momentary button wired to ground with the
// internal pull-up enabled, so a press reads low.
func OpenButton(name string) (*EdgeButton, error) {
	p, err := openPin(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configuring %v as input: %w", name, err)
	}
	util.Logger.Info().Msgf("button on %v", p.Name())
	return NewEdgeButton(func() bool { return p.Read() == gpio.Low }), nil
}
