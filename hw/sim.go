package hw

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/elijahnyp/relay_controller/util"
	"github.com/google/shlex"
)

// SimRelay stands in for the relay when running without hardware.
type SimRelay struct {
	On bool
}

func (r *SimRelay) SetRelay(on bool) error {
	r.On = on
	contacts := "open"
	if on {
		contacts = "closed"
	}
	util.Logger.Info().Msgf("simulated relay %v", contacts)
	return nil
}

const pressQueueSize = 8

// Console reads simulator commands, one per line: "press" clicks the button
// and "quit" stops the controller.
type Console struct {
	presses chan struct{}
	quit    func()
}

func NewConsole(quit func()) *Console {
	return &Console{presses: make(chan struct{}, pressQueueSize), quit: quit}
}

// Poll reports one queued press, if any.
func (c *Console) Poll() bool {
	select {
	case <-c.presses:
		return true
	default:
		return false
	}
}

// Run reads commands from in until EOF or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case line := <-lines:
			c.handle(line)
		}
	}
}

func (c *Console) handle(line string) {
	args, err := shlex.Split(line)
	if err != nil {
		util.Logger.Warn().Err(err).Msgf("unable to parse %q", line)
		return
	}
	if len(args) == 0 {
		return
	}
	switch strings.ToLower(args[0]) {
	case "press", "p":
		select {
		case c.presses <- struct{}{}:
		default:
			util.Logger.Warn().Msg("too many queued presses, dropping")
		}
	case "quit", "exit":
		if c.quit != nil {
			c.quit()
		}
	default:
		util.Logger.Info().Msgf("unknown command %q, try press or quit", args[0])
	}
}
