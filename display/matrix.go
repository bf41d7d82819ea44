package display

import (
	"fmt"

	"github.com/elijahnyp/relay_controller/util"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// MatrixFlusher drives a 25 pixel WS2812 matrix wired row-major to the MOSI
// pin of an SPI port.
type MatrixFlusher struct {
	port  spi.PortCloser
	dev   *nrzled.Dev
	buf   []byte
	dedup frameDedup
}

// OpenMatrix opens the named SPI port ("" for the first one) and attaches
// the LED driver.
func OpenMatrix(portName string) (*MatrixFlusher, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising host drivers: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("opening spi port %q: %w", portName, err)
	}
	return newMatrix(port)
}

func newMatrix(port spi.PortCloser) (*MatrixFlusher, error) {
	opts := nrzled.DefaultOpts
	opts.NumPixels = Size
	opts.Channels = 3
	dev, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("attaching led matrix: %w", err)
	}
	return &MatrixFlusher{port: port, dev: dev, buf: make([]byte, Size*3)}, nil
}

func (f *MatrixFlusher) Flush(grid *Grid) error {
	cells := grid.Cells()
	sum, changed := f.dedup.changed(cells)
	if !changed {
		return nil
	}
	for i, c := range cells {
		f.buf[i*3] = c.R()
		f.buf[i*3+1] = c.G()
		f.buf[i*3+2] = c.B()
	}
	if _, err := f.dev.Write(f.buf); err != nil {
		return fmt.Errorf("writing led matrix: %w", err)
	}
	f.dedup.commit(sum)
	return nil
}

// Close blanks the matrix and releases the port.
func (f *MatrixFlusher) Close() error {
	if err := f.dev.Halt(); err != nil {
		util.Logger.Warn().Err(err).Msg("unable to blank led matrix")
	}
	return f.port.Close()
}
