//go:build linux

package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOPTT keys a transmitter through a Linux GPIO character-device
// output line (grounded on modem_gpio_linux.go's gpioSetup: a single
// RequestLine call per controlled signal).
type GPIOPTT struct {
	line *gpiocdev.Line
}

// NewGPIOPTT requests the given line on chip (e.g. "gpiochip0") as an
// output, initially deasserted.
func NewGPIOPTT(chip string, line int) (*GPIOPTT, error) {
	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("hardware: request PTT line %s:%d: %w", chip, line, err)
	}
	return &GPIOPTT{line: l}, nil
}

func (p *GPIOPTT) SetValue(value int) error {
	if err := p.line.SetValue(value); err != nil {
		return fmt.Errorf("hardware: set PTT line: %w", err)
	}
	return nil
}

func (p *GPIOPTT) Close() error {
	return p.line.Close()
}
