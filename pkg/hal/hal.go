// Package hal abstracts the board hardware consumed by the control loop:
// shift-register chains, the front-panel button and rotary encoder, and the
// DAC output-enable line.
package hal

import "fmt"

// Chain identifies a shift register chain on the board.
type Chain int

const (
	// ChainDAC is the 3-byte chain feeding both DAC channels.
	ChainDAC Chain = iota
	// ChainLCD is the 1-byte chain driving the LCD data bus.
	ChainLCD
)

// IO is the hardware surface the control loop and drivers consume.
// Implemented by Board (real pins) and Mock (tests, simulated runs).
type IO interface {
	// SRWrite shifts buf out to the given chain and latches it.
	SRWrite(c Chain, buf []byte) error
	// ButtonPressed samples the front-panel button.
	ButtonPressed() bool
	// EncoderCount returns the accumulated rotary encoder position.
	EncoderCount() int
	// SetOutputEnable drives the DAC output-enable line. Outputs must stay
	// disabled while the analog PSU is down so power does not leak into
	// the analog circuits.
	SetOutputEnable(enable bool) error
}

// Pin is a single GPIO line.
type Pin interface {
	Set(high bool)
	Get() bool
}

// MemPin is an in-memory Pin for tests and simulated boards.
type MemPin struct {
	level bool
}

func (p *MemPin) Set(high bool) { p.level = high }
func (p *MemPin) Get() bool     { return p.level }

// DACBus adapts an IO to the dac.BusWriter contract.
type DACBus struct {
	IO IO
}

func (b DACBus) WriteDAC(buf []byte) error {
	return b.IO.SRWrite(ChainDAC, buf)
}

// GPIOBus drives the DAC word over direct parallel GPIO lines instead of a
// shift-register chain, for boards that wire the DAC inputs straight to the
// MCU. Data holds one Pin per word bit, LSB first; Strobe latches the word.
type GPIOBus struct {
	Data   []Pin
	Strobe Pin
}

func (b GPIOBus) WriteDAC(buf []byte) error {
	if len(b.Data) > len(buf)*8 {
		return fmt.Errorf("hal: gpio bus has %d lines, word is %d bits", len(b.Data), len(buf)*8)
	}
	b.Strobe.Set(false)
	for i, p := range b.Data {
		p.Set(buf[i/8]&(1<<(i%8)) != 0)
	}
	b.Strobe.Set(true)
	return nil
}
