package hal

import "fmt"

// Board composes real pins into the IO surface.
// The button and output-enable lines are active low.
type Board struct {
	chains [2]*ShiftRegister

	btn Pin
	oe  Pin

	encA Pin
	encB Pin

	encCount int
	encPrev  uint8
}

// NewBoard wires the PCB rev 1 pin layout.
func NewBoard(dacChain, lcdChain *ShiftRegister, btn, oe, encA, encB Pin) (*Board, error) {
	if dacChain == nil || lcdChain == nil {
		return nil, fmt.Errorf("hal: both shift register chains are required")
	}
	b := &Board{
		chains: [2]*ShiftRegister{dacChain, lcdChain},
		btn:    btn,
		oe:     oe,
		encA:   encA,
		encB:   encB,
	}
	b.encPrev = b.encState()
	// Load all zeros so the DACs come up at zero scale.
	zero := make([]byte, dacChain.Len)
	if err := b.SRWrite(ChainDAC, zero); err != nil {
		return nil, err
	}
	if err := b.SRWrite(ChainLCD, zero[:lcdChain.Len]); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Board) SRWrite(c Chain, buf []byte) error {
	if int(c) < 0 || int(c) >= len(b.chains) {
		return fmt.Errorf("hal: unknown chain %d", c)
	}
	return b.chains[c].Write(buf)
}

func (b *Board) ButtonPressed() bool {
	return !b.btn.Get()
}

func (b *Board) SetOutputEnable(enable bool) error {
	b.oe.Set(!enable)
	return nil
}

// EncoderCount samples the quadrature lines and returns the accumulated
// position. The control loop period is short enough relative to hand
// rotation that per-cycle sampling does not lose steps.
func (b *Board) EncoderCount() int {
	state := b.encState()
	switch state<<2 | b.encPrev {
	case 0b0001, 0b0111, 0b1110, 0b1000:
		b.encCount++
	case 0b0010, 0b1011, 0b1101, 0b0100:
		b.encCount--
	}
	b.encPrev = state
	return b.encCount
}

func (b *Board) encState() uint8 {
	var s uint8
	if b.encA.Get() {
		s |= 0b01
	}
	if b.encB.Get() {
		s |= 0b10
	}
	return s
}
