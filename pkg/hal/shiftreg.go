package hal

import "fmt"

// ShiftRegister bit-bangs a byte buffer out over data/clock/latch lines.
// The DAC and LCD chains share the data and latch pins on PCB rev 1 and
// differ only in the clock pin, so each chain gets its own instance.
type ShiftRegister struct {
	Data  Pin
	Clk   Pin
	Latch Pin
	// MSBFirst selects the bit order on the wire.
	MSBFirst bool
	// Len is the chain length in bytes.
	Len int
	// Delay is the settle delay applied around clock edges. Nil means no
	// delay (fine for simulated pins).
	Delay func()
}

// Write shifts contents out and latches the outputs.
// contents must hold at least Len bytes; the last byte of the buffer is
// shifted first when MSBFirst is set, matching the chain wiring.
func (sr *ShiftRegister) Write(contents []byte) error {
	if len(contents) < sr.Len {
		return fmt.Errorf("hal: shift register needs %d bytes, got %d", sr.Len, len(contents))
	}
	sr.Latch.Set(false)
	for i := 0; i < sr.Len; i++ {
		b := contents[i]
		if sr.MSBFirst {
			b = contents[sr.Len-1-i]
		}
		for j := 0; j < 8; j++ {
			var mask byte
			if sr.MSBFirst {
				mask = 1 << (7 - j)
			} else {
				mask = 1 << j
			}
			sr.Clk.Set(false)
			sr.Data.Set(b&mask != 0)
			sr.delay()
			sr.Clk.Set(true)
			sr.delay()
		}
	}
	sr.Latch.Set(true)
	return nil
}

func (sr *ShiftRegister) delay() {
	if sr.Delay != nil {
		sr.Delay()
	}
}
