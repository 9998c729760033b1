//go:build tinygo

//go:generate tinygo flash -target=xiao

// Standalone local-mode firmware: button and encoder drive the DAC directly,
// with a status feed over UART. Remote control and the debug console run on
// the host build (cmd/heaterpsu); this target is the fallback brain when no
// host is attached.
package main

import (
	"machine"
	"time"

	"github.com/msulab/heaterpsu/pkg/dac"
	"github.com/msulab/heaterpsu/pkg/hal"
)

var (
	uart = machine.UART0

	// Control state
	isOn      bool
	holdCount int

	// Timing
	lastCycle  time.Time
	lastStatus time.Time
)

// gpio adapts a machine.Pin to the hal.Pin surface.
type gpio struct {
	pin machine.Pin
}

func (g gpio) Set(high bool) {
	if high {
		g.pin.High()
	} else {
		g.pin.Low()
	}
}

func (g gpio) Get() bool { return g.pin.Get() }

func output(p machine.Pin) gpio {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return gpio{pin: p}
}

func input(p machine.Pin) gpio {
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return gpio{pin: p}
}

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	data := output(PIN_SR_DATA)
	latch := output(PIN_SR_LATCH)
	settle := func() { time.Sleep(time.Microsecond) }
	dacChain := &hal.ShiftRegister{
		Data: data, Clk: output(PIN_SR_CLK_DAC), Latch: latch,
		Len: 3, Delay: settle,
	}
	lcdChain := &hal.ShiftRegister{
		Data: data, Clk: output(PIN_SR_CLK_LCD), Latch: latch,
		Len: 1, Delay: settle,
	}

	board, err := hal.NewBoard(dacChain, lcdChain,
		input(PIN_BUTTON), output(PIN_OUTPUT_ENABLE),
		input(PIN_ENC_A), input(PIN_ENC_B))
	if err != nil {
		for {
			print("board init failed\n")
			time.Sleep(time.Second)
		}
	}

	d := dac.New(hal.DACBus{IO: board}, dac.DefaultScale(),
		dac.DefaultCalibration(), SOFT_SENTINEL_VOLTS)

	d.SetVPwr(0)
	board.SetOutputEnable(true)

	lastCycle = time.Now()
	lastStatus = lastCycle

	for {
		now := time.Now()

		processSerial()

		if now.Sub(lastCycle) >= LOOP_PERIOD_MS*time.Millisecond {
			cycle(board, d)
			lastCycle = now
		}

		if now.Sub(lastStatus) >= time.Second {
			outputStatus(d)
			lastStatus = now
		}

		time.Sleep(100 * time.Microsecond)
	}
}

// cycle samples the button and encoder and applies the local power target.
func cycle(board *hal.Board, d *dac.DAC) {
	if board.ButtonPressed() {
		holdCount++
	} else {
		holdCount = 0
	}

	if holdCount > DEBOUNCE_CYCLES {
		holdCount = 0
		if isOn {
			isOn = false
			d.SetVPwr(0)
		} else {
			isOn = true
		}
	}

	if isOn {
		d.SetVPwr(float32(board.EncoderCount()) * ENCODER_RESOLUTION_WATTS)
	}
}

func outputStatus(d *dac.DAC) {
	// Output format: "on,vpwr_mV,code\n"
	// Example: "1,1500,384\n"
	if isOn {
		print("1,")
	} else {
		print("0,")
	}
	print(int(d.VPwr() * 1000))
	print(",")
	print(d.Code())
	print("\n")
}

func processSerial() {
	// Single-byte commands: '0' forces the output off, '1' turns it on.
	for uart.Buffered() > 0 {
		b, err := uart.ReadByte()
		if err != nil {
			break
		}
		switch b {
		case '0':
			isOn = false
			holdCount = 0
		case '1':
			isOn = true
		}
	}
}
