//go:build tinygo

package main

import "machine"

const (
	// Control loop configuration
	LOOP_PERIOD_MS  = 30 // Button/encoder sampling period in milliseconds
	DEBOUNCE_CYCLES = 10 // Button hold threshold in loop cycles (~300ms)

	// Encoder scaling
	ENCODER_RESOLUTION_WATTS = 0.001 // Power change per encoder count

	// DAC soft sentinel until calibration is flashed
	SOFT_SENTINEL_VOLTS = 5.0

	// Shift register chains: DAC and LCD share data/latch, separate clocks
	PIN_SR_DATA    = machine.D7
	PIN_SR_LATCH   = machine.D8
	PIN_SR_CLK_DAC = machine.D9
	PIN_SR_CLK_LCD = machine.D10

	// Front panel (button and output enable are active low)
	PIN_BUTTON        = machine.D0
	PIN_OUTPUT_ENABLE = machine.D1
	PIN_ENC_A         = machine.D2
	PIN_ENC_B         = machine.D3

	// Serial configuration
	// Status line: "on,vpwr_mV,code\n" = ~20 bytes, once per second.
	// 115200 baud 8N1 leaves orders of magnitude of headroom.
	UART_BAUD_RATE = 115200
)
