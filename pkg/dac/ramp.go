package dac

import (
	"fmt"
	"log"
	"time"

	"github.com/chewxy/math32"
)

const (
	// DefaultHeatUpTick is the heat-up ramp step period.
	DefaultHeatUpTick = 5 * time.Millisecond
	// DefaultCoolDownTick is the cool-down ramp step period.
	DefaultCoolDownTick = 10 * time.Millisecond
)

// Clock abstracts wall-clock scheduling so ramp logic is testable without
// real-time waits. Tests inject a fake clock that advances instantly.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// SetClock overrides the wall clock used by the ramp routines.
func (d *DAC) SetClock(c Clock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = c
}

// SetRampTicks overrides the ramp step periods.
func (d *DAC) SetRampTicks(heatUp, coolDown time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if heatUp > 0 {
		d.heatUpTick = heatUp
	}
	if coolDown > 0 {
		d.coolDownTick = coolDown
	}
}

// OnRampProgress registers a callback invoked roughly every 10% of a ramp
// with the voltage just commanded. Purely informational.
func (d *DAC) OnRampProgress(fn func(volts float32)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress = fn
}

// HeatUp executes a blocking linear heating profile from 0 volts to
// targetVolts over seconds. Arguments must be finite and seconds positive;
// these only ever come from trusted configuration, so a violation is a
// programming fault and panics.
//
// The step schedule uses an absolute time reference: the k-th wake time is
// start + k*tick, so per-iteration jitter does not accumulate. The final
// commanded voltage is exactly targetVolts up to one step's rounding.
func (d *DAC) HeatUp(targetVolts, seconds float32) {
	if !isFinite(targetVolts) || !isFinite(seconds) || seconds <= 0 {
		panic(fmt.Sprintf("dac: bad heat-up arguments: target=%f seconds=%f", targetVolts, seconds))
	}
	d.mu.Lock()
	tick := d.heatUpTick
	clock := d.clock
	d.mu.Unlock()

	cycles := rampCycles(seconds, tick)
	step := targetVolts / float32(cycles)
	start := clock.Now()
	log.Printf("DAC: soft heat-up: cycles=%d step=%.3f", cycles, step)

	for i := 1; i <= cycles; i++ {
		v := step * float32(i)
		d.SetVPwr(v)
		d.reportProgress("heat-up", i, cycles, v)
		clock.Sleep(start.Add(time.Duration(i) * tick).Sub(clock.Now()))
	}
}

// CoolDown executes a blocking linear cooling profile from the current
// requested vpwr down to 0 volts over seconds. Same argument contract as
// HeatUp. The final commanded voltage is exactly 0.
func (d *DAC) CoolDown(seconds float32) {
	if !isFinite(seconds) || seconds <= 0 {
		panic(fmt.Sprintf("dac: bad cool-down argument: seconds=%f", seconds))
	}
	d.mu.Lock()
	tick := d.coolDownTick
	clock := d.clock
	d.mu.Unlock()

	cycles := rampCycles(seconds, tick)
	step := d.VPwr() / float32(cycles)
	start := clock.Now()
	log.Printf("DAC: soft cool-down: cycles=%d step=%.3f", cycles, step)

	for i := cycles - 1; i >= 0; i-- {
		v := step * float32(i)
		d.SetVPwr(v)
		d.reportProgress("cool-down", cycles-i, cycles, v)
		clock.Sleep(start.Add(time.Duration(cycles-i) * tick).Sub(clock.Now()))
	}
}

// rampCycles converts a ramp duration to a step count at the given tick.
func rampCycles(seconds float32, tick time.Duration) int {
	cycles := int(math32.Round(seconds * 1000 / float32(tick.Milliseconds())))
	if cycles < 1 {
		cycles = 1
	}
	return cycles
}

func (d *DAC) reportProgress(phase string, i, cycles int, v float32) {
	if cycles < 10 || i%(cycles/10) != 0 {
		return
	}
	d.mu.Lock()
	fn := d.progress
	d.mu.Unlock()
	if fn != nil {
		fn(v)
		return
	}
	log.Printf("DAC: %s: %.3f", phase, v)
}
