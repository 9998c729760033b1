// Package control runs the main arbitration loop. Every cycle it samples
// the button and encoder, checks the remote-enable coil, decides the
// effective power/limit targets from the three control sources (local
// encoder/button, remote registers, debug console) and applies them through
// the DAC, then mirrors state out to the display cache and the status
// registers.
//
// The control loop is the only task that commands the DAC. Remote and
// console paths supply inputs only; they never write output state directly.
package control

import (
	"context"
	"log"
	"time"

	"github.com/chewxy/math32"

	"github.com/msulab/heaterpsu/pkg/console"
	"github.com/msulab/heaterpsu/pkg/dac"
	"github.com/msulab/heaterpsu/pkg/panel"
	"github.com/msulab/heaterpsu/pkg/registers"
)

// Default loop timing.
const (
	DefaultPeriod         = 30 * time.Millisecond
	DefaultDebounceCycles = 10
)

// Inputs is the hardware surface the arbiter samples. hal.IO satisfies it.
type Inputs interface {
	ButtonPressed() bool
	EncoderCount() int
	SetOutputEnable(enable bool) error
}

// Config contains the arbiter timing and input scaling.
type Config struct {
	// Period is the cycle length.
	Period time.Duration
	// DebounceCycles is the button hold threshold in cycles. The
	// effective hold duration is DebounceCycles*Period, so changing the
	// loop period changes the feel of the button unless this is adjusted.
	DebounceCycles int
	// EncoderResolution is watts per encoder count.
	EncoderResolution float32
}

// Controller is the arbiter state machine. States are OFF and ON; a session
// always begins OFF with vpwr zeroed.
type Controller struct {
	cfg  Config
	in   Inputs
	dac  *dac.DAC
	regs *registers.Block
	pnl  *panel.Cache
	cmds <-chan console.Command

	saveFn func() error

	isOn      bool
	holdCount int
	initOK    bool
}

// New creates a controller. cmds may be nil when no debug console is wired.
func New(cfg Config, in Inputs, d *dac.DAC, regs *registers.Block, pnl *panel.Cache, cmds <-chan console.Command) *Controller {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.DebounceCycles <= 0 {
		cfg.DebounceCycles = DefaultDebounceCycles
	}
	return &Controller{
		cfg:  cfg,
		in:   in,
		dac:  d,
		regs: regs,
		pnl:  pnl,
		cmds: cmds,
	}
}

// SetSaveFunc installs the handler for the console save command.
func (c *Controller) SetSaveFunc(fn func() error) {
	c.saveFn = fn
}

// Startup applies the initial output state. With initOK the output is
// explicitly zeroed and enabled; the session still begins OFF. A failed
// init leaves outputs disabled ("operation prohibited") until an explicit
// override arrives on the debug queue.
func (c *Controller) Startup(initOK bool, lastVLim float32) {
	c.initOK = initOK
	c.isOn = false
	if !initOK {
		log.Printf("control: init failed, operation prohibited")
		if err := c.in.SetOutputEnable(false); err != nil {
			log.Printf("control: output disable failed: %v", err)
		}
		return
	}
	c.dac.SetVPwr(0)
	c.dac.SetVLim(lastVLim)
	if err := c.in.SetOutputEnable(true); err != nil {
		log.Printf("control: output enable failed: %v", err)
	}
}

// On reports the arbiter state.
func (c *Controller) On() bool {
	return c.isOn
}

// Overridden reports whether operation is currently allowed.
func (c *Controller) Overridden() bool {
	return c.initOK
}

// Run executes cycles at the configured period until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cycle()
		}
	}
}

// Cycle performs one arbitration pass. Exported so tests can drive the
// loop without real time.
func (c *Controller) Cycle() {
	// Button debounce: count cycles held, reset on release. The action
	// fires once the count exceeds the threshold.
	if c.in.ButtonPressed() {
		c.holdCount++
	} else {
		c.holdCount = 0
	}

	// Remote enable wins over local state: ON is entered unconditionally
	// while the coil is set (unless operation is prohibited). Without it,
	// the power target comes from the encoder position and the state is
	// left alone: only the button toggles ON/OFF in local mode.
	remote := c.regs.RemoteEnabled()
	var pwr float32
	if remote {
		if c.initOK {
			c.isOn = true
		}
		pwr = c.regs.PowerSetpoint()
	} else {
		pwr = float32(c.in.EncoderCount()) * c.cfg.EncoderResolution
	}

	if c.holdCount > c.cfg.DebounceCycles {
		c.holdCount = 0
		if c.isOn {
			// Long press while ON: full stop. Remote authority is
			// revoked so the master cannot immediately re-enable.
			c.isOn = false
			c.regs.DisableRemote()
			remote = false
			c.dac.SetVPwr(0)
		} else if c.initOK {
			// No voltage is applied here; the next cycle's encoder
			// read sets it.
			c.isOn = true
		}
	}

	if c.isOn {
		c.dac.SetVPwr(pwr)
		// Local mode never adjusts the limit: vlim is remote/console
		// territory only.
		if remote {
			c.dac.SetVLim(c.regs.VLimSetpoint())
		}
	}

	// Status mirroring runs every cycle regardless of state.
	dispPwr := math32.NaN()
	if c.isOn {
		dispPwr = c.dac.VPwr()
	}
	if c.pnl.Set(dispPwr, c.dac.VLim()) {
		c.pnl.Repaint()
	}
	c.regs.SetStatus(c.isOn, pwr, c.dac.VLim(), c.dac.VPwr(), c.dac.VLim())

	c.drainOneCommand()
}

// drainOneCommand processes at most one debug-console command per cycle.
func (c *Controller) drainOneCommand() {
	if c.cmds == nil {
		return
	}
	select {
	case cmd := <-c.cmds:
		log.Printf("control: processing debug command #%d", cmd.Kind)
		switch cmd.Kind {
		case console.KindOverrideErrors:
			c.initOK = true
			if err := c.in.SetOutputEnable(true); err != nil {
				log.Printf("control: output enable failed: %v", err)
			}
		case console.KindSetCalibration:
			c.dac.SetCalibration(cmd.Cal)
		case console.KindSetSoftSentinel:
			c.dac.SetSoftSentinel(cmd.Volts)
		case console.KindHeatUp:
			// Ramps block the loop for their whole duration; no other
			// control work runs concurrently with a ramp.
			c.dac.HeatUp(cmd.Volts, cmd.Seconds)
		case console.KindCoolDown:
			c.dac.CoolDown(cmd.Seconds)
		case console.KindSave:
			if c.saveFn == nil {
				log.Printf("control: no save handler installed")
				break
			}
			if err := c.saveFn(); err != nil {
				log.Printf("control: save failed: %v", err)
			}
		default:
			log.Printf("control: unknown debug command: %d", cmd.Kind)
		}
	default:
	}
}
