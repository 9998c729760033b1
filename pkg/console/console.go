// Package console implements the line-oriented debug console. Parsed
// commands are not executed here: they are enqueued onto a bounded interop
// queue that the control loop drains one command per cycle, so all state
// mutation stays on the control task.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"github.com/msulab/heaterpsu/pkg/dac"
)

// DefaultQueueDepth matches the reference firmware's interop queue.
const DefaultQueueDepth = 4

// Kind identifies an interop command.
type Kind int

const (
	// KindOverrideErrors forces output enable after a failed startup.
	KindOverrideErrors Kind = iota
	// KindSetCalibration installs new DAC calibration coefficients.
	KindSetCalibration
	// KindSetSoftSentinel changes the configurable vpwr ceiling.
	KindSetSoftSentinel
	// KindHeatUp runs a blocking linear heat-up ramp.
	KindHeatUp
	// KindCoolDown runs a blocking linear cool-down ramp.
	KindCoolDown
	// KindSave persists the current parameters.
	KindSave
)

// Command is one queued debug-console request.
type Command struct {
	Kind    Kind
	Cal     dac.Calibration // KindSetCalibration
	Volts   float32         // KindSetSoftSentinel, KindHeatUp
	Seconds float32         // KindHeatUp, KindCoolDown
}

// Console parses debug commands from a line stream.
type Console struct {
	cmds chan Command
	out  io.Writer

	// StatusFunc, when set, supplies the text printed by the "status"
	// command. Status is answered inline, without going through the queue.
	StatusFunc func() string
}

// New creates a console with the given interop queue depth.
// Pass 0 for the default depth. Output goes to out (typically the same
// serial port the input comes from).
func New(queueDepth int, out io.Writer) *Console {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &Console{
		cmds: make(chan Command, queueDepth),
		out:  out,
	}
}

// Commands is the interop queue the control loop drains.
func (c *Console) Commands() <-chan Command {
	return c.cmds
}

// Run reads lines from r until EOF or ctx cancellation.
// Each line is parsed and, when valid, enqueued.
func (c *Console) Run(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.handleLine(line)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		log.Printf("console: read error: %v", err)
	}
}

func (c *Console) handleLine(line string) {
	switch fields := strings.Fields(line); fields[0] {
	case "status":
		if c.StatusFunc != nil {
			c.printf("%s\n", c.StatusFunc())
		} else {
			c.printf("status not available\n")
		}
	case "help":
		c.printf("commands: status | override_error | set_cal Gp Op Gl Ol | set_sentinel V | heat_up V S | cool_down S | save\n")
	default:
		cmd, err := ParseLine(line)
		if err != nil {
			c.printf("error: %v\n", err)
			return
		}
		c.enqueue(cmd)
	}
}

// ParseLine parses a single command line.
// Ramp arguments are validated here: the ramp routines treat bad arguments
// as a programming fault, so untrusted console input must never reach them.
func ParseLine(line string) (Command, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "override_error":
		return Command{Kind: KindOverrideErrors}, nil

	case "set_cal":
		if len(fields) != 5 {
			return Command{}, fmt.Errorf("set_cal needs 4 coefficients")
		}
		var vals [4]float32
		for i, f := range fields[1:] {
			v, err := parseFloat(f)
			if err != nil {
				return Command{}, err
			}
			vals[i] = v
		}
		return Command{
			Kind: KindSetCalibration,
			Cal: dac.Calibration{
				GainVPwr:   vals[0],
				OffsetVPwr: vals[1],
				GainVLim:   vals[2],
				OffsetVLim: vals[3],
			},
		}, nil

	case "set_sentinel":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("set_sentinel needs a voltage")
		}
		v, err := parseFloat(fields[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindSetSoftSentinel, Volts: v}, nil

	case "heat_up":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("heat_up needs target volts and seconds")
		}
		v, err := parseFloat(fields[1])
		if err != nil {
			return Command{}, err
		}
		s, err := parseFloat(fields[2])
		if err != nil {
			return Command{}, err
		}
		if s <= 0 {
			return Command{}, fmt.Errorf("ramp time must be positive")
		}
		return Command{Kind: KindHeatUp, Volts: v, Seconds: s}, nil

	case "cool_down":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("cool_down needs seconds")
		}
		s, err := parseFloat(fields[1])
		if err != nil {
			return Command{}, err
		}
		if s <= 0 {
			return Command{}, fmt.Errorf("ramp time must be positive")
		}
		return Command{Kind: KindCoolDown, Seconds: s}, nil

	case "save":
		return Command{Kind: KindSave}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q", fields[0])
}

// enqueue tries to queue a command without blocking, mirroring the
// reference firmware: a full queue drops the command with a message.
func (c *Console) enqueue(cmd Command) bool {
	select {
	case c.cmds <- cmd:
		return true
	default:
		c.printf("failed to enqueue command, wait for previous ones to finish\n")
		return false
	}
}

func (c *Console) printf(format string, args ...any) {
	if c.out == nil {
		return
	}
	fmt.Fprintf(c.out, format, args...)
}

func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	f := float32(v)
	if math32.IsNaN(f) || math32.IsInf(f, 0) {
		return 0, fmt.Errorf("value %q is not finite", s)
	}
	return f, nil
}
