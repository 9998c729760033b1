// heaterpsu runs the heater power supply controller on a host machine with
// a simulated board. The real PCB runs the same control stack with
// hal.Board wired to GPIO; on a development host the mock board stands in
// and the debug console doubles as the operator interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msulab/heaterpsu/pkg/config"
	"github.com/msulab/heaterpsu/pkg/console"
	"github.com/msulab/heaterpsu/pkg/control"
	"github.com/msulab/heaterpsu/pkg/dac"
	"github.com/msulab/heaterpsu/pkg/hal"
	"github.com/msulab/heaterpsu/pkg/panel"
	"github.com/msulab/heaterpsu/pkg/params"
	"github.com/msulab/heaterpsu/pkg/registers"
)

func main() {
	configPath := flag.String("config", "config.yaml", "configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("heaterpsu: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// A failed parameter init degrades to "operation prohibited" instead
	// of refusing to start: the console override can still enable output.
	initOK := true
	prm, err := params.Load(cfg.ParamsPath)
	if err != nil {
		log.Printf("init failed: params: %v", err)
		initOK = false
		prm = params.Default()
	}

	board := hal.NewMock()
	d := dac.New(hal.DACBus{IO: board}, dac.Scale{
		VPwrFullScale: cfg.DAC.VPwrFullScale,
		VLimFullScale: cfg.DAC.VLimFullScale,
		VPwrSentinel:  cfg.DAC.VPwrSentinel,
		VLimBitOffset: cfg.DAC.VLimBitOffset,
		WordBytes:     cfg.DAC.WordBytes,
	}, prm.Calibration, prm.SoftSentinel)
	d.SetRampTicks(
		time.Duration(cfg.DAC.HeatUpTickMS)*time.Millisecond,
		time.Duration(cfg.DAC.CoolDownTickMS)*time.Millisecond,
	)

	regs := registers.New(registers.Limits{
		PowerMax: cfg.Limits.PowerMax,
		VLimMin:  cfg.Limits.VLimMin,
		VLimMax:  cfg.Limits.VLimMax,
	})
	pnl := panel.New()

	var conIn io.Reader = os.Stdin
	var conOut io.Writer = os.Stdout
	if cfg.Console.SerialPort != "" {
		port, err := console.OpenSerial(cfg.Console.SerialPort, cfg.Console.BaudRate)
		if err != nil {
			return err
		}
		defer port.Close()
		conIn, conOut = port, port
	}
	con := console.New(0, conOut)

	ctrl := control.New(control.Config{
		Period:            time.Duration(cfg.Loop.PeriodMS) * time.Millisecond,
		DebounceCycles:    cfg.Loop.DebounceCycles,
		EncoderResolution: cfg.Encoder.ResolutionWatts,
	}, board, d, regs, pnl, con.Commands())

	con.StatusFunc = func() string {
		return fmt.Sprintf("on=%v vpwr=%.3f vlim=%.3f code=0x%06X sentinel=%.2f",
			ctrl.On(), d.VPwr(), d.VLim(), d.Code(), d.SoftSentinel())
	}
	ctrl.SetSaveFunc(func() error {
		prm.Calibration = d.Calibration()
		prm.SoftSentinel = d.SoftSentinel()
		prm.LastPower = d.VPwr()
		prm.LastVLim = d.VLim()
		return prm.Save(cfg.ParamsPath)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lcd := newTermLCD(os.Stdout)
	pnl.Message(lcd, "Init...")
	ctrl.Startup(initOK, prm.LastVLim)

	go pnl.RunRepaints(ctx, lcd)
	go con.Run(ctx, conIn)

	log.Printf("heaterpsu: control loop started, period %dms", cfg.Loop.PeriodMS)
	ctrl.Run(ctx)
	return nil
}
