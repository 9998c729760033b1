// Package config holds the static application configuration: control-loop
// timing, DAC geometry, input scaling, remote limits and transport
// endpoints. Persisted runtime parameters (calibration, sentinel, last
// setpoints) live in pkg/params instead.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Loop    LoopConfig    `yaml:"loop"`
	DAC     DACConfig     `yaml:"dac"`
	Encoder EncoderConfig `yaml:"encoder"`
	Limits  LimitsConfig  `yaml:"limits"`
	Modbus  ModbusConfig  `yaml:"modbus"`
	Console ConsoleConfig `yaml:"console"`
	// ParamsPath is the persisted parameter file location.
	ParamsPath string `yaml:"params_path"`
}

// LoopConfig contains control-loop timing.
type LoopConfig struct {
	PeriodMS int `yaml:"period_ms"`
	// DebounceCycles is the button hold threshold, counted in loop
	// cycles: the effective hold duration is DebounceCycles*PeriodMS.
	DebounceCycles int `yaml:"debounce_cycles"`
}

// DACConfig contains the per-hardware-revision DAC geometry and ramp timing.
type DACConfig struct {
	VPwrFullScale  uint32 `yaml:"vpwr_full_scale"`
	VLimFullScale  uint32 `yaml:"vlim_full_scale"`
	VPwrSentinel   uint32 `yaml:"vpwr_sentinel"`
	VLimBitOffset  uint   `yaml:"vlim_bit_offset"`
	WordBytes      int    `yaml:"word_bytes"`
	HeatUpTickMS   int    `yaml:"heat_up_tick_ms"`
	CoolDownTickMS int    `yaml:"cool_down_tick_ms"`
}

// EncoderConfig contains the local position-to-power mapping.
type EncoderConfig struct {
	// ResolutionWatts is the power change per encoder count.
	ResolutionWatts float32 `yaml:"resolution_watts"`
}

// LimitsConfig bounds the remote setpoints.
type LimitsConfig struct {
	PowerMax float32 `yaml:"power_max"`
	VLimMin  float32 `yaml:"vlim_min"`
	VLimMax  float32 `yaml:"vlim_max"`
}

// ModbusConfig contains the slave endpoint identity.
type ModbusConfig struct {
	ListenAddress string `yaml:"listen_address"`
	UnitID        uint8  `yaml:"unit_id"`
}

// ConsoleConfig contains the debug console transport.
type ConsoleConfig struct {
	// SerialPort is the debug UART. Empty means stdin/stdout.
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
}

// Default returns a default configuration matching PCB rev 1.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			PeriodMS:       30,
			DebounceCycles: 10,
		},
		DAC: DACConfig{
			VPwrFullScale:  0x03FF,
			VLimFullScale:  0x00FF,
			VPwrSentinel:   0x03F0,
			VLimBitOffset:  16,
			WordBytes:      3,
			HeatUpTickMS:   5,
			CoolDownTickMS: 10,
		},
		Encoder: EncoderConfig{
			ResolutionWatts: 0.001,
		},
		Limits: LimitsConfig{
			PowerMax: 3.5,
			VLimMin:  0.5,
			VLimMax:  8.0,
		},
		Modbus: ModbusConfig{
			ListenAddress: ":502",
			UnitID:        1,
		},
		Console: ConsoleConfig{
			SerialPort: "",
			BaudRate:   115200,
		},
		ParamsPath: "params.yaml",
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Loop.PeriodMS == 0 {
		c.Loop.PeriodMS = def.Loop.PeriodMS
	}
	if c.Loop.DebounceCycles == 0 {
		c.Loop.DebounceCycles = def.Loop.DebounceCycles
	}

	if c.DAC.VPwrFullScale == 0 {
		c.DAC.VPwrFullScale = def.DAC.VPwrFullScale
	}
	if c.DAC.VLimFullScale == 0 {
		c.DAC.VLimFullScale = def.DAC.VLimFullScale
	}
	if c.DAC.VPwrSentinel == 0 {
		c.DAC.VPwrSentinel = def.DAC.VPwrSentinel
	}
	if c.DAC.VLimBitOffset == 0 {
		c.DAC.VLimBitOffset = def.DAC.VLimBitOffset
	}
	if c.DAC.WordBytes == 0 {
		c.DAC.WordBytes = def.DAC.WordBytes
	}
	if c.DAC.HeatUpTickMS == 0 {
		c.DAC.HeatUpTickMS = def.DAC.HeatUpTickMS
	}
	if c.DAC.CoolDownTickMS == 0 {
		c.DAC.CoolDownTickMS = def.DAC.CoolDownTickMS
	}

	if c.Encoder.ResolutionWatts == 0 {
		c.Encoder.ResolutionWatts = def.Encoder.ResolutionWatts
	}

	if c.Limits.PowerMax == 0 {
		c.Limits.PowerMax = def.Limits.PowerMax
	}
	if c.Limits.VLimMin == 0 {
		c.Limits.VLimMin = def.Limits.VLimMin
	}
	if c.Limits.VLimMax == 0 {
		c.Limits.VLimMax = def.Limits.VLimMax
	}

	if c.Modbus.ListenAddress == "" {
		c.Modbus.ListenAddress = def.Modbus.ListenAddress
	}
	if c.Modbus.UnitID == 0 {
		c.Modbus.UnitID = def.Modbus.UnitID
	}

	if c.Console.BaudRate == 0 {
		c.Console.BaudRate = def.Console.BaudRate
	}

	if c.ParamsPath == "" {
		c.ParamsPath = def.ParamsPath
	}
}
