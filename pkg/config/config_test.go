package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 30, cfg.Loop.PeriodMS)
	assert.Equal(t, 10, cfg.Loop.DebounceCycles)
	assert.Equal(t, uint32(0x03FF), cfg.DAC.VPwrFullScale)
	assert.Equal(t, uint32(0x00FF), cfg.DAC.VLimFullScale)
	assert.Equal(t, uint32(0x03F0), cfg.DAC.VPwrSentinel)
	assert.Equal(t, uint(16), cfg.DAC.VLimBitOffset)
	assert.Equal(t, 3, cfg.DAC.WordBytes)
	assert.Equal(t, 5, cfg.DAC.HeatUpTickMS)
	assert.Equal(t, 10, cfg.DAC.CoolDownTickMS)
	assert.Equal(t, float32(0.001), cfg.Encoder.ResolutionWatts)
	assert.Equal(t, float32(3.5), cfg.Limits.PowerMax)
	assert.Equal(t, float32(0.5), cfg.Limits.VLimMin)
	assert.Equal(t, float32(8.0), cfg.Limits.VLimMax)
	assert.Equal(t, ":502", cfg.Modbus.ListenAddress)
	assert.Equal(t, uint8(1), cfg.Modbus.UnitID)
	assert.Equal(t, 115200, cfg.Console.BaudRate)
	assert.Equal(t, "params.yaml", cfg.ParamsPath)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 30, cfg.Loop.PeriodMS)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
loop:
  period_ms: 20
  debounce_cycles: 15

dac:
  vpwr_full_scale: 0xFFF
  heat_up_tick_ms: 2

encoder:
  resolution_watts: 0.005

limits:
  power_max: 2.0
  vlim_min: 1.0
  vlim_max: 6.0

modbus:
  listen_address: ":1502"
  unit_id: 7

console:
  serial_port: "/dev/ttyUSB1"
  baud_rate: 9600

params_path: /var/lib/heaterpsu/params.yaml
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, 20, cfg.Loop.PeriodMS)
	assert.Equal(t, 15, cfg.Loop.DebounceCycles)
	assert.Equal(t, uint32(0xFFF), cfg.DAC.VPwrFullScale)
	assert.Equal(t, 2, cfg.DAC.HeatUpTickMS)
	assert.Equal(t, float32(0.005), cfg.Encoder.ResolutionWatts)
	assert.Equal(t, float32(2.0), cfg.Limits.PowerMax)
	assert.Equal(t, float32(1.0), cfg.Limits.VLimMin)
	assert.Equal(t, float32(6.0), cfg.Limits.VLimMax)
	assert.Equal(t, ":1502", cfg.Modbus.ListenAddress)
	assert.Equal(t, uint8(7), cfg.Modbus.UnitID)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Console.SerialPort)
	assert.Equal(t, 9600, cfg.Console.BaudRate)
	assert.Equal(t, "/var/lib/heaterpsu/params.yaml", cfg.ParamsPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
loop:
  period_ms: 50
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, 50, cfg.Loop.PeriodMS)
	assert.Equal(t, 10, cfg.Loop.DebounceCycles)           // default
	assert.Equal(t, uint32(0x03FF), cfg.DAC.VPwrFullScale) // default
	assert.Equal(t, ":502", cfg.Modbus.ListenAddress)      // default
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Loop.PeriodMS = 25
	cfg.Console.SerialPort = "/dev/ttyUSB0"

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Loop.PeriodMS)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Console.SerialPort)
}
