// Package params stores the persisted device parameters: DAC calibration,
// the soft sentinel and the last-used setpoints. The reference firmware
// keeps these in a versioned NVS blob; here it is a versioned YAML file.
// A version mismatch resets to defaults, the same breaking-change policy
// the NVS layout had.
package params

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/msulab/heaterpsu/pkg/dac"
)

// StorageVersion is bumped on any breaking layout change.
const StorageVersion = 3

// Params is the persisted parameter set.
type Params struct {
	Version      int             `yaml:"version"`
	Calibration  dac.Calibration `yaml:"dac_calibration"`
	SoftSentinel float32         `yaml:"dac_soft_sentinel"`
	LastPower    float32         `yaml:"last_set_power"`
	LastVLim     float32         `yaml:"last_set_vlim"`
}

// Default returns factory parameters.
func Default() *Params {
	return &Params{
		Version:      StorageVersion,
		Calibration:  dac.DefaultCalibration(),
		SoftSentinel: 5.0,
		LastPower:    0,
		LastVLim:     5.0,
	}
}

// Load reads parameters from a YAML file. A missing file yields defaults;
// a version mismatch resets to defaults with a warning.
func Load(filename string) (*Params, error) {
	p := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}

	loaded := &Params{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("failed to parse params file: %w", err)
	}
	if loaded.Version != StorageVersion {
		log.Printf("params: storage version %d not consistent with %d, reset to defaults",
			loaded.Version, StorageVersion)
		return p, nil
	}
	if loaded.Calibration == (dac.Calibration{}) {
		loaded.Calibration = dac.DefaultCalibration()
	}
	if loaded.SoftSentinel == 0 {
		loaded.SoftSentinel = p.SoftSentinel
	}
	return loaded, nil
}

// Save writes the parameters to a YAML file.
func (p *Params) Save(filename string) error {
	p.Version = StorageVersion
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write params file: %w", err)
	}
	return nil
}
