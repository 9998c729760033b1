// Package dac provides the DAC abstraction for the heater power supply:
// N(V) code mapping (N = DAC code, V = target heater amplifier voltage),
// output range limiting and soft ramp up/down.
package dac

import (
	"encoding/binary"
	"log"
	"sync"
	"time"

	"github.com/chewxy/math32"
)

// Calibration holds the linear N(V) fit coefficients for both DAC channels.
type Calibration struct {
	GainVPwr   float32 `yaml:"gain_vpwr"`
	OffsetVPwr float32 `yaml:"offset_vpwr"`
	GainVLim   float32 `yaml:"gain_vlim"`
	OffsetVLim float32 `yaml:"offset_vlim"`
}

// DefaultCalibration is the identity fit used until real coefficients are loaded.
func DefaultCalibration() Calibration {
	return Calibration{GainVPwr: 1, OffsetVPwr: 0, GainVLim: 1, OffsetVLim: 0}
}

// Scale describes the fixed per-hardware-revision DAC geometry.
type Scale struct {
	// VPwrFullScale is the vpwr channel full-scale code (10-bit DAC).
	VPwrFullScale uint32
	// VLimFullScale is the vlim channel full-scale code (8-bit DAC).
	VLimFullScale uint32
	// VPwrSentinel is the hard, non-configurable vpwr code ceiling.
	// Last line of defense, applied after every other clamp.
	VPwrSentinel uint32
	// VLimBitOffset is the bit position of the vlim code inside the
	// combined shift-register word.
	VLimBitOffset uint
	// WordBytes is the shift-register chain length in bytes.
	WordBytes int
}

// DefaultScale matches PCB rev 1.
func DefaultScale() Scale {
	return Scale{
		VPwrFullScale: 0x03FF,
		VLimFullScale: 0x00FF,
		VPwrSentinel:  0x03F0,
		VLimBitOffset: 16,
		WordBytes:     3,
	}
}

// BusWriter pushes the packed DAC word out to the hardware.
// Implementations write the buffer to the DAC shift-register chain.
type BusWriter interface {
	WriteDAC(buf []byte) error
}

// DAC owns the output state of both channels: the last requested voltages
// and the combined shift-register code. All writes to the hardware word go
// through SetVPwr/SetVLim, which preserve the other channel's bits.
//
// The reference design relies on a single-writer task and keeps no lock.
// Here the debug console may swap calibration concurrently with the control
// loop, so the state is mutex-guarded instead.
type DAC struct {
	mu           sync.Mutex
	bus          BusWriter
	scale        Scale
	cal          Calibration
	softSentinel float32

	lastVPwr float32
	lastVLim float32
	lastCode uint32

	clock        Clock
	heatUpTick   time.Duration
	coolDownTick time.Duration
	progress     func(volts float32)
}

// New creates a DAC service bound to a hardware bus.
// softSentinel is the configurable vpwr voltage ceiling (volts).
func New(bus BusWriter, scale Scale, cal Calibration, softSentinel float32) *DAC {
	return &DAC{
		bus:          bus,
		scale:        scale,
		cal:          cal,
		softSentinel: softSentinel,
		clock:        realClock{},
		heatUpTick:   DefaultHeatUpTick,
		coolDownTick: DefaultCoolDownTick,
	}
}

// SetCalibration installs new N(V) coefficients.
func (d *DAC) SetCalibration(cal Calibration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cal = cal
}

// Calibration returns the active N(V) coefficients.
func (d *DAC) Calibration() Calibration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cal
}

// SetSoftSentinel changes the configurable vpwr voltage ceiling.
func (d *DAC) SetSoftSentinel(volts float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.softSentinel = volts
}

// SoftSentinel returns the configurable vpwr voltage ceiling.
func (d *DAC) SoftSentinel() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.softSentinel
}

// SetVPwr sets the heater amplifier output voltage.
// Non-finite values are logged and ignored. The requested value is recorded
// before clamping, so VPwr reports intent rather than hardware truth.
func (d *DAC) SetVPwr(volt float32) {
	if !isFinite(volt) {
		log.Printf("DAC: ignored non-finite vpwr value: %f", volt)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastVPwr = volt
	if volt > d.softSentinel {
		volt = d.softSentinel
		log.Printf("DAC: soft sentinel reached")
	}
	volt = volt*d.cal.GainVPwr + 0.5 + d.cal.OffsetVPwr
	if volt > float32(d.scale.VPwrFullScale) {
		volt = float32(d.scale.VPwrFullScale)
	} else if volt < 0 {
		volt = 0
	}
	if volt > float32(d.scale.VPwrSentinel) {
		volt = float32(d.scale.VPwrSentinel)
		log.Printf("DAC: hard sentinel reached")
	}
	code := uint32(volt)

	// The 10-bit vpwr code is split across the first two bytes of the
	// chain: word[7:0] = code[9:2], word[9:8] = code[1:0].
	d.lastCode &^= d.scale.VPwrFullScale
	d.lastCode |= (code >> 2) & 0xFF
	d.lastCode |= (code & 0b11) << 8
	d.write()
}

// VPwr returns the last requested heater amplifier voltage, volts.
func (d *DAC) VPwr() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastVPwr
}

// SetVLim sets the over-voltage limit threshold.
// Non-finite values are logged and ignored. There is no adjustable soft
// ceiling for vlim, only the DAC full-scale clamp.
func (d *DAC) SetVLim(volt float32) {
	if !isFinite(volt) {
		log.Printf("DAC: ignored non-finite vlim value: %f", volt)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastVLim = volt
	volt = volt*d.cal.GainVLim + 0.5 + d.cal.OffsetVLim
	if volt > float32(d.scale.VLimFullScale) {
		volt = float32(d.scale.VLimFullScale)
	} else if volt < 0 {
		volt = 0
	}
	d.lastCode &^= d.scale.VLimFullScale << d.scale.VLimBitOffset
	d.lastCode |= uint32(volt) << d.scale.VLimBitOffset
	d.write()
}

// VLim returns the last requested limit voltage, volts.
func (d *DAC) VLim() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastVLim
}

// Code returns the combined shift-register word last written to hardware.
func (d *DAC) Code() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCode
}

// write pushes the combined word out. Steady-state bus failures are logged,
// not propagated: the control loop must never die from a write error.
func (d *DAC) write() {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], d.lastCode)
	if err := d.bus.WriteDAC(buf[:d.scale.WordBytes]); err != nil {
		log.Printf("DAC: bus write failed: %v", err)
	}
}

func isFinite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
