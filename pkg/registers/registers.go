// Package registers implements the Modbus-visible register block of the
// power supply: the remote-enable coil, setpoint holding registers and the
// status registers mirrored every control cycle.
//
// The block is plain register memory guarded by one mutex. A Modbus-TCP
// slave transport binds to the raw slot accessors; the control loop uses the
// typed accessors. Critical sections are short by construction and must
// never span a ramp or any other blocking operation.
package registers

import (
	"fmt"
	"log"
	"math"
	"sync"
)

// Coil and discrete bit indices.
const (
	// CoilRemoteEnable cedes control authority to the holding registers.
	CoilRemoteEnable = 0
	// DiscreteOutputOn mirrors the arbiter's ON/OFF state.
	DiscreteOutputOn = 0
)

// Holding register slots (each float32 spans two 16-bit registers,
// high word first).
const (
	HoldPowerSetpoint = 0
	HoldVLimSetpoint  = 2
	HoldingWords      = 16
)

// Input register slots.
const (
	InputPower   = 0
	InputVLim    = 2
	InputVPwr    = 4
	InputDACVLim = 6
	InputWords   = 16
)

// Limits bound the remote setpoints. Values are clamped on read, so a
// master writing garbage can never push the arbiter out of range.
type Limits struct {
	PowerMax float32
	VLimMin  float32
	VLimMax  float32
}

// Block is the shared register memory.
type Block struct {
	mu        sync.Mutex
	coils     uint16
	discretes uint16
	holding   [HoldingWords]uint16
	input     [InputWords]uint16
	limits    Limits
}

// New creates a register block with all slots zeroed.
func New(limits Limits) *Block {
	return &Block{limits: limits}
}

// RemoteEnabled reports whether the remote-enable coil is set.
func (b *Block) RemoteEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.coils&(1<<CoilRemoteEnable) != 0
}

// DisableRemote clears the remote-enable coil, forcing authority back to
// the local encoder and button.
func (b *Block) DisableRemote() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coils &^= 1 << CoilRemoteEnable
}

// PowerSetpoint returns the remote power setpoint clamped to [0, PowerMax].
func (b *Block) PowerSetpoint() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := getFloat32(b.holding[HoldPowerSetpoint:])
	return clamp(v, 0, b.limits.PowerMax)
}

// VLimSetpoint returns the remote limit setpoint clamped to [VLimMin, VLimMax].
func (b *Block) VLimSetpoint() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := getFloat32(b.holding[HoldVLimSetpoint:])
	return clamp(v, b.limits.VLimMin, b.limits.VLimMax)
}

// SetStatus mirrors the arbiter state into the status registers:
// the ON discrete, the effective power and limit setpoints, and the
// voltages last requested from the DAC.
func (b *Block) SetStatus(isOn bool, power, vlim, dacVPwr, dacVLim float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if isOn {
		b.discretes |= 1 << DiscreteOutputOn
	} else {
		b.discretes &^= 1 << DiscreteOutputOn
	}
	putFloat32(b.input[InputPower:], power)
	putFloat32(b.input[InputVLim:], vlim)
	putFloat32(b.input[InputVPwr:], dacVPwr)
	putFloat32(b.input[InputDACVLim:], dacVLim)
}

// Coil reports a coil bit. Out-of-range indices read as false.
func (b *Block) Coil(i int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i > 15 {
		return false
	}
	return b.coils&(1<<i) != 0
}

// SetCoil sets or clears a coil bit.
func (b *Block) SetCoil(i int, v bool) error {
	if i < 0 || i > 15 {
		return fmt.Errorf("registers: coil index %d out of range", i)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if v {
		b.coils |= 1 << i
	} else {
		b.coils &^= 1 << i
	}
	if i == CoilRemoteEnable {
		log.Printf("registers: remote enable set to %v", v)
	}
	return nil
}

// Discrete reports a discrete input bit.
func (b *Block) Discrete(i int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i > 15 {
		return false
	}
	return b.discretes&(1<<i) != 0
}

// ReadHolding returns a copy of qty holding registers starting at addr.
func (b *Block) ReadHolding(addr, qty uint16) ([]uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return readSlice(b.holding[:], addr, qty)
}

// WriteHolding stores values into the holding registers starting at addr.
func (b *Block) WriteHolding(addr uint16, values []uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(addr)+len(values) > HoldingWords {
		return fmt.Errorf("registers: holding write [%d,%d) out of range", addr, int(addr)+len(values))
	}
	copy(b.holding[addr:], values)

	// One log line per touched setpoint, never cascading into the next slot.
	end := int(addr) + len(values)
	if int(addr) <= HoldPowerSetpoint && end >= HoldPowerSetpoint+2 {
		log.Printf("registers: power setpoint written: %f", getFloat32(b.holding[HoldPowerSetpoint:]))
	}
	if int(addr) <= HoldVLimSetpoint && end >= HoldVLimSetpoint+2 {
		log.Printf("registers: vlim setpoint written: %f", getFloat32(b.holding[HoldVLimSetpoint:]))
	}
	return nil
}

// ReadInput returns a copy of qty input registers starting at addr.
func (b *Block) ReadInput(addr, qty uint16) ([]uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return readSlice(b.input[:], addr, qty)
}

// SetPowerSetpoint stores a power setpoint, as a master write would.
func (b *Block) SetPowerSetpoint(v float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	putFloat32(b.holding[HoldPowerSetpoint:], v)
}

// SetVLimSetpoint stores a limit setpoint, as a master write would.
func (b *Block) SetVLimSetpoint(v float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	putFloat32(b.holding[HoldVLimSetpoint:], v)
}

func readSlice(regs []uint16, addr, qty uint16) ([]uint16, error) {
	if int(addr)+int(qty) > len(regs) {
		return nil, fmt.Errorf("registers: read [%d,%d) out of range", addr, int(addr)+int(qty))
	}
	out := make([]uint16, qty)
	copy(out, regs[addr:])
	return out, nil
}

func clamp(v, lo, hi float32) float32 {
	// NaN from a misbehaving master reads as the lower bound.
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// putFloat32 stores f across two registers, high word first.
func putFloat32(regs []uint16, f float32) {
	bits := math.Float32bits(f)
	regs[0] = uint16(bits >> 16)
	regs[1] = uint16(bits)
}

// getFloat32 reads a float stored high word first.
func getFloat32(regs []uint16) float32 {
	bits := uint32(regs[0])<<16 | uint32(regs[1])
	return math.Float32frombits(bits)
}
