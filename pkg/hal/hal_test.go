package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgePin invokes onRise on every low-to-high transition.
type edgePin struct {
	level  bool
	onRise func()
}

func (p *edgePin) Set(high bool) {
	if high && !p.level && p.onRise != nil {
		p.onRise()
	}
	p.level = high
}

func (p *edgePin) Get() bool { return p.level }

// wireTap samples the data line on each rising clock edge, recovering the
// serial bit stream a real register chain would latch.
type wireTap struct {
	data  *MemPin
	latch *MemPin
	clk   *edgePin
	bits  []bool
}

func newWireTap() *wireTap {
	tap := &wireTap{data: &MemPin{}, latch: &MemPin{}}
	tap.clk = &edgePin{onRise: func() {
		tap.bits = append(tap.bits, tap.data.Get())
	}}
	return tap
}

func TestShiftRegisterLSBFirst(t *testing.T) {
	tap := newWireTap()
	sr := &ShiftRegister{Data: tap.data, Clk: tap.clk, Latch: tap.latch, Len: 1}

	require.NoError(t, sr.Write([]byte{0xA5}))

	require.Len(t, tap.bits, 8)
	var got byte
	for i, b := range tap.bits {
		if b {
			got |= 1 << i
		}
	}
	assert.Equal(t, byte(0xA5), got)
	assert.True(t, tap.latch.Get(), "outputs latched after the write")
}

func TestShiftRegisterMSBFirstReversesBytes(t *testing.T) {
	tap := newWireTap()
	sr := &ShiftRegister{Data: tap.data, Clk: tap.clk, Latch: tap.latch, MSBFirst: true, Len: 2}

	require.NoError(t, sr.Write([]byte{0x12, 0x34}))

	require.Len(t, tap.bits, 16)
	bytes := make([]byte, 2)
	for i, b := range tap.bits {
		if b {
			bytes[i/8] |= 1 << (7 - i%8)
		}
	}
	// Last byte of the buffer goes out first, each byte MSB first.
	assert.Equal(t, []byte{0x34, 0x12}, bytes)
}

func TestShiftRegisterShortBuffer(t *testing.T) {
	tap := newWireTap()
	sr := &ShiftRegister{Data: tap.data, Clk: tap.clk, Latch: tap.latch, Len: 3}

	assert.Error(t, sr.Write([]byte{0x00}))
}

func newTestBoard(t *testing.T) (*Board, *MemPin, *MemPin, *MemPin, *MemPin) {
	t.Helper()
	btn := &MemPin{}
	btn.Set(true) // active low, released
	oe := &MemPin{}
	encA := &MemPin{}
	encB := &MemPin{}

	mk := func(n int) *ShiftRegister {
		return &ShiftRegister{Data: &MemPin{}, Clk: &MemPin{}, Latch: &MemPin{}, Len: n}
	}
	b, err := NewBoard(mk(3), mk(1), btn, oe, encA, encB)
	require.NoError(t, err)
	return b, btn, oe, encA, encB
}

func TestBoardButtonActiveLow(t *testing.T) {
	b, btn, _, _, _ := newTestBoard(t)

	assert.False(t, b.ButtonPressed())
	btn.Set(false)
	assert.True(t, b.ButtonPressed())
}

func TestBoardOutputEnableActiveLow(t *testing.T) {
	b, _, oe, _, _ := newTestBoard(t)

	require.NoError(t, b.SetOutputEnable(true))
	assert.False(t, oe.Get())

	require.NoError(t, b.SetOutputEnable(false))
	assert.True(t, oe.Get())
}

func TestBoardEncoderQuadrature(t *testing.T) {
	b, _, _, encA, encB := newTestBoard(t)

	// One full detent clockwise: 4 quadrature transitions.
	forward := [][2]bool{{false, true}, {true, true}, {true, false}, {false, false}}
	for _, s := range forward {
		encA.Set(s[0])
		encB.Set(s[1])
		b.EncoderCount()
	}
	assert.Equal(t, 4, b.EncoderCount())

	// And back again.
	reverse := [][2]bool{{true, false}, {true, true}, {false, true}, {false, false}}
	for _, s := range reverse {
		encA.Set(s[0])
		encB.Set(s[1])
		b.EncoderCount()
	}
	assert.Equal(t, 0, b.EncoderCount())
}

func TestMockRecordsWrites(t *testing.T) {
	m := NewMock()

	require.NoError(t, m.SRWrite(ChainDAC, []byte{1, 2, 3}))
	require.NoError(t, m.SRWrite(ChainDAC, []byte{4, 5, 6}))
	require.NoError(t, m.SRWrite(ChainLCD, []byte{7}))

	assert.Equal(t, 2, m.WriteCount(ChainDAC))
	assert.Equal(t, []byte{4, 5, 6}, m.LastWrite(ChainDAC))
	assert.Equal(t, [][]byte{{7}}, m.Writes(ChainLCD))
	assert.Nil(t, m.LastWrite(Chain(9)))
}

func TestGPIOBusSetsWordBits(t *testing.T) {
	pins := make([]Pin, 10)
	mem := make([]*MemPin, 10)
	for i := range pins {
		mem[i] = &MemPin{}
		pins[i] = mem[i]
	}
	strobe := &MemPin{}
	bus := GPIOBus{Data: pins, Strobe: strobe}

	// 0b10_00000010 across the low two bytes.
	require.NoError(t, bus.WriteDAC([]byte{0x02, 0x02, 0x00}))

	for i, p := range mem {
		want := i == 1 || i == 9
		assert.Equal(t, want, p.Get(), "bit %d", i)
	}
	assert.True(t, strobe.Get())

	assert.Error(t, GPIOBus{Data: pins, Strobe: strobe}.WriteDAC([]byte{0x00}))
}

func TestDACBusTargetsDACChain(t *testing.T) {
	m := NewMock()
	bus := DACBus{IO: m}

	require.NoError(t, bus.WriteDAC([]byte{0xAA, 0x01, 0x00}))
	assert.Equal(t, []byte{0xAA, 0x01, 0x00}, m.LastWrite(ChainDAC))
	assert.Equal(t, 0, m.WriteCount(ChainLCD))
}
