package hal

import "sync"

// Mock simulates the board IO for tests and development runs on a host
// without the hardware attached.
type Mock struct {
	mu sync.Mutex

	writes  map[Chain][][]byte
	button  bool
	encoder int
	enabled bool
}

var _ IO = (*Mock)(nil)

// NewMock creates a mocked board.
func NewMock() *Mock {
	return &Mock{writes: make(map[Chain][][]byte)}
}

func (m *Mock) SRWrite(c Chain, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.writes[c] = append(m.writes[c], cp)
	return nil
}

func (m *Mock) ButtonPressed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.button
}

func (m *Mock) EncoderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.encoder
}

func (m *Mock) SetOutputEnable(enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enable
	return nil
}

// PressButton sets the simulated button state.
func (m *Mock) PressButton(pressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.button = pressed
}

// Turn moves the simulated encoder by delta counts.
func (m *Mock) Turn(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoder += delta
}

// SetEncoder sets the simulated encoder position directly.
func (m *Mock) SetEncoder(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoder = count
}

// Writes returns all recorded writes for a chain, oldest first.
func (m *Mock) Writes(c Chain) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes[c]))
	copy(out, m.writes[c])
	return out
}

// LastWrite returns the most recent write for a chain, or nil.
func (m *Mock) LastWrite(c Chain) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.writes[c]
	if len(ws) == 0 {
		return nil
	}
	return ws[len(ws)-1]
}

// WriteCount returns the number of writes recorded for a chain.
func (m *Mock) WriteCount(c Chain) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes[c])
}

// OutputEnabled reports the simulated output-enable line.
func (m *Mock) OutputEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}
