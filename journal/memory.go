package journal

import "sync"

// Memory keeps everything in slices. It backs tests and dry runs.
type Memory struct {
	mu         sync.Mutex
	roundtrips []RoundtripRecord
	equity     []EquitySnapshot
	runs       []RunRecord
	closed     bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordRoundtrip(r RoundtripRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roundtrips = append(m.roundtrips, r)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *Memory) RecordRun(r RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) Roundtrips() []RoundtripRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RoundtripRecord(nil), m.roundtrips...)
}

func (m *Memory) Equity() []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EquitySnapshot(nil), m.equity...)
}

func (m *Memory) Runs() []RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunRecord(nil), m.runs...)
}

func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
