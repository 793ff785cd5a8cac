package easteregg

import (
	"strings"

	"quest-entry-service/config"
)

// Signal is the matcher's verdict after a buffer change.
type Signal int

const (
	SignalNone Signal = iota
	SignalFake
	SignalReal
)

func (s Signal) String() string {
	switch s {
	case SignalFake:
		return "fake"
	case SignalReal:
		return "real"
	default:
		return "none"
	}
}

// Matcher checks the buffer against the decoy codes, in declared order, and
// then the real code. A match consumes the buffer.
type Matcher struct {
	codes  config.Codes
	buffer *Buffer
}

func NewMatcher(codes config.Codes) *Matcher {
	return &Matcher{codes: codes, buffer: NewBuffer(codes.Window())}
}

// Feed pushes one key and evaluates the buffer if it changed.
func (m *Matcher) Feed(key string) Signal {
	if !m.buffer.Push(key) {
		return SignalNone
	}
	return m.Match()
}

// Push records a key without evaluating; used while matching is suspended.
func (m *Matcher) Push(key string) bool {
	return m.buffer.Push(key)
}

// Match evaluates the current buffer.
func (m *Matcher) Match() Signal {
	seq := m.buffer.String()
	if seq == "" {
		return SignalNone
	}
	for _, code := range m.codes.Fake {
		if strings.Contains(seq, code) {
			m.buffer.Reset()
			return SignalFake
		}
	}
	if m.codes.Real != "" && strings.Contains(seq, m.codes.Real) {
		m.buffer.Reset()
		return SignalReal
	}
	return SignalNone
}

// Reset clears the buffer.
func (m *Matcher) Reset() { m.buffer.Reset() }

// Buffer exposes the underlying window for inspection.
func (m *Matcher) Buffer() *Buffer { return m.buffer }
