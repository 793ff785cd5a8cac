// Package easteregg detects cheat codes typed anywhere on the page and
// drives the quest unlock flow for the connected wallet.
package easteregg

// Buffer is a rolling window of the most recent letter keystrokes,
// stored lower-cased.
type Buffer struct {
	window int
	seq    []byte
}

// NewBuffer keeps at most window characters. A window of zero keeps nothing.
func NewBuffer(window int) *Buffer {
	if window < 0 {
		window = 0
	}
	return &Buffer{window: window, seq: make([]byte, 0, window+1)}
}

// Push appends key if it is a single ASCII letter and reports whether the
// buffer changed. Named keys ("enter", "shift"), digits and punctuation are
// ignored.
func (b *Buffer) Push(key string) bool {
	if len(key) != 1 || b.window == 0 {
		return false
	}
	c := key[0]
	switch {
	case c >= 'a' && c <= 'z':
	case c >= 'A' && c <= 'Z':
		c += 'a' - 'A'
	default:
		return false
	}

	b.seq = append(b.seq, c)
	if over := len(b.seq) - b.window; over > 0 {
		b.seq = append(b.seq[:0], b.seq[over:]...)
	}
	return true
}

func (b *Buffer) String() string { return string(b.seq) }

func (b *Buffer) Len() int { return len(b.seq) }

func (b *Buffer) Window() int { return b.window }

func (b *Buffer) Reset() { b.seq = b.seq[:0] }
