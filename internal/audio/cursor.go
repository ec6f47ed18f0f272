package audio

// Cursor reads consecutive mono samples from a track. A nil track reads as
// silence.
type Cursor struct {
	track *PCMTrack
	pos   int // in samples
}

// NewCursor starts reading t from the beginning.
func NewCursor(t *PCMTrack) *Cursor {
	return &Cursor{track: t}
}

// Next returns exactly n samples as little-endian bytes. Anything past the
// end of the track is zero.
func (c *Cursor) Next(n int) []byte {
	if n <= 0 {
		return nil
	}
	out := make([]byte, n*2)
	if c.track != nil {
		start := c.pos * 2
		if start < len(c.track.data) {
			copy(out, c.track.data[start:])
		}
	}
	c.pos += n
	return out
}

// Position is the number of samples consumed so far.
func (c *Cursor) Position() int {
	return c.pos
}
