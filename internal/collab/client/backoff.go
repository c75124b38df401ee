package client

import "time"

// Backoff produces the reconnect delay sequence: a fixed floor, multiplied
// on every consecutive failure, capped. A successful connection resets it to
// the floor. Not safe for concurrent use; the controller owns it.
type Backoff struct {
	Floor  time.Duration
	Factor float64
	Cap    time.Duration

	next time.Duration
}

// Next returns the delay to wait before the upcoming attempt and advances
// the sequence.
func (b *Backoff) Next() time.Duration {
	if b.next == 0 {
		b.next = b.Floor
	}
	d := b.next
	if d >= b.Cap {
		// Hold at the cap. Multiplying past it would eventually overflow
		// time.Duration into a negative delay.
		b.next = b.Cap
		return b.Cap
	}
	b.next = time.Duration(float64(b.next) * b.Factor)
	if b.next > b.Cap {
		b.next = b.Cap
	}
	return d
}

// Reset rewinds the sequence to the floor.
func (b *Backoff) Reset() {
	b.next = 0
}
