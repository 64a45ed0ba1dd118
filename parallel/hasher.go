package parallel

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
)

// Hasher collects one uint16 per position, possibly from many goroutines, and
// hashes them in position order. Two runs which put the same values at the same
// positions produce the same Sum regardless of scheduling.
type Hasher struct {
	mut  sync.Mutex
	data []uint16
	set  []bool
}

// NewUint16Hasher creates a Hasher for n positions.
func NewUint16Hasher(n int) *Hasher {
	return &Hasher{
		data: make([]uint16, n),
		set:  make([]bool, n),
	}
}

// MustPutUint16 stores value at position n. It panics when n is out of range or
// already written.
func (h *Hasher) MustPutUint16(n int, value uint16) {
	h.mut.Lock()
	defer h.mut.Unlock()
	if n < 0 || n >= len(h.data) {
		panic(fmt.Sprintf("hasher position %d out of range [0,%d)", n, len(h.data)))
	}
	if h.set[n] {
		panic(fmt.Sprintf("hasher position %d already written", n))
	}
	h.data[n] = value
	h.set[n] = true
}

// Len returns the number of positions.
func (h *Hasher) Len() int {
	return len(h.data)
}

// Sum returns the SHA-256 of all positions. Unwritten positions hash as 0xffff.
func (h *Hasher) Sum() [32]byte {
	h.mut.Lock()
	defer h.mut.Unlock()
	buf := make([]byte, 2*len(h.data))
	for i, v := range h.data {
		if !h.set[i] {
			v = 0xffff
		}
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	return sha256.Sum256(buf)
}
