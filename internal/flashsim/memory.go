// Package flashsim provides reference Flash implementations used by this
// repository's own tests and examples. The real implementation that talks to
// SPI/parallel NOR hardware is an external collaborator out of scope for this
// store (see SPEC_FULL.md §1); these stand-ins only need to honor the same
// contract well enough to exercise the core against.
package flashsim

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Memory is an in-memory Flash backed by a plain byte slice. It additionally
// tracks, per page, whether the page has been written to since its last
// erase, using a bitset sized to the page count rather than a []bool slice —
// the page count is fixed for the lifetime of the device, so a dense bitset
// is both the exact and the idiomatic fit.
type Memory struct {
	data        []byte
	pageSize    int
	wordSize    int
	erasedValue byte

	dirtySinceErase *bitset.BitSet
	eraseCount      []int
}

// NewMemory returns an all-erased in-memory flash of the given geometry.
func NewMemory(size, pageSize, wordSize int, erasedValue byte) *Memory {
	if size%pageSize != 0 {
		panic("flashsim: size must be a multiple of pageSize")
	}

	data := make([]byte, size)
	for i := range data {
		data[i] = erasedValue
	}

	return &Memory{
		data:            data,
		pageSize:        pageSize,
		wordSize:        wordSize,
		erasedValue:     erasedValue,
		dirtySinceErase: bitset.New(uint(size / pageSize)),
		eraseCount:      make([]int, size/pageSize),
	}
}

func (m *Memory) Size() int         { return len(m.data) }
func (m *Memory) PageSize() int     { return m.pageSize }
func (m *Memory) WordSize() int     { return m.wordSize }
func (m *Memory) ErasedValue() byte { return m.erasedValue }

func (m *Memory) ErasePage(address int) error {
	if address%m.pageSize != 0 {
		return fmt.Errorf("flashsim: erase address %d not page-aligned", address)
	}

	for i := address; i < address+m.pageSize; i++ {
		m.data[i] = m.erasedValue
	}

	page := uint(address / m.pageSize)
	m.dirtySinceErase.Clear(page)
	m.eraseCount[page]++
	return nil
}

func (m *Memory) Write(address int, data []byte) error {
	if address%m.wordSize != 0 {
		return fmt.Errorf("flashsim: write address %d not word-aligned (word size %d)", address, m.wordSize)
	}
	if address+len(data) > len(m.data) {
		return fmt.Errorf("flashsim: write at %d of length %d overruns device", address, len(data))
	}

	copy(m.data[address:], data)
	m.dirtySinceErase.Set(uint(address / m.pageSize))
	return nil
}

func (m *Memory) Read(address int, data []byte) error {
	if address+len(data) > len(m.data) {
		return fmt.Errorf("flashsim: read at %d of length %d overruns device", address, len(data))
	}
	copy(data, m.data[address:])
	return nil
}

// EraseCounts returns a copy of the per-page erase counter, for tests that
// assert wear-uniformity (every page erased exactly once per compaction).
func (m *Memory) EraseCounts() []int {
	counts := make([]int, len(m.eraseCount))
	copy(counts, m.eraseCount)
	return counts
}

// PokeHeader directly corrupts the 4-byte header at offset, bypassing the
// word-alignment contract. Test-only: simulates a device that already
// contains a bad header, e.g. from a torn write in a previous session.
func (m *Memory) PokeHeader(offset int, number byte, length uint32) {
	m.data[offset] = (^number) ^ m.erasedValue
	m.data[offset+1] = byte(length)
	m.data[offset+2] = byte(length >> 8)
	m.data[offset+3] = byte(length >> 16)
}
