// Package scan implements the single forward-scan walk over a flash device
// that every read/measure operation in this store derives from: find the
// latest record for a file number, measure used space, or build a full
// file-number-to-offset index.
package scan

import (
	"github.com/gopherflash/flashstore/flash"
	"github.com/gopherflash/flashstore/internal/record"
)

// Scanner walks a Flash device from offset 0 and answers questions about the
// records laid out there. It holds no state across calls other than the
// Flash it wraps.
type Scanner struct {
	Flash flash.Flash
}

// New returns a Scanner over f.
func New(f flash.Flash) Scanner {
	return Scanner{Flash: f}
}

// FindResult is the outcome of Find: either the offset and length of the
// live record, or the end-of-store offset if no record with that number was
// seen.
type FindResult struct {
	Found  bool
	Offset int
	Length int

	// EndOffset is always populated, Found or not: it is the offset one
	// past the last parsed record, i.e. where the next Append would land.
	EndOffset int
}

func (s Scanner) readHeader(position int) (record.Header, error) {
	var raw [record.HeaderSize]byte
	if err := s.Flash.Read(position, raw[:]); err != nil {
		return record.Header{}, flash.Wrap(err)
	}
	return record.Decode(raw, s.Flash.ErasedValue()), nil
}

// Find returns the live record for fileNumber, or a not-found result
// carrying the end-of-store offset. Passing record.EndOfStore never matches a
// record and yields only the end-of-store offset; End wraps exactly that.
func (s Scanner) Find(fileNumber byte) (FindResult, error) {
	slot := record.SlotSize(s.Flash.WordSize())
	size := s.Flash.Size()

	position := 0
	result := FindResult{Found: false}

	for position < size {
		header, err := s.readHeader(position)
		if err != nil {
			return FindResult{}, err
		}

		if header.Number == record.EndOfStore {
			break
		}

		if position+record.HeaderSize+int(header.Length) > size {
			return FindResult{}, flash.ErrCorruptData
		}

		if header.Number == fileNumber {
			result = FindResult{Found: true, Offset: position, Length: int(header.Length)}
		}

		position += record.RoundUp(record.HeaderSize+int(header.Length), slot)
	}

	result.EndOffset = position
	return result, nil
}

// End returns the end-of-store offset: the first position whose header
// decodes to record.EndOfStore, or flash.ErrCorruptData if scanning hits a
// record that would overrun the device first.
func (s Scanner) End() (int, error) {
	result, err := s.Find(record.EndOfStore)
	if err != nil {
		return 0, err
	}
	return result.EndOffset, nil
}

// absentOffset marks a file number that was never seen during a FileIndex
// scan. Go has no usize::MAX equivalent for int, so -1 is used: every real
// offset is non-negative.
const absentOffset = -1

// FileIndex returns, for every file number in [0, 254], the offset of its
// latest record, or absentOffset if none exists. This is the 255-slot stack
// array the compactor needs to decide, for each record it walks past a
// second time, whether that record is still the live one.
func (s Scanner) FileIndex() ([255]int, error) {
	var positions [255]int
	for i := range positions {
		positions[i] = absentOffset
	}

	slot := record.SlotSize(s.Flash.WordSize())
	size := s.Flash.Size()

	position := 0
	for position < size {
		header, err := s.readHeader(position)
		if err != nil {
			return [255]int{}, err
		}

		if header.Number == record.EndOfStore {
			break
		}

		if position+record.HeaderSize+int(header.Length) > size {
			return [255]int{}, flash.ErrCorruptData
		}

		positions[header.Number] = position
		position += record.RoundUp(record.HeaderSize+int(header.Length), slot)
	}

	return positions, nil
}

// UsedSpaceExcept sums the slot size of the latest record of every file
// number, optionally treating except as if it did not exist. A nil except
// sums every live file.
func (s Scanner) UsedSpaceExcept(except *byte) (int, error) {
	var sizes [255]int

	slot := record.SlotSize(s.Flash.WordSize())
	size := s.Flash.Size()

	position := 0
	for position < size {
		header, err := s.readHeader(position)
		if err != nil {
			return 0, err
		}

		if header.Number == record.EndOfStore {
			break
		}

		entrySize := record.RoundUp(record.HeaderSize+int(header.Length), slot)
		if position+record.HeaderSize+int(header.Length) > size {
			return 0, flash.ErrCorruptData
		}

		sizes[header.Number] = entrySize
		position += entrySize
	}

	if except != nil {
		sizes[*except] = 0
	}

	total := 0
	for _, n := range sizes {
		total += n
	}
	return total, nil
}
