// Package appendwriter implements the fast-path write: splicing a new
// record's header and payload onto the flash device at a known end-of-store
// offset, respecting the device's word-alignment constraint.
package appendwriter

import (
	"github.com/gopherflash/flashstore/flash"
	"github.com/gopherflash/flashstore/internal/record"
)

// Append writes a new record for number/data at endOfStore. The caller is
// responsible for having already verified the record fits
// (endOfStore + HeaderSize + len(data) <= flash.Size()).
func Append(f flash.Flash, endOfStore int, number byte, data []byte) error {
	header := record.Encode(number, uint32(len(data)), f.ErasedValue())
	wordSize := f.WordSize()

	if wordSize <= record.HeaderSize {
		if err := f.Write(endOfStore, header[:]); err != nil {
			return flash.Wrap(err)
		}
		if len(data) == 0 {
			return nil
		}
		if err := f.Write(endOfStore+record.HeaderSize, data); err != nil {
			return flash.Wrap(err)
		}
		return nil
	}

	// WordSize > HeaderSize: the header alone is not a legal write, so it
	// must be spliced into the first word-sized write together with as
	// much of the payload as fits.
	firstWord := make([]byte, wordSize)
	copy(firstWord, header[:])

	if len(data)+record.HeaderSize <= wordSize {
		copy(firstWord[record.HeaderSize:], data)
		if err := f.Write(endOfStore, firstWord); err != nil {
			return flash.Wrap(err)
		}
		return nil
	}

	copy(firstWord[record.HeaderSize:], data[:wordSize-record.HeaderSize])
	if err := f.Write(endOfStore, firstWord); err != nil {
		return flash.Wrap(err)
	}
	if err := f.Write(endOfStore+wordSize, data[wordSize-record.HeaderSize:]); err != nil {
		return flash.Wrap(err)
	}
	return nil
}
