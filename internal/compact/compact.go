// Package compact implements the whole-device compaction rewrite: walk the
// device page by page with a single page-sized RAM buffer, keeping only the
// latest record for each file number (and optionally dropping one chosen
// number outright). Each page is copied into the RAM buffer and erased, and
// the kept records are then written from that buffer to their lowest
// possible offset.
package compact

import (
	"github.com/gopherflash/flashstore/flash"
	"github.com/gopherflash/flashstore/internal/record"
	"github.com/gopherflash/flashstore/internal/scan"
)

// Compact rewrites f in place, dropping stale records and, if except is
// non-nil, the live record for that file number too. It returns the new
// end-of-store offset.
func Compact(f flash.Flash, except *byte) (int, error) {
	fileIndex, err := scan.New(f).FileIndex()
	if err != nil {
		return 0, err
	}

	pageSize := f.PageSize()
	size := f.Size()
	slot := record.SlotSize(f.WordSize())

	buffer := make([]byte, pageSize)

	readPointer := 0
	writePointer := 0
	remainingBytesToCopy := 0

	for page := 0; page < size; page += pageSize {
		if err := f.Read(page, buffer); err != nil {
			return 0, flash.Wrap(err)
		}
		if err := f.ErasePage(page); err != nil {
			return 0, flash.Wrap(err)
		}

		if remainingBytesToCopy > 0 {
			copyFromThisPage := remainingBytesToCopy
			if copyFromThisPage > pageSize {
				copyFromThisPage = pageSize
			}
			if err := f.Write(writePointer, buffer[:copyFromThisPage]); err != nil {
				return 0, flash.Wrap(err)
			}
			writePointer += copyFromThisPage
			remainingBytesToCopy -= copyFromThisPage
		}

		for readPointer < page+pageSize {
			readPointerInPage := readPointer - page
			remainingPage := buffer[readPointerInPage:]

			var rawHeader [record.HeaderSize]byte
			copy(rawHeader[:], remainingPage[:record.HeaderSize])
			header := record.Decode(rawHeader, f.ErasedValue())

			if header.Number == record.EndOfStore {
				readPointer = size
				break
			}

			entrySize := record.RoundUp(record.HeaderSize+int(header.Length), slot)
			entrySizeOnThisPage := entrySize
			if entrySizeOnThisPage > len(remainingPage) {
				entrySizeOnThisPage = len(remainingPage)
			}
			entrySizeOnNextPage := entrySize - entrySizeOnThisPage

			discard := fileIndex[header.Number] != readPointer
			if except != nil && header.Number == *except {
				discard = true
			}

			if !discard {
				if err := f.Write(writePointer, remainingPage[:entrySizeOnThisPage]); err != nil {
					return 0, flash.Wrap(err)
				}
				writePointer += entrySizeOnThisPage
				remainingBytesToCopy = entrySizeOnNextPage
			}

			readPointer += entrySize
		}
	}

	return writePointer, nil
}
