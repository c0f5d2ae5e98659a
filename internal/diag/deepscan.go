package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/gopherflash/flashstore/flash"
	"github.com/gopherflash/flashstore/internal/record"
)

// DeepScan walks f the same way the authoritative Scanner does, except that
// on encountering a header that would overrun the device it does not stop:
// it skips forward to the next page boundary and keeps looking, so an
// operator can see every place a device has gone wrong in one pass rather
// than just the first. This is purely diagnostic — the authoritative
// Find/ReadFile path still stops at the first corruption, per SPEC_FULL.md
// §7, and a device that fails DeepScan still needs Initialize() before it is
// usable again.
func DeepScan(f flash.Flash) error {
	pageSize := f.PageSize()
	size := f.Size()
	slot := record.SlotSize(f.WordSize())

	var problems *multierror.Error

	position := 0
	for position < size {
		var raw [record.HeaderSize]byte
		if err := f.Read(position, raw[:]); err != nil {
			problems = multierror.Append(problems, fmt.Errorf("offset %d: %w", position, flash.Wrap(err)))
			position = nextPageBoundary(position, pageSize)
			continue
		}

		header := record.Decode(raw, f.ErasedValue())
		if header.Number == record.EndOfStore {
			break
		}

		if position+record.HeaderSize+int(header.Length) > size {
			problems = multierror.Append(problems, fmt.Errorf(
				"offset %d: record for file %d declares length %d, which overruns the device: %w",
				position, header.Number, header.Length, flash.ErrCorruptData))
			position = nextPageBoundary(position, pageSize)
			continue
		}

		position += record.RoundUp(record.HeaderSize+int(header.Length), slot)
	}

	return problems.ErrorOrNil()
}

func nextPageBoundary(position, pageSize int) int {
	return (position/pageSize + 1) * pageSize
}
