// Package flashstore implements a log-structured key→blob store over a raw
// NOR/flash-like device: up to 254 small files, each identified by a single
// byte, durably appended to a linear erasable address space and reclaimed
// wholesale by whole-device compaction when space runs out.
//
// See SPEC_FULL.md for the full design. The short version: call New with a
// flash.Flash implementation, call Initialize once on a fresh device, then
// ReadFile/WriteFile by file number.
package flashstore

import (
	"fmt"

	"github.com/gopherflash/flashstore/flash"
	"github.com/gopherflash/flashstore/internal/appendwriter"
	"github.com/gopherflash/flashstore/internal/codec"
	"github.com/gopherflash/flashstore/internal/compact"
	"github.com/gopherflash/flashstore/internal/diag"
	"github.com/gopherflash/flashstore/internal/record"
	"github.com/gopherflash/flashstore/internal/scan"
)

// Store is the public facade: the orchestration of scan/append/compact
// against a single flash.Flash device. A Store holds no state of its own
// between calls other than the Flash and its (optional) compression
// settings — every read/write re-derives everything it needs by scanning.
type Store struct {
	flash      flash.Flash
	compressor codec.Compressor
	algorithm  codec.Algorithm
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithCompression selects a payload compression algorithm. The default,
// when no WithCompression option is given, is codec.NoCompression: payloads
// are stored byte-for-byte. A store written with one algorithm must be read
// back with the same algorithm (SPEC_FULL.md §4.6).
func WithCompression(algorithm codec.Algorithm) Option {
	return func(s *Store) {
		s.algorithm = algorithm
	}
}

// New constructs a Store over f. It panics if f's geometry is internally
// inconsistent or uses an unsupported word size — these are programming
// errors in how the Flash implementation was built, not runtime conditions
// (SPEC_FULL.md §7).
func New(f flash.Flash, options ...Option) (*Store, error) {
	if f.WordSize() == 3 {
		panic("flashstore: a word size of 3 is unsupported")
	}
	if f.Size()%f.PageSize() != 0 {
		panic("flashstore: device size must be a multiple of page size")
	}
	if f.PageSize()%record.SlotSize(f.WordSize()) != 0 {
		panic("flashstore: page size must be a multiple of the record slot size")
	}

	s := &Store{flash: f, algorithm: codec.NoCompression}
	for _, option := range options {
		option(s)
	}

	compressor, err := codec.New(s.algorithm)
	if err != nil {
		return nil, fmt.Errorf("flashstore: %w", err)
	}
	s.compressor = compressor

	return s, nil
}

// Initialize erases every page, producing a valid empty store.
func (s *Store) Initialize() error {
	pageSize := s.flash.PageSize()
	for page := 0; page < s.flash.Size(); page += pageSize {
		if err := s.flash.ErasePage(page); err != nil {
			return flash.Wrap(err)
		}
	}
	return nil
}

func checkFileNumber(n byte) {
	if n == record.EndOfStore {
		panic("flashstore: illegal file number 0xFF")
	}
}

// ReadFile returns the live payload for file number n. n must not be 0xFF.
// The stored bytes are read into the prefix of buffer, which must be at least
// as long as the stored record (ErrBufferTooSmall otherwise). Without
// compression the returned slice is that prefix; with compression it is a
// newly allocated decompressed copy, and buffer only held the compressed
// bytes.
func (s *Store) ReadFile(n byte, buffer []byte) ([]byte, error) {
	checkFileNumber(n)

	result, err := scan.New(s.flash).Find(n)
	if err != nil {
		return nil, err
	}
	if !result.Found {
		return nil, flash.ErrNotFound
	}
	if len(buffer) < result.Length {
		return nil, flash.ErrBufferTooSmall
	}

	stored := buffer[:result.Length]
	if err := s.flash.Read(result.Offset+record.HeaderSize, stored); err != nil {
		return nil, flash.Wrap(err)
	}

	if s.algorithm == codec.NoCompression {
		return stored, nil
	}

	decoded, err := s.compressor.Decompress(stored)
	if err != nil {
		return nil, fmt.Errorf("flashstore: %w", err)
	}
	return decoded, nil
}

// WriteFile durably appends a new version of file number n holding data. n
// must not be 0xFF and len(data) must not exceed record.MaxLength.
func (s *Store) WriteFile(n byte, data []byte) error {
	checkFileNumber(n)
	if len(data) > record.MaxLength {
		panic("flashstore: payload length exceeds 24 bits")
	}

	stored := data
	if s.algorithm != codec.NoCompression {
		compressed, err := s.compressor.Compress(data)
		if err != nil {
			return fmt.Errorf("flashstore: %w", err)
		}
		stored = compressed
	}

	scanner := scan.New(s.flash)

	endOfStore, err := scanner.End()
	if err != nil {
		return err
	}

	size := s.flash.Size()

	if endOfStore+record.HeaderSize+len(stored) > size {
		used, err := scanner.UsedSpaceExcept(&n)
		if err != nil {
			return err
		}
		if record.HeaderSize+len(stored) > size-used {
			return flash.ErrNoSpaceLeft
		}

		newEnd, err := compact.Compact(s.flash, &n)
		if err != nil {
			return err
		}
		endOfStore = newEnd
	}

	return appendwriter.Append(s.flash, endOfStore, n, stored)
}

// UsedSpace returns the sum of slot sizes of every live record.
func (s *Store) UsedSpace() (int, error) {
	return scan.New(s.flash).UsedSpaceExcept(nil)
}

// FileIndex returns, for every file number in [0, 254], the offset of its
// latest record, or -1 if none exists.
func (s *Store) FileIndex() ([255]int, error) {
	return scan.New(s.flash).FileIndex()
}

// Report renders a human-readable layout of the device: every live file's
// offset/length/slot, plus a humanized used/total-capacity summary
// (SPEC_FULL.md §4.7, C8). It is read-only: calling it never changes the
// result of a subsequent ReadFile/WriteFile/UsedSpace.
func (s *Store) Report() (string, error) {
	index, err := s.FileIndex()
	if err != nil {
		return "", err
	}
	used, err := s.UsedSpace()
	if err != nil {
		return "", err
	}

	slot := record.SlotSize(s.flash.WordSize())
	snapshot := diag.Snapshot{
		DeviceSize: s.flash.Size(),
		PageSize:   s.flash.PageSize(),
		UsedSpace:  used,
	}

	for number, offset := range index {
		if offset < 0 {
			continue
		}

		var header [record.HeaderSize]byte
		if err := s.flash.Read(offset, header[:]); err != nil {
			return "", flash.Wrap(err)
		}
		decoded := record.Decode(header, s.flash.ErasedValue())

		snapshot.Entries = append(snapshot.Entries, diag.Entry{
			Number: byte(number),
			Offset: offset,
			Length: int(decoded.Length),
			Slot:   record.RoundUp(record.HeaderSize+int(decoded.Length), slot),
		})
	}

	return diag.Render(snapshot), nil
}

// Diagnose runs a best-effort deep scan that keeps looking for problems past
// the first corrupt record it finds, unlike the authoritative scan path used
// by ReadFile/WriteFile/UsedSpace (SPEC_FULL.md §4.7, C8). A non-nil result
// means the device needs Initialize(); Diagnose only detects, it never
// repairs.
func (s *Store) Diagnose() error {
	return diag.DeepScan(s.flash)
}
