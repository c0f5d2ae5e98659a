package flashsim

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/natefinch/atomic"
)

// File is a single fixed-size host file standing in for a whole flash
// device. Unlike the teacher's rotating segment manager this never grows:
// the file is sized once, at construction, to Size() bytes, because the
// device this store addresses is a fixed linear byte array, not an
// unbounded append log.
type File struct {
	mu          sync.Mutex
	f           *os.File
	path        string
	size        int
	pageSize    int
	wordSize    int
	erasedValue byte
}

// FileOption configures a File.
type FileOption func(*File)

// WithWordSize overrides the default word size of 4.
func WithWordSize(wordSize int) FileOption {
	return func(f *File) { f.wordSize = wordSize }
}

// WithErasedValue overrides the default erased value of 0xFF.
func WithErasedValue(erasedValue byte) FileOption {
	return func(f *File) { f.erasedValue = erasedValue }
}

// NewFile opens (creating if necessary) a file at path sized to size bytes
// and returns it as a Flash device. An existing file shorter than size is
// extended and padded with erasedValue; a file already the right size is
// used as-is, preserving whatever it contained (letting a test or demo
// resume a prior session).
func NewFile(path string, size, pageSize int, options ...FileOption) (*File, error) {
	if size%pageSize != 0 {
		return nil, fmt.Errorf("flashsim: size %d not a multiple of pageSize %d", size, pageSize)
	}

	f := &File{
		path:        path,
		size:        size,
		pageSize:    pageSize,
		wordSize:    4,
		erasedValue: 0xFF,
	}
	for _, option := range options {
		option(f)
	}

	handle, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("flashsim: failed to open backing file: %w", err)
	}
	f.f = handle

	stat, err := handle.Stat()
	if err != nil {
		return nil, fmt.Errorf("flashsim: failed to stat backing file: %w", err)
	}

	if stat.Size() < int64(size) {
		if err := f.growAndErase(stat.Size()); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func (f *File) growAndErase(from int64) error {
	padding := make([]byte, int64(f.size)-from)
	for i := range padding {
		padding[i] = f.erasedValue
	}

	if _, err := f.f.WriteAt(padding, from); err != nil {
		return fmt.Errorf("flashsim: failed to extend backing file: %w", err)
	}
	return f.f.Sync()
}

func (f *File) Size() int         { return f.size }
func (f *File) PageSize() int     { return f.pageSize }
func (f *File) WordSize() int     { return f.wordSize }
func (f *File) ErasedValue() byte { return f.erasedValue }

func (f *File) ErasePage(address int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if address%f.pageSize != 0 {
		return fmt.Errorf("flashsim: erase address %d not page-aligned", address)
	}

	page := make([]byte, f.pageSize)
	for i := range page {
		page[i] = f.erasedValue
	}

	if _, err := f.f.WriteAt(page, int64(address)); err != nil {
		return fmt.Errorf("flashsim: failed to erase page at %d: %w", address, err)
	}
	return nil
}

func (f *File) Write(address int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if address%f.wordSize != 0 {
		return fmt.Errorf("flashsim: write address %d not word-aligned (word size %d)", address, f.wordSize)
	}

	if _, err := f.f.WriteAt(data, int64(address)); err != nil {
		return fmt.Errorf("flashsim: failed to write at %d: %w", address, err)
	}
	return nil
}

func (f *File) Read(address int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.f.ReadAt(data, int64(address)); err != nil && err != io.EOF {
		return fmt.Errorf("flashsim: failed to read at %d: %w", address, err)
	}
	return nil
}

// Snapshot atomically persists the current device image to a sibling
// ".snapshot" file, so a later run can restart from a known-good image
// rather than from a backing file that was mid-write when the process died.
// It is safe to call at any point; a caller that wants crash-safe restarts
// would call this after every successful WriteFile.
func (f *File) Snapshot() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	image := make([]byte, f.size)
	if _, err := f.f.ReadAt(image, 0); err != nil && err != io.EOF {
		return fmt.Errorf("flashsim: failed to read image for snapshot: %w", err)
	}

	return atomic.WriteFile(f.path+".snapshot", &byteReader{b: image})
}

// Close closes the backing file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.Close()
}

// byteReader adapts a byte slice to io.Reader for atomic.WriteFile, which
// wants an io.Reader rather than a []byte.
type byteReader struct {
	b   []byte
	off int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.off >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.off:])
	r.off += n
	return n, nil
}
