// Package flash defines the capability set a raw NOR/flash-like device must
// expose to github.com/gopherflash/flashstore, and the error kinds the store
// surfaces back to callers.
//
// A real implementation of Flash talks to SPI or parallel NOR hardware and
// lives outside this repository; see internal/flashsim for the in-memory and
// file-backed stand-ins used by this repository's own tests.
package flash

import "fmt"

// Flash is the capability set consumed by the store. Geometry is exposed as
// methods rather than constants because Go has no associated-const
// equivalent reachable through a plain interface.
type Flash interface {
	// Size is the total addressable byte count. It must be a multiple of
	// PageSize.
	Size() int

	// PageSize is the erase granularity.
	PageSize() int

	// WordSize is the write granularity. A value of 3 is unsupported.
	WordSize() int

	// ErasedValue is the byte every position holds right after an erase.
	// Typically 0xFF.
	ErasedValue() byte

	// ErasePage erases the page starting at address, which must be a
	// multiple of PageSize. On return every byte in
	// [address, address+PageSize) equals ErasedValue.
	ErasePage(address int) error

	// Write writes data to address, which must be a multiple of WordSize.
	// If len(data) is not a multiple of WordSize, the driver pads with
	// undefined bytes.
	Write(address int, data []byte) error

	// Read fills data with the device contents starting at address.
	// address is guaranteed by the store to be 4-byte aligned.
	Read(address int, data []byte) error
}

// Sentinel errors returned by store operations. Wrap with %w when adding
// context so callers can still errors.Is against these.
var (
	ErrNotFound       = fmt.Errorf("flashstore: file not found")
	ErrBufferTooSmall = fmt.Errorf("flashstore: read buffer too small")
	ErrCorruptData    = fmt.Errorf("flashstore: corrupt data")
	ErrNoSpaceLeft    = fmt.Errorf("flashstore: no space left")
)

// AccessError wraps an error returned by the underlying Flash implementation.
// The core never retries; it propagates the wrapped error unchanged.
type AccessError struct {
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("flashstore: flash access error: %v", e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// Wrap lifts an error returned by a Flash method into an *AccessError, or
// returns nil if err is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &AccessError{Err: err}
}
