package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		number      byte
		length      uint32
		erasedValue byte
	}{
		{"zero file, zero length, 0xFF erased", 0, 0, 0xFF},
		{"mid file, small length", 42, 17, 0xFF},
		{"max length", 7, MaxLength, 0xFF},
		{"inverted erased value", 1, 100, 0x00},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			header := Encode(test.number, test.length, test.erasedValue)
			decoded := Decode(header, test.erasedValue)

			want := Header{Number: test.number, Length: test.length}
			if diff := cmp.Diff(want, decoded); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErasedHeaderDecodesToEndOfStore(t *testing.T) {
	for _, erasedValue := range []byte{0xFF, 0x00, 0xAA} {
		header := [HeaderSize]byte{erasedValue, erasedValue, erasedValue, erasedValue}
		decoded := Decode(header, erasedValue)

		if decoded.Number != EndOfStore {
			t.Fatalf("erasedValue=%#x: expected number %#x, got %#x", erasedValue, EndOfStore, decoded.Number)
		}
	}
}

func TestEncodePanicsOnOversizeLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for length > MaxLength")
		}
	}()
	Encode(1, MaxLength+1, 0xFF)
}

func TestSlotSize(t *testing.T) {
	tests := []struct {
		wordSize int
		want     int
	}{
		{1, 4},
		{2, 4},
		{4, 4},
		{8, 8},
		{16, 16},
		{32, 32},
	}

	for _, test := range tests {
		if got := SlotSize(test.wordSize); got != test.want {
			t.Fatalf("SlotSize(%d) = %d, want %d", test.wordSize, got, test.want)
		}
	}
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		value, granularity, want int
	}{
		{1, 4, 4},
		{4, 4, 4},
		{5, 4, 8},
		{128, 128, 128},
		{129, 128, 256},
	}

	for _, test := range tests {
		if got := RoundUp(test.value, test.granularity); got != test.want {
			t.Fatalf("RoundUp(%d, %d) = %d, want %d", test.value, test.granularity, got, test.want)
		}
	}
}

func TestEntrySize(t *testing.T) {
	if got, want := EntrySize(1, 16), 16; got != want {
		t.Fatalf("EntrySize(1, 16) = %d, want %d", got, want)
	}
	if got, want := EntrySize(20, 4), 24; got != want {
		t.Fatalf("EntrySize(20, 4) = %d, want %d", got, want)
	}
}
