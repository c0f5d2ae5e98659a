// Package diag provides read-only reporting and best-effort deep-scan
// diagnostics (SPEC_FULL.md §4.7, C8). Render works from a Snapshot built from
// the Store facade's exported accessors; DeepScan reads the Flash device
// directly, without writing to it. Nothing in here is consulted by the
// core scan/append/compact path; it exists purely for operator and test
// visibility into what a device currently looks like.
package diag

import (
	"fmt"
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Entry describes one live file as seen by a FileIndex/UsedSpace pair.
type Entry struct {
	Number byte
	Offset int
	Length int
	Slot   int
}

// Snapshot is the read-only input Render works from. The Store facade builds
// one from its own exported FileIndex/UsedSpace/Size accessors; Render never
// touches a Flash device directly.
type Snapshot struct {
	DeviceSize int
	PageSize   int
	UsedSpace  int
	Entries    []Entry
}

// Render renders a human-readable layout table plus a humanized
// used/total-capacity summary line.
func Render(s Snapshot) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"file", "offset", "length", "slot"})

	for _, e := range s.Entries {
		t.AppendRow(table.Row{fileNumberLabel(e.Number), e.Offset, e.Length, e.Slot})
	}

	occupied := occupiedPages(s)

	summary := fmt.Sprintf(
		"\nused %s of %s (%d live file(s), %d/%d page(s) occupied)\n",
		humanize.Bytes(uint64(s.UsedSpace)),
		humanize.Bytes(uint64(s.DeviceSize)),
		len(s.Entries),
		occupied.Count(),
		pageCount(s),
	)

	return t.Render() + summary
}

// occupiedPages returns a bitset marking which pages hold at least one byte
// of a live record, sized to the device's page count. A dense bitset is the
// exact structure here: the page count is small, fixed, and every bit is
// meaningful, unlike a probabilistic filter.
func occupiedPages(s Snapshot) *bitset.BitSet {
	pages := bitset.New(uint(pageCount(s)))

	for _, e := range s.Entries {
		start := e.Offset / s.PageSize
		end := (e.Offset + e.Slot - 1) / s.PageSize
		for p := start; p <= end; p++ {
			pages.Set(uint(p))
		}
	}

	return pages
}

func pageCount(s Snapshot) int {
	if s.PageSize == 0 {
		return 0
	}
	return s.DeviceSize / s.PageSize
}

// fileNumberLabel renders a file number the way operators expect to see it:
// decimal, with its hex form alongside for quick cross-referencing against a
// hex-dumped device image.
func fileNumberLabel(number byte) string {
	return strconv.Itoa(int(number)) + " (0x" + fmt.Sprintf("%02X", number) + ")"
}
