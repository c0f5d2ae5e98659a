package compact_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gopherflash/flashstore/internal/appendwriter"
	"github.com/gopherflash/flashstore/internal/compact"
	"github.com/gopherflash/flashstore/internal/flashsim"
	"github.com/gopherflash/flashstore/internal/scan"
)

func TestCompactDropsStaleRecordsAndKeepsLatest(t *testing.T) {
	f := flashsim.NewMemory(1024, 128, 4, 0xFF)

	mustAppend := func(number byte, data []byte) {
		t.Helper()
		end, err := scan.New(f).End()
		if err != nil {
			t.Fatalf("end: %v", err)
		}
		if err := appendwriter.Append(f, end, number, data); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	mustAppend(1, []byte{1})
	mustAppend(2, []byte{2, 2})
	mustAppend(1, []byte{1, 1, 1}) // stale version of file 1 above

	newEnd, err := compact.Compact(f, nil)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}

	s := scan.New(f)

	result1, err := s.Find(1)
	if err != nil || !result1.Found {
		t.Fatalf("expected file 1 found, err=%v result=%+v", err, result1)
	}
	payload := make([]byte, result1.Length)
	if err := f.Read(result1.Offset+4, payload); err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 1, 1}, payload); diff != "" {
		t.Fatalf("file 1 payload mismatch (-want +got):\n%s", diff)
	}

	result2, err := s.Find(2)
	if err != nil || !result2.Found {
		t.Fatalf("expected file 2 found, err=%v result=%+v", err, result2)
	}

	end, err := s.End()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if end != newEnd {
		t.Fatalf("compact returned end %d, scanner says %d", newEnd, end)
	}
}

func TestCompactExceptDropsTargetFile(t *testing.T) {
	f := flashsim.NewMemory(1024, 128, 4, 0xFF)

	end, _ := scan.New(f).End()
	if err := appendwriter.Append(f, end, 1, []byte{9}); err != nil {
		t.Fatalf("append: %v", err)
	}
	end, _ = scan.New(f).End()
	if err := appendwriter.Append(f, end, 2, []byte{8}); err != nil {
		t.Fatalf("append: %v", err)
	}

	except := byte(1)
	if _, err := compact.Compact(f, &except); err != nil {
		t.Fatalf("compact: %v", err)
	}

	result, err := scan.New(f).Find(1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if result.Found {
		t.Fatal("expected file 1 to be dropped by except")
	}
}

func TestCompactErasesEveryPageExactlyOnce(t *testing.T) {
	f := flashsim.NewMemory(1024, 128, 4, 0xFF)

	for i := byte(0); i < 5; i++ {
		end, err := scan.New(f).End()
		if err != nil {
			t.Fatalf("end: %v", err)
		}
		if err := appendwriter.Append(f, end, i, make([]byte, 60)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	before := f.EraseCounts()
	if _, err := compact.Compact(f, nil); err != nil {
		t.Fatalf("compact: %v", err)
	}
	after := f.EraseCounts()

	for page := range after {
		if after[page] != before[page]+1 {
			t.Fatalf("page %d: expected exactly one additional erase, before=%d after=%d", page, before[page], after[page])
		}
	}
}

func TestCompactHandlesRecordStraddlingPageBoundary(t *testing.T) {
	f := flashsim.NewMemory(1024, 128, 4, 0xFF)

	// Fill most of page 0 so the next record straddles into page 1.
	end, _ := scan.New(f).End()
	if err := appendwriter.Append(f, end, 1, make([]byte, 100)); err != nil {
		t.Fatalf("append: %v", err)
	}
	end, _ = scan.New(f).End()
	straddling := make([]byte, 60)
	for i := range straddling {
		straddling[i] = byte(i + 1)
	}
	if err := appendwriter.Append(f, end, 2, straddling); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := compact.Compact(f, nil); err != nil {
		t.Fatalf("compact: %v", err)
	}

	result, err := scan.New(f).Find(2)
	if err != nil || !result.Found {
		t.Fatalf("expected file 2 found after compaction, err=%v result=%+v", err, result)
	}

	payload := make([]byte, result.Length)
	if err := f.Read(result.Offset+4, payload); err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(straddling, payload); diff != "" {
		t.Fatalf("straddling payload mismatch (-want +got):\n%s", diff)
	}
}
