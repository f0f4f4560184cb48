package refcode

import (
	"testing"
	"time"
)

func TestOffsetRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		offset := Offset()
		if offset < 1 || offset > 100 {
			t.Fatalf("偏移超出 [1,100]: %d", offset)
		}
	}
}

func TestCandidateUsesLargestMax(t *testing.T) {
	code := Candidate(10_050_000, 10_042_000)
	if code < 10_050_001 || code > 10_050_100 {
		t.Fatalf("候选值应落在 [10050001,10050100]，实际 %d", code)
	}
}

func TestCandidateFloorsEmptyTables(t *testing.T) {
	code := Candidate(0, 0)
	if code < 10_000_001 || code > 10_000_100 {
		t.Fatalf("空表候选值应落在 [10000001,10000100]，实际 %d", code)
	}
}

func TestFallbackForm(t *testing.T) {
	now := time.Now()
	code := Fallback(now)

	want := int64(Floor) + now.UnixMilli()%1_000_000
	if code != want {
		t.Fatalf("兜底值不符: got %d, want %d", code, want)
	}
	if code < Floor || code >= Floor+1_000_000 {
		t.Fatalf("兜底值超出范围: %d", code)
	}
}
