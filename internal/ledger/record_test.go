package ledger

import (
	"testing"
	"time"
)

func TestDayTruncates(t *testing.T) {
	in := time.Date(2026, 3, 2, 23, 59, 58, 123, time.UTC)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := Day(in); !got.Equal(want) {
		t.Errorf("Day(%v) = %v, want %v", in, got, want)
	}
}

func TestDayNormalizesZone(t *testing.T) {
	// 01:30 on March 3 in UTC+5 is still March 2 in UTC; the ledger keys on
	// the UTC calendar day.
	zone := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2026, 3, 3, 1, 30, 0, 0, zone)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := Day(in); !got.Equal(want) {
		t.Errorf("Day(%v) = %v, want %v", in, got, want)
	}
}

func TestDayIdempotent(t *testing.T) {
	d := Day(time.Now())
	if got := Day(d); !got.Equal(d) {
		t.Errorf("Day(Day(t)) = %v, want %v", got, d)
	}
}
