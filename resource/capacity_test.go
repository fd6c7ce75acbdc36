package resource

import (
	"math"
	"testing"
)

func TestParseCapacity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int64
	}{
		{"80 TB", 80_000_000_000_000},
		{"80TB", 80_000_000_000_000},
		{"80 T", 80_000_000_000_000},
		{"1.5 GB", 1_500_000_000},
		{"100", 100},
		{"100 B", 100},
		{"2 KiB", 2048},
		{"80 TiB", 80 << 40},
		{"0", 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCapacity(tc.raw)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("parse %q: got %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseCapacityRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "fast", "80 XB", "-1 TB", "TB"} {
		if _, err := ParseCapacity(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestCapacityRoundTrip(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"80 TB", "1.5 GB", "250 MB", "3 PB"} {
		parsed, err := ParseCapacity(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		again, err := ParseCapacity(FormatCapacity(parsed))
		if err != nil {
			t.Fatalf("reparse formatted %q: %v", FormatCapacity(parsed), err)
		}
		// Formatting uses decimal units, so round-tripping stays within one
		// byte of rounding error.
		if math.Abs(float64(again-parsed)) > 1 {
			t.Fatalf("round trip of %q drifted: %d -> %d", raw, parsed, again)
		}
	}
}

func TestCoerceCapacity(t *testing.T) {
	t.Parallel()

	got, err := CoerceCapacity("80 TB")
	if err != nil {
		t.Fatalf("coerce string: %v", err)
	}
	if got != int64(80_000_000_000_000) {
		t.Fatalf("got %v", got)
	}

	got, err = CoerceCapacity(int64(1024))
	if err != nil {
		t.Fatalf("coerce int: %v", err)
	}
	if got != int64(1024) {
		t.Fatalf("numeric capacity must pass through, got %v", got)
	}

	if _, err := CoerceCapacity(true); err == nil {
		t.Fatalf("expected error for bool capacity")
	}
}
