package core

import (
	"testing"
	"time"
)

func TestTimeBucketTruncate(t *testing.T) {
	// Thursday, March 14 2024, 15:30 UTC
	at := time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		bucket   TimeBucket
		expected time.Time
	}{
		{BucketDay, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{BucketWeek, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)}, // Monday
		{BucketMonth, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, test := range tests {
		got := test.bucket.Truncate(at)
		if !got.Equal(test.expected) {
			t.Errorf("%s.Truncate = %v, want %v", test.bucket, got, test.expected)
		}
	}
}

func TestTimeBucketTruncateMondayBoundary(t *testing.T) {
	// A Monday truncates to itself; a Sunday belongs to the prior Monday.
	monday := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	if got := BucketWeek.Truncate(monday); !got.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Monday truncated to %v", got)
	}

	sunday := time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC)
	if got := BucketWeek.Truncate(sunday); !got.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Sunday truncated to %v", got)
	}
}

func TestParseTimeBucket(t *testing.T) {
	if got := ParseTimeBucket("week"); got != BucketWeek {
		t.Errorf("Expected week, got %s", got)
	}
	if got := ParseTimeBucket("bogus"); got != BucketDay {
		t.Errorf("Expected day fallback, got %s", got)
	}
}
