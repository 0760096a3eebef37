package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2024-06-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2024 || got.Month() != time.June || got.Day() != 10 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAlignRangeDay(t *testing.T) {
	from := time.Date(2024, 6, 10, 9, 30, 12, 0, time.UTC)
	to := time.Date(2024, 6, 11, 15, 15, 0, 0, time.UTC)
	af, at := AlignRange(from, to, "day")
	if af.Hour() != 0 || at.Hour() != 0 {
		t.Fatalf("expected day boundaries, got %v %v", af, at)
	}
}

func TestAlignRangeMinute(t *testing.T) {
	from := time.Date(2024, 6, 10, 9, 30, 12, 0, time.UTC)
	af, _ := AlignRange(from, from, "minute")
	if af.Second() != 0 {
		t.Fatalf("expected minute boundary, got %v", af)
	}
}
