package scoring

import (
	"testing"
	"time"
)

func TestDayBucketUsesLocalCalendarDate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// UTC 晚上 23 点在东京已是次日
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	if got := DayBucket(at, tokyo); got != "2026-03-15" {
		t.Fatalf("expected 2026-03-15, got %s", got)
	}
	if got := DayBucket(at, nil); got != "2026-03-14" {
		t.Fatalf("expected UTC fallback 2026-03-14, got %s", got)
	}
}

func TestDayBucketDeterministic(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	first := DayBucket(at, time.UTC)
	second := DayBucket(at, time.UTC)
	if first != second {
		t.Fatalf("same input produced different keys: %s vs %s", first, second)
	}
}

func TestWeekBucketAlwaysMonday(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 连续 14 天逐一验证周键都落在周一
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, ny)
	for i := 0; i < 14; i++ {
		key := WeekBucket(start.AddDate(0, 0, i), ny)
		parsed, err := key.Time()
		if err != nil {
			t.Fatalf("parse week key: %v", err)
		}
		if parsed.Weekday() != time.Monday {
			t.Fatalf("week key %s is %s, want Monday", key, parsed.Weekday())
		}
	}
}

func TestWeekBucketSameWeekSameKey(t *testing.T) {
	// 同一 ISO 周内的周三与周五必须映射到同一个周一键
	wed := time.Date(2026, 4, 8, 9, 0, 0, 0, time.UTC)
	fri := time.Date(2026, 4, 10, 21, 0, 0, 0, time.UTC)

	if WeekBucket(wed, nil) != WeekBucket(fri, nil) {
		t.Fatalf("wednesday and friday of the same week map to different buckets")
	}
	if got := WeekBucket(wed, nil); got != "2026-04-06" {
		t.Fatalf("expected monday 2026-04-06, got %s", got)
	}
}

func TestWeekBucketSundayBelongsToPrecedingMonday(t *testing.T) {
	sun := time.Date(2026, 4, 12, 8, 0, 0, 0, time.UTC)
	if got := WeekBucket(sun, nil); got != "2026-04-06" {
		t.Fatalf("sunday should close the week of 2026-04-06, got %s", got)
	}
}

func TestBucketForFrequency(t *testing.T) {
	at := time.Date(2026, 4, 8, 9, 0, 0, 0, time.UTC)

	if got := BucketFor(FrequencyDaily, at, nil); got != "2026-04-08" {
		t.Fatalf("daily bucket: got %s", got)
	}
	if got := BucketFor(FrequencyNone, at, nil); got != "2026-04-08" {
		t.Fatalf("none bucket: got %s", got)
	}
	if got := BucketFor(FrequencyWeekly, at, nil); got != "2026-04-06" {
		t.Fatalf("weekly bucket: got %s", got)
	}
}

func TestDaysAndWeeksBetween(t *testing.T) {
	days, err := DaysBetween("2026-02-27", "2026-03-02")
	if err != nil {
		t.Fatalf("DaysBetween returned error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %d", days)
	}

	weeks, err := WeeksBetween("2026-04-06", "2026-04-20")
	if err != nil {
		t.Fatalf("WeeksBetween returned error: %v", err)
	}
	if weeks != 2 {
		t.Fatalf("expected 2 weeks, got %d", weeks)
	}
}

func TestAddDays(t *testing.T) {
	if got := DateKey("2026-03-01").AddDays(-1); got != "2026-02-28" {
		t.Fatalf("expected 2026-02-28, got %s", got)
	}
}

func TestResolveLocation(t *testing.T) {
	loc, err := ResolveLocation("")
	if err != nil || loc != time.UTC {
		t.Fatalf("empty name should resolve to UTC, got %v / %v", loc, err)
	}

	if _, err := ResolveLocation("Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
