package main

import (
	"testing"
	"time"
)

func TestDaysBetween(t *testing.T) {
	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	if got := daysBetween(from, from.Add(72*time.Hour)); got != 3 {
		t.Fatalf("daysBetween(3d)=%d, want 3", got)
	}
	if got := daysBetween(from, from.Add(12*time.Hour)); got != 0 {
		t.Fatalf("daysBetween(12h)=%d, want 0", got)
	}
	if got := daysBetween(from, from.Add(-time.Hour)); got != 0 {
		t.Fatalf("daysBetween(negative)=%d, want 0", got)
	}
}

func TestAppendNote(t *testing.T) {
	if got := appendNote("", "returned ok"); got != "returned ok" {
		t.Fatalf("appendNote empty=%q", got)
	}
	if got := appendNote("initial note", ""); got != "initial note" {
		t.Fatalf("appendNote no extra=%q", got)
	}
	if got := appendNote("initial note", "returned ok"); got != "initial note\nreturned ok" {
		t.Fatalf("appendNote both=%q", got)
	}
}
