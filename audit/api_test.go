package main

import (
	"strings"
	"testing"
)

func TestBuildEventsQueryNoFilters(t *testing.T) {
	query, args := buildEventsQuery(eventFilters{Limit: 100})
	if strings.Contains(query, "WHERE") {
		t.Fatalf("query=%q, want no WHERE clause", query)
	}
	if !strings.Contains(query, "ORDER BY event_id DESC LIMIT $1") {
		t.Fatalf("query=%q, want limit as $1", query)
	}
	if len(args) != 1 || args[0] != 100 {
		t.Fatalf("args=%v, want [100]", args)
	}
}

func TestBuildEventsQueryAllFilters(t *testing.T) {
	query, args := buildEventsQuery(eventFilters{
		BeforeID:     42,
		Actor:        "alice",
		Action:       "assignment.create",
		ResourceType: "assignment",
		ResourceID:   "a-1",
		RequestID:    "req-1",
		Limit:        50,
	})
	for _, clause := range []string{
		"event_id < $1",
		"actor = $2",
		"action = $3",
		"resource_type = $4",
		"resource_id = $5",
		"request_id = $6",
		"LIMIT $7",
	} {
		if !strings.Contains(query, clause) {
			t.Fatalf("query=%q, missing %q", query, clause)
		}
	}
	if len(args) != 7 {
		t.Fatalf("len(args)=%d, want 7", len(args))
	}
	if args[6] != 50 {
		t.Fatalf("args[6]=%v, want 50", args[6])
	}
}

func TestNormalizeJSON(t *testing.T) {
	if got := string(normalizeJSON(nil)); got != "{}" {
		t.Fatalf("normalizeJSON(nil)=%q", got)
	}
	if got := string(normalizeJSON([]byte("null"))); got != "{}" {
		t.Fatalf("normalizeJSON(null)=%q", got)
	}
	if got := string(normalizeJSON([]byte(` {"a":1} `))); got != `{"a":1}` {
		t.Fatalf("normalizeJSON(object)=%q", got)
	}
}
