package main

import (
	"testing"
	"time"
)

func TestEquipmentRequestNormalize(t *testing.T) {
	req := equipmentRequest{
		Serial:   " abc123xy ",
		Hostname: " lt-lima-042 ",
		Model:    "ThinkPad T14",
	}
	req.normalize()

	if req.Serial != "ABC123XY" {
		t.Fatalf("Serial=%q, want ABC123XY", req.Serial)
	}
	if req.Hostname != "LT-LIMA-042" {
		t.Fatalf("Hostname=%q, want LT-LIMA-042", req.Hostname)
	}
	if req.Status != "available" {
		t.Fatalf("Status=%q, want available default", req.Status)
	}
	if req.Kind != "laptop" {
		t.Fatalf("Kind=%q, want laptop inferred from model", req.Kind)
	}
}

func TestEquipmentRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  equipmentRequest
		want string
	}{
		{name: "missing serial", req: equipmentRequest{Kind: "laptop", Status: "available"}, want: "serial_required"},
		{name: "bad kind", req: equipmentRequest{Serial: "S1", Kind: "tablet", Status: "available"}, want: "invalid_kind"},
		{name: "bad status", req: equipmentRequest{Serial: "S1", Kind: "laptop", Status: "broken"}, want: "invalid_status"},
		{name: "ok", req: equipmentRequest{Serial: "S1", Kind: "desktop", Status: "maintenance"}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.req.validate(); got != tc.want {
				t.Fatalf("validate()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestInferKind(t *testing.T) {
	cases := []struct {
		model string
		want  string
	}{
		{model: "OptiPlex 7090", want: "desktop"},
		{model: "ThinkCentre M720", want: "desktop"},
		{model: "HP ProDesk 400", want: "desktop"},
		{model: "ThinkPad X1 Carbon", want: "laptop"},
		{model: "", want: "laptop"},
	}
	for _, tc := range cases {
		if got := inferKind(tc.model); got != tc.want {
			t.Fatalf("inferKind(%q)=%q, want %q", tc.model, got, tc.want)
		}
	}
}

func TestAgeYears(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	purchased := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := ageYears(purchased, now); got != 3.0 {
		t.Fatalf("ageYears()=%v, want 3.0", got)
	}
	if got := ageYears(time.Time{}, now); got != 0 {
		t.Fatalf("ageYears(zero)=%v, want 0", got)
	}
	if got := ageYears(now.Add(24*time.Hour), now); got != 0 {
		t.Fatalf("ageYears(future)=%v, want 0", got)
	}
}

func TestRefreshValue(t *testing.T) {
	if got := refreshValue("Dell", ""); got != "Dell" {
		t.Fatalf("refreshValue kept=%q, want Dell", got)
	}
	if got := refreshValue("Dell", "N/A"); got != "Dell" {
		t.Fatalf("refreshValue N/A=%q, want Dell", got)
	}
	if got := refreshValue("Dell", "n/a"); got != "Dell" {
		t.Fatalf("refreshValue n/a=%q, want Dell", got)
	}
	if got := refreshValue("Dell", "Lenovo"); got != "Lenovo" {
		t.Fatalf("refreshValue replace=%q, want Lenovo", got)
	}
	if got := refreshValue("", "HP"); got != "HP" {
		t.Fatalf("refreshValue fill=%q, want HP", got)
	}
}

func TestAutoAssignRequestValidate(t *testing.T) {
	req := autoAssignRequest{}
	req.normalize()
	if got := req.validate(); got != "serial_required" {
		t.Fatalf("validate()=%q, want serial_required", got)
	}

	req = autoAssignRequest{Serial: "abc"}
	req.normalize()
	if got := req.validate(); got != "employee_required" {
		t.Fatalf("validate()=%q, want employee_required", got)
	}

	req = autoAssignRequest{Serial: "abc", NationalID: "44556677"}
	req.normalize()
	if got := req.validate(); got != "" {
		t.Fatalf("validate()=%q, want empty", got)
	}
	if req.Serial != "ABC" {
		t.Fatalf("Serial=%q, want ABC", req.Serial)
	}
}
