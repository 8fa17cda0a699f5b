package main

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEmployeeRequestNormalize(t *testing.T) {
	req := employeeRequest{
		NationalID: " 44556677 ",
		FirstName:  " María ",
		LastName:   " García López ",
		Email:      " Maria.Garcia@Example.PE ",
		Username:   " MGARCIA ",
	}
	req.normalize()

	if req.NationalID != "44556677" {
		t.Fatalf("NationalID=%q", req.NationalID)
	}
	if req.Email != "maria.garcia@example.pe" {
		t.Fatalf("Email=%q", req.Email)
	}
	if req.Username != "mgarcia" {
		t.Fatalf("Username=%q", req.Username)
	}
	if req.Status != "active" {
		t.Fatalf("Status=%q, want active default", req.Status)
	}
	if req.Initials != "MGL" {
		t.Fatalf("Initials=%q, want MGL", req.Initials)
	}
}

func TestEmployeeRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  employeeRequest
		want string
	}{
		{name: "missing national id", req: employeeRequest{FirstName: "Ana", LastName: "Torres", Status: "active"}, want: "national_id_required"},
		{name: "missing first name", req: employeeRequest{NationalID: "1", LastName: "Torres", Status: "active"}, want: "first_name_required"},
		{name: "missing last name", req: employeeRequest{NationalID: "1", FirstName: "Ana", Status: "active"}, want: "last_name_required"},
		{name: "bad status", req: employeeRequest{NationalID: "1", FirstName: "Ana", LastName: "Torres", Status: "archived"}, want: "invalid_status"},
		{name: "ok", req: employeeRequest{NationalID: "1", FirstName: "Ana", LastName: "Torres", Status: "retired"}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.req.validate(); got != tc.want {
				t.Fatalf("validate()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveInitials(t *testing.T) {
	if got := deriveInitials("Juan Carlos", "Pérez"); got != "JCP" {
		t.Fatalf("deriveInitials()=%q, want JCP", got)
	}
	if got := deriveInitials("", ""); got != "" {
		t.Fatalf("deriveInitials()=%q, want empty", got)
	}
}

func TestTotalPages(t *testing.T) {
	if got := totalPages(0, 50); got != 0 {
		t.Fatalf("totalPages(0,50)=%d, want 0", got)
	}
	if got := totalPages(50, 50); got != 1 {
		t.Fatalf("totalPages(50,50)=%d, want 1", got)
	}
	if got := totalPages(51, 50); got != 2 {
		t.Fatalf("totalPages(51,50)=%d, want 2", got)
	}
}

func TestDecodeJSON_RejectsExtraValue(t *testing.T) {
	req := httptest.NewRequest("POST", "http://example.test/", strings.NewReader("{\"national_id\":\"1\"} {\"national_id\":\"2\"}"))
	var dst employeeRequest
	if err := decodeJSON(req, &dst); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDecodeJSON_DisallowUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "http://example.test/", strings.NewReader("{\"national_id\":\"1\",\"extra\":1}"))
	var dst employeeRequest
	if err := decodeJSON(req, &dst); err == nil {
		t.Fatalf("expected error")
	}
}
