package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHasAtLeast(t *testing.T) {
	cases := []struct {
		name     string
		roles    []string
		required string
		want     bool
	}{
		{name: "admin covers editor", roles: []string{"admin"}, required: RoleEditor, want: true},
		{name: "viewer cannot edit", roles: []string{"viewer"}, required: RoleEditor, want: false},
		{name: "editor covers viewer", roles: []string{"editor"}, required: RoleViewer, want: true},
		{name: "mixed case", roles: []string{" Admin "}, required: RoleAdmin, want: true},
		{name: "unknown required role", roles: []string{"admin"}, required: "owner", want: false},
		{name: "no roles", roles: nil, required: RoleViewer, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasAtLeast(tc.roles, tc.required); got != tc.want {
				t.Fatalf("HasAtLeast(%v, %q)=%v, want %v", tc.roles, tc.required, got, tc.want)
			}
		})
	}
}

func TestRequiredRoleForRequest(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "http://example.test/employees", nil)
	if got := RequiredRoleForRequest(get); got != RoleViewer {
		t.Fatalf("GET required role=%q, want viewer", got)
	}
	post := httptest.NewRequest(http.MethodPost, "http://example.test/employees", nil)
	if got := RequiredRoleForRequest(post); got != RoleEditor {
		t.Fatalf("POST required role=%q, want editor", got)
	}
	del := httptest.NewRequest(http.MethodDelete, "http://example.test/employees/1", nil)
	if got := RequiredRoleForRequest(del); got != RoleEditor {
		t.Fatalf("DELETE required role=%q, want editor", got)
	}
}
