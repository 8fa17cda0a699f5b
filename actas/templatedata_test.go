package main

import (
	"testing"
	"time"
)

func TestBuildTemplateDataEmployeeOnly(t *testing.T) {
	emp := employeeRecord{
		FirstName:  "Maria",
		LastName:   "Gonzales",
		NationalID: "44556677",
		RoleTitle:  "Analista",
		Department: "Finanzas",
		Email:      "maria@example.com",
		Phone:      "999888777",
		Initials:   "MG",
	}
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, limaLocation)

	data := buildTemplateDataAt(emp, nil, nil, now)

	want := map[string]any{
		"usuario_nombre":         "Maria",
		"usuario_apellido":       "Gonzales",
		"usuario_nombreCompleto": "Maria Gonzales",
		"usuario_dni":            "44556677",
		"usuario_cargo":          "Analista",
		"usuario_area":           "Finanzas",
		"usuario_correo":         "maria@example.com",
		"usuario_telefono":       "999888777",
		"usuario_iniciales":      "MG",
		"sede":                   "Lima",
		"fecha_actual":           "15 de marzo de 2024",
		"fecha_generacion":       "15 de marzo de 2024",
		"fecha":                  "15-03-2024",
	}
	if len(data) != len(want) {
		t.Fatalf("len(data)=%d, want %d (%v)", len(data), len(want), data)
	}
	for k, v := range want {
		if data[k] != v {
			t.Fatalf("data[%q]=%v, want %v", k, data[k], v)
		}
	}
}

func TestBuildTemplateDataEquipment(t *testing.T) {
	purchased := time.Date(2021, 7, 1, 12, 0, 0, 0, limaLocation)
	eq := equipmentRecord{
		Kind:         "laptop",
		Brand:        "Lenovo",
		Model:        "ThinkPad T14",
		Serial:       "ABC123",
		Hostname:     "LT-LIMA-042",
		Processor:    "i5-1135G7",
		Memory:       "16GB",
		StorageSpec:  "512GB SSD",
		Screen:       "14",
		GraphicsCard: "Iris Xe",
		PurchasedAt:  &purchased,
		AgeYears:     2.7,
	}
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, limaLocation)

	data := buildTemplateDataAt(employeeRecord{}, &eq, nil, now)

	if data["equipo_marca"] != "Lenovo" || data["equipo_serie"] != "ABC123" {
		t.Fatalf("equipment fields wrong: %v", data)
	}
	if data["equipo_almacenamiento"] != "512GB SSD" {
		t.Fatalf("equipo_almacenamiento=%v", data["equipo_almacenamiento"])
	}
	if data["equipo_almacenamient"] != "512GB SSD" {
		t.Fatalf("legacy alias missing: %v", data["equipo_almacenamient"])
	}
	if data["equipo_fechaCompra"] != "1 de julio de 2021" {
		t.Fatalf("equipo_fechaCompra=%v", data["equipo_fechaCompra"])
	}
	if data["equipo_antiguedad"] != "2.7 años" {
		t.Fatalf("equipo_antiguedad=%v", data["equipo_antiguedad"])
	}
}

func TestBuildTemplateDataZeroAgeAndNoPurchase(t *testing.T) {
	eq := equipmentRecord{Kind: "desktop", Serial: "S1"}
	data := buildTemplateDataAt(employeeRecord{}, &eq, nil, time.Now())
	if data["equipo_fechaCompra"] != "" {
		t.Fatalf("equipo_fechaCompra=%v, want empty", data["equipo_fechaCompra"])
	}
	if data["equipo_antiguedad"] != "" {
		t.Fatalf("equipo_antiguedad=%v, want empty", data["equipo_antiguedad"])
	}
}

func TestBuildTemplateDataRequester(t *testing.T) {
	requester := requesterRecord{Name: "Jose Perez", RoleTitle: "Jefe TI", NationalID: "11223344"}
	data := buildTemplateDataAt(employeeRecord{}, nil, &requester, time.Now())
	if data["name"] != "Jose Perez" || data["cargo"] != "Jefe TI" || data["dni"] != "11223344" {
		t.Fatalf("requester fields wrong: %v", data)
	}
}

func TestFullName(t *testing.T) {
	if got := fullName("Maria", "Gonzales"); got != "Maria Gonzales" {
		t.Fatalf("fullName()=%q", got)
	}
	if got := fullName("", "Gonzales"); got != "Gonzales" {
		t.Fatalf("fullName(no first)=%q", got)
	}
	if got := fullName("Maria", ""); got != "Maria" {
		t.Fatalf("fullName(no last)=%q", got)
	}
}
