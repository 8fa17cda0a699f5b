package main

import "testing"

func TestAutoMapFields(t *testing.T) {
	fields := []templateField{
		{Name: "nombre_completo"},
		{Name: "nombre_corto"},
		{Name: "apellido_paterno"},
		{Name: "dni_usuario"},
		{Name: "marca_equipo"},
		{Name: "serie"},
		{Name: "fecha_actual"},
		{Name: "sin_regla"},
	}

	mapping := autoMapFields(fields, nil)

	want := map[string]string{
		"usuario_nombreCompleto": "nombre_completo",
		"usuario_nombre":         "nombre_corto",
		"usuario_apellido":       "apellido_paterno",
		"usuario_dni":            "dni_usuario",
		"equipo_marca":           "marca_equipo",
		"equipo_serie":           "serie",
		"fecha_actual":           "fecha_actual",
	}
	if len(mapping) != len(want) {
		t.Fatalf("len(mapping)=%d, want %d (%v)", len(mapping), len(want), mapping)
	}
	for k, v := range want {
		if mapping[k] != v {
			t.Fatalf("mapping[%q]=%q, want %q", k, mapping[k], v)
		}
	}
}

func TestAutoMapFieldsFirstMatchWins(t *testing.T) {
	// Two candidates for the same canonical key: the first extracted field
	// keeps it.
	fields := []templateField{
		{Name: "serie_principal"},
		{Name: "serie_secundaria"},
	}
	mapping := autoMapFields(fields, nil)
	if mapping["equipo_serie"] != "serie_principal" {
		t.Fatalf("equipo_serie=%q, want serie_principal", mapping["equipo_serie"])
	}
}

func TestAutoMapFieldsOverrides(t *testing.T) {
	fields := []templateField{{Name: "nombre"}}
	mapping := autoMapFields(fields, map[string]string{
		"usuario_nombre": "trabajador",
		"usuario_dni":    "documento",
	})
	if mapping["usuario_nombre"] != "trabajador" {
		t.Fatalf("usuario_nombre=%q, want override", mapping["usuario_nombre"])
	}
	if mapping["usuario_dni"] != "documento" {
		t.Fatalf("usuario_dni=%q, want documento", mapping["usuario_dni"])
	}
}

func TestAutoMapFieldsOverrideClears(t *testing.T) {
	fields := []templateField{{Name: "nombre"}}
	mapping := autoMapFields(fields, map[string]string{"usuario_nombre": " "})
	if _, ok := mapping["usuario_nombre"]; ok {
		t.Fatalf("usuario_nombre still mapped: %v", mapping)
	}
}

func TestApplyFieldMapping(t *testing.T) {
	data := map[string]any{
		"usuario_nombre": "Maria",
		"equipo_serie":   "ABC123",
		"trabajador":     "ya definido",
	}
	applyFieldMapping(data, map[string]string{
		"usuario_nombre": "trabajador",
		"equipo_serie":   "serie_equipo",
		"usuario_dni":    "documento",
	})

	// Caller-set values are never overwritten.
	if data["trabajador"] != "ya definido" {
		t.Fatalf("trabajador=%v, want ya definido", data["trabajador"])
	}
	if data["serie_equipo"] != "ABC123" {
		t.Fatalf("serie_equipo=%v, want ABC123", data["serie_equipo"])
	}
	if _, ok := data["documento"]; ok {
		t.Fatalf("documento should be absent without a canonical value: %v", data)
	}
}
