package main

import "strings"

// autoMappingRules associates canonical render keys with the placeholder
// names templates actually use. First matching rule wins per placeholder, so
// order matters: the composite full-name rule must run before the plain name
// rule.
var autoMappingRules = []struct {
	canonical string
	match     func(lower string) bool
}{
	{"usuario_nombreCompleto", func(n string) bool {
		return strings.Contains(n, "nombre") && strings.Contains(n, "completo")
	}},
	{"usuario_nombre", containsRule("nombre")},
	{"usuario_apellido", containsRule("apellido")},
	{"usuario_dni", containsRule("dni")},
	{"usuario_cargo", containsRule("cargo")},
	{"usuario_area", containsRule("area")},
	{"usuario_correo", containsAnyRule("correo", "email")},
	{"usuario_telefono", containsAnyRule("telefono", "celular")},
	{"equipo_marca", containsRule("marca")},
	{"equipo_modelo", containsRule("modelo")},
	{"equipo_serie", containsRule("serie")},
	{"equipo_host", containsRule("host")},
	{"fecha_actual", func(n string) bool {
		return strings.Contains(n, "fecha") && strings.Contains(n, "actual")
	}},
}

// autoMapFields builds the canonical-key → placeholder-name mapping for a
// template's extracted fields. Caller-supplied overrides win over the
// inferred entries.
func autoMapFields(fields []templateField, overrides map[string]string) map[string]string {
	mapping := make(map[string]string, len(autoMappingRules))
	for _, field := range fields {
		lower := strings.ToLower(field.Name)
		for _, rule := range autoMappingRules {
			if _, taken := mapping[rule.canonical]; taken {
				continue
			}
			if rule.match(lower) {
				mapping[rule.canonical] = field.Name
				break
			}
		}
	}
	for canonical, placeholder := range overrides {
		placeholder = strings.TrimSpace(placeholder)
		if placeholder == "" {
			delete(mapping, canonical)
			continue
		}
		mapping[canonical] = placeholder
	}
	return mapping
}

// applyFieldMapping copies canonical values onto the placeholder names the
// template actually contains. Values the caller already set for a placeholder
// are left alone.
func applyFieldMapping(data map[string]any, mapping map[string]string) {
	for canonical, placeholder := range mapping {
		if placeholder == canonical {
			continue
		}
		value, ok := data[canonical]
		if !ok {
			continue
		}
		if _, exists := data[placeholder]; exists {
			continue
		}
		data[placeholder] = value
	}
}

func containsRule(sub string) func(string) bool {
	return func(n string) bool { return strings.Contains(n, sub) }
}

func containsAnyRule(subs ...string) func(string) bool {
	return func(n string) bool {
		for _, sub := range subs {
			if strings.Contains(n, sub) {
				return true
			}
		}
		return false
	}
}
