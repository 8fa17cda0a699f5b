package main

import (
	"fmt"
	"time"
)

type employeeRecord struct {
	FirstName  string
	LastName   string
	NationalID string
	RoleTitle  string
	Department string
	Email      string
	Phone      string
	Initials   string
}

type equipmentRecord struct {
	Kind         string
	Brand        string
	Model        string
	Serial       string
	Hostname     string
	Processor    string
	Memory       string
	StorageSpec  string
	Screen       string
	GraphicsCard string
	PurchasedAt  *time.Time
	AgeYears     float64
}

type requesterRecord struct {
	Name       string
	RoleTitle  string
	NationalID string
}

// buildTemplateData flattens the entities into the render record. Every key
// is always present with an empty-string default so missing entity fields
// never block generation.
func buildTemplateData(emp employeeRecord, eq *equipmentRecord, requester *requesterRecord) map[string]any {
	return buildTemplateDataAt(emp, eq, requester, time.Now())
}

func buildTemplateDataAt(emp employeeRecord, eq *equipmentRecord, requester *requesterRecord, now time.Time) map[string]any {
	today := longSpanishDate(now)
	data := map[string]any{
		"usuario_nombre":         emp.FirstName,
		"usuario_apellido":       emp.LastName,
		"usuario_nombreCompleto": fullName(emp.FirstName, emp.LastName),
		"usuario_dni":            emp.NationalID,
		"usuario_cargo":          emp.RoleTitle,
		"usuario_area":           emp.Department,
		"usuario_correo":         emp.Email,
		"usuario_telefono":       emp.Phone,
		"usuario_iniciales":      emp.Initials,
		"sede":                   "Lima",
		"fecha_actual":           today,
		"fecha_generacion":       today,
		// Short form kept alongside the long one; older templates use both.
		"fecha": now.In(limaLocation).Format("02-01-2006"),
	}

	if eq != nil {
		data["equipo_marca"] = eq.Brand
		data["equipo_modelo"] = eq.Model
		data["equipo_serie"] = eq.Serial
		data["equipo_host"] = eq.Hostname
		data["equipo_tipo"] = eq.Kind
		data["equipo_procesador"] = eq.Processor
		data["equipo_memoria"] = eq.Memory
		data["equipo_almacenamiento"] = eq.StorageSpec
		// Misspelled alias kept for templates authored against it.
		data["equipo_almacenamient"] = eq.StorageSpec
		data["equipo_pantalla"] = eq.Screen
		data["equipo_gpu"] = eq.GraphicsCard

		purchase := ""
		if eq.PurchasedAt != nil && !eq.PurchasedAt.IsZero() {
			purchase = longSpanishDate(*eq.PurchasedAt)
		}
		data["equipo_fechaCompra"] = purchase

		age := ""
		if eq.AgeYears > 0 {
			age = fmt.Sprintf("%g años", eq.AgeYears)
		}
		data["equipo_antiguedad"] = age
	}

	if requester != nil {
		data["name"] = requester.Name
		data["cargo"] = requester.RoleTitle
		data["dni"] = requester.NationalID
	}

	return data
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
