package main

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/activos-labs/activos-go/internal/platform/auditlog"
	"github.com/activos-labs/activos-go/internal/platform/auth"
	"github.com/google/uuid"
)

// Auto-assignment upserts equipment by serial and assigns it to an employee
// in one transaction. Incoming spec fields only overwrite stored values when
// they carry real data ("N/A" and blanks are ignored), so partial imports
// never erase a fuller record.

type autoAssignRequest struct {
	Serial       string     `json:"serial"`
	Brand        string     `json:"brand,omitempty"`
	Model        string     `json:"model,omitempty"`
	Hostname     string     `json:"hostname,omitempty"`
	Processor    string     `json:"processor,omitempty"`
	StorageSpec  string     `json:"storage_spec,omitempty"`
	Memory       string     `json:"memory,omitempty"`
	Screen       string     `json:"screen,omitempty"`
	GraphicsCard string     `json:"graphics_card,omitempty"`
	PurchasedAt  *time.Time `json:"purchased_at,omitempty"`
	EmployeeID   string     `json:"employee_id,omitempty"`
	NationalID   string     `json:"national_id,omitempty"`
	UsageType    string     `json:"usage_type,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

func (req *autoAssignRequest) normalize() {
	req.Serial = strings.ToUpper(strings.TrimSpace(req.Serial))
	req.Brand = strings.TrimSpace(req.Brand)
	req.Model = strings.TrimSpace(req.Model)
	req.Hostname = strings.ToUpper(strings.TrimSpace(req.Hostname))
	req.Processor = strings.TrimSpace(req.Processor)
	req.StorageSpec = strings.TrimSpace(req.StorageSpec)
	req.Memory = strings.TrimSpace(req.Memory)
	req.Screen = strings.TrimSpace(req.Screen)
	req.GraphicsCard = strings.TrimSpace(req.GraphicsCard)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.NationalID = strings.TrimSpace(req.NationalID)
	req.UsageType = strings.TrimSpace(req.UsageType)
	req.Notes = strings.TrimSpace(req.Notes)
}

func (req autoAssignRequest) validate() string {
	if req.Serial == "" {
		return "serial_required"
	}
	if req.EmployeeID == "" && req.NationalID == "" {
		return "employee_required"
	}
	return ""
}

// refreshValue keeps the stored value unless the incoming one is usable.
func refreshValue(current string, incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || strings.EqualFold(incoming, "N/A") {
		return current
	}
	return incoming
}

func (api *inventoryAPI) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req autoAssignRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.normalize()
	if code := req.validate(); code != "" {
		api.writeError(w, r, http.StatusBadRequest, code)
		return
	}

	var (
		employeeID     string
		employeeStatus string
		firstName      string
		lastName       string
	)
	var err error
	if req.EmployeeID != "" {
		err = api.db.QueryRowContext(
			r.Context(),
			`SELECT employee_id, status, first_name, last_name FROM employees WHERE employee_id = $1`,
			req.EmployeeID,
		).Scan(&employeeID, &employeeStatus, &firstName, &lastName)
	} else {
		err = api.db.QueryRowContext(
			r.Context(),
			`SELECT employee_id, status, first_name, last_name FROM employees WHERE national_id = $1`,
			req.NationalID,
		).Scan(&employeeID, &employeeStatus, &firstName, &lastName)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "employee_not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if employeeStatus != "active" {
		api.writeError(w, r, http.StatusConflict, "employee_inactive")
		return
	}

	now := time.Now().UTC()

	tx, err := api.db.BeginTx(r.Context(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	var (
		equipmentID      string
		equipmentCreated bool
	)
	var existing equipment
	row := tx.QueryRowContext(
		r.Context(),
		`SELECT `+equipmentColumns+` FROM equipment WHERE serial = $1 FOR UPDATE`,
		req.Serial,
	)
	err = scanEquipmentInto(row, &existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		equipmentCreated = true
		equipmentID = uuid.NewString()
		age := 0.0
		if req.PurchasedAt != nil {
			age = ageYears(*req.PurchasedAt, now)
		}
		_, err = tx.ExecContext(
			r.Context(),
			`INSERT INTO equipment (
				equipment_id, kind, brand, model, serial, hostname, status,
				purchased_at, first_used_at, age_years,
				processor, storage_spec, memory, screen, graphics_card,
				has_ethernet, has_usb, has_serial_port, has_hdmi, has_usb_c,
				notes, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
			equipmentID,
			inferKind(req.Model),
			nullString(req.Brand),
			nullString(req.Model),
			req.Serial,
			nullString(req.Hostname),
			"available",
			nullTime(req.PurchasedAt),
			sql.NullTime{},
			age,
			nullString(req.Processor),
			nullString(req.StorageSpec),
			nullString(req.Memory),
			nullString(req.Screen),
			nullString(req.GraphicsCard),
			false, false, false, false, false,
			sql.NullString{},
			now,
			now,
		)
		if err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
	case err != nil:
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	default:
		equipmentID = existing.EquipmentID
		brand := refreshValue(existing.Brand, req.Brand)
		model := refreshValue(existing.Model, req.Model)
		hostname := refreshValue(existing.Hostname, req.Hostname)
		processor := refreshValue(existing.Processor, req.Processor)
		storageSpec := refreshValue(existing.StorageSpec, req.StorageSpec)
		memory := refreshValue(existing.Memory, req.Memory)
		screen := refreshValue(existing.Screen, req.Screen)
		graphicsCard := refreshValue(existing.GraphicsCard, req.GraphicsCard)
		purchasedAt := existing.PurchasedAt
		if req.PurchasedAt != nil {
			purchasedAt = req.PurchasedAt
		}
		age := existing.AgeYears
		if purchasedAt != nil {
			age = ageYears(*purchasedAt, now)
		}
		_, err = tx.ExecContext(
			r.Context(),
			`UPDATE equipment SET
				brand = $2, model = $3, hostname = $4,
				processor = $5, storage_spec = $6, memory = $7, screen = $8, graphics_card = $9,
				purchased_at = $10, age_years = $11, updated_at = $12
			 WHERE equipment_id = $1`,
			equipmentID,
			nullString(brand),
			nullString(model),
			nullString(hostname),
			nullString(processor),
			nullString(storageSpec),
			nullString(memory),
			nullString(screen),
			nullString(graphicsCard),
			nullTime(purchasedAt),
			age,
			now,
		)
		if err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
	}

	var (
		activeAssignmentID string
		activeEmployeeID   string
	)
	err = tx.QueryRowContext(
		r.Context(),
		`SELECT assignment_id, employee_id FROM assignments WHERE equipment_id = $1 AND active`,
		equipmentID,
	).Scan(&activeAssignmentID, &activeEmployeeID)
	switch {
	case err == nil && activeEmployeeID == employeeID:
		if err := tx.Commit(); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		api.writeJSON(w, http.StatusOK, map[string]any{
			"status":        "already_assigned",
			"assignment_id": activeAssignmentID,
			"equipment_id":  equipmentID,
			"employee_id":   employeeID,
		})
		return
	case err == nil:
		api.writeError(w, r, http.StatusConflict, "equipment_assigned")
		return
	case !errors.Is(err, sql.ErrNoRows):
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	assignmentID := uuid.NewString()
	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO assignments (
			assignment_id, equipment_id, employee_id, assigned_at, usage_type, active, days_in_use, notes, created_at
		) VALUES ($1,$2,$3,$4,$5,TRUE,0,$6,$7)`,
		assignmentID,
		equipmentID,
		employeeID,
		now,
		nullString(req.UsageType),
		nullString(req.Notes),
		now,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	if _, err := tx.ExecContext(
		r.Context(),
		`UPDATE equipment SET status = 'in_use', first_used_at = COALESCE(first_used_at, $2), updated_at = $2 WHERE equipment_id = $1`,
		equipmentID,
		now,
	); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "equipment.auto_assign",
		ResourceType: "assignment",
		ResourceID:   assignmentID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":           "inventory",
			"assignment_id":     assignmentID,
			"equipment_id":      equipmentID,
			"employee_id":       employeeID,
			"serial":            req.Serial,
			"equipment_created": equipmentCreated,
			"usage_type":        req.UsageType,
		},
	})
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	if err := tx.Commit(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusCreated, map[string]any{
		"status":            "assigned",
		"assignment_id":     assignmentID,
		"equipment_id":      equipmentID,
		"equipment_created": equipmentCreated,
		"employee_id":       employeeID,
		"employee_name":     strings.TrimSpace(firstName + " " + lastName),
		"assigned_at":       now,
	})
}

func (api *inventoryAPI) handleAutoAssignPreview(w http.ResponseWriter, r *http.Request) {
	serial := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("serial")))
	if serial == "" {
		api.writeError(w, r, http.StatusBadRequest, "serial_required")
		return
	}

	row := api.db.QueryRowContext(
		r.Context(),
		`SELECT `+equipmentColumns+` FROM equipment WHERE serial = $1`,
		serial,
	)
	var item equipment
	if err := scanEquipmentInto(row, &item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeJSON(w, http.StatusOK, map[string]any{"exists": false, "serial": serial})
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var (
		assignmentID string
		employeeID   string
		firstName    string
		lastName     string
		assignedAt   time.Time
	)
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT a.assignment_id, a.employee_id, e.first_name, e.last_name, a.assigned_at
		 FROM assignments a
		 JOIN employees e ON e.employee_id = a.employee_id
		 WHERE a.equipment_id = $1 AND a.active`,
		item.EquipmentID,
	).Scan(&assignmentID, &employeeID, &firstName, &lastName, &assignedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	body := map[string]any{
		"exists":    true,
		"serial":    serial,
		"equipment": item,
	}
	if err == nil {
		body["active_assignment"] = map[string]any{
			"assignment_id": assignmentID,
			"employee_id":   employeeID,
			"employee_name": strings.TrimSpace(firstName + " " + lastName),
			"assigned_at":   assignedAt,
		}
	}
	api.writeJSON(w, http.StatusOK, body)
}
