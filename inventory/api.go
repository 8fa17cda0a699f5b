package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/activos-labs/activos-go/internal/platform/auditlog"
	"github.com/activos-labs/activos-go/internal/platform/auth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type inventoryAPI struct {
	logger *slog.Logger
	db     *sql.DB
}

func newInventoryAPI(logger *slog.Logger, db *sql.DB) *inventoryAPI {
	return &inventoryAPI{logger: logger, db: db}
}

func (api *inventoryAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /equipment", api.handleListEquipment)
	mux.HandleFunc("POST /equipment", api.handleCreateEquipment)
	mux.HandleFunc("GET /equipment/search", api.handleSearchEquipment)
	mux.HandleFunc("GET /equipment/stats", api.handleEquipmentStats)
	mux.HandleFunc("POST /equipment/auto-assign", api.handleAutoAssign)
	mux.HandleFunc("GET /equipment/auto-assign/preview", api.handleAutoAssignPreview)
	mux.HandleFunc("GET /equipment/{equipment_id}", api.handleGetEquipment)
	mux.HandleFunc("PUT /equipment/{equipment_id}", api.handleUpdateEquipment)
	mux.HandleFunc("DELETE /equipment/{equipment_id}", api.handleDeleteEquipment)
}

type equipment struct {
	EquipmentID   string     `json:"equipment_id"`
	Kind          string     `json:"kind"`
	Brand         string     `json:"brand,omitempty"`
	Model         string     `json:"model,omitempty"`
	Serial        string     `json:"serial"`
	Hostname      string     `json:"hostname,omitempty"`
	Status        string     `json:"status"`
	PurchasedAt   *time.Time `json:"purchased_at,omitempty"`
	FirstUsedAt   *time.Time `json:"first_used_at,omitempty"`
	AgeYears      float64    `json:"age_years"`
	Processor     string     `json:"processor,omitempty"`
	StorageSpec   string     `json:"storage_spec,omitempty"`
	Memory        string     `json:"memory,omitempty"`
	Screen        string     `json:"screen,omitempty"`
	GraphicsCard  string     `json:"graphics_card,omitempty"`
	HasEthernet   bool       `json:"has_ethernet"`
	HasUSB        bool       `json:"has_usb"`
	HasSerialPort bool       `json:"has_serial_port"`
	HasHDMI       bool       `json:"has_hdmi"`
	HasUSBC       bool       `json:"has_usb_c"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type equipmentListItem struct {
	equipment
	AssignedTo   string `json:"assigned_to,omitempty"`
	AssignedName string `json:"assigned_name,omitempty"`
}

type equipmentRequest struct {
	Kind          string     `json:"kind"`
	Brand         string     `json:"brand,omitempty"`
	Model         string     `json:"model,omitempty"`
	Serial        string     `json:"serial"`
	Hostname      string     `json:"hostname,omitempty"`
	Status        string     `json:"status,omitempty"`
	PurchasedAt   *time.Time `json:"purchased_at,omitempty"`
	FirstUsedAt   *time.Time `json:"first_used_at,omitempty"`
	Processor     string     `json:"processor,omitempty"`
	StorageSpec   string     `json:"storage_spec,omitempty"`
	Memory        string     `json:"memory,omitempty"`
	Screen        string     `json:"screen,omitempty"`
	GraphicsCard  string     `json:"graphics_card,omitempty"`
	HasEthernet   bool       `json:"has_ethernet,omitempty"`
	HasUSB        bool       `json:"has_usb,omitempty"`
	HasSerialPort bool       `json:"has_serial_port,omitempty"`
	HasHDMI       bool       `json:"has_hdmi,omitempty"`
	HasUSBC       bool       `json:"has_usb_c,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

func (req *equipmentRequest) normalize() {
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.Brand = strings.TrimSpace(req.Brand)
	req.Model = strings.TrimSpace(req.Model)
	req.Serial = strings.ToUpper(strings.TrimSpace(req.Serial))
	req.Hostname = strings.ToUpper(strings.TrimSpace(req.Hostname))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.Processor = strings.TrimSpace(req.Processor)
	req.StorageSpec = strings.TrimSpace(req.StorageSpec)
	req.Memory = strings.TrimSpace(req.Memory)
	req.Screen = strings.TrimSpace(req.Screen)
	req.GraphicsCard = strings.TrimSpace(req.GraphicsCard)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Status == "" {
		req.Status = "available"
	}
	if req.Kind == "" {
		req.Kind = inferKind(req.Model)
	}
}

func (req equipmentRequest) validate() string {
	if req.Serial == "" {
		return "serial_required"
	}
	if !isEquipmentKind(req.Kind) {
		return "invalid_kind"
	}
	if !isEquipmentStatus(req.Status) {
		return "invalid_status"
	}
	return ""
}

func isEquipmentKind(kind string) bool {
	switch kind {
	case "laptop", "desktop":
		return true
	default:
		return false
	}
}

func isEquipmentStatus(status string) bool {
	switch status {
	case "available", "in_use", "maintenance", "decommissioned", "lost":
		return true
	default:
		return false
	}
}

// inferKind guesses laptop vs desktop from model keywords; desktop lines
// (OptiPlex, ThinkCentre, ProDesk, EliteDesk, tower) win, everything else
// defaults to laptop.
func inferKind(model string) string {
	m := strings.ToLower(model)
	for _, kw := range []string{"optiplex", "thinkcentre", "prodesk", "elitedesk", "tower", "desktop", "aio", "all-in-one"} {
		if strings.Contains(m, kw) {
			return "desktop"
		}
	}
	return "laptop"
}

func ageYears(purchasedAt time.Time, now time.Time) float64 {
	if purchasedAt.IsZero() || !now.After(purchasedAt) {
		return 0
	}
	years := now.Sub(purchasedAt).Hours() / (24 * 365.25)
	return math.Round(years*10) / 10
}

func (api *inventoryAPI) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.normalize()
	if code := req.validate(); code != "" {
		api.writeError(w, r, http.StatusBadRequest, code)
		return
	}

	now := time.Now().UTC()
	equipmentID := uuid.NewString()
	age := 0.0
	if req.PurchasedAt != nil {
		age = ageYears(*req.PurchasedAt, now)
	}

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

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
		req.Kind,
		nullString(req.Brand),
		nullString(req.Model),
		req.Serial,
		nullString(req.Hostname),
		req.Status,
		nullTime(req.PurchasedAt),
		nullTime(req.FirstUsedAt),
		age,
		nullString(req.Processor),
		nullString(req.StorageSpec),
		nullString(req.Memory),
		nullString(req.Screen),
		nullString(req.GraphicsCard),
		req.HasEthernet,
		req.HasUSB,
		req.HasSerialPort,
		req.HasHDMI,
		req.HasUSBC,
		nullString(req.Notes),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			api.writeError(w, r, http.StatusConflict, "serial_exists")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "equipment.create",
		ResourceType: "equipment",
		ResourceID:   equipmentID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":      "inventory",
			"equipment_id": equipmentID,
			"serial":       req.Serial,
			"kind":         req.Kind,
			"brand":        req.Brand,
			"model":        req.Model,
			"status":       req.Status,
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

	w.Header().Set("Location", "/equipment/"+equipmentID)
	api.writeJSON(w, http.StatusCreated, req.toEquipment(equipmentID, age, now, now))
}

func (req equipmentRequest) toEquipment(equipmentID string, age float64, createdAt time.Time, updatedAt time.Time) equipment {
	return equipment{
		EquipmentID:   equipmentID,
		Kind:          req.Kind,
		Brand:         req.Brand,
		Model:         req.Model,
		Serial:        req.Serial,
		Hostname:      req.Hostname,
		Status:        req.Status,
		PurchasedAt:   req.PurchasedAt,
		FirstUsedAt:   req.FirstUsedAt,
		AgeYears:      age,
		Processor:     req.Processor,
		StorageSpec:   req.StorageSpec,
		Memory:        req.Memory,
		Screen:        req.Screen,
		GraphicsCard:  req.GraphicsCard,
		HasEthernet:   req.HasEthernet,
		HasUSB:        req.HasUSB,
		HasSerialPort: req.HasSerialPort,
		HasHDMI:       req.HasHDMI,
		HasUSBC:       req.HasUSBC,
		Notes:         req.Notes,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

const equipmentColumns = `equipment_id, kind, brand, model, serial, hostname, status,
	purchased_at, first_used_at, age_years,
	processor, storage_spec, memory, screen, graphics_card,
	has_ethernet, has_usb, has_serial_port, has_hdmi, has_usb_c,
	notes, created_at, updated_at`

func (api *inventoryAPI) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	page := clampInt(parseIntQuery(r, "page", 1), 1, 1_000_000)
	limit := clampInt(parseIntQuery(r, "limit", 50), 1, 200)

	where := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))); status != "" {
		args = append(args, status)
		where = append(where, "q.status = $"+strconv.Itoa(len(args)))
	}
	if kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind"))); kind != "" {
		args = append(args, kind)
		where = append(where, "q.kind = $"+strconv.Itoa(len(args)))
	}
	if brand := strings.TrimSpace(r.URL.Query().Get("brand")); brand != "" {
		args = append(args, brand)
		where = append(where, "q.brand ILIKE $"+strconv.Itoa(len(args)))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := api.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM equipment q`+whereSQL, args...).Scan(&total); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT q.equipment_id, q.kind, q.brand, q.model, q.serial, q.hostname, q.status,
			q.purchased_at, q.first_used_at, q.age_years,
			q.processor, q.storage_spec, q.memory, q.screen, q.graphics_card,
			q.has_ethernet, q.has_usb, q.has_serial_port, q.has_hdmi, q.has_usb_c,
			q.notes, q.created_at, q.updated_at,
			a.employee_id, e.first_name, e.last_name
		 FROM equipment q
		 LEFT JOIN assignments a ON a.equipment_id = q.equipment_id AND a.active
		 LEFT JOIN employees e ON e.employee_id = a.employee_id`+whereSQL+`
		 ORDER BY q.created_at DESC
		 LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]equipmentListItem, 0, limit)
	for rows.Next() {
		var (
			item       equipmentListItem
			employeeID sql.NullString
			firstName  sql.NullString
			lastName   sql.NullString
		)
		if err := scanEquipmentInto(rows, &item.equipment, &employeeID, &firstName, &lastName); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		item.AssignedTo = employeeID.String
		item.AssignedName = strings.TrimSpace(firstName.String + " " + lastName.String)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"equipment": out,
		"total":     total,
		"page":      page,
		"pages":     totalPages(total, limit),
	})
}

func (api *inventoryAPI) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	equipmentID := strings.TrimSpace(r.PathValue("equipment_id"))
	if equipmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "equipment_id_required")
		return
	}

	row := api.db.QueryRowContext(
		r.Context(),
		`SELECT `+equipmentColumns+` FROM equipment WHERE equipment_id = $1`,
		equipmentID,
	)
	var item equipment
	if err := scanEquipmentInto(row, &item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT a.assignment_id, a.employee_id, e.first_name, e.last_name, a.assigned_at, a.returned_at, a.usage_type, a.active, a.days_in_use, a.notes
		 FROM assignments a
		 JOIN employees e ON e.employee_id = a.employee_id
		 WHERE a.equipment_id = $1
		 ORDER BY a.assigned_at DESC`,
		equipmentID,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	type assignmentEntry struct {
		AssignmentID string     `json:"assignment_id"`
		EmployeeID   string     `json:"employee_id"`
		EmployeeName string     `json:"employee_name"`
		AssignedAt   time.Time  `json:"assigned_at"`
		ReturnedAt   *time.Time `json:"returned_at,omitempty"`
		UsageType    string     `json:"usage_type,omitempty"`
		Active       bool       `json:"active"`
		DaysInUse    int        `json:"days_in_use"`
		Notes        string     `json:"notes,omitempty"`
	}

	history := make([]assignmentEntry, 0, 8)
	var current *assignmentEntry
	for rows.Next() {
		var (
			entry      assignmentEntry
			firstName  string
			lastName   string
			returnedAt sql.NullTime
			usageType  sql.NullString
			notes      sql.NullString
		)
		if err := rows.Scan(&entry.AssignmentID, &entry.EmployeeID, &firstName, &lastName, &entry.AssignedAt, &returnedAt, &usageType, &entry.Active, &entry.DaysInUse, &notes); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		entry.EmployeeName = strings.TrimSpace(firstName + " " + lastName)
		entry.UsageType = usageType.String
		entry.Notes = notes.String
		if returnedAt.Valid {
			t := returnedAt.Time
			entry.ReturnedAt = &t
		}
		if entry.Active && current == nil {
			c := entry
			current = &c
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"equipment":          item,
		"current_assignment": current,
		"history":            history,
	})
}

func (api *inventoryAPI) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	equipmentID := strings.TrimSpace(r.PathValue("equipment_id"))
	if equipmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "equipment_id_required")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.normalize()
	if code := req.validate(); code != "" {
		api.writeError(w, r, http.StatusBadRequest, code)
		return
	}

	now := time.Now().UTC()
	age := 0.0
	if req.PurchasedAt != nil {
		age = ageYears(*req.PurchasedAt, now)
	}

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	var activeCount int64
	if err := tx.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*) FROM assignments WHERE equipment_id = $1 AND active`,
		equipmentID,
	).Scan(&activeCount); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if activeCount > 0 && req.Status == "available" {
		api.writeError(w, r, http.StatusConflict, "active_assignment_exists")
		return
	}

	res, err := tx.ExecContext(
		r.Context(),
		`UPDATE equipment SET
			kind = $2, brand = $3, model = $4, serial = $5, hostname = $6, status = $7,
			purchased_at = $8, first_used_at = $9, age_years = $10,
			processor = $11, storage_spec = $12, memory = $13, screen = $14, graphics_card = $15,
			has_ethernet = $16, has_usb = $17, has_serial_port = $18, has_hdmi = $19, has_usb_c = $20,
			notes = $21, updated_at = $22
		 WHERE equipment_id = $1`,
		equipmentID,
		req.Kind,
		nullString(req.Brand),
		nullString(req.Model),
		req.Serial,
		nullString(req.Hostname),
		req.Status,
		nullTime(req.PurchasedAt),
		nullTime(req.FirstUsedAt),
		age,
		nullString(req.Processor),
		nullString(req.StorageSpec),
		nullString(req.Memory),
		nullString(req.Screen),
		nullString(req.GraphicsCard),
		req.HasEthernet,
		req.HasUSB,
		req.HasSerialPort,
		req.HasHDMI,
		req.HasUSBC,
		nullString(req.Notes),
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			api.writeError(w, r, http.StatusConflict, "serial_exists")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	affected, err := res.RowsAffected()
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if affected == 0 {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "equipment.update",
		ResourceType: "equipment",
		ResourceID:   equipmentID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":      "inventory",
			"equipment_id": equipmentID,
			"serial":       req.Serial,
			"status":       req.Status,
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

	var createdAt time.Time
	if err := api.db.QueryRowContext(r.Context(), `SELECT created_at FROM equipment WHERE equipment_id = $1`, equipmentID).Scan(&createdAt); err != nil {
		createdAt = now
	}

	api.writeJSON(w, http.StatusOK, req.toEquipment(equipmentID, age, createdAt, now))
}

func (api *inventoryAPI) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	equipmentID := strings.TrimSpace(r.PathValue("equipment_id"))
	if equipmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "equipment_id_required")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	now := time.Now().UTC()

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	var activeCount int64
	if err := tx.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*) FROM assignments WHERE equipment_id = $1 AND active`,
		equipmentID,
	).Scan(&activeCount); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if activeCount > 0 {
		api.writeError(w, r, http.StatusConflict, "active_assignment_exists")
		return
	}

	res, err := tx.ExecContext(r.Context(), `DELETE FROM equipment WHERE equipment_id = $1`, equipmentID)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	affected, err := res.RowsAffected()
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if affected == 0 {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "equipment.delete",
		ResourceType: "equipment",
		ResourceID:   equipmentID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":      "inventory",
			"equipment_id": equipmentID,
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

	api.writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "equipment_id": equipmentID})
}

func (api *inventoryAPI) handleSearchEquipment(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		api.writeError(w, r, http.StatusBadRequest, "query_required")
		return
	}

	pattern := "%" + query + "%"
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT `+equipmentColumns+`
		 FROM equipment
		 WHERE serial ILIKE $1
		    OR hostname ILIKE $1
		    OR brand ILIKE $1
		    OR model ILIKE $1
		 ORDER BY created_at DESC
		 LIMIT 20`,
		pattern,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]equipment, 0, 20)
	for rows.Next() {
		var item equipment
		if err := scanEquipmentInto(rows, &item); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"equipment": out})
}

func (api *inventoryAPI) handleEquipmentStats(w http.ResponseWriter, r *http.Request) {
	byStatus := map[string]int64{}
	rows, err := api.db.QueryContext(r.Context(), `SELECT status, COUNT(*) FROM equipment GROUP BY status`)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	var total int64
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		byStatus[status] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	rows.Close()

	byKind := map[string]int64{}
	rows, err = api.db.QueryContext(r.Context(), `SELECT kind, COUNT(*) FROM equipment GROUP BY kind`)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		byKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	rows.Close()

	type brandCount struct {
		Brand string `json:"brand"`
		Count int64  `json:"count"`
	}
	topBrands := make([]brandCount, 0, 5)
	rows, err = api.db.QueryContext(
		r.Context(),
		`SELECT brand, COUNT(*) AS n
		 FROM equipment
		 WHERE brand IS NOT NULL
		 GROUP BY brand
		 ORDER BY n DESC, brand ASC
		 LIMIT 5`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	for rows.Next() {
		var entry brandCount
		if err := rows.Scan(&entry.Brand, &entry.Count); err != nil {
			rows.Close()
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		topBrands = append(topBrands, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	rows.Close()

	type oldestEntry struct {
		EquipmentID string  `json:"equipment_id"`
		Serial      string  `json:"serial"`
		Brand       string  `json:"brand,omitempty"`
		Model       string  `json:"model,omitempty"`
		AgeYears    float64 `json:"age_years"`
	}
	oldest := make([]oldestEntry, 0, 5)
	rows, err = api.db.QueryContext(
		r.Context(),
		`SELECT equipment_id, serial, brand, model, age_years
		 FROM equipment
		 WHERE age_years > 0
		 ORDER BY age_years DESC
		 LIMIT 5`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	for rows.Next() {
		var (
			entry oldestEntry
			brand sql.NullString
			model sql.NullString
		)
		if err := rows.Scan(&entry.EquipmentID, &entry.Serial, &brand, &model, &entry.AgeYears); err != nil {
			rows.Close()
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		entry.Brand = brand.String
		entry.Model = model.String
		oldest = append(oldest, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	rows.Close()

	api.writeJSON(w, http.StatusOK, map[string]any{
		"total":      total,
		"by_status":  byStatus,
		"by_kind":    byKind,
		"top_brands": topBrands,
		"oldest":     oldest,
	})
}

func scanEquipmentInto(row rowScanner, item *equipment, extra ...any) error {
	var (
		brand        sql.NullString
		model        sql.NullString
		hostname     sql.NullString
		purchasedAt  sql.NullTime
		firstUsedAt  sql.NullTime
		processor    sql.NullString
		storageSpec  sql.NullString
		memory       sql.NullString
		screen       sql.NullString
		graphicsCard sql.NullString
		notes        sql.NullString
	)
	dest := []any{
		&item.EquipmentID,
		&item.Kind,
		&brand,
		&model,
		&item.Serial,
		&hostname,
		&item.Status,
		&purchasedAt,
		&firstUsedAt,
		&item.AgeYears,
		&processor,
		&storageSpec,
		&memory,
		&screen,
		&graphicsCard,
		&item.HasEthernet,
		&item.HasUSB,
		&item.HasSerialPort,
		&item.HasHDMI,
		&item.HasUSBC,
		&notes,
		&item.CreatedAt,
		&item.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	item.Brand = brand.String
	item.Model = model.String
	item.Hostname = hostname.String
	item.Processor = processor.String
	item.StorageSpec = storageSpec.String
	item.Memory = memory.String
	item.Screen = screen.String
	item.GraphicsCard = graphicsCard.String
	item.Notes = notes.String
	if purchasedAt.Valid {
		t := purchasedAt.Time
		item.PurchasedAt = &t
	}
	if firstUsedAt.Valid {
		t := firstUsedAt.Time
		item.FirstUsedAt = &t
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *inventoryAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *inventoryAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func requestIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil || value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func totalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return pages
}
