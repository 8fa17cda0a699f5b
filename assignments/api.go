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

	"github.com/activos-labs/activos-go/internal/platform/assignpolicy"
	"github.com/activos-labs/activos-go/internal/platform/auditlog"
	"github.com/activos-labs/activos-go/internal/platform/auth"
	"github.com/google/uuid"
)

type assignmentsAPI struct {
	logger *slog.Logger
	db     *sql.DB
	policy *assignpolicy.Spec
}

func newAssignmentsAPI(logger *slog.Logger, db *sql.DB, policy *assignpolicy.Spec) *assignmentsAPI {
	return &assignmentsAPI{logger: logger, db: db, policy: policy}
}

func (api *assignmentsAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /assignments", api.handleListAssignments)
	mux.HandleFunc("POST /assignments", api.handleAssign)
	mux.HandleFunc("GET /assignments/active", api.handleActiveAssignments)
	mux.HandleFunc("GET /assignments/stats", api.handleAssignmentStats)
	mux.HandleFunc("POST /assignments/return-by-equipment", api.handleReturnByEquipment)
	mux.HandleFunc("POST /assignments/transfer", api.handleTransfer)
	mux.HandleFunc("GET /assignments/{assignment_id}", api.handleGetAssignment)
	mux.HandleFunc("POST /assignments/{assignment_id}/return", api.handleReturnAssignment)
}

type assignment struct {
	AssignmentID string     `json:"assignment_id"`
	EquipmentID  string     `json:"equipment_id"`
	EmployeeID   string     `json:"employee_id"`
	Serial       string     `json:"serial,omitempty"`
	EmployeeName string     `json:"employee_name,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	UsageType    string     `json:"usage_type,omitempty"`
	Active       bool       `json:"active"`
	DaysInUse    int        `json:"days_in_use"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type assignRequest struct {
	EquipmentID string `json:"equipment_id"`
	EmployeeID  string `json:"employee_id"`
	UsageType   string `json:"usage_type,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func daysBetween(from time.Time, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// appendNote joins the stored notes with a new line of context.
func appendNote(current string, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return current
	}
	if strings.TrimSpace(current) == "" {
		return extra
	}
	return current + "\n" + extra
}

func (api *assignmentsAPI) evaluatePolicy(w http.ResponseWriter, r *http.Request, action string, identity auth.Identity, emp assignpolicy.EmployeeContext, eq assignpolicy.EquipmentContext) bool {
	if api.policy == nil {
		return true
	}
	decision, err := assignpolicy.Evaluate(*api.policy, assignpolicy.Context{
		Action: action,
		Actor: assignpolicy.ActorContext{
			Subject: identity.Subject,
			Email:   identity.Email,
			Roles:   identity.Roles,
		},
		Employee:  emp,
		Equipment: eq,
	})
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return false
	}
	switch decision.Effect {
	case assignpolicy.EffectDeny:
		api.logger.Warn("assignment denied by policy", "rule_id", decision.RuleID, "action", action, "request_id", r.Header.Get("X-Request-Id"))
		api.writeError(w, r, http.StatusForbidden, "assignment_denied")
		return false
	case assignpolicy.EffectRequireApproval:
		api.logger.Warn("assignment requires approval", "rule_id", decision.RuleID, "action", action, "request_id", r.Header.Get("X-Request-Id"))
		api.writeError(w, r, http.StatusConflict, "approval_required")
		return false
	default:
		return true
	}
}

func (api *assignmentsAPI) handleAssign(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.EquipmentID = strings.TrimSpace(req.EquipmentID)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.UsageType = strings.TrimSpace(req.UsageType)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.EquipmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "equipment_id_required")
		return
	}
	if req.EmployeeID == "" {
		api.writeError(w, r, http.StatusBadRequest, "employee_id_required")
		return
	}

	var (
		employeeStatus string
		employeeDNI    string
		employeeArea   sql.NullString
		employeeCargo  sql.NullString
	)
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT status, national_id, department, role_title FROM employees WHERE employee_id = $1`,
		req.EmployeeID,
	).Scan(&employeeStatus, &employeeDNI, &employeeArea, &employeeCargo)
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

	var (
		equipmentSerial string
		equipmentKind   string
		equipmentBrand  sql.NullString
		equipmentStatus string
		equipmentAge    float64
	)
	err = api.db.QueryRowContext(
		r.Context(),
		`SELECT serial, kind, brand, status, age_years FROM equipment WHERE equipment_id = $1`,
		req.EquipmentID,
	).Scan(&equipmentSerial, &equipmentKind, &equipmentBrand, &equipmentStatus, &equipmentAge)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "equipment_not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var activeCount int
	if err := api.db.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*) FROM assignments WHERE employee_id = $1 AND active`,
		req.EmployeeID,
	).Scan(&activeCount); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	if !api.evaluatePolicy(w, r, "assign", identity,
		assignpolicy.EmployeeContext{
			EmployeeID:  req.EmployeeID,
			DNI:         employeeDNI,
			Area:        employeeArea.String,
			Cargo:       employeeCargo.String,
			Status:      employeeStatus,
			ActiveCount: activeCount,
		},
		assignpolicy.EquipmentContext{
			EquipmentID: req.EquipmentID,
			Serial:      equipmentSerial,
			Type:        equipmentKind,
			Brand:       equipmentBrand.String,
			Status:      equipmentStatus,
			AgeYears:    int(equipmentAge),
		},
	) {
		return
	}

	now := time.Now().UTC()
	assignmentID := uuid.NewString()

	tx, err := api.db.BeginTx(r.Context(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(
		r.Context(),
		`SELECT assignment_id FROM assignments WHERE equipment_id = $1 AND active`,
		req.EquipmentID,
	).Scan(&existing)
	if err == nil {
		api.writeError(w, r, http.StatusConflict, "active_assignment_exists")
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO assignments (
			assignment_id, equipment_id, employee_id, assigned_at, usage_type, active, days_in_use, notes, created_at
		) VALUES ($1,$2,$3,$4,$5,TRUE,0,$6,$7)`,
		assignmentID,
		req.EquipmentID,
		req.EmployeeID,
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
		req.EquipmentID,
		now,
	); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "assignment.create",
		ResourceType: "assignment",
		ResourceID:   assignmentID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":       "assignments",
			"assignment_id": assignmentID,
			"equipment_id":  req.EquipmentID,
			"employee_id":   req.EmployeeID,
			"usage_type":    req.UsageType,
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

	w.Header().Set("Location", "/assignments/"+assignmentID)
	api.writeJSON(w, http.StatusCreated, assignment{
		AssignmentID: assignmentID,
		EquipmentID:  req.EquipmentID,
		EmployeeID:   req.EmployeeID,
		Serial:       equipmentSerial,
		AssignedAt:   now,
		UsageType:    req.UsageType,
		Active:       true,
		Notes:        req.Notes,
		CreatedAt:    now,
	})
}

type returnRequest struct {
	Notes string `json:"notes,omitempty"`
}

func (api *assignmentsAPI) handleReturnAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := strings.TrimSpace(r.PathValue("assignment_id"))
	if assignmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "assignment_id_required")
		return
	}

	var req returnRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	api.closeAssignment(w, r, `SELECT assignment_id, equipment_id, employee_id, assigned_at, active, notes
		FROM assignments WHERE assignment_id = $1 FOR UPDATE`, assignmentID, req.Notes)
}

type returnByEquipmentRequest struct {
	EquipmentID string `json:"equipment_id"`
	Notes       string `json:"notes,omitempty"`
}

func (api *assignmentsAPI) handleReturnByEquipment(w http.ResponseWriter, r *http.Request) {
	var req returnByEquipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.EquipmentID = strings.TrimSpace(req.EquipmentID)
	if req.EquipmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "equipment_id_required")
		return
	}

	api.closeAssignment(w, r, `SELECT assignment_id, equipment_id, employee_id, assigned_at, active, notes
		FROM assignments WHERE equipment_id = $1 AND active FOR UPDATE`, req.EquipmentID, req.Notes)
}

// closeAssignment finishes an active assignment and releases the equipment.
// lookupSQL must select (assignment_id, equipment_id, employee_id,
// assigned_at, active, notes) for a single row.
func (api *assignmentsAPI) closeAssignment(w http.ResponseWriter, r *http.Request, lookupSQL string, lookupArg string, extraNotes string) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
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
		assignmentID string
		equipmentID  string
		employeeID   string
		assignedAt   time.Time
		active       bool
		notes        sql.NullString
	)
	err = tx.QueryRowContext(r.Context(), lookupSQL, lookupArg).
		Scan(&assignmentID, &equipmentID, &employeeID, &assignedAt, &active, &notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if !active {
		api.writeError(w, r, http.StatusConflict, "already_returned")
		return
	}

	days := daysBetween(assignedAt, now)
	finalNotes := appendNote(notes.String, extraNotes)

	if _, err := tx.ExecContext(
		r.Context(),
		`UPDATE assignments SET active = FALSE, returned_at = $2, days_in_use = $3, notes = $4 WHERE assignment_id = $1`,
		assignmentID,
		now,
		days,
		nullString(finalNotes),
	); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	if _, err := tx.ExecContext(
		r.Context(),
		`UPDATE equipment SET status = 'available', updated_at = $2 WHERE equipment_id = $1`,
		equipmentID,
		now,
	); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "assignment.return",
		ResourceType: "assignment",
		ResourceID:   assignmentID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":       "assignments",
			"assignment_id": assignmentID,
			"equipment_id":  equipmentID,
			"employee_id":   employeeID,
			"days_in_use":   days,
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

	api.writeJSON(w, http.StatusOK, assignment{
		AssignmentID: assignmentID,
		EquipmentID:  equipmentID,
		EmployeeID:   employeeID,
		AssignedAt:   assignedAt,
		ReturnedAt:   &now,
		Active:       false,
		DaysInUse:    days,
		Notes:        finalNotes,
	})
}

type transferRequest struct {
	EquipmentID  string `json:"equipment_id"`
	ToEmployeeID string `json:"to_employee_id"`
	Notes        string `json:"notes,omitempty"`
}

func (api *assignmentsAPI) handleTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.EquipmentID = strings.TrimSpace(req.EquipmentID)
	req.ToEmployeeID = strings.TrimSpace(req.ToEmployeeID)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.EquipmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "equipment_id_required")
		return
	}
	if req.ToEmployeeID == "" {
		api.writeError(w, r, http.StatusBadRequest, "to_employee_id_required")
		return
	}

	var (
		employeeStatus string
		employeeDNI    string
		employeeArea   sql.NullString
		employeeCargo  sql.NullString
	)
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT status, national_id, department, role_title FROM employees WHERE employee_id = $1`,
		req.ToEmployeeID,
	).Scan(&employeeStatus, &employeeDNI, &employeeArea, &employeeCargo)
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

	var activeCount int
	if err := api.db.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*) FROM assignments WHERE employee_id = $1 AND active`,
		req.ToEmployeeID,
	).Scan(&activeCount); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var (
		equipmentSerial string
		equipmentKind   string
		equipmentBrand  sql.NullString
		equipmentStatus string
		equipmentAge    float64
	)
	err = api.db.QueryRowContext(
		r.Context(),
		`SELECT serial, kind, brand, status, age_years FROM equipment WHERE equipment_id = $1`,
		req.EquipmentID,
	).Scan(&equipmentSerial, &equipmentKind, &equipmentBrand, &equipmentStatus, &equipmentAge)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "equipment_not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	if !api.evaluatePolicy(w, r, "transfer", identity,
		assignpolicy.EmployeeContext{
			EmployeeID:  req.ToEmployeeID,
			DNI:         employeeDNI,
			Area:        employeeArea.String,
			Cargo:       employeeCargo.String,
			Status:      employeeStatus,
			ActiveCount: activeCount,
		},
		assignpolicy.EquipmentContext{
			EquipmentID: req.EquipmentID,
			Serial:      equipmentSerial,
			Type:        equipmentKind,
			Brand:       equipmentBrand.String,
			Status:      equipmentStatus,
			AgeYears:    int(equipmentAge),
		},
	) {
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
		currentAssignmentID string
		currentEmployeeID   string
		currentAssignedAt   time.Time
		currentUsageType    sql.NullString
		currentNotes        sql.NullString
	)
	err = tx.QueryRowContext(
		r.Context(),
		`SELECT assignment_id, employee_id, assigned_at, usage_type, notes
		 FROM assignments WHERE equipment_id = $1 AND active FOR UPDATE`,
		req.EquipmentID,
	).Scan(&currentAssignmentID, &currentEmployeeID, &currentAssignedAt, &currentUsageType, &currentNotes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusConflict, "no_active_assignment")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if currentEmployeeID == req.ToEmployeeID {
		api.writeError(w, r, http.StatusConflict, "already_assigned")
		return
	}

	days := daysBetween(currentAssignedAt, now)
	closedNotes := appendNote(currentNotes.String, "transferred to employee "+req.ToEmployeeID)

	if _, err := tx.ExecContext(
		r.Context(),
		`UPDATE assignments SET active = FALSE, returned_at = $2, days_in_use = $3, notes = $4 WHERE assignment_id = $1`,
		currentAssignmentID,
		now,
		days,
		nullString(closedNotes),
	); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	newAssignmentID := uuid.NewString()
	if _, err := tx.ExecContext(
		r.Context(),
		`INSERT INTO assignments (
			assignment_id, equipment_id, employee_id, assigned_at, usage_type, active, days_in_use, notes, created_at
		) VALUES ($1,$2,$3,$4,$5,TRUE,0,$6,$7)`,
		newAssignmentID,
		req.EquipmentID,
		req.ToEmployeeID,
		now,
		currentUsageType,
		nullString(req.Notes),
		now,
	); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "assignment.transfer",
		ResourceType: "assignment",
		ResourceID:   newAssignmentID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":            "assignments",
			"assignment_id":      newAssignmentID,
			"closed_assignment":  currentAssignmentID,
			"equipment_id":       req.EquipmentID,
			"from_employee_id":   currentEmployeeID,
			"to_employee_id":     req.ToEmployeeID,
			"previous_days_used": days,
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

	w.Header().Set("Location", "/assignments/"+newAssignmentID)
	api.writeJSON(w, http.StatusCreated, assignment{
		AssignmentID: newAssignmentID,
		EquipmentID:  req.EquipmentID,
		EmployeeID:   req.ToEmployeeID,
		Serial:       equipmentSerial,
		AssignedAt:   now,
		UsageType:    currentUsageType.String,
		Active:       true,
		Notes:        req.Notes,
		CreatedAt:    now,
	})
}

const assignmentSelect = `SELECT a.assignment_id, a.equipment_id, a.employee_id, q.serial,
	e.first_name, e.last_name, a.assigned_at, a.returned_at, a.usage_type, a.active, a.days_in_use, a.notes, a.created_at
 FROM assignments a
 JOIN equipment q ON q.equipment_id = a.equipment_id
 JOIN employees e ON e.employee_id = a.employee_id`

func scanAssignment(row rowScanner) (assignment, error) {
	var (
		item       assignment
		firstName  string
		lastName   string
		returnedAt sql.NullTime
		usageType  sql.NullString
		notes      sql.NullString
	)
	err := row.Scan(
		&item.AssignmentID,
		&item.EquipmentID,
		&item.EmployeeID,
		&item.Serial,
		&firstName,
		&lastName,
		&item.AssignedAt,
		&returnedAt,
		&usageType,
		&item.Active,
		&item.DaysInUse,
		&notes,
		&item.CreatedAt,
	)
	if err != nil {
		return assignment{}, err
	}
	item.EmployeeName = strings.TrimSpace(firstName + " " + lastName)
	item.UsageType = usageType.String
	item.Notes = notes.String
	if returnedAt.Valid {
		t := returnedAt.Time
		item.ReturnedAt = &t
	}
	if item.Active {
		item.DaysInUse = daysBetween(item.AssignedAt, time.Now().UTC())
	}
	return item, nil
}

func (api *assignmentsAPI) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	page := clampInt(parseIntQuery(r, "page", 1), 1, 1_000_000)
	limit := clampInt(parseIntQuery(r, "limit", 50), 1, 200)

	where := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if employeeID := strings.TrimSpace(r.URL.Query().Get("employee_id")); employeeID != "" {
		args = append(args, employeeID)
		where = append(where, "a.employee_id = $"+strconv.Itoa(len(args)))
	}
	if equipmentID := strings.TrimSpace(r.URL.Query().Get("equipment_id")); equipmentID != "" {
		args = append(args, equipmentID)
		where = append(where, "a.equipment_id = $"+strconv.Itoa(len(args)))
	}
	if activeRaw := strings.TrimSpace(r.URL.Query().Get("active")); activeRaw != "" {
		active, err := strconv.ParseBool(activeRaw)
		if err != nil {
			api.writeError(w, r, http.StatusBadRequest, "invalid_active")
			return
		}
		args = append(args, active)
		where = append(where, "a.active = $"+strconv.Itoa(len(args)))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := api.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM assignments a`+whereSQL, args...).Scan(&total); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := api.db.QueryContext(
		r.Context(),
		assignmentSelect+whereSQL+`
		 ORDER BY a.assigned_at DESC
		 LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]assignment, 0, limit)
	for rows.Next() {
		item, err := scanAssignment(rows)
		if err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"assignments": out,
		"total":       total,
		"page":        page,
		"pages":       totalPages(total, limit),
	})
}

func (api *assignmentsAPI) handleActiveAssignments(w http.ResponseWriter, r *http.Request) {
	rows, err := api.db.QueryContext(
		r.Context(),
		assignmentSelect+` WHERE a.active ORDER BY a.assigned_at DESC`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]assignment, 0, 32)
	for rows.Next() {
		item, err := scanAssignment(rows)
		if err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"assignments": out})
}

func (api *assignmentsAPI) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := strings.TrimSpace(r.PathValue("assignment_id"))
	if assignmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "assignment_id_required")
		return
	}

	row := api.db.QueryRowContext(r.Context(), assignmentSelect+` WHERE a.assignment_id = $1`, assignmentID)
	item, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, item)
}

func (api *assignmentsAPI) handleAssignmentStats(w http.ResponseWriter, r *http.Request) {
	var (
		total  int64
		active int64
	)
	if err := api.db.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM assignments`,
	).Scan(&total, &active); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	type employeeCount struct {
		EmployeeID   string `json:"employee_id"`
		EmployeeName string `json:"employee_name"`
		Count        int64  `json:"count"`
	}
	topEmployees := make([]employeeCount, 0, 5)
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT a.employee_id, e.first_name, e.last_name, COUNT(*) AS n
		 FROM assignments a
		 JOIN employees e ON e.employee_id = a.employee_id
		 WHERE a.active
		 GROUP BY a.employee_id, e.first_name, e.last_name
		 ORDER BY n DESC
		 LIMIT 5`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	for rows.Next() {
		var (
			entry     employeeCount
			firstName string
			lastName  string
		)
		if err := rows.Scan(&entry.EmployeeID, &firstName, &lastName, &entry.Count); err != nil {
			rows.Close()
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		entry.EmployeeName = strings.TrimSpace(firstName + " " + lastName)
		topEmployees = append(topEmployees, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	rows.Close()

	type equipmentCount struct {
		EquipmentID string `json:"equipment_id"`
		Serial      string `json:"serial"`
		Count       int64  `json:"count"`
	}
	mostReassigned := make([]equipmentCount, 0, 5)
	rows, err = api.db.QueryContext(
		r.Context(),
		`SELECT a.equipment_id, q.serial, COUNT(*) AS n
		 FROM assignments a
		 JOIN equipment q ON q.equipment_id = a.equipment_id
		 GROUP BY a.equipment_id, q.serial
		 HAVING COUNT(*) > 1
		 ORDER BY n DESC
		 LIMIT 5`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	for rows.Next() {
		var entry equipmentCount
		if err := rows.Scan(&entry.EquipmentID, &entry.Serial, &entry.Count); err != nil {
			rows.Close()
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		mostReassigned = append(mostReassigned, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	rows.Close()

	var avgDays sql.NullFloat64
	if err := api.db.QueryRowContext(
		r.Context(),
		`SELECT AVG(days_in_use) FROM assignments WHERE NOT active`,
	).Scan(&avgDays); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"total":           total,
		"active":          active,
		"returned":        total - active,
		"top_employees":   topEmployees,
		"most_reassigned": mostReassigned,
		"avg_days_in_use": math.Round(avgDays.Float64*10) / 10,
	})
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

func (api *assignmentsAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *assignmentsAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
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
