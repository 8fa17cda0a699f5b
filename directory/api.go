package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
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

type directoryAPI struct {
	logger *slog.Logger
	db     *sql.DB
}

func newDirectoryAPI(logger *slog.Logger, db *sql.DB) *directoryAPI {
	return &directoryAPI{logger: logger, db: db}
}

func (api *directoryAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /employees", api.handleListEmployees)
	mux.HandleFunc("POST /employees", api.handleCreateEmployee)
	mux.HandleFunc("GET /employees/search", api.handleSearchEmployees)
	mux.HandleFunc("GET /employees/{employee_id}", api.handleGetEmployee)
	mux.HandleFunc("PUT /employees/{employee_id}", api.handleUpdateEmployee)
	mux.HandleFunc("DELETE /employees/{employee_id}", api.handleDeleteEmployee)
	mux.HandleFunc("GET /employees/{employee_id}/assignments", api.handleEmployeeAssignments)
}

type employee struct {
	EmployeeID string    `json:"employee_id"`
	NationalID string    `json:"national_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	RoleTitle  string    `json:"role_title,omitempty"`
	Department string    `json:"department,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Username   string    `json:"username,omitempty"`
	Initials   string    `json:"initials,omitempty"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type employeeEquipment struct {
	EquipmentID  string    `json:"equipment_id"`
	Kind         string    `json:"kind"`
	Brand        string    `json:"brand,omitempty"`
	Model        string    `json:"model,omitempty"`
	Serial       string    `json:"serial"`
	Hostname     string    `json:"hostname,omitempty"`
	AssignmentID string    `json:"assignment_id"`
	AssignedAt   time.Time `json:"assigned_at"`
	UsageType    string    `json:"usage_type,omitempty"`
}

type employeeAssignment struct {
	AssignmentID string     `json:"assignment_id"`
	EquipmentID  string     `json:"equipment_id"`
	Serial       string     `json:"serial"`
	Brand        string     `json:"brand,omitempty"`
	Model        string     `json:"model,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	UsageType    string     `json:"usage_type,omitempty"`
	Active       bool       `json:"active"`
	DaysInUse    int        `json:"days_in_use"`
	Notes        string     `json:"notes,omitempty"`
}

type employeeRequest struct {
	NationalID string `json:"national_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	RoleTitle  string `json:"role_title,omitempty"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Username   string `json:"username,omitempty"`
	Initials   string `json:"initials,omitempty"`
	Status     string `json:"status,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

func (req *employeeRequest) normalize() {
	req.NationalID = strings.TrimSpace(req.NationalID)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.RoleTitle = strings.TrimSpace(req.RoleTitle)
	req.Department = strings.TrimSpace(req.Department)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Initials = strings.ToUpper(strings.TrimSpace(req.Initials))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Status == "" {
		req.Status = "active"
	}
	if req.Initials == "" {
		req.Initials = deriveInitials(req.FirstName, req.LastName)
	}
}

func (req employeeRequest) validate() string {
	if req.NationalID == "" {
		return "national_id_required"
	}
	if req.FirstName == "" {
		return "first_name_required"
	}
	if req.LastName == "" {
		return "last_name_required"
	}
	if !isEmployeeStatus(req.Status) {
		return "invalid_status"
	}
	return ""
}

func isEmployeeStatus(status string) bool {
	switch status {
	case "active", "inactive", "retired":
		return true
	default:
		return false
	}
}

func deriveInitials(firstName string, lastName string) string {
	var b strings.Builder
	for _, name := range []string{firstName, lastName} {
		for _, word := range strings.Fields(name) {
			runes := []rune(word)
			if len(runes) > 0 {
				b.WriteRune(runes[0])
			}
		}
	}
	return strings.ToUpper(b.String())
}

func (api *directoryAPI) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req employeeRequest
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
	employeeID := uuid.NewString()

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO employees (
			employee_id,
			national_id,
			first_name,
			last_name,
			role_title,
			department,
			email,
			phone,
			username,
			initials,
			status,
			notes,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		employeeID,
		req.NationalID,
		req.FirstName,
		req.LastName,
		nullString(req.RoleTitle),
		nullString(req.Department),
		nullString(req.Email),
		nullString(req.Phone),
		nullString(req.Username),
		nullString(req.Initials),
		req.Status,
		nullString(req.Notes),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			api.writeError(w, r, http.StatusConflict, "employee_exists")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "employee.create",
		ResourceType: "employee",
		ResourceID:   employeeID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":     "directory",
			"employee_id": employeeID,
			"national_id": req.NationalID,
			"first_name":  req.FirstName,
			"last_name":   req.LastName,
			"department":  req.Department,
			"status":      req.Status,
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

	w.Header().Set("Location", "/employees/"+employeeID)
	api.writeJSON(w, http.StatusCreated, employee{
		EmployeeID: employeeID,
		NationalID: req.NationalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		RoleTitle:  req.RoleTitle,
		Department: req.Department,
		Email:      req.Email,
		Phone:      req.Phone,
		Username:   req.Username,
		Initials:   req.Initials,
		Status:     req.Status,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (api *directoryAPI) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	page := clampInt(parseIntQuery(r, "page", 1), 1, 1_000_000)
	limit := clampInt(parseIntQuery(r, "limit", 50), 1, 200)

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))); status != "" {
		args = append(args, status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if department := strings.TrimSpace(r.URL.Query().Get("department")); department != "" {
		args = append(args, department)
		where = append(where, "department = $"+strconv.Itoa(len(args)))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := api.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM employees`+whereSQL, args...).Scan(&total); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT employee_id, national_id, first_name, last_name, role_title, department, email, phone, username, initials, status, notes, created_at, updated_at
		 FROM employees`+whereSQL+`
		 ORDER BY last_name ASC, first_name ASC
		 LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]employee, 0, limit)
	for rows.Next() {
		item, err := scanEmployee(rows)
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
		"employees": out,
		"total":     total,
		"page":      page,
		"pages":     totalPages(total, limit),
	})
}

func (api *directoryAPI) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := strings.TrimSpace(r.PathValue("employee_id"))
	if employeeID == "" {
		api.writeError(w, r, http.StatusBadRequest, "employee_id_required")
		return
	}

	row := api.db.QueryRowContext(
		r.Context(),
		`SELECT employee_id, national_id, first_name, last_name, role_title, department, email, phone, username, initials, status, notes, created_at, updated_at
		 FROM employees
		 WHERE employee_id = $1`,
		employeeID,
	)
	item, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT q.equipment_id, q.kind, q.brand, q.model, q.serial, q.hostname, a.assignment_id, a.assigned_at, a.usage_type
		 FROM assignments a
		 JOIN equipment q ON q.equipment_id = a.equipment_id
		 WHERE a.employee_id = $1 AND a.active
		 ORDER BY a.assigned_at DESC`,
		employeeID,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	active := make([]employeeEquipment, 0, 4)
	for rows.Next() {
		var (
			eq        employeeEquipment
			brand     sql.NullString
			model     sql.NullString
			hostname  sql.NullString
			usageType sql.NullString
		)
		if err := rows.Scan(&eq.EquipmentID, &eq.Kind, &brand, &model, &eq.Serial, &hostname, &eq.AssignmentID, &eq.AssignedAt, &usageType); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		eq.Brand = brand.String
		eq.Model = model.String
		eq.Hostname = hostname.String
		eq.UsageType = usageType.String
		active = append(active, eq)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"employee":         item,
		"active_equipment": active,
	})
}

func (api *directoryAPI) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := strings.TrimSpace(r.PathValue("employee_id"))
	if employeeID == "" {
		api.writeError(w, r, http.StatusBadRequest, "employee_id_required")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req employeeRequest
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

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		r.Context(),
		`UPDATE employees SET
			national_id = $2,
			first_name = $3,
			last_name = $4,
			role_title = $5,
			department = $6,
			email = $7,
			phone = $8,
			username = $9,
			initials = $10,
			status = $11,
			notes = $12,
			updated_at = $13
		 WHERE employee_id = $1`,
		employeeID,
		req.NationalID,
		req.FirstName,
		req.LastName,
		nullString(req.RoleTitle),
		nullString(req.Department),
		nullString(req.Email),
		nullString(req.Phone),
		nullString(req.Username),
		nullString(req.Initials),
		req.Status,
		nullString(req.Notes),
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			api.writeError(w, r, http.StatusConflict, "employee_exists")
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
		Action:       "employee.update",
		ResourceType: "employee",
		ResourceID:   employeeID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":     "directory",
			"employee_id": employeeID,
			"national_id": req.NationalID,
			"status":      req.Status,
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
	if err := api.db.QueryRowContext(r.Context(), `SELECT created_at FROM employees WHERE employee_id = $1`, employeeID).Scan(&createdAt); err != nil {
		createdAt = now
	}

	api.writeJSON(w, http.StatusOK, employee{
		EmployeeID: employeeID,
		NationalID: req.NationalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		RoleTitle:  req.RoleTitle,
		Department: req.Department,
		Email:      req.Email,
		Phone:      req.Phone,
		Username:   req.Username,
		Initials:   req.Initials,
		Status:     req.Status,
		Notes:      req.Notes,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	})
}

func (api *directoryAPI) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := strings.TrimSpace(r.PathValue("employee_id"))
	if employeeID == "" {
		api.writeError(w, r, http.StatusBadRequest, "employee_id_required")
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
		`SELECT COUNT(*) FROM assignments WHERE employee_id = $1 AND active`,
		employeeID,
	).Scan(&activeCount); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if activeCount > 0 {
		api.writeError(w, r, http.StatusConflict, "active_assignment_exists")
		return
	}

	res, err := tx.ExecContext(r.Context(), `DELETE FROM employees WHERE employee_id = $1`, employeeID)
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
		Action:       "employee.delete",
		ResourceType: "employee",
		ResourceID:   employeeID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":     "directory",
			"employee_id": employeeID,
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

	api.writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "employee_id": employeeID})
}

func (api *directoryAPI) handleSearchEmployees(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		api.writeError(w, r, http.StatusBadRequest, "query_required")
		return
	}

	pattern := "%" + query + "%"
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT employee_id, national_id, first_name, last_name, role_title, department, email, phone, username, initials, status, notes, created_at, updated_at
		 FROM employees
		 WHERE first_name ILIKE $1
		    OR last_name ILIKE $1
		    OR national_id ILIKE $1
		    OR email ILIKE $1
		    OR username ILIKE $1
		    OR department ILIKE $1
		 ORDER BY last_name ASC, first_name ASC
		 LIMIT 20`,
		pattern,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]employee, 0, 20)
	for rows.Next() {
		item, err := scanEmployee(rows)
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

	api.writeJSON(w, http.StatusOK, map[string]any{"employees": out})
}

func (api *directoryAPI) handleEmployeeAssignments(w http.ResponseWriter, r *http.Request) {
	employeeID := strings.TrimSpace(r.PathValue("employee_id"))
	if employeeID == "" {
		api.writeError(w, r, http.StatusBadRequest, "employee_id_required")
		return
	}

	var exists string
	if err := api.db.QueryRowContext(r.Context(), `SELECT employee_id FROM employees WHERE employee_id = $1`, employeeID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT a.assignment_id, a.equipment_id, q.serial, q.brand, q.model, a.assigned_at, a.returned_at, a.usage_type, a.active, a.days_in_use, a.notes
		 FROM assignments a
		 JOIN equipment q ON q.equipment_id = a.equipment_id
		 WHERE a.employee_id = $1
		 ORDER BY a.assigned_at DESC`,
		employeeID,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]employeeAssignment, 0, 16)
	for rows.Next() {
		var (
			item       employeeAssignment
			brand      sql.NullString
			model      sql.NullString
			returnedAt sql.NullTime
			usageType  sql.NullString
			notes      sql.NullString
		)
		if err := rows.Scan(&item.AssignmentID, &item.EquipmentID, &item.Serial, &brand, &model, &item.AssignedAt, &returnedAt, &usageType, &item.Active, &item.DaysInUse, &notes); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		item.Brand = brand.String
		item.Model = model.String
		item.UsageType = usageType.String
		item.Notes = notes.String
		if returnedAt.Valid {
			t := returnedAt.Time
			item.ReturnedAt = &t
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"assignments": out})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (employee, error) {
	var (
		item       employee
		roleTitle  sql.NullString
		department sql.NullString
		email      sql.NullString
		phone      sql.NullString
		username   sql.NullString
		initials   sql.NullString
		notes      sql.NullString
	)
	err := row.Scan(
		&item.EmployeeID,
		&item.NationalID,
		&item.FirstName,
		&item.LastName,
		&roleTitle,
		&department,
		&email,
		&phone,
		&username,
		&initials,
		&item.Status,
		&notes,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return employee{}, err
	}
	item.RoleTitle = roleTitle.String
	item.Department = department.String
	item.Email = email.String
	item.Phone = phone.String
	item.Username = username.String
	item.Initials = initials.String
	item.Notes = notes.String
	return item, nil
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

func (api *directoryAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *directoryAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
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
