package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/activos-labs/activos-go/internal/platform/auditlog"
	"github.com/activos-labs/activos-go/internal/platform/auth"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

type generateRequest struct {
	TemplateID   string         `json:"template_id"`
	EmployeeID   string         `json:"employee_id"`
	EquipmentID  string         `json:"equipment_id,omitempty"`
	AssignmentID string         `json:"assignment_id,omitempty"`
	Requester    *requesterBody `json:"requester,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	Notes        string         `json:"notes,omitempty"`
}

type requesterBody struct {
	Name       string `json:"name"`
	RoleTitle  string `json:"role_title,omitempty"`
	NationalID string `json:"national_id,omitempty"`
}

type generatedActa struct {
	ActaID        string          `json:"acta_id"`
	TemplateID    string          `json:"template_id"`
	TemplateTitle string          `json:"template_title,omitempty"`
	EmployeeID    string          `json:"employee_id"`
	EmployeeName  string          `json:"employee_name,omitempty"`
	EquipmentID   string          `json:"equipment_id,omitempty"`
	AssignmentID  string          `json:"assignment_id,omitempty"`
	ObjectKey     string          `json:"object_key"`
	Filename      string          `json:"filename"`
	RenderData    json.RawMessage `json:"render_data,omitempty"`
	GeneratedBy   string          `json:"generated_by"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (api *actasAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.EquipmentID = strings.TrimSpace(req.EquipmentID)
	req.AssignmentID = strings.TrimSpace(req.AssignmentID)
	if req.TemplateID == "" {
		api.writeError(w, r, http.StatusBadRequest, "template_id_required")
		return
	}
	if req.EmployeeID == "" {
		api.writeError(w, r, http.StatusBadRequest, "employee_id_required")
		return
	}

	tmpl, err := api.loadTemplate(r.Context(), req.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "template_not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if tmpl.Status != "active" {
		api.writeError(w, r, http.StatusConflict, "template_inactive")
		return
	}

	emp, err := api.loadEmployee(r.Context(), req.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "employee_not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var equipment *equipmentRecord
	if req.EquipmentID != "" {
		eq, err := api.loadEquipment(r.Context(), req.EquipmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.writeError(w, r, http.StatusNotFound, "equipment_not_found")
				return
			}
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		equipment = &eq
	}

	if req.AssignmentID != "" {
		var exists string
		err := api.db.QueryRowContext(
			r.Context(),
			`SELECT assignment_id FROM assignments WHERE assignment_id = $1`,
			req.AssignmentID,
		).Scan(&exists)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.writeError(w, r, http.StatusNotFound, "assignment_not_found")
				return
			}
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
	}

	templateBytes, err := api.fetchObject(r.Context(), tmpl.Bucket, tmpl.ObjectKey)
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}

	var requester *requesterRecord
	if req.Requester != nil {
		requester = &requesterRecord{
			Name:       strings.TrimSpace(req.Requester.Name),
			RoleTitle:  strings.TrimSpace(req.Requester.RoleTitle),
			NationalID: strings.TrimSpace(req.Requester.NationalID),
		}
	}

	data := buildTemplateData(emp, equipment, requester)
	applyFieldMapping(data, tmpl.FieldMapping)
	for k, v := range req.Data {
		data[k] = v
	}

	rendered, err := renderTemplate(templateBytes, data)
	if err != nil {
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			api.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":      "render_failed",
				"details":    renderErr.Details,
				"request_id": r.Header.Get("X-Request-Id"),
			})
			return
		}
		if errors.Is(err, ErrDocumentRead) {
			api.writeError(w, r, http.StatusConflict, "invalid_document")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	renderData := make(map[string]string, len(data))
	for k, v := range data {
		renderData[k] = formatValue(v)
	}
	renderJSON, err := json.Marshal(renderData)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	now := time.Now().UTC()
	actaID := uuid.NewString()
	filename := fmt.Sprintf("%s-%s-%d.docx", filenameTitle(tmpl.Title), emp.NationalID, now.UnixMilli())
	objectKey := fmt.Sprintf("%s/%s", actaID, filename)

	uploadCtx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	_, putErr := api.store.PutObject(
		uploadCtx,
		api.storeCfg.BucketGenerated,
		objectKey,
		bytes.NewReader(rendered),
		int64(len(rendered)),
		minio.PutObjectOptions{ContentType: docxContentType},
	)
	cancel()
	if putErr != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketGenerated, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO generated_actas (
			acta_id,
			template_id,
			employee_id,
			equipment_id,
			assignment_id,
			object_key,
			filename,
			render_data,
			generated_by,
			notes,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		actaID,
		req.TemplateID,
		req.EmployeeID,
		nullString(req.EquipmentID),
		nullString(req.AssignmentID),
		objectKey,
		filename,
		renderJSON,
		identity.Subject,
		nullString(req.Notes),
		now,
	)
	if err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketGenerated, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = tx.ExecContext(
		r.Context(),
		`UPDATE templates SET times_used = times_used + 1, last_used_at = $1 WHERE template_id = $2`,
		now,
		req.TemplateID,
	)
	if err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketGenerated, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "acta.generate",
		ResourceType: "acta",
		ResourceID:   actaID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":       "actas",
			"acta_id":       actaID,
			"template_id":   req.TemplateID,
			"employee_id":   req.EmployeeID,
			"equipment_id":  req.EquipmentID,
			"assignment_id": req.AssignmentID,
			"filename":      filename,
			"object_key":    objectKey,
		},
	})
	if err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketGenerated, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	if err := tx.Commit(); err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketGenerated, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Location", "/actas/"+actaID)
	api.writeJSON(w, http.StatusCreated, generatedActa{
		ActaID:        actaID,
		TemplateID:    req.TemplateID,
		TemplateTitle: tmpl.Title,
		EmployeeID:    req.EmployeeID,
		EmployeeName:  fullName(emp.FirstName, emp.LastName),
		EquipmentID:   req.EquipmentID,
		AssignmentID:  req.AssignmentID,
		ObjectKey:     objectKey,
		Filename:      filename,
		RenderData:    renderJSON,
		GeneratedBy:   identity.Subject,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
	})
}

const generatedActaSelect = `SELECT g.acta_id, g.template_id, t.title, g.employee_id,
	e.first_name, e.last_name, g.equipment_id, g.assignment_id,
	g.object_key, g.filename, g.generated_by, g.notes, g.created_at
 FROM generated_actas g
 JOIN templates t ON t.template_id = g.template_id
 JOIN employees e ON e.employee_id = g.employee_id`

func (api *actasAPI) handleListGenerated(w http.ResponseWriter, r *http.Request) {
	page := clampInt(parseIntQuery(r, "page", 1), 1, 1_000_000)
	limit := clampInt(parseIntQuery(r, "limit", 50), 1, 200)

	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if templateID := strings.TrimSpace(r.URL.Query().Get("template_id")); templateID != "" {
		args = append(args, templateID)
		where = append(where, fmt.Sprintf("g.template_id = $%d", len(args)))
	}
	if employeeID := strings.TrimSpace(r.URL.Query().Get("employee_id")); employeeID != "" {
		args = append(args, employeeID)
		where = append(where, fmt.Sprintf("g.employee_id = $%d", len(args)))
	}
	if equipmentID := strings.TrimSpace(r.URL.Query().Get("equipment_id")); equipmentID != "" {
		args = append(args, equipmentID)
		where = append(where, fmt.Sprintf("g.equipment_id = $%d", len(args)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := api.db.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*) FROM generated_actas g`+whereSQL,
		args...,
	).Scan(&total); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := api.db.QueryContext(
		r.Context(),
		generatedActaSelect+whereSQL+`
		 ORDER BY g.created_at DESC
		 LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]generatedActa, 0, limit)
	for rows.Next() {
		item, err := scanGeneratedActa(rows)
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
		"actas": out,
		"total": total,
		"page":  page,
		"pages": totalPages(total, limit),
	})
}

func (api *actasAPI) handleGetGenerated(w http.ResponseWriter, r *http.Request) {
	actaID := strings.TrimSpace(r.PathValue("acta_id"))
	if actaID == "" {
		api.writeError(w, r, http.StatusBadRequest, "acta_id_required")
		return
	}

	row := api.db.QueryRowContext(r.Context(), generatedActaSelect+` WHERE g.acta_id = $1`, actaID)
	item, err := scanGeneratedActa(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var renderRaw []byte
	if err := api.db.QueryRowContext(
		r.Context(),
		`SELECT render_data FROM generated_actas WHERE acta_id = $1`,
		actaID,
	).Scan(&renderRaw); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if len(renderRaw) > 0 {
		item.RenderData = renderRaw
	}

	api.writeJSON(w, http.StatusOK, item)
}

func (api *actasAPI) handleDownloadGenerated(w http.ResponseWriter, r *http.Request) {
	actaID := strings.TrimSpace(r.PathValue("acta_id"))
	if actaID == "" {
		api.writeError(w, r, http.StatusBadRequest, "acta_id_required")
		return
	}

	var objectKey, filename string
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT object_key, filename FROM generated_actas WHERE acta_id = $1`,
		actaID,
	).Scan(&objectKey, &filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	obj, err := api.store.GetObject(r.Context(), api.storeCfg.BucketGenerated, objectKey, minio.GetObjectOptions{})
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if stat.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stat.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj)
}

func (api *actasAPI) loadEmployee(ctx context.Context, employeeID string) (employeeRecord, error) {
	var (
		item       employeeRecord
		roleTitle  sql.NullString
		department sql.NullString
		email      sql.NullString
		phone      sql.NullString
		initials   sql.NullString
	)
	err := api.db.QueryRowContext(
		ctx,
		`SELECT first_name, last_name, national_id, role_title, department, email, phone, initials
		 FROM employees
		 WHERE employee_id = $1`,
		employeeID,
	).Scan(&item.FirstName, &item.LastName, &item.NationalID, &roleTitle, &department, &email, &phone, &initials)
	if err != nil {
		return employeeRecord{}, err
	}
	item.RoleTitle = roleTitle.String
	item.Department = department.String
	item.Email = email.String
	item.Phone = phone.String
	item.Initials = initials.String
	return item, nil
}

func (api *actasAPI) loadEquipment(ctx context.Context, equipmentID string) (equipmentRecord, error) {
	var (
		item         equipmentRecord
		brand        sql.NullString
		model        sql.NullString
		hostname     sql.NullString
		processor    sql.NullString
		memory       sql.NullString
		storageSpec  sql.NullString
		screen       sql.NullString
		graphicsCard sql.NullString
		purchasedAt  sql.NullTime
	)
	err := api.db.QueryRowContext(
		ctx,
		`SELECT kind, brand, model, serial, hostname, processor, memory, storage_spec, screen, graphics_card, purchased_at, age_years
		 FROM equipment
		 WHERE equipment_id = $1`,
		equipmentID,
	).Scan(&item.Kind, &brand, &model, &item.Serial, &hostname, &processor, &memory, &storageSpec, &screen, &graphicsCard, &purchasedAt, &item.AgeYears)
	if err != nil {
		return equipmentRecord{}, err
	}
	item.Brand = brand.String
	item.Model = model.String
	item.Hostname = hostname.String
	item.Processor = processor.String
	item.Memory = memory.String
	item.StorageSpec = storageSpec.String
	item.Screen = screen.String
	item.GraphicsCard = graphicsCard.String
	if purchasedAt.Valid {
		item.PurchasedAt = &purchasedAt.Time
	}
	return item, nil
}

func (api *actasAPI) fetchObject(ctx context.Context, bucket, objectKey string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj, err := api.store.GetObject(fetchCtx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, objectKey, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, objectKey, err)
	}
	return body, nil
}

func scanGeneratedActa(row rowScanner) (generatedActa, error) {
	var (
		item         generatedActa
		firstName    string
		lastName     string
		equipmentID  sql.NullString
		assignmentID sql.NullString
		notes        sql.NullString
	)
	err := row.Scan(
		&item.ActaID,
		&item.TemplateID,
		&item.TemplateTitle,
		&item.EmployeeID,
		&firstName,
		&lastName,
		&equipmentID,
		&assignmentID,
		&item.ObjectKey,
		&item.Filename,
		&item.GeneratedBy,
		&notes,
		&item.CreatedAt,
	)
	if err != nil {
		return generatedActa{}, err
	}
	item.EmployeeName = fullName(firstName, lastName)
	item.EquipmentID = equipmentID.String
	item.AssignmentID = assignmentID.String
	item.Notes = notes.String
	return item, nil
}

// filenameTitle flattens a template title into something safe inside an
// object key and a Content-Disposition filename.
func filenameTitle(title string) string {
	title = strings.TrimSpace(title)
	title = whitespacePattern.ReplaceAllString(title, "-")
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"':
			return '-'
		}
		return r
	}, title)
	if title == "" {
		return "acta"
	}
	return title
}
