package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/activos-labs/activos-go/internal/platform/auditlog"
	"github.com/activos-labs/activos-go/internal/platform/auth"
	"github.com/activos-labs/activos-go/internal/platform/objectstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type actasAPI struct {
	logger         *slog.Logger
	db             *sql.DB
	store          *minio.Client
	storeCfg       objectstore.Config
	uploadMaxBytes int64
}

func newActasAPI(logger *slog.Logger, db *sql.DB, store *minio.Client, storeCfg objectstore.Config) *actasAPI {
	return &actasAPI{
		logger:         logger,
		db:             db,
		store:          store,
		storeCfg:       storeCfg,
		uploadMaxBytes: 20 << 20, // 20 MiB
	}
}

func (api *actasAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /templates", api.handleListTemplates)
	mux.HandleFunc("POST /templates", api.handleUploadTemplate)
	mux.HandleFunc("GET /templates/stats", api.handleTemplateStats)
	mux.HandleFunc("GET /templates/{template_id}", api.handleGetTemplate)
	mux.HandleFunc("PUT /templates/{template_id}", api.handleUpdateTemplate)
	mux.HandleFunc("DELETE /templates/{template_id}", api.handleDeleteTemplate)

	mux.HandleFunc("GET /actas", api.handleListGenerated)
	mux.HandleFunc("POST /actas/generate", api.handleGenerate)
	mux.HandleFunc("GET /actas/{acta_id}", api.handleGetGenerated)
	mux.HandleFunc("GET /actas/{acta_id}/download", api.handleDownloadGenerated)
}

type templateRecord struct {
	TemplateID   string            `json:"template_id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	ObjectKey    string            `json:"object_key"`
	Bucket       string            `json:"bucket"`
	Fields       []templateField   `json:"fields"`
	FieldMapping map[string]string `json:"field_mapping"`
	Status       string            `json:"status"`
	TimesUsed    int64             `json:"times_used"`
	LastUsedAt   *time.Time        `json:"last_used_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	CreatedBy    string            `json:"created_by"`
}

const templateColumns = `template_id, title, description, object_key, bucket,
	fields, field_mapping, status, times_used, last_used_at, created_at, created_by`

func (api *actasAPI) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, api.uploadMaxBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
		return
	}

	var (
		title       string
		description string
		overrides   map[string]string
		filename    string
		fileBytes   []byte
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
			return
		}
		switch part.FormName() {
		case "title":
			raw, err := io.ReadAll(io.LimitReader(part, 4096))
			_ = part.Close()
			if err != nil {
				api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
				return
			}
			title = strings.TrimSpace(string(raw))
		case "description":
			raw, err := io.ReadAll(io.LimitReader(part, 16384))
			_ = part.Close()
			if err != nil {
				api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
				return
			}
			description = strings.TrimSpace(string(raw))
		case "mapping":
			raw, err := io.ReadAll(io.LimitReader(part, 1<<20))
			_ = part.Close()
			if err != nil {
				api.writeError(w, r, http.StatusBadRequest, "invalid_mapping")
				return
			}
			if len(bytes.TrimSpace(raw)) == 0 {
				continue
			}
			if err := json.Unmarshal(raw, &overrides); err != nil {
				api.writeError(w, r, http.StatusBadRequest, "invalid_mapping")
				return
			}
		case "file":
			if fileBytes != nil {
				_ = part.Close()
				api.writeError(w, r, http.StatusBadRequest, "multiple_files_not_supported")
				return
			}
			filename = sanitizeFilename(part.FileName())
			raw, err := io.ReadAll(io.LimitReader(part, api.uploadMaxBytes+1))
			_ = part.Close()
			if err != nil {
				api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
				return
			}
			if int64(len(raw)) > api.uploadMaxBytes {
				api.writeError(w, r, http.StatusRequestEntityTooLarge, "file_too_large")
				return
			}
			fileBytes = raw
		default:
			_ = part.Close()
		}
	}

	if title == "" {
		api.writeError(w, r, http.StatusBadRequest, "title_required")
		return
	}
	if fileBytes == nil {
		api.writeError(w, r, http.StatusBadRequest, "file_required")
		return
	}
	if !strings.EqualFold(path.Ext(filename), ".docx") {
		api.writeError(w, r, http.StatusBadRequest, "invalid_file_type")
		return
	}

	fields, err := extractFields(fileBytes)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_document")
		return
	}
	mapping := autoMapFields(fields, overrides)

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	now := time.Now().UTC()
	templateID := uuid.NewString()
	objectKey := fmt.Sprintf("%s/%s", templateID, filename)

	uploadCtx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	_, putErr := api.store.PutObject(
		uploadCtx,
		api.storeCfg.BucketTemplates,
		objectKey,
		bytes.NewReader(fileBytes),
		int64(len(fileBytes)),
		minio.PutObjectOptions{ContentType: docxContentType},
	)
	cancel()
	if putErr != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketTemplates, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO templates (
			template_id,
			title,
			description,
			object_key,
			bucket,
			fields,
			field_mapping,
			status,
			times_used,
			created_at,
			created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,'active',0,$8,$9)`,
		templateID,
		title,
		nullString(description),
		objectKey,
		api.storeCfg.BucketTemplates,
		fieldsJSON,
		mappingJSON,
		now,
		identity.Subject,
	)
	if err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketTemplates, objectKey)
		if isUniqueViolation(err) {
			api.writeError(w, r, http.StatusConflict, "template_title_exists")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "template.create",
		ResourceType: "template",
		ResourceID:   templateID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":     "actas",
			"template_id": templateID,
			"title":       title,
			"object_key":  objectKey,
			"field_count": len(fields),
			"filename":    filename,
		},
	})
	if err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketTemplates, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	if err := tx.Commit(); err != nil {
		api.removeObject(r.Context(), api.storeCfg.BucketTemplates, objectKey)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Location", "/templates/"+templateID)
	api.writeJSON(w, http.StatusCreated, templateRecord{
		TemplateID:   templateID,
		Title:        title,
		Description:  description,
		ObjectKey:    objectKey,
		Bucket:       api.storeCfg.BucketTemplates,
		Fields:       fields,
		FieldMapping: mapping,
		Status:       "active",
		CreatedAt:    now,
		CreatedBy:    identity.Subject,
	})
}

func (api *actasAPI) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	page := clampInt(parseIntQuery(r, "page", 1), 1, 1_000_000)
	limit := clampInt(parseIntQuery(r, "limit", 50), 1, 200)

	where := make([]string, 0, 1)
	args := make([]any, 0, 3)
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := api.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM templates`+whereSQL, args...).Scan(&total); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT `+templateColumns+`
		 FROM templates`+whereSQL+`
		 ORDER BY created_at DESC
		 LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]templateRecord, 0, limit)
	for rows.Next() {
		item, err := scanTemplate(rows)
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
		"templates": out,
		"total":     total,
		"page":      page,
		"pages":     totalPages(total, limit),
	})
}

func (api *actasAPI) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := strings.TrimSpace(r.PathValue("template_id"))
	if templateID == "" {
		api.writeError(w, r, http.StatusBadRequest, "template_id_required")
		return
	}

	item, err := api.loadTemplate(r.Context(), templateID)
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

type templateUpdateRequest struct {
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Status       string            `json:"status,omitempty"`
	FieldMapping map[string]string `json:"field_mapping,omitempty"`
}

func (api *actasAPI) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := strings.TrimSpace(r.PathValue("template_id"))
	if templateID == "" {
		api.writeError(w, r, http.StatusBadRequest, "template_id_required")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req templateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = "active"
	}
	if req.Title == "" {
		api.writeError(w, r, http.StatusBadRequest, "title_required")
		return
	}
	if req.Status != "active" && req.Status != "inactive" {
		api.writeError(w, r, http.StatusBadRequest, "invalid_status")
		return
	}

	current, err := api.loadTemplate(r.Context(), templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	mapping := current.FieldMapping
	if req.FieldMapping != nil {
		mapping = req.FieldMapping
	}
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_mapping")
		return
	}

	now := time.Now().UTC()
	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		r.Context(),
		`UPDATE templates
		 SET title = $1, description = $2, status = $3, field_mapping = $4
		 WHERE template_id = $5`,
		req.Title,
		nullString(req.Description),
		req.Status,
		mappingJSON,
		templateID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			api.writeError(w, r, http.StatusConflict, "template_title_exists")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "template.update",
		ResourceType: "template",
		ResourceID:   templateID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":     "actas",
			"template_id": templateID,
			"title":       req.Title,
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

	current.Title = req.Title
	current.Description = strings.TrimSpace(req.Description)
	current.Status = req.Status
	current.FieldMapping = mapping
	api.writeJSON(w, http.StatusOK, current)
}

func (api *actasAPI) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := strings.TrimSpace(r.PathValue("template_id"))
	if templateID == "" {
		api.writeError(w, r, http.StatusBadRequest, "template_id_required")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	item, err := api.loadTemplate(r.Context(), templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var generated int
	if err := api.db.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*) FROM generated_actas WHERE template_id = $1`,
		templateID,
	).Scan(&generated); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if generated > 0 {
		api.writeError(w, r, http.StatusConflict, "template_in_use")
		return
	}

	now := time.Now().UTC()
	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(r.Context(), `DELETE FROM templates WHERE template_id = $1`, templateID); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        identity.Subject,
		Action:       "template.delete",
		ResourceType: "template",
		ResourceID:   templateID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":     "actas",
			"template_id": templateID,
			"title":       item.Title,
			"object_key":  item.ObjectKey,
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

	// The row is gone either way; a leaked object is cleanup work, not an
	// error the caller can act on.
	api.removeObject(r.Context(), item.Bucket, item.ObjectKey)

	w.WriteHeader(http.StatusNoContent)
}

func (api *actasAPI) handleTemplateStats(w http.ResponseWriter, r *http.Request) {
	var total, active int
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'active') FROM templates`,
	).Scan(&total, &active)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var totalGenerated int
	if err := api.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM generated_actas`).Scan(&totalGenerated); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	type usedTemplate struct {
		TemplateID string     `json:"template_id"`
		Title      string     `json:"title"`
		TimesUsed  int64      `json:"times_used"`
		LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	}
	mostUsed := make([]usedTemplate, 0, 5)
	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT template_id, title, times_used, last_used_at
		 FROM templates
		 WHERE times_used > 0
		 ORDER BY times_used DESC, title ASC
		 LIMIT 5`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	for rows.Next() {
		var (
			item     usedTemplate
			lastUsed sql.NullTime
		)
		if err := rows.Scan(&item.TemplateID, &item.Title, &item.TimesUsed, &lastUsed); err != nil {
			rows.Close()
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		if lastUsed.Valid {
			item.LastUsedAt = &lastUsed.Time
		}
		mostUsed = append(mostUsed, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	rows.Close()

	type monthCount struct {
		Month string `json:"month"`
		Count int64  `json:"count"`
	}
	perMonth := make([]monthCount, 0, 12)
	rows, err = api.db.QueryContext(
		r.Context(),
		`SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*)
		 FROM generated_actas
		 WHERE created_at >= date_trunc('month', now()) - interval '11 months'
		 GROUP BY 1
		 ORDER BY 1`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var item monthCount
		if err := rows.Scan(&item.Month, &item.Count); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		perMonth = append(perMonth, item)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"total":               total,
		"active":              active,
		"total_generated":     totalGenerated,
		"most_used":           mostUsed,
		"generated_per_month": perMonth,
	})
}

func (api *actasAPI) loadTemplate(ctx context.Context, templateID string) (templateRecord, error) {
	row := api.db.QueryRowContext(
		ctx,
		`SELECT `+templateColumns+` FROM templates WHERE template_id = $1`,
		templateID,
	)
	return scanTemplate(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (templateRecord, error) {
	var (
		item        templateRecord
		description sql.NullString
		fieldsRaw   []byte
		mappingRaw  []byte
		lastUsed    sql.NullTime
	)
	err := row.Scan(
		&item.TemplateID,
		&item.Title,
		&description,
		&item.ObjectKey,
		&item.Bucket,
		&fieldsRaw,
		&mappingRaw,
		&item.Status,
		&item.TimesUsed,
		&lastUsed,
		&item.CreatedAt,
		&item.CreatedBy,
	)
	if err != nil {
		return templateRecord{}, err
	}
	item.Description = description.String
	if lastUsed.Valid {
		item.LastUsedAt = &lastUsed.Time
	}
	item.Fields = []templateField{}
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &item.Fields); err != nil {
			return templateRecord{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	item.FieldMapping = map[string]string{}
	if len(mappingRaw) > 0 {
		if err := json.Unmarshal(mappingRaw, &item.FieldMapping); err != nil {
			return templateRecord{}, fmt.Errorf("decode field mapping: %w", err)
		}
	}
	return item, nil
}

func (api *actasAPI) removeObject(ctx context.Context, bucket, objectKey string) {
	removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := api.store.RemoveObject(removeCtx, bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		api.logger.Warn("object removal failed", "bucket", bucket, "object_key", objectKey, "error", err)
	}
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

func (api *actasAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *actasAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
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

func sanitizeFilename(name string) string {
	base := path.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == "/" {
		return "template.docx"
	}
	return base
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

func totalPages(total int, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
