package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrDocumentRead reports a template that is not a readable docx archive.
var ErrDocumentRead = errors.New("document unreadable")

type templateField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

var (
	markupTagPattern   = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)
)

// extractFields scans a docx buffer for {{placeholder}} tokens and classifies
// each unique name. Placeholders split across formatting runs are not
// reassembled; they disappear with the markup they straddle.
func extractFields(buf []byte) ([]templateField, error) {
	body, err := readArchivePart(buf, "word/document.xml")
	if err != nil {
		return nil, err
	}

	text := markupTagPattern.ReplaceAllString(string(body), " ")
	text = whitespacePattern.ReplaceAllString(text, " ")

	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	fields := make([]templateField, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" || strings.ContainsAny(name, "<>") {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, templateField{
			Name:     name,
			Type:     inferFieldType(name),
			Category: inferFieldCategory(name),
		})
	}
	return fields, nil
}

func inferFieldType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "fecha"):
		return "fecha"
	case strings.Contains(lower, "numero"),
		strings.Contains(lower, "cantidad"),
		strings.Contains(lower, "antiguedad"):
		return "numero"
	default:
		return "texto"
	}
}

func inferFieldCategory(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "usuario"),
		strings.Contains(lower, "nombre"),
		strings.Contains(lower, "dni"),
		strings.Contains(lower, "cargo"),
		strings.Contains(lower, "area"),
		strings.Contains(lower, "correo"):
		return "usuario"
	case strings.Contains(lower, "equipo"),
		strings.Contains(lower, "marca"),
		strings.Contains(lower, "modelo"),
		strings.Contains(lower, "serie"),
		strings.Contains(lower, "host"),
		strings.Contains(lower, "procesador"):
		return "equipo"
	default:
		return "general"
	}
}

func readArchivePart(buf []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("%w: missing %s", ErrDocumentRead, name)
}
