package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxRenderIssues = 3

// RenderError reports templates whose placeholder syntax cannot be rendered.
// It carries at most the first maxRenderIssues underlying problems.
type RenderError struct {
	Details []string
}

func (e *RenderError) Error() string {
	return "render failed: " + strings.Join(e.Details, "; ")
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var limaLocation = loadLima()

func loadLima() *time.Location {
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		return time.FixedZone("America/Lima", -5*3600)
	}
	return loc
}

// longSpanishDate renders t as e.g. "15 de marzo de 2024" in Lima civil time.
func longSpanishDate(t time.Time) string {
	t = t.In(limaLocation)
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

var isoDatePrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// formatValue normalizes a render value to its substitution string. Dates get
// the long Spanish form; strings with an ISO date prefix reformat the date
// the same way, so RFC3339 timestamps render as their calendar day. Values
// whose prefix does not parse (e.g. month 99) pass through unchanged.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if isoDatePrefixPattern.MatchString(x) {
			parsed, err := time.ParseInLocation("2006-01-02", x[:10], limaLocation)
			if err != nil {
				return x
			}
			return longSpanishDate(parsed)
		}
		return x
	case time.Time:
		return longSpanishDate(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xmlEscapeText(&buf, s)
	return buf.String()
}

func xmlEscapeText(w io.Writer, s string) error {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	_, err := replacer.WriteString(w, s)
	return err
}

// renderTemplate substitutes data into every placeholder of the docx buffer
// and returns a new complete archive. Missing keys substitute the empty
// string. Control regions ({{#x}}..{{/x}}) keep their content and drop the
// markers; malformed control syntax fails the render.
func renderTemplate(templateBytes []byte, data map[string]any) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(templateBytes), int64(len(templateBytes)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
	}

	formatted := make(map[string]string, len(data))
	for k, v := range data {
		formatted[k] = formatValue(v)
	}

	var issues []string
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
		}

		if isRenderablePart(f.Name) {
			body = []byte(substitutePlaceholders(string(body), formatted, &issues))
		}

		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", f.Name, err)
		}
		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	if len(issues) > 0 {
		return nil, &RenderError{Details: issues}
	}
	return out.Bytes(), nil
}

// isRenderablePart reports whether the archive entry carries visible document
// text worth substituting.
func isRenderablePart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	return strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")
}

func substitutePlaceholders(body string, data map[string]string, issues *[]string) string {
	var openRegions []string
	result := placeholderPattern.ReplaceAllStringFunc(body, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-2])
		switch {
		case name == "":
			addIssue(issues, "empty placeholder tag")
			return ""
		case strings.ContainsAny(name, "<>"):
			addIssue(issues, fmt.Sprintf("placeholder broken by document markup: %q", truncateIssue(name)))
			return token
		case strings.HasPrefix(name, "#"):
			openRegions = append(openRegions, strings.TrimSpace(name[1:]))
			return ""
		case strings.HasPrefix(name, "/"):
			closing := strings.TrimSpace(name[1:])
			if len(openRegions) == 0 {
				addIssue(issues, fmt.Sprintf("unmatched closing tag {{/%s}}", closing))
				return ""
			}
			open := openRegions[len(openRegions)-1]
			openRegions = openRegions[:len(openRegions)-1]
			if open != closing {
				addIssue(issues, fmt.Sprintf("mismatched region tags {{#%s}}..{{/%s}}", open, closing))
			}
			return ""
		default:
			return escapeXML(data[name])
		}
	})
	for _, open := range openRegions {
		addIssue(issues, fmt.Sprintf("unclosed region tag {{#%s}}", open))
	}
	return result
}

func addIssue(issues *[]string, detail string) {
	if len(*issues) >= maxRenderIssues {
		return
	}
	*issues = append(*issues, detail)
}

func truncateIssue(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
