package main

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRenderTemplateRoundTrip(t *testing.T) {
	buf := docWithBody(t, `<w:p><w:t>Hola {{a}}, bienvenido.</w:t></w:p>`)

	out, err := renderTemplate(buf, map[string]any{"a": "X"})
	if err != nil {
		t.Fatalf("renderTemplate() err=%v", err)
	}

	body, err := readArchivePart(out, "word/document.xml")
	if err != nil {
		t.Fatalf("readArchivePart() err=%v", err)
	}
	if !strings.Contains(string(body), "Hola X, bienvenido.") {
		t.Fatalf("document body=%q, want substituted text", body)
	}
	if strings.Contains(string(body), "{{") {
		t.Fatalf("document body still contains placeholders: %q", body)
	}

	styles, err := readArchivePart(out, "word/styles.xml")
	if err != nil {
		t.Fatalf("readArchivePart(styles) err=%v", err)
	}
	if string(styles) != "<w:styles/>" {
		t.Fatalf("styles part modified: %q", styles)
	}
}

func TestRenderTemplateMissingKey(t *testing.T) {
	buf := docWithBody(t, `<w:p><w:t>[{{b}}]</w:t></w:p>`)

	out, err := renderTemplate(buf, map[string]any{})
	if err != nil {
		t.Fatalf("renderTemplate() err=%v", err)
	}
	body, err := readArchivePart(out, "word/document.xml")
	if err != nil {
		t.Fatalf("readArchivePart() err=%v", err)
	}
	if !strings.Contains(string(body), "[]") {
		t.Fatalf("document body=%q, want empty substitution", body)
	}
}

func TestRenderTemplateEscapesValues(t *testing.T) {
	buf := docWithBody(t, `<w:p><w:t>{{v}}</w:t></w:p>`)

	out, err := renderTemplate(buf, map[string]any{"v": `a<b&"c"`})
	if err != nil {
		t.Fatalf("renderTemplate() err=%v", err)
	}
	body, err := readArchivePart(out, "word/document.xml")
	if err != nil {
		t.Fatalf("readArchivePart() err=%v", err)
	}
	if !strings.Contains(string(body), "a&lt;b&amp;&quot;c&quot;") {
		t.Fatalf("document body=%q, want escaped value", body)
	}
}

func TestRenderTemplateRegions(t *testing.T) {
	buf := docWithBody(t, `<w:p><w:t>{{#detalle}}Equipo {{equipo_serie}}{{/detalle}}</w:t></w:p>`)

	out, err := renderTemplate(buf, map[string]any{"equipo_serie": "ABC123"})
	if err != nil {
		t.Fatalf("renderTemplate() err=%v", err)
	}
	body, err := readArchivePart(out, "word/document.xml")
	if err != nil {
		t.Fatalf("readArchivePart() err=%v", err)
	}
	text := string(body)
	if !strings.Contains(text, "Equipo ABC123") {
		t.Fatalf("document body=%q, want region content kept", text)
	}
	if strings.Contains(text, "detalle") {
		t.Fatalf("document body=%q, want region markers dropped", text)
	}
}

func TestRenderTemplateMalformedRegions(t *testing.T) {
	buf := docWithBody(t, `<w:p><w:t>{{/huerfano}} {{#abierto}} {{ }}</w:t></w:p>`)

	_, err := renderTemplate(buf, map[string]any{})
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("err=%v, want RenderError", err)
	}
	if len(renderErr.Details) != 3 {
		t.Fatalf("len(Details)=%d (%v), want 3", len(renderErr.Details), renderErr.Details)
	}
}

func TestRenderTemplateIssueCap(t *testing.T) {
	buf := docWithBody(t, `<w:t>{{/a}} {{/b}} {{/c}} {{/d}} {{/e}}</w:t>`)

	_, err := renderTemplate(buf, map[string]any{})
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("err=%v, want RenderError", err)
	}
	if len(renderErr.Details) != maxRenderIssues {
		t.Fatalf("len(Details)=%d, want %d", len(renderErr.Details), maxRenderIssues)
	}
}

func TestRenderTemplateHeaderFooterParts(t *testing.T) {
	buf := makeDocx(t, map[string]string{
		"word/document.xml":  `<w:t>{{a}}</w:t>`,
		"word/header1.xml":   `<w:t>{{a}}</w:t>`,
		"word/footer2.xml":   `<w:t>{{a}}</w:t>`,
		"word/fontTable.xml": `{{a}}`,
	})

	out, err := renderTemplate(buf, map[string]any{"a": "X"})
	if err != nil {
		t.Fatalf("renderTemplate() err=%v", err)
	}
	for _, part := range []string{"word/document.xml", "word/header1.xml", "word/footer2.xml"} {
		body, err := readArchivePart(out, part)
		if err != nil {
			t.Fatalf("readArchivePart(%s) err=%v", part, err)
		}
		if strings.Contains(string(body), "{{") {
			t.Fatalf("%s not substituted: %q", part, body)
		}
	}
	fontTable, err := readArchivePart(out, "word/fontTable.xml")
	if err != nil {
		t.Fatalf("readArchivePart(fontTable) err=%v", err)
	}
	if string(fontTable) != "{{a}}" {
		t.Fatalf("fontTable modified: %q", fontTable)
	}
}

func TestFormatValue(t *testing.T) {
	date := time.Date(2024, 3, 15, 12, 0, 0, 0, limaLocation)
	cases := []struct {
		in   any
		want string
	}{
		{in: date, want: "15 de marzo de 2024"},
		{in: "2024-03-15", want: "15 de marzo de 2024"},
		{in: "2024-13-99", want: "2024-13-99"},
		{in: "2024-03-15 entrega", want: "15 de marzo de 2024"},
		{in: "2024-03-15T10:00:00Z", want: "15 de marzo de 2024"},
		{in: "2024-99-99T10:00:00Z", want: "2024-99-99T10:00:00Z"},
		{in: "texto normal", want: "texto normal"},
		{in: nil, want: ""},
		{in: 7, want: "7"},
		{in: 3.5, want: "3.5"},
		{in: true, want: "true"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.in); got != tc.want {
			t.Fatalf("formatValue(%v)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLongSpanishDateLimaCivilTime(t *testing.T) {
	// 03:00 UTC is still the previous evening in Lima.
	utc := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)
	if got := longSpanishDate(utc); got != "14 de marzo de 2024" {
		t.Fatalf("longSpanishDate()=%q, want 14 de marzo de 2024", got)
	}
}
