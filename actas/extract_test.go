package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func makeDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func docWithBody(t *testing.T, body string) []byte {
	t.Helper()
	return makeDocx(t, map[string]string{
		"word/document.xml": "<w:document><w:body>" + body + "</w:body></w:document>",
		"word/styles.xml":   "<w:styles/>",
	})
}

func TestExtractFields(t *testing.T) {
	buf := docWithBody(t, `<w:p><w:t>Entrega a {{usuario_nombre}} ({{usuario_dni}})</w:t></w:p>
		<w:p><w:t>Equipo {{equipo_marca}} comprado {{fecha_compra}}, usos {{cantidad_usos}}</w:t></w:p>
		<w:p><w:t>Titulo {{titulo}} repetido {{usuario_nombre}}</w:t></w:p>`)

	fields, err := extractFields(buf)
	if err != nil {
		t.Fatalf("extractFields() err=%v", err)
	}

	want := []templateField{
		{Name: "usuario_nombre", Type: "texto", Category: "usuario"},
		{Name: "usuario_dni", Type: "texto", Category: "usuario"},
		{Name: "equipo_marca", Type: "texto", Category: "equipo"},
		{Name: "fecha_compra", Type: "fecha", Category: "general"},
		{Name: "cantidad_usos", Type: "numero", Category: "general"},
		{Name: "titulo", Type: "texto", Category: "general"},
	}
	if len(fields) != len(want) {
		t.Fatalf("len(fields)=%d, want %d (%+v)", len(fields), len(want), fields)
	}
	for i, w := range want {
		if fields[i] != w {
			t.Fatalf("fields[%d]=%+v, want %+v", i, fields[i], w)
		}
	}

	// Extraction reads the buffer without consuming it; a second pass must
	// yield the same ordered result.
	again, err := extractFields(buf)
	if err != nil {
		t.Fatalf("extractFields() second pass err=%v", err)
	}
	if len(again) != len(fields) {
		t.Fatalf("second pass len=%d, want %d", len(again), len(fields))
	}
	for i := range fields {
		if again[i] != fields[i] {
			t.Fatalf("second pass fields[%d]=%+v, want %+v", i, again[i], fields[i])
		}
	}
}

func TestExtractFieldsNoPlaceholders(t *testing.T) {
	buf := docWithBody(t, `<w:p><w:t>Sin marcadores aqui</w:t></w:p>`)
	fields, err := extractFields(buf)
	if err != nil {
		t.Fatalf("extractFields() err=%v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("len(fields)=%d, want 0", len(fields))
	}
}

func TestExtractFieldsBadArchive(t *testing.T) {
	_, err := extractFields([]byte("not a zip"))
	if !errors.Is(err, ErrDocumentRead) {
		t.Fatalf("err=%v, want ErrDocumentRead", err)
	}
}

func TestExtractFieldsMissingDocumentPart(t *testing.T) {
	buf := makeDocx(t, map[string]string{"word/styles.xml": "<w:styles/>"})
	_, err := extractFields(buf)
	if !errors.Is(err, ErrDocumentRead) {
		t.Fatalf("err=%v, want ErrDocumentRead", err)
	}
}

func TestInferFieldType(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{name: "fecha_compra", want: "fecha"},
		{name: "FECHA_ACTUAL", want: "fecha"},
		{name: "cantidad_usos", want: "numero"},
		{name: "numero_serie", want: "numero"},
		{name: "equipo_antiguedad", want: "numero"},
		{name: "titulo", want: "texto"},
	}
	for _, tc := range cases {
		if got := inferFieldType(tc.name); got != tc.want {
			t.Fatalf("inferFieldType(%q)=%q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestInferFieldCategory(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{name: "usuario_cargo", want: "usuario"},
		{name: "nombre_completo", want: "usuario"},
		{name: "correo_personal", want: "usuario"},
		{name: "equipo_serie", want: "equipo"},
		{name: "procesador", want: "equipo"},
		{name: "hostname", want: "equipo"},
		{name: "sede", want: "general"},
	}
	for _, tc := range cases {
		if got := inferFieldCategory(tc.name); got != tc.want {
			t.Fatalf("inferFieldCategory(%q)=%q, want %q", tc.name, got, tc.want)
		}
	}
}
