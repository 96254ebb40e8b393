// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// FIXTURES
// =============================================================================

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeWorkbook(t *testing.T, path string, sheets map[string][][]string, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if name != "Sheet1" {
				require.NoError(t, f.SetSheetName("Sheet1", name))
			}
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cells := make([]interface{}, len(row))
			for c, v := range row {
				cells[c] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &cells))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

const docxXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Commercial Invoice</w:t></w:r></w:p>
<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="right" w:pos="9000"/></w:tabs></w:pPr><w:r><w:t xml:space="preserve">Origin: </w:t></w:r><w:r><w:t>Japan</w:t></w:r></w:p>
<w:p><w:r><w:t>Qty</w:t><w:tab/><w:t>40</w:t></w:r></w:p>
<w:p/>
<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>
</w:body>
</w:document>`

func writeDocx(t *testing.T, path string, parts map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// =============================================================================
// TRUNCATION TESTS
// =============================================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		limit         int
		wantBody      string
		wantTruncated bool
	}{
		{"empty", "", 5, "", false},
		{"below limit", "abc", 5, "abc", false},
		{"at limit", "abcde", 5, "abcde", false},
		{"over limit", "abcdef", 5, "abcde", true},
		{"multibyte at limit", "日本語", 3, "日本語", false},
		{"multibyte over limit", "日本語です", 3, "日本語", true},
		{"mixed", "a€b€c", 4, "a€b€", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, truncated := Truncate(tt.text, tt.limit)
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if truncated != tt.wantTruncated {
				t.Errorf("truncated = %v, want %v", truncated, tt.wantTruncated)
			}
		})
	}
}

func TestTruncate_DefaultBudget(t *testing.T) {
	exact := strings.Repeat("x", MaxChars)
	body, truncated := Truncate(exact, 0)
	if truncated || body != exact {
		t.Errorf("text of exactly %d chars should pass unchanged", MaxChars)
	}

	over := strings.Repeat("y", MaxChars) + "tail"
	body, truncated = Truncate(over, MaxChars)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len([]rune(body)) != MaxChars {
		t.Errorf("body has %d chars, want %d", len([]rune(body)), MaxChars)
	}
	if !strings.HasPrefix(over, body) {
		t.Error("body must be a prefix of the input")
	}
}

// =============================================================================
// PROMPT TESTS
// =============================================================================

func TestBuildPrompt_Deterministic(t *testing.T) {
	a := BuildPrompt("invoice.txt", "Origin: Japan", false)
	b := BuildPrompt("invoice.txt", "Origin: Japan", false)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("BuildPrompt not deterministic (-first +second):\n%s", diff)
	}
}

func TestBuildPrompt_Structure(t *testing.T) {
	out := BuildPrompt("po-1182.csv", "a,b\n1,2", false)

	order := []string{
		RoleLine,
		ChecklistHeader,
		"1. Origin country",
		"7. Dates and PO/invoice numbers",
		SummaryInstruction,
		BeginMarker("po-1182.csv"),
		"a,b\n1,2",
		EndMarker("po-1182.csv"),
	}
	last := -1
	for _, s := range order {
		idx := strings.Index(out, s)
		if idx < 0 {
			t.Fatalf("prompt missing %q", s)
		}
		if idx <= last {
			t.Errorf("%q out of order", s)
		}
		last = idx
	}
	for _, code := range []string{"ECCN", "HTS", "Schedule B"} {
		assert.Contains(t, out, code)
	}
	assert.NotContains(t, out, TruncationNotice)
}

func TestBuildPrompt_TruncationNotice(t *testing.T) {
	out := BuildPrompt("big.txt", "body", true)
	assert.Contains(t, out, TruncationNotice)
	assert.Contains(t, out, "20000 characters")
	assert.True(t, strings.HasSuffix(out, "for this initial pass.]"))

	plain := BuildPrompt("big.txt", "body", false)
	assert.NotContains(t, plain, TruncationNotice)
}

// =============================================================================
// EXTRACTOR TESTS
// =============================================================================

func TestRegistry_Unsupported(t *testing.T) {
	dir := t.TempDir()
	r := DefaultRegistry()

	tests := []struct {
		file string
		want string
	}{
		{"photo.png", "[Unsupported file type: .png]"},
		{"ARCHIVE.ZIP", "[Unsupported file type: .zip]"},
		{"Makefile", "[Unsupported file type: ]"},
		{"legacy.doc", "[Unsupported file type: .doc]"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, "binary")
			got, err := r.Extract(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry_DefaultExtensions(t *testing.T) {
	want := []string{".csv", ".docx", ".json", ".pdf", ".txt", ".xlsm", ".xlsx"}
	if diff := cmp.Diff(want, DefaultRegistry().Extensions()); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_RegisterOverride(t *testing.T) {
	r := DefaultRegistry()
	r.Register("MD", ExtractorFunc(func(path string) (string, error) {
		return "markdown!", nil
	}))

	assert.True(t, r.Supported(".md"))
	got, err := r.Extract("/tmp/README.Md")
	require.NoError(t, err)
	assert.Equal(t, "markdown!", got)
}

func TestExtractText_Permissive(t *testing.T) {
	dir := t.TempDir()

	bom := writeFile(t, dir, "bom.csv", "\xef\xbb\xbfa,b\n1,2")
	got, err := ExtractText(bom)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", got)

	bad := writeFile(t, dir, "bad.txt", "ok \xff\xfe\xfd end")
	got, err = ExtractText(bad)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "ok "))
	assert.True(t, strings.HasSuffix(got, " end"))
	assert.Contains(t, got, "�")
}

func TestExtractWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"Sheet1": {{"A", "B"}, {"1", "2"}},
	}, []string{"Sheet1"})

	got, err := ExtractWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, "A\tB\n1\t2", got)
}

func TestExtractWorkbook_RaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"Sheet1": {{"Model", "Qty", "ECCN"}, {"GPU-X", "", ""}, {"GPU-Y"}},
	}, []string{"Sheet1"})

	got, err := ExtractWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, "Model\tQty\tECCN\nGPU-X\t\t\nGPU-Y\t\t", got)
}

func TestExtractWorkbook_MultipleSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.xlsm")
	writeWorkbook(t, path, map[string][][]string{
		"Items":   {{"Model", "Qty"}, {"GPU-X", "4"}},
		"Parties": {{"Consignee", "", "City"}},
	}, []string{"Items", "Parties"})

	got, err := DefaultRegistry().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Model\tQty\nGPU-X\t4\nConsignee\t\tCity", got)
}

func TestExtractDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letter.docx")
	writeDocx(t, path, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   docxXML,
	})

	got, err := ExtractDOCX(path)
	require.NoError(t, err)
	want := "Commercial Invoice\nOrigin: Japan\nQty\t40\n\nLine one\nLine two"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("docx text mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDOCX_Errors(t *testing.T) {
	dir := t.TempDir()

	noBody := filepath.Join(dir, "empty.docx")
	writeDocx(t, noBody, map[string]string{"[Content_Types].xml": `<Types/>`})
	_, err := ExtractDOCX(noBody)
	assert.True(t, errors.Is(err, ErrNoDocumentPart))

	notZip := writeFile(t, dir, "fake.docx", "this is not a zip archive")
	_, err = ExtractDOCX(notZip)
	assert.Error(t, err)
}

func TestExtractPDF(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		want    string
	}{
		{"pages in order", "two_pages.pdf", "Origin: Japan\nDestination: Germany"},
		{"missing page is empty", "missing_page.pdf", "Origin: Japan\nDestination: Germany\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPDF(filepath.Join("testdata", tt.fixture))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPDF_Malformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", "not a pdf at all")
	res := NewIngester(nil, 0, nil).Ingest(path)
	assert.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.Hidden, "[Error reading file 'broken.pdf'"))
}

// =============================================================================
// INGEST TESTS
// =============================================================================

func TestIngest_TextManifest(t *testing.T) {
	path := writeFile(t, t.TempDir(), "shipment.txt", "Origin: Japan\nDest: USA")

	res := NewIngester(DefaultRegistry(), MaxChars, nil).Ingest(path)

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, "shipment.txt", res.Filename)
	assert.Contains(t, res.Hidden, "Origin: Japan\nDest: USA")
	assert.Contains(t, res.Hidden, ChecklistHeader)
	assert.Contains(t, res.Hidden, BeginMarker("shipment.txt"))
	assert.False(t, res.Truncated)
	assert.Equal(t, 23, res.Chars)
}

func TestIngest_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghost.csv")

	res := NewIngester(nil, 0, nil).Ingest(path)

	assert.False(t, res.OK())
	assert.Equal(t, "ghost.csv", res.Filename)
	assert.True(t, strings.HasPrefix(res.Hidden, "[Error reading file"))
	assert.Contains(t, res.Hidden, "ghost.csv")
	assert.True(t, errors.Is(res.Err, os.ErrNotExist))
}

func TestIngest_Directory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "exports.txt")
	require.NoError(t, os.Mkdir(sub, 0755))

	res := NewIngester(nil, 0, nil).Ingest(sub)
	assert.True(t, errors.Is(res.Err, ErrIsDirectory))
	assert.True(t, strings.HasPrefix(res.Hidden, "[Error reading file 'exports.txt'"))
}

func TestIngest_UnsupportedIsNotAnError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scan.TIFF", "II*")

	res := NewIngester(nil, 0, nil).Ingest(path)

	require.True(t, res.OK())
	assert.Contains(t, res.Hidden, "[Unsupported file type: .tiff]")
	assert.Contains(t, res.Hidden, ChecklistHeader)
}

func TestIngest_Truncates(t *testing.T) {
	path := writeFile(t, t.TempDir(), "long.json", strings.Repeat("z", 50))

	ing := NewIngester(nil, 10, nil)
	res := ing.Ingest(path)

	require.True(t, res.OK())
	assert.True(t, res.Truncated)
	assert.Equal(t, 50, res.Chars)
	assert.Contains(t, res.Hidden, BeginMarker("long.json")+"\n"+strings.Repeat("z", 10)+"\n"+EndMarker("long.json"))
	assert.Contains(t, res.Hidden, "[Note: input truncated to the first 10 characters for this initial pass.]")
}

func TestIngest_ExtractorErrorAndPanic(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	r.Register(".bad", ExtractorFunc(func(string) (string, error) {
		return "", errors.New("corrupt table")
	}))
	r.Register(".boom", ExtractorFunc(func(string) (string, error) {
		panic("index out of range")
	}))
	ing := NewIngester(r, 0, nil)

	res := ing.Ingest(writeFile(t, dir, "x.bad", ""))
	assert.Equal(t, "[Error reading file 'x.bad': corrupt table]", res.Hidden)

	res = ing.Ingest(writeFile(t, dir, "y.boom", ""))
	assert.False(t, res.OK())
	assert.Contains(t, res.Hidden, "extractor panic: index out of range")
}

func TestIngest_Idempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "same.csv", "hs,qty\n8471.30,2")
	ing := NewIngester(nil, 0, nil)
	first := ing.Ingest(path)
	second := ing.Ingest(path)
	assert.Equal(t, first, second)
}

// =============================================================================
// BROWSE ROOT TESTS
// =============================================================================

func TestDefaultRoot(t *testing.T) {
	tests := []struct {
		name string
		dirs []string
		want string
	}{
		{"downloads preferred", []string{"Downloads", "Documents"}, "Downloads"},
		{"documents fallback", []string{"Documents"}, "Documents"},
		{"home fallback", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			for _, d := range tt.dirs {
				require.NoError(t, os.Mkdir(filepath.Join(home, d), 0755))
			}
			assert.Equal(t, filepath.Join(home, tt.want), DefaultRoot(home))
		})
	}
}

func TestDefaultRoot_IgnoresFiles(t *testing.T) {
	home := t.TempDir()
	writeFile(t, home, "Downloads", "not a dir")
	assert.Equal(t, home, DefaultRoot(home))
}

func TestResolveRoot(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.txt", "x")

	got, ok := ResolveRoot(dir + string(filepath.Separator))
	assert.True(t, ok)
	assert.Equal(t, filepath.Clean(dir), got)

	for _, bad := range []string{"", "   ", file, filepath.Join(dir, "missing")} {
		_, ok := ResolveRoot(bad)
		assert.False(t, ok, "candidate %q should be rejected", bad)
	}

	t.Setenv("HOME", dir)
	got, ok = ResolveRoot("~")
	assert.True(t, ok)
	assert.Equal(t, dir, got)
}
