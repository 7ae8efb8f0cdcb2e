package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	content := []byte("Hello world\nLine 2")
	got, err := e.ExtractBytes(content, ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainUTF8(t *testing.T) {
	e := NewExtractor()
	content := []byte("caf\xc3\xa9") // valid UTF-8
	got, err := e.ExtractBytes(content, ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	content := []byte("hello\x80world") // invalid UTF-8
	got, err := e.ExtractBytes(content, ".rst")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello\uFFFDworld" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got, err := e.ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Sheet: Sheet1\nTitle\nValue 1 | Value 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_plainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	got, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_excelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Searchable text")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	e := NewExtractor()
	got, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Sheet: Sheet1\nSearchable text" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainBOM(t *testing.T) {
	got, err := NewExtractor().ExtractBytes([]byte("\xef\xbb\xbfheading"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "heading" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_tooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := NewExtractor(WithMaxBytes(32)).Extract(path)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if got, err := NewExtractor(WithMaxBytes(64)).Extract(path); err != nil || len(got) != 64 {
		t.Errorf("at the limit: got %d chars, err %v", len(got), err)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract("/nonexistent/path/file.txt")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtractBytes_unknownExtension(t *testing.T) {
	e := NewExtractor()
	content := []byte("raw content")
	got, err := e.ExtractBytes(content, ".xyz")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	// Unknown extension falls back to plain
	if got != "raw content" {
		t.Errorf("got %q", got)
	}
}

// minimalDocx returns a minimal .docx zip bytes with word/document.xml containing the given text in <w:t> tags.
func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

// minimalDocxWithContentTypes returns a .docx zip with [Content_Types].xml pointing to a custom document path.
func minimalDocxWithContentTypes(text, docPath string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	// Create [Content_Types].xml pointing to custom document path
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/` + docPath + `" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	// Create the document at the custom path
	fw, _ := w.Create(docPath)
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	e := NewExtractor()
	content := minimalDocx("Searchable docx content")
	got, err := e.ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Searchable docx content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxWithDocument2(t *testing.T) {
	e := NewExtractor()
	// Simulate a DOCX with word/document2.xml instead of word/document.xml
	content := minimalDocxWithContentTypes("Content from document2", "word/document2.xml")
	got, err := e.ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Content from document2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxContentTypesReversedOrder(t *testing.T) {
	e := NewExtractor()
	// Test with ContentType attribute before PartName
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document3.xml"/>
</Types>`))
	fw, _ := w.Create("word/document3.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Reversed order test</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()

	got, err := e.ExtractBytes(buf.Bytes(), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Reversed order test" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxParagraphs(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body>` +
		`<w:p w:rsidR="00AB"><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:t>Reset</w:t></w:r><w:r><w:t xml:space="preserve"> the rou</w:t></w:r><w:r><w:t>ter</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:p><w:r><w:t>Hold &amp; release</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	_ = w.Close()

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if want := "Reset the router\nHold & release"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxMissingBody(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("word/styles.xml")
	_ = w.Close()

	if _, err := NewExtractor().ExtractBytes(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error for a package without a document part")
	}
}

func TestExtractBytes_html(t *testing.T) {
	page := `<html><head><title>ignored</title><style>p{color:red}</style></head>
<body><h1>Wi-Fi setup</h1><p>Open <b>Settings</b> first.</p><script>alert(1)</script><ul><li>Tap Network</li><li>Choose SSID</li></ul></body></html>`
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte(page), ".html")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Wi-Fi setup\nOpen Settings first.\nTap Network\nChoose SSID"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtract_htmFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.htm")
	if err := os.WriteFile(path, []byte("<p>From file</p>"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "From file" {
		t.Errorf("got %q", got)
	}
}
