package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultPart     = "word/document.xml"
	contentTypesPart    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// paragraphRe matches <w:p> and <w:p attr="..."> bodies but not <w:pPr>.
	paragraphRe = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>(.*?)</w:p>`)
	runTextRe   = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

	// The main part's Override may list PartName and ContentType in either order.
	mainPartRe = []*regexp.Regexp{
		regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`),
		regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`),
	}
)

// extractDOCX returns one line per non-empty paragraph of the main document part. Runs
// inside a paragraph are concatenated as Word renders them and XML entities are decoded.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	part := docxDefaultPart
	if types, err := readZipEntry(zr, contentTypesPart); err == nil {
		if p := mainPart(string(types)); p != "" {
			part = p
		}
	}
	body, err := readZipEntry(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var lines []string
	for _, p := range paragraphRe.FindAllStringSubmatch(string(body), -1) {
		var b strings.Builder
		for _, r := range runTextRe.FindAllStringSubmatch(p[1], -1) {
			b.WriteString(html.UnescapeString(r[1]))
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// mainPart returns the main document part named in [Content_Types].xml, without the
// leading slash, or "" when none is declared.
func mainPart(types string) string {
	for _, re := range mainPartRe {
		if m := re.FindStringSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
