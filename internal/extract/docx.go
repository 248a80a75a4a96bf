package extract

import (
	"archive/zip"
	"fmt"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wtTag matches <w:t>text</w:t> with any attributes.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// docxPageBreak matches an explicit page break run.
var docxPageBreak = regexp.MustCompile(`<w:br [^>]*w:type="page"[^>]*/>`)

// partNameRe and partNameRe2 find the main document part in either attribute order.
var (
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// findDocxMainDocumentPath returns the main document path declared in [Content_Types].xml
// without its leading slash, or "" if none is declared.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile("DOCX", zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

// extractDOCX returns the text of a .docx split at explicit page breaks. All <w:t> nodes are
// read regardless of paragraph attributes.
func extractDOCX(content []byte) ([]string, error) {
	zr, err := openZip("DOCX", content)
	if err != nil {
		return nil, err
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile("DOCX", zr, docPath)
	if err != nil {
		return nil, err
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	sections := docxPageBreak.Split(string(docXML), -1)
	pages := make([]string, len(sections))
	for i, s := range sections {
		pages[i] = joinMatches(s, wtTag)
	}
	return pages, nil
}
