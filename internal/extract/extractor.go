// Package extract turns uploaded document bytes into ordered pages of plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts page text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its pages.
// Returns an error if the file cannot be read or its format cannot be parsed.
func (e *Extractor) Extract(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts pages from content based on the file extension (with leading dot).
// A page is a PDF page, a slide, a spreadsheet sheet, or a section between hard page breaks in
// a word-processing document. Plain text is a single page.
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return extractODP(content)
	case ".ods":
		return extractODS(content)
	default:
		// .txt, .md and unknown extensions are read as plain text.
		return extractPlain(content)
	}
}

// ExtractFilename is ExtractBytes keyed by the extension of filename.
func (e *Extractor) ExtractFilename(filename string, content []byte) ([]string, error) {
	return e.ExtractBytes(content, filepath.Ext(filename))
}
