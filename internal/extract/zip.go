package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// openZip opens an OOXML or OpenDocument package held in memory.
func openZip(kind string, content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	return zr, nil
}

// readZipFile returns the bytes of the named entry, or nil with no error if it is absent.
func readZipFile(kind string, zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract %s: open %s: %w", kind, f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("extract %s: read %s: %w", kind, f.Name, err)
		}
		_ = rc.Close()
		return buf.Bytes(), nil
	}
	return nil, nil
}

// joinMatches joins the first capture group of every match of each pattern, in pattern order.
func joinMatches(s string, patterns ...*regexp.Regexp) string {
	var b strings.Builder
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			t := strings.TrimSpace(m[1])
			if t == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
	}
	return b.String()
}
