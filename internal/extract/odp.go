package extract

import (
	"fmt"
	"regexp"
)

// odfContentPath is the main content part of OpenDocument packages.
const odfContentPath = "content.xml"

var (
	odfTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)

	odpDrawPage = regexp.MustCompile(`(?s)<draw:page[ >].*?</draw:page>`)
)

// extractODP returns one page per draw:page of an OpenDocument presentation. Documents without
// draw:page elements are returned as a single page.
func extractODP(content []byte) ([]string, error) {
	zr, err := openZip("ODP", content)
	if err != nil {
		return nil, err
	}
	data, err := readZipFile("ODP", zr, odfContentPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("extract ODP: %s not found", odfContentPath)
	}
	return splitODF(string(data), odpDrawPage, odfTextP, odfTextSpan, odfTextH), nil
}

// splitODF extracts text per section matched by section, falling back to the whole document.
func splitODF(xml string, section *regexp.Regexp, text ...*regexp.Regexp) []string {
	parts := section.FindAllString(xml, -1)
	if len(parts) == 0 {
		return []string{joinMatches(xml, text...)}
	}
	pages := make([]string, len(parts))
	for i, p := range parts {
		pages[i] = joinMatches(p, text...)
	}
	return pages
}
