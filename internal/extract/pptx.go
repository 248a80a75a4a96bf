package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pptxSlideName matches slide parts and captures the slide number.
var pptxSlideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// atTag matches <a:t>text</a:t> with any attributes.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPPTX returns one page per slide, ordered by slide number (slide10 after slide9).
func extractPPTX(content []byte) ([]string, error) {
	zr, err := openZip("PPTX", content)
	if err != nil {
		return nil, err
	}
	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		m := pptxSlideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]string, 0, len(slides))
	for _, s := range slides {
		data, err := readZipFile("PPTX", zr, s.name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, strings.TrimSpace(joinMatches(string(data), atTag)))
	}
	return pages, nil
}
