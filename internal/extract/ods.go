package extract

import (
	"fmt"
	"regexp"
)

var odsTable = regexp.MustCompile(`(?s)<table:table[ >].*?</table:table>`)

// extractODS returns one page per table (sheet) of an OpenDocument spreadsheet.
func extractODS(content []byte) ([]string, error) {
	zr, err := openZip("ODS", content)
	if err != nil {
		return nil, err
	}
	data, err := readZipFile("ODS", zr, odfContentPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("extract ODS: %s not found", odfContentPath)
	}
	return splitODF(string(data), odsTable, odfTextP, odfTextSpan), nil
}
