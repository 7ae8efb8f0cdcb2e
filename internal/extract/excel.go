package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel renders each sheet as a "Sheet: name" heading followed by one line per
// non-empty row, cells joined with " | ". Sheets are separated by a blank line.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var b strings.Builder
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell = strings.TrimSpace(cell); cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) == 0 {
				continue
			}
			b.WriteByte('\n')
			b.WriteString(strings.Join(cells, " | "))
		}
		if b.Len() > 0 {
			sheets = append(sheets, "Sheet: "+sheet+b.String())
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}
