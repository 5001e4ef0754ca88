package ocr

import (
	"fmt"
	"strings"

	"hotelpricing/internal/documents"
)

// SheetText renders worksheet cells as pipe separated lines, skipping
// empty rows.
func SheetText(s documents.Sheet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", s.Name)

	for _, row := range s.Rows {
		cells := make([]string, 0, len(row))
		empty := true
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell != "" {
				empty = false
			}
			cells = append(cells, cell)
		}
		if empty {
			continue
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}

func sheetByName(sheets []documents.Sheet, name string) (documents.Sheet, bool) {
	for _, s := range sheets {
		if s.Name == name {
			return s, true
		}
	}
	return documents.Sheet{}, false
}
