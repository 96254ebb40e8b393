// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExtractWorkbook flattens every sheet of an .xlsx/.xlsm workbook.
// Cells are joined with tabs and rows with newlines; sheets follow each
// other in workbook order separated by a newline. Rows are padded to the
// widest row of their sheet so empty cells render as empty strings.
func ExtractWorkbook(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", name, err)
		}
		width := 0
		for _, row := range rows {
			width = max(width, len(row))
		}
		lines := make([]string, len(rows))
		for i, row := range rows {
			for len(row) < width {
				row = append(row, "")
			}
			lines[i] = strings.Join(row, "\t")
		}
		sheets = append(sheets, strings.Join(lines, "\n"))
	}
	return strings.Join(sheets, "\n"), nil
}
