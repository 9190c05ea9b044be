package matchlog

import (
	"fmt"
	"io"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX returns the cell values of the named worksheet. When the workbook
// has no such sheet the active sheet is read instead.
func ReadXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if !lo.Contains(f.GetSheetList(), sheet) {
		fallback := f.GetSheetName(f.GetActiveSheetIndex())
		logger.Warn("Worksheet not found, using active sheet", sheet, fallback)
		sheet = fallback
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", sheet, err)
	}
	return rows, nil
}
