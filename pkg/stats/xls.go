package stats

import (
	"fmt"
	"os"
	"strings"

	xlsx "github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/anrid/xls"
)

// ExtractDataFromFile streams the rows of the first sheet of a spreadsheet
// to handler. Row numbers are 1-based. The format is chosen by suffix.
func ExtractDataFromFile(path string, handler func(row int, cols []string) error) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ExtractDataFromXLSX(path, handler)
	}
	return ExtractDataFromXLS(path, handler)
}

func ExtractDataFromXLS(path string, handler func(row int, cols []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return fmt.Errorf("could not read XLS file %s: %w", path, err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return fmt.Errorf("XLS file %s has no sheet", path)
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		var cols []string
		for j := 0; j <= row.LastCol(); j++ {
			cols = append(cols, row.Col(j))
		}
		if err := handler(i+1, cols); err != nil {
			return err
		}
	}
	return nil
}

func ExtractDataFromXLSX(path string, handler func(row int, cols []string) error) error {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return fmt.Errorf("could not read XLSX file %s: %w", path, err)
	}

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("XLSX file %s has no sheet", path)
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("could not get rows of sheet %s: %w", sheets[0], err)
	}

	for i, r := range rows {
		if err := handler(i+1, r); err != nil {
			return err
		}
	}
	return nil
}
