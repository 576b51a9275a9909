package handlers

import (
	"math"

	"github.com/xuri/excelize/v2"

	"budgetbook/internal/models"
)

const exportSheet = "Budget"

var exportHeaders = []string{"Date", "Name", "Category", "Amount", "Notes"}

// buildWorkbook lays out items newest first under a header row and closes
// with a total row. Amounts that do not parse are written as text.
func buildWorkbook(items []models.BudgetItem, total float64) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, h := range exportHeaders {
		if err := f.SetCellValue(exportSheet, excelCell(i+1, 1), h); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	row := 2
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		values := []interface{}{item.Date, item.Name, item.Category, amountCell(item.Amount.Float64(), string(item.Amount)), item.Notes}
		for col, v := range values {
			if err := f.SetCellValue(exportSheet, excelCell(col+1, row), v); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		row++
	}

	_ = f.SetCellValue(exportSheet, excelCell(3, row), "Total")
	_ = f.SetCellValue(exportSheet, excelCell(4, row), amountCell(total, models.FormatCurrency(total)))

	_ = f.SetColWidth(exportSheet, "A", "A", 22)
	_ = f.SetColWidth(exportSheet, "B", "B", 24)
	_ = f.SetColWidth(exportSheet, "C", "C", 16)
	_ = f.SetColWidth(exportSheet, "D", "D", 12)
	_ = f.SetColWidth(exportSheet, "E", "E", 40)

	return f, nil
}

func amountCell(v float64, text string) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return text
	}
	return v
}

func excelCell(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}
