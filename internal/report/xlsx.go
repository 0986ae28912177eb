package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Synthèse"

// RenderXLSX writes a workbook with a summary sheet followed by one sheet per
// table, in document order.
func RenderXLSX(w io.Writer, doc Document) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	euro := `#,##0.00 "€"`
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &euro})
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	summary := [][]Cell{
		{text(doc.Header.BusinessName)},
		{text(doc.Header.Period)},
		{text("Édité le " + doc.Header.GeneratedAt.Format("02/01/2006 15:04"))},
		{},
	}
	for _, kpi := range doc.KPIs {
		summary = append(summary, []Cell{text(kpi.Label), kpi.Value})
	}
	if err := writeSheet(f, summarySheet, nil, summary, bold, moneyStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A1", bold); err != nil {
		return err
	}

	for _, table := range doc.Tables {
		if _, err := f.NewSheet(table.Sheet); err != nil {
			return fmt.Errorf("creating sheet %q: %w", table.Sheet, err)
		}
		if err := writeSheet(f, table.Sheet, table.Columns, table.Rows, bold, moneyStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, columns []string, rows [][]Cell, bold, moneyStyle int) error {
	row := 1
	if len(columns) > 0 {
		header := make([]any, len(columns))
		for i, c := range columns {
			header[i] = c
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
		row++
	}

	for _, cells := range rows {
		values := make([]any, len(cells))
		for i, cell := range cells {
			values[i] = cell.Text
			if cell.Value != nil {
				values[i] = cell.Value
			}
		}
		start, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
		for i, cell := range cells {
			if _, ok := cell.Value.(float64); !ok {
				continue
			}
			name, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, name, name, moneyStyle); err != nil {
				return err
			}
		}
		row++
	}

	return f.SetColWidth(sheet, "A", "A", 34)
}
