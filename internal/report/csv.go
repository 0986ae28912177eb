package report

import (
	"encoding/csv"
	"io"
)

// RenderCSV writes one record per line, each prefixed by its section name.
// KPIs come first as section,key,value triples.
func RenderCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)

	records := [][]string{
		{"section", "key", "value"},
		{"header", "business_name", doc.Header.BusinessName},
		{"header", "period", doc.Header.Period},
		{"header", "generated_at", doc.Header.GeneratedAt.Format("2006-01-02 15:04:05")},
	}
	for _, kpi := range doc.KPIs {
		records = append(records, []string{"kpi", kpi.Label, kpi.Value.Text})
	}
	for _, table := range doc.Tables {
		records = append(records, append([]string{table.Title}, table.Columns...))
		for _, row := range table.Rows {
			record := make([]string, 0, len(row)+1)
			record = append(record, table.Title)
			for _, cell := range row {
				record = append(record, cell.Text)
			}
			records = append(records, record)
		}
	}

	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
