package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteCSV renders the report as sections separated by blank lines: header,
// summaries, inventory, then transactions.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"SmartStock inventory report"},
		{"generated_at", r.GeneratedAt.Format(time.RFC3339)},
		{"generated_by", r.GeneratedBy},
		{"low_stock_threshold", strconv.Itoa(r.Threshold)},
		{"stock_value", money(r.StockValue())},
		{},
		{"summary", "kind", "period", "total", "count"},
	}
	for _, s := range r.Summaries {
		rows = append(rows, []string{SummaryTitle(s), string(s.Kind), string(s.Period), money(s.Total), strconv.Itoa(s.Count)})
	}
	rows = append(rows, []string{}, []string{"id", "name", "quantity", "price", "low_stock"})
	for _, it := range r.Items {
		rows = append(rows, []string{
			strconv.FormatInt(it.ID, 10),
			it.Name,
			strconv.Itoa(it.Quantity),
			money(it.Price),
			strconv.FormatBool(r.IsLow(it)),
		})
	}
	rows = append(rows, []string{}, []string{"transaction_id", "item_id", "item_name", "kind", "quantity", "amount", "occurred_at"})
	for _, t := range r.Transactions {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			strconv.FormatInt(t.ItemID, 10),
			t.ItemName,
			string(t.Kind),
			strconv.Itoa(t.Quantity),
			money(t.Amount),
			t.OccurredAt.Format(time.RFC3339),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
