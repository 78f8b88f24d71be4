package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"smartstock/pkg/domain"
)

const (
	sheetSummary      = "Summary"
	sheetInventory    = "Inventory"
	sheetTransactions = "Transactions"
	lowStockFill      = "#FFF3CD"
)

// WriteXLSX renders the report as a workbook with Summary, Inventory and
// Transactions sheets. Low stock rows are highlighted.
func WriteXLSX(w io.Writer, r Report) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	for _, name := range []string{sheetInventory, sheetTransactions} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return err
	}
	lowStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{lowStockFill}},
	})
	if err != nil {
		return err
	}

	summary := [][]any{
		{"SmartStock inventory report"},
		{"Generated at", r.GeneratedAt.Format(time.RFC3339)},
		{"Generated by", r.GeneratedBy},
		{"Low stock threshold", r.Threshold},
		{"Stock value", r.StockValue()},
		{"Low stock items", len(r.LowStock)},
		{},
		{"Summary", "Kind", "Period", "Total", "Count"},
	}
	for _, s := range r.Summaries {
		summary = append(summary, []any{SummaryTitle(s), string(s.Kind), string(s.Period), s.Total, s.Count})
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "A8", "E8", header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "B5", "B5", moneyStyle); err != nil {
		return err
	}
	if n := len(r.Summaries); n > 0 {
		if err := f.SetCellStyle(sheetSummary, "D9", fmt.Sprintf("D%d", 8+n), moneyStyle); err != nil {
			return err
		}
	}

	inventory := [][]any{{"ID", "Name", "Quantity", "Price", "Value"}}
	for _, it := range r.Items {
		inventory = append(inventory, []any{it.ID, it.Name, it.Quantity, it.Price, domain.LineAmount(it.Quantity, it.Price)})
	}
	if err := writeRows(f, sheetInventory, inventory); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetInventory, "A1", "E1", header); err != nil {
		return err
	}
	for i, it := range r.Items {
		if !r.IsLow(it) {
			continue
		}
		row := i + 2
		if err := f.SetCellStyle(sheetInventory, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), lowStyle); err != nil {
			return err
		}
	}

	txs := [][]any{{"ID", "Item ID", "Item", "Kind", "Quantity", "Amount", "Occurred at"}}
	for _, t := range r.Transactions {
		txs = append(txs, []any{t.ID, t.ItemID, t.ItemName, string(t.Kind), t.Quantity, t.Amount, t.OccurredAt.Format(time.RFC3339)})
	}
	if err := writeRows(f, sheetTransactions, txs); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetTransactions, "A1", "G1", header); err != nil {
		return err
	}

	for sheet, widths := range map[string][]float64{
		sheetSummary:      {24, 24, 12, 14, 8},
		sheetInventory:    {8, 28, 10, 12, 14},
		sheetTransactions: {8, 8, 28, 10, 10, 12, 26},
	} {
		for i, width := range widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(sheet, col, col, width); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
