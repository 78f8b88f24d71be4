// Package report builds the inventory report shown by the reporting view and
// renders it as XLSX or CSV for export.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"smartstock/pkg/domain"
)

// Format selects the export encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" or "csv" in any case; empty means XLSX.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatCSV:
		return f, nil
	default:
		return "", domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q (want xlsx or csv)", s)}
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Report is a point-in-time view of stock levels and transaction totals.
type Report struct {
	GeneratedAt  time.Time
	GeneratedBy  string
	Threshold    int
	Items        []domain.Item
	LowStock     []domain.Item
	Summaries    []domain.Summary
	Transactions []domain.Transaction
}

// Build assembles a report. Summaries are expected in display order; low
// stock is derived from items and threshold.
func Build(generatedBy string, at time.Time, threshold int, items []domain.Item, summaries []domain.Summary, txs []domain.Transaction) Report {
	return Report{
		GeneratedAt:  at,
		GeneratedBy:  generatedBy,
		Threshold:    threshold,
		Items:        items,
		LowStock:     domain.LowStock(items, threshold),
		Summaries:    summaries,
		Transactions: txs,
	}
}

// IsLow reports whether item is at or under the report's threshold.
func (r Report) IsLow(item domain.Item) bool {
	return item.Quantity <= r.Threshold
}

// StockValue is the sum of quantity × price across all items.
func (r Report) StockValue() float64 {
	values := make([]float64, 0, len(r.Items))
	for _, it := range r.Items {
		values = append(values, domain.LineAmount(it.Quantity, it.Price))
	}
	return domain.SumAmounts(values...)
}

// SummaryTitle labels a summary the way the reporting view does.
func SummaryTitle(s domain.Summary) string {
	period := "All-Time"
	if s.Period == domain.PeriodToday {
		period = "Today's"
	}
	if s.Kind == domain.KindPurchase {
		return period + " Purchases"
	}
	return period + " Sales"
}

// Render writes r in the requested format.
func Render(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
