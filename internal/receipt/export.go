package receipt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/receipt-insights/internal/scanning"
)

const exportSheet = "Receipts"

var exportHeaders = []string{
	"Date", "Merchant", "Category", "Items", "Subtotal", "Tax", "Total", "Image URL", "Uploaded At",
}

// exportXLSX writes one row per stored receipt
func exportXLSX(receipts []*StoredReceipt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1; rename it rather than adding a second sheet
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}

	// first error wins; later writes are skipped
	var writeErr error
	write := func(col, row int, v any) {
		if writeErr != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			writeErr = err
			return
		}
		writeErr = f.SetCellValue(exportSheet, cell, v)
	}

	for i, h := range exportHeaders {
		write(i+1, 1, h)
	}

	for i, r := range receipts {
		row := i + 2
		write(1, row, r.Date)
		write(2, row, r.Merchant)
		write(3, row, r.Category)
		write(4, row, summarizeItems(r.Items))
		write(5, row, r.Subtotal)
		write(6, row, r.Tax)
		write(7, row, r.Total)
		write(8, row, r.ImageURL)
		write(9, row, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if writeErr != nil {
		return nil, fmt.Errorf("xlsx cells: %w", writeErr)
	}

	widths := []struct {
		from, to string
		width    float64
	}{
		{"A", "C", 18},
		{"D", "D", 60},
		{"E", "G", 12},
		{"H", "H", 60},
		{"I", "I", 20},
	}
	for _, w := range widths {
		if err := f.SetColWidth(exportSheet, w.from, w.to, w.width); err != nil {
			return nil, fmt.Errorf("xlsx column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// summarizeItems renders serialized line items as "Milk x2, Bread".
// Unparseable data is written as-is.
func summarizeItems(serialized string) string {
	var items []scanning.LineItem
	if err := json.Unmarshal([]byte(serialized), &items); err != nil {
		return serialized
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Quantity != nil && *item.Quantity > 1 {
			names = append(names, fmt.Sprintf("%s x%d", item.Name, *item.Quantity))
			continue
		}
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}
