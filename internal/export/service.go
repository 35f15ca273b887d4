package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Linjx520074913/qiaoqiao/internal/entity"
)

// Service produces XLSX bytes from scan results.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportScanXLSX renders one scan result as an XLSX workbook, one row per
// extracted invoice. Failed list entries become rows with the error in the
// notes column so a batch export never silently loses an order.
func (s *Service) ExportScanXLSX(result entity.ScanResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Bills"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Date",
		"Type",
		"Seller",
		"Buyer",
		"Total",
		"Items",
		"Confidence",
		"Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	writeResult := func(pr entity.ParseResult) {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if !pr.Success || pr.Invoice == nil {
			write(8, "解析失败: "+pr.ErrorMessage)
			row++
			return
		}

		inv := pr.Invoice
		write(1, inv.InvoiceDate)
		write(2, inv.InvoiceType)
		write(3, inv.SellerName)
		write(4, inv.BuyerName)
		if inv.TotalAmount != nil {
			write(5, *inv.TotalAmount)
		}
		write(6, itemSummary(inv.Items))
		write(7, pr.Confidence)
		write(8, truncate(inv.Remarks, 140))
		row++
	}

	if result.IsList {
		for _, pr := range result.Orders {
			writeResult(pr)
		}
	} else {
		writeResult(entity.ParseResult{
			Success:    result.Success,
			Invoice:    result.Invoice,
			Confidence: result.Confidence,
		})
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // date
	_ = f.SetColWidth(sheet, "B", "B", 16) // type
	_ = f.SetColWidth(sheet, "C", "D", 28) // parties
	_ = f.SetColWidth(sheet, "E", "E", 12) // total
	_ = f.SetColWidth(sheet, "F", "F", 48) // items
	_ = f.SetColWidth(sheet, "G", "G", 12) // confidence
	_ = f.SetColWidth(sheet, "H", "H", 48) // notes

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// itemSummary flattens line items to "name x qty ¥amount" joined by "; ".
func itemSummary(items []entity.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		var b strings.Builder
		b.WriteString(it.Name)
		if it.Quantity != nil {
			fmt.Fprintf(&b, " x%v", formatNumber(*it.Quantity))
		}
		if it.Amount != nil {
			fmt.Fprintf(&b, " ¥%.2f", *it.Amount)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "; ")
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
