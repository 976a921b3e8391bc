package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/retailops/ims-analytics/internal/engine"
	"github.com/retailops/ims-analytics/internal/models"
)

// Sheet names in the generated management workbook.
const (
	SheetPricing    = "Pricing & Margin"
	SheetDailySales = "Daily Sales"
	SheetEfficiency = "Product Efficiency"
)

// Builder renders the downloadable management report: one xlsx workbook
// with pricing suggestions, the daily sales series and the product
// efficiency table.
type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Filename returns the suggested download name for a report built now.
func Filename(now time.Time) string {
	return fmt.Sprintf("management_report_%s.xlsx", now.Format("20060102"))
}

// Build renders the workbook for one snapshot and returns the xlsx bytes.
func (b *Builder) Build(snap *models.Snapshot) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPricing); err != nil {
		return nil, fmt.Errorf("rename pricing sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetDailySales); err != nil {
		return nil, fmt.Errorf("create daily sales sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetEfficiency); err != nil {
		return nil, fmt.Errorf("create efficiency sheet: %w", err)
	}

	pricing := engine.SuggestPrices(snap.Efficiency, engine.ProductQuantities(snap.Clustered))
	if err := b.writePricing(f, pricing); err != nil {
		return nil, err
	}
	if err := b.writeDailySales(f, engine.AggregateDaily(snap.Orders)); err != nil {
		return nil, err
	}
	if err := b.writeEfficiency(f, snap.Efficiency); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	b.logger.Info("management report built",
		zap.String("snapshot_version", snap.Version),
		zap.Int("products", len(pricing.Suggestions)),
		zap.Int("bytes", buf.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return buf.Bytes(), nil
}

func (b *Builder) writePricing(f *excelize.File, pricing *engine.PricingReport) error {
	header := []interface{}{
		"Product Code", "Product Name", "Supply Cost", "Quantity Sold",
		"Revenue", "Margin Amount", "Margin Rate %", "CTR %",
		"Action", "Suggested Price", "Reason",
	}
	if err := setRow(f, SheetPricing, 1, header); err != nil {
		return err
	}
	for i, s := range pricing.Suggestions {
		row := []interface{}{
			s.ProductCode, s.ProductName, s.SupplyCost, s.Quantity,
			s.Revenue, s.MarginAmount, s.MarginRatePct, s.CTRPct,
			string(s.Action), s.SuggestedPrice, s.Reason,
		}
		if err := setRow(f, SheetPricing, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) writeDailySales(f *excelize.File, daily []engine.DailyPoint) error {
	if err := setRow(f, SheetDailySales, 1, []interface{}{"Date", "Orders", "Revenue"}); err != nil {
		return err
	}
	for i, p := range daily {
		row := []interface{}{p.Date.Format("2006-01-02"), p.Orders, p.Revenue}
		if err := setRow(f, SheetDailySales, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) writeEfficiency(f *excelize.File, eff []models.ProductEfficiency) error {
	header := []interface{}{
		"Product Code", "Product Name", "CTR %", "Revenue per Click",
		"Revenue per View", "Views", "Revenue", "Supply Cost",
	}
	if err := setRow(f, SheetEfficiency, 1, header); err != nil {
		return err
	}
	for i, p := range eff {
		row := []interface{}{
			p.ProductCode, p.ProductName, p.CTRPct, p.RPC,
			p.RPV, p.ViewCount, p.Revenue, p.SupplyCost,
		}
		if err := setRow(f, SheetEfficiency, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d coordinates: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
