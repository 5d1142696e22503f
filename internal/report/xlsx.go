// Package report renders roll-up results and container ledgers as xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/costing-engine/internal/domain/containers"
	"github.com/Spok95/costing-engine/internal/domain/costing"
)

const (
	SheetSummary      = "Summary"
	SheetLines        = "Lines"
	SheetUnresolved   = "Unresolved"
	SheetMeasurements = "Measurements"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteBreakdown writes a workbook with the summary, per-line detail and any
// unresolved lines of b.
func WriteBreakdown(w io.Writer, b costing.CostBreakdown) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetSummary); err != nil {
		return err
	}

	summary := [][]any{
		{"formula_id", b.FormulaID},
		{"formula_version", b.FormulaVersion},
		{"batch_qty", b.BatchQty},
		{"ingredients", b.Ingredients.InexactFloat64()},
		{"packaging", b.Packaging.InexactFloat64()},
		{"materials", b.Materials.InexactFloat64()},
		{"labor", b.Labor.InexactFloat64()},
		{"overhead", b.Overhead.InexactFloat64()},
		{"waste", b.Waste.InexactFloat64()},
		{"total", b.Total.InexactFloat64()},
		{"unit_cost", b.UnitCost.InexactFloat64()},
		{"target_price", b.TargetPrice.InexactFloat64()},
		{"gross_margin_pct", b.GrossMarginPct.InexactFloat64()},
		{"complete", b.Complete()},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return fmt.Errorf("summary: %w", err)
	}

	if _, err := f.NewSheet(SheetLines); err != nil {
		return err
	}
	lines := [][]any{{"line", "component_id", "kind", "base_qty", "adjusted_qty", "cost", "waste_allowance", "degraded"}}
	for _, l := range b.Lines {
		lines = append(lines, []any{l.Index, l.ComponentID, string(l.Kind), l.BaseQty, l.AdjustedQty, l.Cost, l.WasteAllowance, l.Degraded})
	}
	if err := writeRows(f, SheetLines, lines); err != nil {
		return fmt.Errorf("lines: %w", err)
	}

	if len(b.Unresolved) > 0 {
		if _, err := f.NewSheet(SheetUnresolved); err != nil {
			return err
		}
		rows := [][]any{{"line", "component_id", "unit", "base_unit", "requires_density", "reason"}}
		for _, u := range b.Unresolved {
			rows = append(rows, []any{u.Index, u.ComponentID, u.Unit, string(u.BaseUnit), u.RequiresDensity, string(u.Reason)})
		}
		if err := writeRows(f, SheetUnresolved, rows); err != nil {
			return fmt.Errorf("unresolved: %w", err)
		}
	}

	return f.Write(w)
}

// WriteMeasurements writes a container's weight ledger, oldest first.
func WriteMeasurements(w io.Writer, ms []containers.WeightMeasurement) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetMeasurements); err != nil {
		return err
	}
	rows := [][]any{{"id", "container_id", "measured_at", "type", "gross", "tare_used", "net", "measured_by", "notes"}}
	for _, m := range ms {
		rows = append(rows, []any{
			m.ID, m.ContainerID, m.Timestamp.UTC().Format(time.RFC3339),
			string(m.Type), m.Gross, m.TareUsed, m.Net, m.MeasuredBy, m.Notes,
		})
	}
	if err := writeRows(f, SheetMeasurements, rows); err != nil {
		return err
	}
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}
