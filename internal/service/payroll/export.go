package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultsHeader = []string{
	"courier_id", "courier_name", "category", "days_since_joining", "total_orders", "total_revenue",
	"target", "basic_salary", "bonus_amount", "gas_deserved", "gas_usage", "gas_difference", "total_salary",
}

// ExportPeriod renders the persisted results of a period as an xlsx workbook.
func (s *PayrollServiceImpl) ExportPeriod(ctx context.Context, organizationID string, month, year int) ([]byte, error) {
	period, err := payroll.NewPeriod(month, year)
	if err != nil {
		return nil, err
	}

	results, err := s.payrollRepo.ListResults(ctx, organizationID, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll results: %w", err)
	}
	summary, err := s.payrollRepo.GetPeriodSummary(ctx, organizationID, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to get payroll summary: %w", err)
	}

	return buildWorkbook(period, results, summary)
}

func buildWorkbook(period payroll.Period, results []payroll.PayrollCalculationResult, summary payroll.PeriodSummary) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	header := resultsHeader
	if err := xl.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range results {
		name := ""
		if r.CourierName != nil {
			name = *r.CourierName
		}
		record := []any{
			r.CourierID,
			name,
			string(r.Category),
			r.DaysSinceJoining,
			r.CalculationDetails.TotalOrders,
			r.CalculationDetails.TotalRevenue.InexactFloat64(),
			r.Target.InexactFloat64(),
			r.BasicSalary.InexactFloat64(),
			r.BonusAmount.InexactFloat64(),
			r.GasDeserved.InexactFloat64(),
			r.CalculationDetails.GasUsage.InexactFloat64(),
			r.GasDifference.InexactFloat64(),
			r.TotalSalary.InexactFloat64(),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(resultsSheet, cellRef, &record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := xl.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	rows := [][]any{
		{"organization_id", summary.OrganizationID},
		{"period", period.String()},
		{"period_start", period.Start.Format("2006-01-02")},
		{"period_end", period.End.Format("2006-01-02")},
		{"total_couriers", summary.TotalCouriers},
		{"total_basic_salary", summary.TotalBasicSalary.InexactFloat64()},
		{"total_bonus", summary.TotalBonus.InexactFloat64()},
		{"total_gas_deserved", summary.TotalGasDeserved.InexactFloat64()},
		{"total_payroll", summary.TotalPayroll.InexactFloat64()},
	}
	for i, row := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow(summarySheet, cellRef, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
