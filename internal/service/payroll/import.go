package payroll

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// parameterColumns maps header names to the row field they fill.
var parameterColumns = map[string]func(row *payroll.ParametersImportRow) **decimal.Decimal{
	"basic_salary_rate":          func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.BasicSalaryRate },
	"bonus_rate":                 func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.BonusRate },
	"penalty_rate":               func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.PenaltyRate },
	"gas_rate":                   func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.GasRate },
	"gas_cap":                    func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.GasCap },
	"daily_order_divisor":        func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.DailyOrderDivisor },
	"tier_threshold":             func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.TierThreshold },
	"tier_1_rate":                func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.Tier1Rate },
	"tier_2_rate":                func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.Tier2Rate },
	"revenue_coefficient":        func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.RevenueCoefficient },
	"bonus_revenue_threshold":    func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.BonusRevenueThreshold },
	"bonus_rate_below_threshold": func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.BonusRateBelowThreshold },
	"bonus_rate_above_threshold": func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.BonusRateAboveThreshold },
	"fuel_revenue_coefficient":   func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.FuelRevenueCoefficient },
	"fuel_target_coefficient":    func(r *payroll.ParametersImportRow) **decimal.Decimal { return &r.FuelTargetCoefficient },
}

// ParseParametersJSON reads a JSON array of parameter rows.
func ParseParametersJSON(r io.Reader) ([]payroll.ParametersImportRow, error) {
	var rows []payroll.ParametersImportRow
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return rows, nil
}

// ParseParametersWorkbook reads the first sheet of an xlsx workbook. Row 1 holds
// column names ("category" plus parameter names); blank cells leave a parameter unset.
func ParseParametersWorkbook(r io.Reader) ([]payroll.ParametersImportRow, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	records, err := xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	header := make([]string, len(records[0]))
	hasCategory := false
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "category" && name != "" {
			if _, ok := parameterColumns[name]; !ok {
				return nil, fmt.Errorf("unknown column %q", name)
			}
		}
		hasCategory = hasCategory || name == "category"
		header[i] = name
	}
	if !hasCategory {
		return nil, fmt.Errorf("missing category column")
	}

	rows := make([]payroll.ParametersImportRow, 0, len(records)-1)
	for ri, record := range records[1:] {
		var row payroll.ParametersImportRow
		blank := true
		for ci, value := range record {
			value = strings.TrimSpace(value)
			if ci >= len(header) || header[ci] == "" || value == "" {
				continue
			}
			blank = false
			if header[ci] == "category" {
				row.Category = value
				continue
			}
			d, err := decimal.NewFromString(value)
			if err != nil {
				cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
				return nil, fmt.Errorf("invalid number %q in %s: %w", value, cell, err)
			}
			*parameterColumns[header[ci]](&row) = &d
		}
		if !blank {
			rows = append(rows, row)
		}
	}

	return rows, nil
}
