package payroll

import (
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== BATCH DTOs ==========

type BatchPayrollRequest struct {
	OrganizationID string           `json:"organization_id"`
	PeriodMonth    int              `json:"period_month"`
	PeriodYear     int              `json:"period_year"`
	CourierIDs     []string         `json:"courier_ids,omitempty"` // Empty = all active couriers
	Category       *PayrollCategory `json:"category,omitempty"`    // Overrides the courier profile category
}

func (r *BatchPayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.OrganizationID) {
		errs = append(errs, validator.ValidationError{Field: "organization_id", Message: "must be a valid UUID"})
	}
	errs = append(errs, validatePeriod(r.PeriodMonth, r.PeriodYear)...)
	for _, id := range r.CourierIDs {
		if !validator.IsValidUUID(id) {
			errs = append(errs, validator.ValidationError{Field: "courier_ids", Message: "contains an invalid UUID: " + id})
			break
		}
	}
	if r.Category != nil {
		if _, err := r.Category.Formula(); err != nil {
			errs = append(errs, validator.ValidationError{Field: "category", Message: "is not a known payroll category"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PeriodResponse struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

func NewPeriodResponse(p Period) PeriodResponse {
	return PeriodResponse{
		Month: p.Month,
		Year:  p.Year,
		Start: p.Start.Format(time.DateOnly),
		End:   p.End.Format(time.DateOnly),
		Days:  p.Days(),
	}
}

type CourierOutcome struct {
	CourierID string `json:"courier_id"`
	Outcome   string `json:"outcome"` // "skipped" or "failed"
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

const (
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

type BatchPayrollResponse struct {
	OrganizationID    string                  `json:"organization_id"`
	Period            PeriodResponse          `json:"period"`
	TotalCouriers     int                     `json:"total_couriers"`
	Successful        int                     `json:"successful"`
	Failed            int                     `json:"failed"`
	Skipped           int                     `json:"skipped"`
	SkippedByReason   map[string]int          `json:"skipped_by_reason"`
	SkippedByCategory map[string]int          `json:"skipped_by_category"`
	Results           []PayrollResultResponse `json:"results"`
	Errors            []CourierOutcome        `json:"errors"`
	TotalBasicSalary  decimal.Decimal         `json:"total_basic_salary"`
	TotalBonus        decimal.Decimal         `json:"total_bonus"`
	TotalGasDeserved  decimal.Decimal         `json:"total_gas_deserved"`
	TotalPayroll      decimal.Decimal         `json:"total_payroll"`
}

// ========== SINGLE COURIER DTOs ==========

type CalculateCourierRequest struct {
	OrganizationID string           `json:"organization_id"`
	CourierID      string           `json:"courier_id"`
	PeriodMonth    int              `json:"period_month"`
	PeriodYear     int              `json:"period_year"`
	Category       *PayrollCategory `json:"category,omitempty"`
	Persist        bool             `json:"persist"`
}

func (r *CalculateCourierRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.OrganizationID) {
		errs = append(errs, validator.ValidationError{Field: "organization_id", Message: "must be a valid UUID"})
	}
	if !validator.IsValidUUID(r.CourierID) {
		errs = append(errs, validator.ValidationError{Field: "courier_id", Message: "must be a valid UUID"})
	}
	errs = append(errs, validatePeriod(r.PeriodMonth, r.PeriodYear)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RESULT DTOs ==========

type PayrollResultResponse struct {
	ID                 string             `json:"id,omitempty"`
	CourierID          string             `json:"courier_id"`
	CourierName        *string            `json:"courier_name,omitempty"`
	OrganizationID     string             `json:"organization_id"`
	PeriodMonth        int                `json:"period_month"`
	PeriodYear         int                `json:"period_year"`
	Category           PayrollCategory    `json:"category"`
	BasicSalary        decimal.Decimal    `json:"basic_salary"`
	BonusAmount        decimal.Decimal    `json:"bonus_amount"`
	GasDeserved        decimal.Decimal    `json:"gas_deserved"`
	GasDifference      decimal.Decimal    `json:"gas_difference"`
	TotalSalary        decimal.Decimal    `json:"total_salary"`
	Target             decimal.Decimal    `json:"target"`
	DaysSinceJoining   int                `json:"days_since_joining"`
	CalculationDetails CalculationDetails `json:"calculation_details"`
	GeneratedDate      string             `json:"generated_date"`

	// Previous is the stored result a preview would replace.
	Previous *PayrollResultResponse `json:"previous,omitempty"`
}

func NewPayrollResultResponse(r PayrollCalculationResult) PayrollResultResponse {
	return PayrollResultResponse{
		ID:                 r.ID,
		CourierID:          r.CourierID,
		CourierName:        r.CourierName,
		OrganizationID:     r.OrganizationID,
		PeriodMonth:        r.PeriodMonth,
		PeriodYear:         r.PeriodYear,
		Category:           r.Category,
		BasicSalary:        r.BasicSalary,
		BonusAmount:        r.BonusAmount,
		GasDeserved:        r.GasDeserved,
		GasDifference:      r.GasDifference,
		TotalSalary:        r.TotalSalary,
		Target:             r.Target,
		DaysSinceJoining:   r.DaysSinceJoining,
		CalculationDetails: r.CalculationDetails,
		GeneratedDate:      r.GeneratedDate.Format(time.DateOnly),
	}
}

// ========== PARAMETER DTOs ==========

// ParametersImportRow - One configuration row as read from an import file
type ParametersImportRow struct {
	Category                string           `json:"category"`
	BasicSalaryRate         *decimal.Decimal `json:"basic_salary_rate,omitempty"`
	BonusRate               *decimal.Decimal `json:"bonus_rate,omitempty"`
	PenaltyRate             *decimal.Decimal `json:"penalty_rate,omitempty"`
	GasRate                 *decimal.Decimal `json:"gas_rate,omitempty"`
	GasCap                  *decimal.Decimal `json:"gas_cap,omitempty"`
	DailyOrderDivisor       *decimal.Decimal `json:"daily_order_divisor,omitempty"`
	TierThreshold           *decimal.Decimal `json:"tier_threshold,omitempty"`
	Tier1Rate               *decimal.Decimal `json:"tier_1_rate,omitempty"`
	Tier2Rate               *decimal.Decimal `json:"tier_2_rate,omitempty"`
	RevenueCoefficient      *decimal.Decimal `json:"revenue_coefficient,omitempty"`
	BonusRevenueThreshold   *decimal.Decimal `json:"bonus_revenue_threshold,omitempty"`
	BonusRateBelowThreshold *decimal.Decimal `json:"bonus_rate_below_threshold,omitempty"`
	BonusRateAboveThreshold *decimal.Decimal `json:"bonus_rate_above_threshold,omitempty"`
	FuelRevenueCoefficient  *decimal.Decimal `json:"fuel_revenue_coefficient,omitempty"`
	FuelTargetCoefficient   *decimal.Decimal `json:"fuel_target_coefficient,omitempty"`
}

type ImportParametersRequest struct {
	OrganizationID string                `json:"organization_id"`
	Rows           []ParametersImportRow `json:"rows"`
}

func (r *ImportParametersRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.OrganizationID) {
		errs = append(errs, validator.ValidationError{Field: "organization_id", Message: "must be a valid UUID"})
	}
	if len(r.Rows) == 0 {
		errs = append(errs, validator.ValidationError{Field: "rows", Message: "at least one row is required"})
	}
	seen := make(map[string]bool, len(r.Rows))
	for _, row := range r.Rows {
		if validator.IsEmpty(row.Category) {
			errs = append(errs, validator.ValidationError{Field: "category", Message: "is required"})
			continue
		}
		category, err := ParseCategory(row.Category)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: "category", Message: "unknown category: " + row.Category})
			continue
		}
		if seen[row.Category] {
			errs = append(errs, validator.ValidationError{Field: "category", Message: "duplicate category: " + row.Category})
			continue
		}
		seen[row.Category] = true
		if missing := row.toParameters(r.OrganizationID, category).MissingFields(); len(missing) > 0 && category.IsSupported() {
			for _, f := range missing {
				errs = append(errs, validator.ValidationError{Field: row.Category + "." + f, Message: "is required"})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Parameters converts validated rows into entities.
func (r *ImportParametersRequest) Parameters() []PayrollParameters {
	params := make([]PayrollParameters, 0, len(r.Rows))
	for _, row := range r.Rows {
		params = append(params, row.toParameters(r.OrganizationID, PayrollCategory(row.Category)))
	}
	return params
}

func (row ParametersImportRow) toParameters(organizationID string, category PayrollCategory) PayrollParameters {
	return PayrollParameters{
		OrganizationID:          organizationID,
		Category:                category,
		BasicSalaryRate:         row.BasicSalaryRate,
		BonusRate:               row.BonusRate,
		PenaltyRate:             row.PenaltyRate,
		GasRate:                 row.GasRate,
		GasCap:                  row.GasCap,
		DailyOrderDivisor:       row.DailyOrderDivisor,
		TierThreshold:           row.TierThreshold,
		Tier1Rate:               row.Tier1Rate,
		Tier2Rate:               row.Tier2Rate,
		RevenueCoefficient:      row.RevenueCoefficient,
		BonusRevenueThreshold:   row.BonusRevenueThreshold,
		BonusRateBelowThreshold: row.BonusRateBelowThreshold,
		BonusRateAboveThreshold: row.BonusRateAboveThreshold,
		FuelRevenueCoefficient:  row.FuelRevenueCoefficient,
		FuelTargetCoefficient:   row.FuelTargetCoefficient,
	}
}

// MinPeriodYear mirrors the payroll_results.period_year check constraint.
const MinPeriodYear = 2000

func validatePeriod(month, year int) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if month < 1 || month > 12 {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
	}
	if year < MinPeriodYear {
		errs = append(errs, validator.ValidationError{Field: "period_year", Message: "must be 2000 or later"})
	}
	return errs
}
