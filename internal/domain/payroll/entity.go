package payroll

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PayrollParameters - Per (category, organization) formula coefficients.
// Optional fields are nil when the category's formula does not use them.
type PayrollParameters struct {
	ID             string
	OrganizationID string
	Category       PayrollCategory

	BasicSalaryRate   *decimal.Decimal
	BonusRate         *decimal.Decimal
	PenaltyRate       *decimal.Decimal
	GasRate           *decimal.Decimal
	GasCap            *decimal.Decimal
	DailyOrderDivisor *decimal.Decimal

	// Food In-House Old
	TierThreshold *decimal.Decimal
	Tier1Rate     *decimal.Decimal
	Tier2Rate     *decimal.Decimal

	// Ecommerce
	RevenueCoefficient      *decimal.Decimal
	BonusRevenueThreshold   *decimal.Decimal
	BonusRateBelowThreshold *decimal.Decimal
	BonusRateAboveThreshold *decimal.Decimal
	FuelRevenueCoefficient  *decimal.Decimal
	FuelTargetCoefficient   *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Courier - Courier profile as seen by payroll
type Courier struct {
	ID             string
	OrganizationID string
	FullName       string
	Category       PayrollCategory
	JoiningDate    *time.Time
	IsActive       bool
}

// CourierPayrollInput - Performance snapshot of one courier for one period, from the warehouse
type CourierPayrollInput struct {
	CourierID   string
	TotalOrders int64
	// May be negative after warehouse reconciliation.
	TotalRevenue decimal.Decimal
	GasUsage     decimal.Decimal
	Target       decimal.Decimal // daily orders target
	JoiningDate  *time.Time
}

// PayrollCalculationResult - One computed salary, unique per (courier, month, year, organization)
type PayrollCalculationResult struct {
	ID                 string
	CourierID          string
	OrganizationID     string
	PeriodMonth        int
	PeriodYear         int
	Category           PayrollCategory
	BasicSalary        decimal.Decimal
	BonusAmount        decimal.Decimal // negative when it is a penalty
	GasDeserved        decimal.Decimal
	GasDifference      decimal.Decimal
	TotalSalary        decimal.Decimal
	Target             decimal.Decimal
	DaysSinceJoining   int
	CalculationDetails CalculationDetails
	GeneratedDate      time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Joined fields
	CourierName *string
}

// CalculationDetails - Breakdown persisted next to a result so a payslip can be explained later
type CalculationDetails struct {
	Formula     FormulaKind `json:"formula"`
	PeriodStart string      `json:"period_start"`
	PeriodEnd   string      `json:"period_end"`
	PeriodDays  int         `json:"period_days"`
	TotalOrders int64       `json:"total_orders"`

	TotalRevenue decimal.Decimal `json:"total_revenue"`
	GasUsage     decimal.Decimal `json:"gas_usage"`

	// flat-rate
	OrdersPerDay   *decimal.Decimal `json:"orders_per_day,omitempty"`
	RequiredOrders *decimal.Decimal `json:"required_orders,omitempty"`
	OrderGap       *decimal.Decimal `json:"order_gap,omitempty"`
	AppliedRate    *decimal.Decimal `json:"applied_rate,omitempty"`
	IsPenalty      bool             `json:"is_penalty,omitempty"`

	// tiered
	Tier1Units *decimal.Decimal `json:"tier_1_units,omitempty"`
	Tier2Units *decimal.Decimal `json:"tier_2_units,omitempty"`

	// revenue-coefficient
	RevenueBelowThreshold *decimal.Decimal `json:"revenue_below_threshold,omitempty"`
	RevenueAboveThreshold *decimal.Decimal `json:"revenue_above_threshold,omitempty"`
	GasByRevenue          *decimal.Decimal `json:"gas_by_revenue,omitempty"`
	GasByTarget           *decimal.Decimal `json:"gas_by_target,omitempty"`

	GasUncapped decimal.Decimal `json:"gas_uncapped"`
	GasCapped   bool            `json:"gas_capped"`
}

// PeriodSummary - Aggregate over persisted results of a period
type PeriodSummary struct {
	OrganizationID   string          `json:"organization_id"`
	PeriodMonth      int             `json:"period_month"`
	PeriodYear       int             `json:"period_year"`
	TotalCouriers    int             `json:"total_couriers"`
	TotalBasicSalary decimal.Decimal `json:"total_basic_salary"`
	TotalBonus       decimal.Decimal `json:"total_bonus"`
	TotalGasDeserved decimal.Decimal `json:"total_gas_deserved"`
	TotalPayroll     decimal.Decimal `json:"total_payroll"`
}

// MissingFields lists the parameters the category's formula needs but p does not carry.
// A non-positive daily_order_divisor counts as missing.
func (p PayrollParameters) MissingFields() []string {
	kind, err := p.Category.Formula()
	if err != nil {
		return nil
	}

	var required map[string]*decimal.Decimal
	switch kind {
	case FormulaFlatRate:
		required = map[string]*decimal.Decimal{
			"basic_salary_rate":   p.BasicSalaryRate,
			"bonus_rate":          p.BonusRate,
			"penalty_rate":        p.PenaltyRate,
			"gas_rate":            p.GasRate,
			"gas_cap":             p.GasCap,
			"daily_order_divisor": p.DailyOrderDivisor,
		}
	case FormulaTiered:
		required = map[string]*decimal.Decimal{
			"basic_salary_rate": p.BasicSalaryRate,
			"tier_threshold":    p.TierThreshold,
			"tier_1_rate":       p.Tier1Rate,
			"tier_2_rate":       p.Tier2Rate,
			"gas_rate":          p.GasRate,
			"gas_cap":           p.GasCap,
		}
	case FormulaRevenue:
		required = map[string]*decimal.Decimal{
			"revenue_coefficient":        p.RevenueCoefficient,
			"bonus_revenue_threshold":    p.BonusRevenueThreshold,
			"bonus_rate_below_threshold": p.BonusRateBelowThreshold,
			"bonus_rate_above_threshold": p.BonusRateAboveThreshold,
			"fuel_revenue_coefficient":   p.FuelRevenueCoefficient,
			"fuel_target_coefficient":    p.FuelTargetCoefficient,
			"gas_cap":                    p.GasCap,
		}
	default:
		return nil
	}

	var missing []string
	for name, v := range required {
		if v == nil {
			missing = append(missing, name)
		}
	}
	if kind == FormulaFlatRate && p.DailyOrderDivisor != nil && !p.DailyOrderDivisor.IsPositive() {
		missing = append(missing, "daily_order_divisor")
	}
	sort.Strings(missing)
	return missing
}
