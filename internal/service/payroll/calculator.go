package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

const (
	moneyPlaces = 2
	ratioPlaces = 4
)

// Calculator evaluates the payroll formula of a category. It performs no I/O.
type Calculator struct {
	now func() time.Time
}

func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// Evaluate computes one courier's salary for the period. Monetary components are rounded
// to cents before summing so the stored total always reconciles with its parts.
func (c *Calculator) Evaluate(
	input payroll.CourierPayrollInput,
	params payroll.PayrollParameters,
	category payroll.PayrollCategory,
	period payroll.Period,
) (payroll.PayrollCalculationResult, error) {
	kind, err := category.Formula()
	if err != nil {
		return payroll.PayrollCalculationResult{}, err
	}
	if kind == payroll.FormulaUnsupported {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("%w: %s", payroll.ErrUnsupportedCategory, category)
	}
	if missing := params.MissingFields(); len(missing) > 0 {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("%w: %s missing %s",
			payroll.ErrInvalidParameters, category, strings.Join(missing, ", "))
	}

	days := period.DaysSinceJoining(input.JoiningDate)
	details := payroll.CalculationDetails{
		Formula:      kind,
		PeriodStart:  period.Start.Format(time.DateOnly),
		PeriodEnd:    period.End.Format(time.DateOnly),
		PeriodDays:   period.Days(),
		TotalOrders:  input.TotalOrders,
		TotalRevenue: input.TotalRevenue,
		GasUsage:     input.GasUsage,
	}

	var basic, bonus, gas decimal.Decimal
	switch kind {
	case payroll.FormulaFlatRate:
		basic = params.BasicSalaryRate.Mul(decimal.NewFromInt(int64(days)))
		bonus = c.flatBonus(input, params, &details)
		gas = c.orderGas(input, params, &details)
	case payroll.FormulaTiered:
		basic = params.BasicSalaryRate.Mul(decimal.NewFromInt(int64(days)))
		bonus = c.tieredBonus(input, params, &details)
		gas = c.orderGas(input, params, &details)
	case payroll.FormulaRevenue:
		basic = params.RevenueCoefficient.Mul(input.TotalRevenue)
		bonus = c.revenueBonus(input, params, &details)
		gas = c.revenueGas(input, params, &details)
	default:
		return payroll.PayrollCalculationResult{}, fmt.Errorf("%w: %s", payroll.ErrInvalidCategory, category)
	}

	basic = basic.Round(moneyPlaces)
	bonus = bonus.Round(moneyPlaces)
	gas = gas.Round(moneyPlaces)
	gasDifference := gas.Sub(input.GasUsage).Round(moneyPlaces)

	return payroll.PayrollCalculationResult{
		CourierID:          input.CourierID,
		OrganizationID:     params.OrganizationID,
		PeriodMonth:        period.Month,
		PeriodYear:         period.Year,
		Category:           category,
		BasicSalary:        basic,
		BonusAmount:        bonus,
		GasDeserved:        gas,
		GasDifference:      gasDifference,
		TotalSalary:        basic.Add(bonus).Add(gasDifference),
		Target:             input.Target,
		DaysSinceJoining:   days,
		CalculationDetails: details,
		GeneratedDate:      c.now().UTC(),
	}, nil
}

// flatBonus rewards orders above target*divisor at bonus_rate and penalizes the shortfall at penalty_rate.
func (c *Calculator) flatBonus(input payroll.CourierPayrollInput, params payroll.PayrollParameters, details *payroll.CalculationDetails) decimal.Decimal {
	orders := decimal.NewFromInt(input.TotalOrders)
	divisor := *params.DailyOrderDivisor

	ordersPerDay := orders.DivRound(divisor, ratioPlaces)
	required := input.Target.Mul(divisor)
	gap := orders.Sub(required)

	rate := *params.BonusRate
	if gap.IsNegative() {
		rate = *params.PenaltyRate
		details.IsPenalty = true
	}

	details.OrdersPerDay = &ordersPerDay
	details.RequiredOrders = &required
	details.OrderGap = &gap
	details.AppliedRate = &rate
	return gap.Mul(rate)
}

func (c *Calculator) tieredBonus(input payroll.CourierPayrollInput, params payroll.PayrollParameters, details *payroll.CalculationDetails) decimal.Decimal {
	orders := decimal.NewFromInt(input.TotalOrders)
	threshold := *params.TierThreshold

	tier1 := decimal.Min(orders, threshold)
	tier2 := decimal.Max(orders.Sub(threshold), decimal.Zero)

	details.Tier1Units = &tier1
	details.Tier2Units = &tier2
	return tier1.Mul(*params.Tier1Rate).Add(tier2.Mul(*params.Tier2Rate))
}

func (c *Calculator) revenueBonus(input payroll.CourierPayrollInput, params payroll.PayrollParameters, details *payroll.CalculationDetails) decimal.Decimal {
	threshold := *params.BonusRevenueThreshold

	below := decimal.Min(input.TotalRevenue, threshold)
	above := decimal.Max(input.TotalRevenue.Sub(threshold), decimal.Zero)

	details.RevenueBelowThreshold = &below
	details.RevenueAboveThreshold = &above
	return below.Mul(*params.BonusRateBelowThreshold).Add(above.Mul(*params.BonusRateAboveThreshold))
}

// orderGas is gas_rate per order, capped at gas_cap.
func (c *Calculator) orderGas(input payroll.CourierPayrollInput, params payroll.PayrollParameters, details *payroll.CalculationDetails) decimal.Decimal {
	uncapped := params.GasRate.Mul(decimal.NewFromInt(input.TotalOrders))
	gas := decimal.Min(uncapped, *params.GasCap)

	details.GasUncapped = uncapped
	details.GasCapped = gas.LessThan(uncapped)
	return gas
}

// revenueGas is bounded by gas_cap and, when a target is set, by fuel_target_coefficient*target.
func (c *Calculator) revenueGas(input payroll.CourierPayrollInput, params payroll.PayrollParameters, details *payroll.CalculationDetails) decimal.Decimal {
	byRevenue := params.FuelRevenueCoefficient.Mul(input.TotalRevenue)
	gas := decimal.Min(byRevenue, *params.GasCap)
	details.GasByRevenue = &byRevenue

	if input.Target.IsPositive() {
		byTarget := params.FuelTargetCoefficient.Mul(input.Target)
		gas = decimal.Min(gas, byTarget)
		details.GasByTarget = &byTarget
	}

	details.GasUncapped = byRevenue
	details.GasCapped = gas.LessThan(byRevenue)
	return gas
}
