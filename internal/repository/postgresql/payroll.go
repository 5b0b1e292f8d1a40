package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const parameterColumns = `
	id, organization_id, category,
	basic_salary_rate, bonus_rate, penalty_rate, gas_rate, gas_cap, daily_order_divisor,
	tier_threshold, tier_1_rate, tier_2_rate,
	revenue_coefficient, bonus_revenue_threshold, bonus_rate_below_threshold, bonus_rate_above_threshold,
	fuel_revenue_coefficient, fuel_target_coefficient,
	created_at, updated_at
`

func scanParameters(row pgx.Row) (payroll.PayrollParameters, error) {
	var p payroll.PayrollParameters
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.Category,
		&p.BasicSalaryRate, &p.BonusRate, &p.PenaltyRate, &p.GasRate, &p.GasCap, &p.DailyOrderDivisor,
		&p.TierThreshold, &p.Tier1Rate, &p.Tier2Rate,
		&p.RevenueCoefficient, &p.BonusRevenueThreshold, &p.BonusRateBelowThreshold, &p.BonusRateAboveThreshold,
		&p.FuelRevenueCoefficient, &p.FuelTargetCoefficient,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// ========== PARAMETERS ==========

func (r *payrollRepository) GetParameters(ctx context.Context, category payroll.PayrollCategory, organizationID string) (payroll.PayrollParameters, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + parameterColumns + `
		FROM payroll_parameters
		WHERE category = $1 AND organization_id = $2
	`

	p, err := scanParameters(q.QueryRow(ctx, query, category, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollParameters{}, payroll.ErrConfigurationMissing
		}
		return payroll.PayrollParameters{}, fmt.Errorf("failed to get payroll parameters: %w", err)
	}

	return p, nil
}

func (r *payrollRepository) ListParameters(ctx context.Context, organizationID string) ([]payroll.PayrollParameters, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + parameterColumns + `
		FROM payroll_parameters
		WHERE organization_id = $1
		ORDER BY category
	`

	rows, err := q.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll parameters: %w", err)
	}
	defer rows.Close()

	var params []payroll.PayrollParameters
	for rows.Next() {
		p, err := scanParameters(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll parameters: %w", err)
		}
		params = append(params, p)
	}

	return params, rows.Err()
}

// UpsertParameters writes all rows in one transaction; any failure leaves the configuration untouched.
func (r *payrollRepository) UpsertParameters(ctx context.Context, params []payroll.PayrollParameters) ([]payroll.PayrollParameters, error) {
	query := `
		INSERT INTO payroll_parameters (
			organization_id, category,
			basic_salary_rate, bonus_rate, penalty_rate, gas_rate, gas_cap, daily_order_divisor,
			tier_threshold, tier_1_rate, tier_2_rate,
			revenue_coefficient, bonus_revenue_threshold, bonus_rate_below_threshold, bonus_rate_above_threshold,
			fuel_revenue_coefficient, fuel_target_coefficient
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (category, organization_id) DO UPDATE SET
			basic_salary_rate = EXCLUDED.basic_salary_rate,
			bonus_rate = EXCLUDED.bonus_rate,
			penalty_rate = EXCLUDED.penalty_rate,
			gas_rate = EXCLUDED.gas_rate,
			gas_cap = EXCLUDED.gas_cap,
			daily_order_divisor = EXCLUDED.daily_order_divisor,
			tier_threshold = EXCLUDED.tier_threshold,
			tier_1_rate = EXCLUDED.tier_1_rate,
			tier_2_rate = EXCLUDED.tier_2_rate,
			revenue_coefficient = EXCLUDED.revenue_coefficient,
			bonus_revenue_threshold = EXCLUDED.bonus_revenue_threshold,
			bonus_rate_below_threshold = EXCLUDED.bonus_rate_below_threshold,
			bonus_rate_above_threshold = EXCLUDED.bonus_rate_above_threshold,
			fuel_revenue_coefficient = EXCLUDED.fuel_revenue_coefficient,
			fuel_target_coefficient = EXCLUDED.fuel_target_coefficient,
			updated_at = NOW()
		RETURNING ` + parameterColumns

	saved := make([]payroll.PayrollParameters, 0, len(params))
	err := WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		txCtx := WithTx(ctx, tx)
		q := GetQuerier(txCtx, r.db)
		for _, p := range params {
			s, err := scanParameters(q.QueryRow(txCtx, query,
				p.OrganizationID, p.Category,
				p.BasicSalaryRate, p.BonusRate, p.PenaltyRate, p.GasRate, p.GasCap, p.DailyOrderDivisor,
				p.TierThreshold, p.Tier1Rate, p.Tier2Rate,
				p.RevenueCoefficient, p.BonusRevenueThreshold, p.BonusRateBelowThreshold, p.BonusRateAboveThreshold,
				p.FuelRevenueCoefficient, p.FuelTargetCoefficient,
			))
			if err != nil {
				return fmt.Errorf("failed to upsert payroll parameters for %s: %w", p.Category, err)
			}
			saved = append(saved, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

// ========== RESULTS ==========

const resultColumns = `
	pr.id, pr.courier_id, pr.organization_id, pr.period_month, pr.period_year, pr.category,
	pr.basic_salary, pr.bonus_amount, pr.gas_deserved, pr.gas_difference, pr.total_salary,
	pr.target, pr.days_since_joining, pr.calculation_details, pr.generated_date,
	pr.created_at, pr.updated_at
`

func scanResult(row pgx.Row, extra ...any) (payroll.PayrollCalculationResult, error) {
	var res payroll.PayrollCalculationResult
	var details []byte
	dest := []any{
		&res.ID, &res.CourierID, &res.OrganizationID, &res.PeriodMonth, &res.PeriodYear, &res.Category,
		&res.BasicSalary, &res.BonusAmount, &res.GasDeserved, &res.GasDifference, &res.TotalSalary,
		&res.Target, &res.DaysSinceJoining, &details, &res.GeneratedDate,
		&res.CreatedAt, &res.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return payroll.PayrollCalculationResult{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &res.CalculationDetails); err != nil {
			return payroll.PayrollCalculationResult{}, fmt.Errorf("failed to decode calculation details: %w", err)
		}
	}
	return res, nil
}

func (r *payrollRepository) UpsertResult(ctx context.Context, result payroll.PayrollCalculationResult) (payroll.PayrollCalculationResult, error) {
	q := GetQuerier(ctx, r.db)

	details, err := json.Marshal(result.CalculationDetails)
	if err != nil {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("failed to encode calculation details: %w", err)
	}

	query := `
		INSERT INTO payroll_results AS pr (
			courier_id, organization_id, period_month, period_year, category,
			basic_salary, bonus_amount, gas_deserved, gas_difference, total_salary,
			target, days_since_joining, calculation_details, generated_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (courier_id, period_month, period_year, organization_id) DO UPDATE SET
			category = EXCLUDED.category,
			basic_salary = EXCLUDED.basic_salary,
			bonus_amount = EXCLUDED.bonus_amount,
			gas_deserved = EXCLUDED.gas_deserved,
			gas_difference = EXCLUDED.gas_difference,
			total_salary = EXCLUDED.total_salary,
			target = EXCLUDED.target,
			days_since_joining = EXCLUDED.days_since_joining,
			calculation_details = EXCLUDED.calculation_details,
			generated_date = EXCLUDED.generated_date,
			updated_at = NOW()
		RETURNING ` + resultColumns

	saved, err := scanResult(q.QueryRow(ctx, query,
		result.CourierID, result.OrganizationID, result.PeriodMonth, result.PeriodYear, result.Category,
		result.BasicSalary, result.BonusAmount, result.GasDeserved, result.GasDifference, result.TotalSalary,
		result.Target, result.DaysSinceJoining, details, result.GeneratedDate,
	))
	if err != nil {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("failed to upsert payroll result: %w", err)
	}

	return saved, nil
}

func (r *payrollRepository) GetResult(ctx context.Context, courierID string, month, year int, organizationID string) (payroll.PayrollCalculationResult, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + resultColumns + `, c.full_name
		FROM payroll_results pr
		JOIN couriers c ON pr.courier_id = c.id
		WHERE pr.courier_id = $1 AND pr.period_month = $2 AND pr.period_year = $3 AND pr.organization_id = $4
	`

	var name string
	res, err := scanResult(q.QueryRow(ctx, query, courierID, month, year, organizationID), &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollCalculationResult{}, payroll.ErrResultNotFound
		}
		return payroll.PayrollCalculationResult{}, fmt.Errorf("failed to get payroll result: %w", err)
	}
	res.CourierName = &name

	return res, nil
}

func (r *payrollRepository) ListResults(ctx context.Context, organizationID string, month, year int) ([]payroll.PayrollCalculationResult, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + resultColumns + `, c.full_name
		FROM payroll_results pr
		JOIN couriers c ON pr.courier_id = c.id
		WHERE pr.organization_id = $1 AND pr.period_month = $2 AND pr.period_year = $3
		ORDER BY c.full_name, pr.courier_id
	`

	rows, err := q.Query(ctx, query, organizationID, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll results: %w", err)
	}
	defer rows.Close()

	var results []payroll.PayrollCalculationResult
	for rows.Next() {
		var name string
		res, err := scanResult(rows, &name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll result: %w", err)
		}
		res.CourierName = &name
		results = append(results, res)
	}

	return results, rows.Err()
}

func (r *payrollRepository) GetPeriodSummary(ctx context.Context, organizationID string, month, year int) (payroll.PeriodSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) as total_couriers,
			COALESCE(SUM(basic_salary), 0) as total_basic_salary,
			COALESCE(SUM(bonus_amount), 0) as total_bonus,
			COALESCE(SUM(gas_deserved), 0) as total_gas_deserved,
			COALESCE(SUM(total_salary), 0) as total_payroll
		FROM payroll_results
		WHERE organization_id = $1 AND period_month = $2 AND period_year = $3
	`

	var summary payroll.PeriodSummary
	err := q.QueryRow(ctx, query, organizationID, month, year).Scan(
		&summary.TotalCouriers, &summary.TotalBasicSalary, &summary.TotalBonus,
		&summary.TotalGasDeserved, &summary.TotalPayroll,
	)
	if err != nil {
		return payroll.PeriodSummary{}, fmt.Errorf("failed to get payroll summary: %w", err)
	}

	summary.OrganizationID = organizationID
	summary.PeriodMonth = month
	summary.PeriodYear = year

	return summary, nil
}
