package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestParseCategory(t *testing.T) {
	for _, c := range AllCategories {
		got, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCategory("motorcycle")
	assert.ErrorIs(t, err, ErrInvalidCategory)
	_, err = ParseCategory("")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestPayrollCategory_Rank(t *testing.T) {
	for i, c := range AllCategories {
		assert.Equal(t, i, c.Rank())
	}
	assert.Equal(t, len(AllCategories), PayrollCategory("Bicycle").Rank())
}

func TestPayrollCategory_Formula(t *testing.T) {
	cases := map[PayrollCategory]FormulaKind{
		CategoryMotorcycle:     FormulaFlatRate,
		CategoryFoodTrial:      FormulaFlatRate,
		CategoryFoodInHouseNew: FormulaFlatRate,
		CategoryEcommerceWH:    FormulaFlatRate,
		CategoryFoodInHouseOld: FormulaTiered,
		CategoryEcommerce:      FormulaRevenue,
		CategoryAjeer:          FormulaUnsupported,
	}
	for c, want := range cases {
		got, err := c.Formula()
		require.NoError(t, err)
		assert.Equal(t, want, got, string(c))
	}

	assert.False(t, CategoryAjeer.IsSupported())
	assert.True(t, CategoryEcommerce.IsSupported())
	assert.False(t, PayrollCategory("Bicycle").IsSupported())
}

func TestReasonFor(t *testing.T) {
	cases := []struct {
		err     error
		reason  string
		skipped bool
	}{
		{ErrConfigurationMissing, ReasonConfigurationMissing, true},
		{ErrInputMissing, ReasonInputMissing, true},
		{ErrUnsupportedCategory, ReasonUnsupportedCategory, true},
		{ErrInvalidCategory, ReasonUnsupportedCategory, true},
		{ErrInvalidParameters, ReasonCalculationError, false},
		{ErrCourierNotFound, ReasonCourierNotFound, false},
		{ErrPersistenceFailure, ReasonPersistenceFailure, false},
		{assert.AnError, ReasonCalculationError, false},
	}
	for _, c := range cases {
		reason, skipped := ReasonFor(c.err)
		assert.Equal(t, c.reason, reason, c.err.Error())
		assert.Equal(t, c.skipped, skipped, c.err.Error())
	}
}

func TestPayrollParameters_MissingFields(t *testing.T) {
	flat := PayrollParameters{
		Category:          CategoryMotorcycle,
		BasicSalaryRate:   dec("50"),
		BonusRate:         dec("2"),
		PenaltyRate:       dec("1"),
		GasRate:           dec("0.261"),
		DailyOrderDivisor: dec("30"),
	}
	assert.Equal(t, []string{"gas_cap"}, flat.MissingFields())

	flat.GasCap = dec("261")
	assert.Empty(t, flat.MissingFields())

	flat.DailyOrderDivisor = dec("0")
	assert.Equal(t, []string{"daily_order_divisor"}, flat.MissingFields())

	revenue := PayrollParameters{Category: CategoryEcommerce, RevenueCoefficient: dec("0.1")}
	assert.Len(t, revenue.MissingFields(), 6)

	assert.Empty(t, PayrollParameters{Category: CategoryAjeer}.MissingFields())
}

// ===== DTO VALIDATION TESTS =====

const testOrgID = "0190a6f0-1c2d-7e3f-8a4b-5c6d7e8f9a0b"

func TestBatchPayrollRequest_Validate(t *testing.T) {
	req := BatchPayrollRequest{OrganizationID: testOrgID, PeriodMonth: 5, PeriodYear: 2024}
	assert.NoError(t, req.Validate())

	bad := BatchPayrollRequest{OrganizationID: "org", PeriodMonth: 13, PeriodYear: 1999, CourierIDs: []string{"x"}}
	err := bad.Validate()
	require.Error(t, err)

	var verrs interface{ ToMap() map[string]string }
	require.ErrorAs(t, err, &verrs)
	fields := verrs.ToMap()
	assert.Contains(t, fields, "organization_id")
	assert.Contains(t, fields, "period_month")
	assert.Contains(t, fields, "period_year")
	assert.Contains(t, fields, "courier_ids")

	unknown := PayrollCategory("Bicycle")
	req.Category = &unknown
	assert.Error(t, req.Validate())
}

func TestImportParametersRequest_Validate(t *testing.T) {
	req := ImportParametersRequest{
		OrganizationID: testOrgID,
		Rows: []ParametersImportRow{
			{Category: "Ajeer"},
			{
				Category:                "Ecommerce",
				RevenueCoefficient:      dec("0.1"),
				BonusRevenueThreshold:   dec("3000"),
				BonusRateBelowThreshold: dec("0.5"),
				BonusRateAboveThreshold: dec("0.6"),
				FuelRevenueCoefficient:  dec("0.05"),
				FuelTargetCoefficient:   dec("10"),
				GasCap:                  dec("500"),
			},
		},
	}
	require.NoError(t, req.Validate())

	params := req.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, CategoryEcommerce, params[1].Category)
	assert.Equal(t, testOrgID, params[1].OrganizationID)

	req.Rows = append(req.Rows, ParametersImportRow{Category: "Ajeer"}, ParametersImportRow{Category: "Motorcycle"})
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate category: Ajeer")
	assert.Contains(t, err.Error(), "Motorcycle.basic_salary_rate: is required")

	blank := ImportParametersRequest{OrganizationID: testOrgID, Rows: []ParametersImportRow{{Category: "  "}}}
	err = blank.Validate()
	require.Error(t, err)
	assert.Equal(t, "category: is required", err.Error())
}
