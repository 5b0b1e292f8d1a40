package payroll

import "fmt"

type PayrollCategory string

const (
	CategoryMotorcycle     PayrollCategory = "Motorcycle"
	CategoryFoodTrial      PayrollCategory = "Food Trial"
	CategoryFoodInHouseNew PayrollCategory = "Food In-House New"
	CategoryFoodInHouseOld PayrollCategory = "Food In-House Old"
	CategoryEcommerceWH    PayrollCategory = "Ecommerce WH"
	CategoryEcommerce      PayrollCategory = "Ecommerce"
	CategoryAjeer          PayrollCategory = "Ajeer"
)

// FormulaKind - Formula family a category is evaluated with
type FormulaKind string

const (
	FormulaFlatRate    FormulaKind = "flat_rate"
	FormulaTiered      FormulaKind = "tiered"
	FormulaRevenue     FormulaKind = "revenue_coefficient"
	FormulaUnsupported FormulaKind = "unsupported"
)

var categoryFormulas = map[PayrollCategory]FormulaKind{
	CategoryMotorcycle:     FormulaFlatRate,
	CategoryFoodTrial:      FormulaFlatRate,
	CategoryFoodInHouseNew: FormulaFlatRate,
	CategoryEcommerceWH:    FormulaFlatRate,
	CategoryFoodInHouseOld: FormulaTiered,
	CategoryEcommerce:      FormulaRevenue,
	CategoryAjeer:          FormulaUnsupported,
}

// AllCategories lists categories in reporting order.
var AllCategories = []PayrollCategory{
	CategoryMotorcycle,
	CategoryFoodTrial,
	CategoryFoodInHouseNew,
	CategoryFoodInHouseOld,
	CategoryEcommerceWH,
	CategoryEcommerce,
	CategoryAjeer,
}

// Rank returns the position of c in AllCategories, or len(AllCategories) when unknown.
func (c PayrollCategory) Rank() int {
	for i, known := range AllCategories {
		if known == c {
			return i
		}
	}
	return len(AllCategories)
}

func ParseCategory(s string) (PayrollCategory, error) {
	c := PayrollCategory(s)
	if _, ok := categoryFormulas[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Formula returns the formula family of c, or ErrInvalidCategory for an unknown value.
func (c PayrollCategory) Formula() (FormulaKind, error) {
	kind, ok := categoryFormulas[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}
	return kind, nil
}

func (c PayrollCategory) IsSupported() bool {
	kind, ok := categoryFormulas[c]
	return ok && kind != FormulaUnsupported
}

func (c PayrollCategory) String() string {
	return string(c)
}
