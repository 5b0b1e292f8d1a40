package payroll

import "errors"

var (
	ErrInvalidPeriod        = errors.New("invalid payroll period")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrConfigurationMissing = errors.New("payroll parameters not configured for category")
	ErrInputMissing         = errors.New("courier performance input not found for period")
	ErrUnsupportedCategory  = errors.New("payroll category is not supported")
	ErrInvalidCategory      = errors.New("invalid payroll category")
	ErrInvalidParameters    = errors.New("payroll parameters are incomplete")
	ErrCourierNotFound      = errors.New("courier not found")
	ErrResultNotFound       = errors.New("payroll result not found")
	ErrRunInProgress        = errors.New("payroll run already in progress for this period")
	ErrPersistenceFailure   = errors.New("failed to persist payroll result")
)

// Reason codes reported per courier in a batch response.
const (
	ReasonConfigurationMissing = "configuration_missing"
	ReasonInputMissing         = "input_missing"
	ReasonUnsupportedCategory  = "unsupported_category"
	ReasonCalculationError     = "calculation_error"
	ReasonPersistenceFailure   = "persistence_failure"
	ReasonCourierNotFound      = "courier_not_found"
)

// ReasonFor maps a per-courier error to its reason code and whether the courier counts as skipped.
func ReasonFor(err error) (reason string, skipped bool) {
	switch {
	case errors.Is(err, ErrConfigurationMissing):
		return ReasonConfigurationMissing, true
	case errors.Is(err, ErrInputMissing):
		return ReasonInputMissing, true
	case errors.Is(err, ErrUnsupportedCategory), errors.Is(err, ErrInvalidCategory):
		return ReasonUnsupportedCategory, true
	case errors.Is(err, ErrCourierNotFound):
		return ReasonCourierNotFound, false
	case errors.Is(err, ErrPersistenceFailure):
		return ReasonPersistenceFailure, false
	default:
		return ReasonCalculationError, false
	}
}
