package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access for parameters and results.
// All methods take organizationID so one tenant can never read another's payroll.
type PayrollRepository interface {
	// Parameters
	GetParameters(ctx context.Context, category PayrollCategory, organizationID string) (PayrollParameters, error)
	ListParameters(ctx context.Context, organizationID string) ([]PayrollParameters, error)
	UpsertParameters(ctx context.Context, params []PayrollParameters) ([]PayrollParameters, error)

	// Results
	UpsertResult(ctx context.Context, result PayrollCalculationResult) (PayrollCalculationResult, error)
	GetResult(ctx context.Context, courierID string, month, year int, organizationID string) (PayrollCalculationResult, error)
	ListResults(ctx context.Context, organizationID string, month, year int) ([]PayrollCalculationResult, error)
	GetPeriodSummary(ctx context.Context, organizationID string, month, year int) (PeriodSummary, error)
}

// CourierRepository reads courier profiles and organizations.
type CourierRepository interface {
	OrganizationExists(ctx context.Context, organizationID string) (bool, error)
	ListOrganizationIDs(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string, organizationID string) (Courier, error)
	GetByIDs(ctx context.Context, ids []string, organizationID string) ([]Courier, error)
	GetActiveByOrganizationID(ctx context.Context, organizationID string) ([]Courier, error)
}

// InputProvider supplies per-courier performance for a period, keyed by courier ID.
// Couriers with no data are absent from the map.
type InputProvider interface {
	GetInputs(ctx context.Context, organizationID string, period Period, courierIDs []string) (map[string]CourierPayrollInput, error)
}

// RunLocker serializes batch runs per (organization, period).
type RunLocker interface {
	// Acquire returns ErrRunInProgress when the key is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, key, token string) error
}
