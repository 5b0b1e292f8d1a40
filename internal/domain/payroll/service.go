package payroll

import "context"

type PayrollService interface {
	// Batch
	RunBatch(ctx context.Context, req BatchPayrollRequest) (BatchPayrollResponse, error)
	CalculateCourier(ctx context.Context, req CalculateCourierRequest) (PayrollResultResponse, error)
	// Results
	ListResults(ctx context.Context, organizationID string, month, year int) ([]PayrollResultResponse, error)
	GetPeriodSummary(ctx context.Context, organizationID string, month, year int) (PeriodSummary, error)
	ExportPeriod(ctx context.Context, organizationID string, month, year int) ([]byte, error)
	// Parameters
	ListParameters(ctx context.Context, organizationID string) ([]PayrollParameters, error)
	ImportParameters(ctx context.Context, req ImportParametersRequest) ([]PayrollParameters, error)
}
