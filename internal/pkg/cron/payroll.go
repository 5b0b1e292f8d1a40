package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
)

const MonthlyPayrollJob = "monthly_payroll"

type PayrollJobs struct {
	courierRepo payroll.CourierRepository
	payrollSvc  payroll.PayrollService
	now         func() time.Time

	mu      sync.Mutex
	lastRun string // period already completed by this process
}

func NewPayrollJobs(courierRepo payroll.CourierRepository, payrollSvc payroll.PayrollService) *PayrollJobs {
	return &PayrollJobs{
		courierRepo: courierRepo,
		payrollSvc:  payrollSvc,
		now:         time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob(MonthlyPayrollJob, interval, j.RunMonthlyPayroll)
}

// RunMonthlyPayroll computes the period that closed on the 24th for every
// organization. It is a no-op before the 25th and after the period succeeded once.
func (j *PayrollJobs) RunMonthlyPayroll(ctx context.Context) error {
	now := j.now().UTC()
	if now.Day() < payroll.PeriodStartDay {
		return nil
	}

	period := payroll.PeriodClosedBefore(now)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastRun == period.String() {
		return nil
	}

	slog.Info("Cron: Starting monthly payroll", "period", period.String())

	orgIDs, err := j.courierRepo.ListOrganizationIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	var errs []error
	for _, orgID := range orgIDs {
		resp, err := j.payrollSvc.RunBatch(ctx, payroll.BatchPayrollRequest{
			OrganizationID: orgID,
			PeriodMonth:    period.Month,
			PeriodYear:     period.Year,
		})
		switch {
		case errors.Is(err, payroll.ErrRunInProgress):
			slog.Info("Cron: Payroll already running elsewhere", "organization_id", orgID, "period", period.String())
		case err != nil:
			slog.Error("Cron: Payroll run failed", "organization_id", orgID, "period", period.String(), "error", err)
			errs = append(errs, fmt.Errorf("organization %s: %w", orgID, err))
		default:
			slog.Info("Cron: Payroll run completed",
				"organization_id", orgID,
				"period", period.String(),
				"successful", resp.Successful,
				"failed", resp.Failed,
				"skipped", resp.Skipped,
			)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	j.lastRun = period.String()
	return nil
}
