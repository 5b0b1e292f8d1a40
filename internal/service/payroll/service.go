package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// Workers bounds concurrent courier calculations; 1 keeps the batch sequential.
	Workers int
	LockTTL time.Duration
}

type PayrollServiceImpl struct {
	payrollRepo payroll.PayrollRepository
	courierRepo payroll.CourierRepository
	inputs      payroll.InputProvider
	locker      payroll.RunLocker
	calculator  *Calculator
	opts        Options
}

// NewPayrollService wires the orchestrator. locker may be nil when runs are serialized elsewhere.
func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	courierRepo payroll.CourierRepository,
	inputs payroll.InputProvider,
	locker payroll.RunLocker,
	opts Options,
) payroll.PayrollService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &PayrollServiceImpl{
		payrollRepo: payrollRepo,
		courierRepo: courierRepo,
		inputs:      inputs,
		locker:      locker,
		calculator:  NewCalculator(),
		opts:        opts,
	}
}

type courierOutcome struct {
	courierID string
	category  payroll.PayrollCategory
	result    payroll.PayrollCalculationResult
	err       error
}

// ========== BATCH ==========

func (s *PayrollServiceImpl) RunBatch(ctx context.Context, req payroll.BatchPayrollRequest) (payroll.BatchPayrollResponse, error) {
	start := time.Now()

	resp, err := s.runBatch(ctx, req)
	switch {
	case err != nil:
		metrics.ObserveBatch(metrics.BatchRejected, time.Since(start))
		return payroll.BatchPayrollResponse{}, err
	case resp.Failed > 0:
		metrics.ObserveBatch(metrics.BatchPartial, time.Since(start))
	default:
		metrics.ObserveBatch(metrics.BatchSuccess, time.Since(start))
	}
	metrics.SetPayrollTotal(req.OrganizationID, resp.TotalPayroll.InexactFloat64())

	slog.Info("Payroll batch completed",
		"organization_id", req.OrganizationID,
		"period", resp.Period.Start+".."+resp.Period.End,
		"total_couriers", resp.TotalCouriers,
		"successful", resp.Successful,
		"skipped", resp.Skipped,
		"failed", resp.Failed,
		"total_payroll", resp.TotalPayroll.String(),
		"duration", time.Since(start).String(),
	)
	return resp, nil
}

func (s *PayrollServiceImpl) runBatch(ctx context.Context, req payroll.BatchPayrollRequest) (payroll.BatchPayrollResponse, error) {
	period, err := payroll.NewPeriod(req.PeriodMonth, req.PeriodYear)
	if err != nil {
		return payroll.BatchPayrollResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchPayrollResponse{}, err
	}
	if err := s.ensureOrganization(ctx, req.OrganizationID); err != nil {
		return payroll.BatchPayrollResponse{}, err
	}

	release, err := s.acquireRunLock(ctx, req.OrganizationID, period)
	if err != nil {
		return payroll.BatchPayrollResponse{}, err
	}
	defer release()

	couriers, outcomes, err := s.loadScope(ctx, req)
	if err != nil {
		return payroll.BatchPayrollResponse{}, err
	}

	ids := make([]string, 0, len(couriers))
	for _, c := range couriers {
		ids = append(ids, c.ID)
	}
	inputs, err := s.inputs.GetInputs(ctx, req.OrganizationID, period, ids)
	if err != nil {
		return payroll.BatchPayrollResponse{}, fmt.Errorf("failed to get courier inputs: %w", err)
	}

	resolver := NewParameterResolver(s.payrollRepo)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, c := range couriers {
		if outcomes[i].err != nil {
			continue
		}
		i, c := i, c
		g.Go(func() error {
			input, ok := inputs[c.ID]
			var inputPtr *payroll.CourierPayrollInput
			if ok {
				inputPtr = &input
			}
			category := effectiveCategory(c, req.Category)
			result, err := s.calculate(gctx, resolver, c, category, inputPtr, period, true)
			outcomes[i] = courierOutcome{courierID: c.ID, category: category, result: result, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return payroll.BatchPayrollResponse{}, err
	}
	if err := ctx.Err(); err != nil {
		return payroll.BatchPayrollResponse{}, fmt.Errorf("payroll batch interrupted: %w", err)
	}

	return aggregate(req.OrganizationID, period, outcomes), nil
}

// loadScope returns the couriers to process in request order. Requested IDs that do not
// belong to the organization get a pre-filled failed outcome at the same index.
func (s *PayrollServiceImpl) loadScope(ctx context.Context, req payroll.BatchPayrollRequest) ([]payroll.Courier, []courierOutcome, error) {
	if len(req.CourierIDs) == 0 {
		couriers, err := s.courierRepo.GetActiveByOrganizationID(ctx, req.OrganizationID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get couriers: %w", err)
		}
		return couriers, make([]courierOutcome, len(couriers)), nil
	}

	requested := make([]string, 0, len(req.CourierIDs))
	seen := make(map[string]bool, len(req.CourierIDs))
	for _, id := range req.CourierIDs {
		if !seen[id] {
			seen[id] = true
			requested = append(requested, id)
		}
	}

	found, err := s.courierRepo.GetByIDs(ctx, requested, req.OrganizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get couriers: %w", err)
	}
	byID := make(map[string]payroll.Courier, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	couriers := make([]payroll.Courier, len(requested))
	outcomes := make([]courierOutcome, len(requested))
	for i, id := range requested {
		c, ok := byID[id]
		if !ok {
			couriers[i] = payroll.Courier{ID: id}
			outcomes[i] = courierOutcome{
				courierID: id,
				err:       fmt.Errorf("%w: %s", payroll.ErrCourierNotFound, id),
			}
			continue
		}
		couriers[i] = c
	}
	return couriers, outcomes, nil
}

// calculate runs resolve, evaluate and (optionally) persist for one courier.
// input is nil when the warehouse has no row for the courier.
func (s *PayrollServiceImpl) calculate(
	ctx context.Context,
	resolver *ParameterResolver,
	c payroll.Courier,
	category payroll.PayrollCategory,
	input *payroll.CourierPayrollInput,
	period payroll.Period,
	persist bool,
) (payroll.PayrollCalculationResult, error) {
	params, err := resolver.Resolve(ctx, category, c.OrganizationID)
	if err != nil {
		return payroll.PayrollCalculationResult{}, err
	}
	if input == nil {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("%w: courier %s", payroll.ErrInputMissing, c.ID)
	}

	in := *input
	in.CourierID = c.ID
	if in.JoiningDate == nil {
		in.JoiningDate = c.JoiningDate
	}

	result, err := s.calculator.Evaluate(in, params, category, period)
	if err != nil {
		return payroll.PayrollCalculationResult{}, err
	}
	result.OrganizationID = c.OrganizationID
	name := c.FullName
	result.CourierName = &name

	if !persist {
		return result, nil
	}
	saved, err := s.payrollRepo.UpsertResult(ctx, result)
	if err != nil {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("%w: %w", payroll.ErrPersistenceFailure, err)
	}
	saved.CourierName = &name
	return saved, nil
}

func aggregate(organizationID string, period payroll.Period, outcomes []courierOutcome) payroll.BatchPayrollResponse {
	resp := payroll.BatchPayrollResponse{
		OrganizationID:    organizationID,
		Period:            payroll.NewPeriodResponse(period),
		TotalCouriers:     len(outcomes),
		SkippedByReason:   make(map[string]int),
		SkippedByCategory: make(map[string]int),
		Results:           make([]payroll.PayrollResultResponse, 0, len(outcomes)),
		Errors:            []payroll.CourierOutcome{},
		TotalBasicSalary:  decimal.Zero,
		TotalBonus:        decimal.Zero,
		TotalGasDeserved:  decimal.Zero,
		TotalPayroll:      decimal.Zero,
	}

	for _, o := range outcomes {
		if o.err == nil {
			resp.Successful++
			resp.Results = append(resp.Results, payroll.NewPayrollResultResponse(o.result))
			resp.TotalBasicSalary = resp.TotalBasicSalary.Add(o.result.BasicSalary)
			resp.TotalBonus = resp.TotalBonus.Add(o.result.BonusAmount)
			resp.TotalGasDeserved = resp.TotalGasDeserved.Add(o.result.GasDeserved)
			resp.TotalPayroll = resp.TotalPayroll.Add(o.result.TotalSalary)
			metrics.IncCourierOutcome("success", "")
			continue
		}

		reason, skipped := payroll.ReasonFor(o.err)
		outcome := payroll.OutcomeFailed
		if skipped {
			outcome = payroll.OutcomeSkipped
			resp.Skipped++
			resp.SkippedByReason[reason]++
			resp.SkippedByCategory[string(o.category)]++
		} else {
			resp.Failed++
			slog.Error("Courier payroll failed", "courier_id", o.courierID, "reason", reason, "error", o.err)
		}
		metrics.IncCourierOutcome(outcome, reason)
		resp.Errors = append(resp.Errors, payroll.CourierOutcome{
			CourierID: o.courierID,
			Outcome:   outcome,
			Reason:    reason,
			Message:   o.err.Error(),
		})
	}
	return resp
}

func effectiveCategory(c payroll.Courier, override *payroll.PayrollCategory) payroll.PayrollCategory {
	if override != nil {
		return *override
	}
	return c.Category
}

func (s *PayrollServiceImpl) ensureOrganization(ctx context.Context, organizationID string) error {
	exists, err := s.courierRepo.OrganizationExists(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("failed to check organization: %w", err)
	}
	if !exists {
		return payroll.ErrOrganizationNotFound
	}
	return nil
}

// RunLockKey is the lock key guarding one (organization, period) batch.
func RunLockKey(organizationID string, period payroll.Period) string {
	return fmt.Sprintf("payroll:run:%s:%s", organizationID, period)
}

func (s *PayrollServiceImpl) acquireRunLock(ctx context.Context, organizationID string, period payroll.Period) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := RunLockKey(organizationID, period)
	token, err := s.locker.Acquire(ctx, key, s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, payroll.ErrRunInProgress) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}

	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			slog.Error("Failed to release payroll run lock", "key", key, "error", err)
		}
	}, nil
}

// ========== SINGLE COURIER ==========

func (s *PayrollServiceImpl) CalculateCourier(ctx context.Context, req payroll.CalculateCourierRequest) (payroll.PayrollResultResponse, error) {
	period, err := payroll.NewPeriod(req.PeriodMonth, req.PeriodYear)
	if err != nil {
		return payroll.PayrollResultResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollResultResponse{}, err
	}
	if err := s.ensureOrganization(ctx, req.OrganizationID); err != nil {
		return payroll.PayrollResultResponse{}, err
	}

	c, err := s.courierRepo.GetByID(ctx, req.CourierID, req.OrganizationID)
	if err != nil {
		return payroll.PayrollResultResponse{}, err
	}

	inputs, err := s.inputs.GetInputs(ctx, req.OrganizationID, period, []string{c.ID})
	if err != nil {
		return payroll.PayrollResultResponse{}, fmt.Errorf("failed to get courier input: %w", err)
	}
	var input *payroll.CourierPayrollInput
	if in, ok := inputs[c.ID]; ok {
		input = &in
	}

	category := effectiveCategory(c, req.Category)
	result, err := s.calculate(ctx, NewParameterResolver(s.payrollRepo), c, category, input, period, req.Persist)
	if err != nil {
		return payroll.PayrollResultResponse{}, err
	}

	resp := payroll.NewPayrollResultResponse(result)
	if !req.Persist {
		stored, err := s.payrollRepo.GetResult(ctx, c.ID, period.Month, period.Year, req.OrganizationID)
		switch {
		case err == nil:
			previous := payroll.NewPayrollResultResponse(stored)
			resp.Previous = &previous
		case !errors.Is(err, payroll.ErrResultNotFound):
			return payroll.PayrollResultResponse{}, fmt.Errorf("failed to get stored payroll result: %w", err)
		}
	}

	slog.Info("Courier payroll calculated",
		"courier_id", c.ID,
		"period", period.String(),
		"total_salary", result.TotalSalary.String(),
		"persisted", req.Persist,
		"has_previous", resp.Previous != nil,
	)
	return resp, nil
}

// ========== RESULTS ==========

func (s *PayrollServiceImpl) ListResults(ctx context.Context, organizationID string, month, year int) ([]payroll.PayrollResultResponse, error) {
	if _, err := payroll.NewPeriod(month, year); err != nil {
		return nil, err
	}

	results, err := s.payrollRepo.ListResults(ctx, organizationID, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll results: %w", err)
	}

	responses := make([]payroll.PayrollResultResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, payroll.NewPayrollResultResponse(r))
	}
	return responses, nil
}

func (s *PayrollServiceImpl) GetPeriodSummary(ctx context.Context, organizationID string, month, year int) (payroll.PeriodSummary, error) {
	if _, err := payroll.NewPeriod(month, year); err != nil {
		return payroll.PeriodSummary{}, err
	}

	summary, err := s.payrollRepo.GetPeriodSummary(ctx, organizationID, month, year)
	if err != nil {
		return payroll.PeriodSummary{}, fmt.Errorf("failed to get payroll summary: %w", err)
	}
	return summary, nil
}

// ========== PARAMETERS ==========

func (s *PayrollServiceImpl) ListParameters(ctx context.Context, organizationID string) ([]payroll.PayrollParameters, error) {
	if err := s.ensureOrganization(ctx, organizationID); err != nil {
		return nil, err
	}

	params, err := s.payrollRepo.ListParameters(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll parameters: %w", err)
	}

	sort.SliceStable(params, func(i, j int) bool {
		return params[i].Category.Rank() < params[j].Category.Rank()
	})
	return params, nil
}

func (s *PayrollServiceImpl) ImportParameters(ctx context.Context, req payroll.ImportParametersRequest) ([]payroll.PayrollParameters, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}

	saved, err := s.payrollRepo.UpsertParameters(ctx, req.Parameters())
	if err != nil {
		return nil, fmt.Errorf("failed to import payroll parameters: %w", err)
	}

	slog.Info("Payroll parameters imported", "organization_id", req.OrganizationID, "rows", len(saved))
	return saved, nil
}
