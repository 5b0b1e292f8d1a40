package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const testOrgID = "0190a6f0-1c2d-7e3f-8a4b-5c6d7e8f9a0b"

type fakePayrollRepo struct {
	mu        sync.Mutex
	params    map[payroll.PayrollCategory]payroll.PayrollParameters
	results   map[string]payroll.PayrollCalculationResult
	paramHits map[payroll.PayrollCategory]int
	upserts   int

	upsertResultFn func(ctx context.Context, result payroll.PayrollCalculationResult) error
}

func newFakePayrollRepo(params ...payroll.PayrollParameters) *fakePayrollRepo {
	r := &fakePayrollRepo{
		params:    make(map[payroll.PayrollCategory]payroll.PayrollParameters),
		results:   make(map[string]payroll.PayrollCalculationResult),
		paramHits: make(map[payroll.PayrollCategory]int),
	}
	for _, p := range params {
		r.params[p.Category] = p
	}
	return r
}

func resultKey(courierID string, month, year int, organizationID string) string {
	return fmt.Sprintf("%s/%d/%d/%s", courierID, month, year, organizationID)
}

func (f *fakePayrollRepo) GetParameters(ctx context.Context, category payroll.PayrollCategory, organizationID string) (payroll.PayrollParameters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paramHits[category]++
	p, ok := f.params[category]
	if !ok || p.OrganizationID != organizationID {
		return payroll.PayrollParameters{}, payroll.ErrConfigurationMissing
	}
	return p, nil
}

func (f *fakePayrollRepo) ListParameters(ctx context.Context, organizationID string) ([]payroll.PayrollParameters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []payroll.PayrollParameters
	for _, p := range f.params {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayrollRepo) UpsertParameters(ctx context.Context, params []payroll.PayrollParameters) ([]payroll.PayrollParameters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := make([]payroll.PayrollParameters, 0, len(params))
	for _, p := range params {
		p.ID = uuid.NewString()
		f.params[p.Category] = p
		saved = append(saved, p)
	}
	return saved, nil
}

func (f *fakePayrollRepo) UpsertResult(ctx context.Context, result payroll.PayrollCalculationResult) (payroll.PayrollCalculationResult, error) {
	if f.upsertResultFn != nil {
		if err := f.upsertResultFn(ctx, result); err != nil {
			return payroll.PayrollCalculationResult{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	key := resultKey(result.CourierID, result.PeriodMonth, result.PeriodYear, result.OrganizationID)
	if existing, ok := f.results[key]; ok {
		result.ID = existing.ID
	} else {
		result.ID = uuid.NewString()
	}
	f.results[key] = result
	return result, nil
}

func (f *fakePayrollRepo) GetResult(ctx context.Context, courierID string, month, year int, organizationID string) (payroll.PayrollCalculationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[resultKey(courierID, month, year, organizationID)]
	if !ok {
		return payroll.PayrollCalculationResult{}, payroll.ErrResultNotFound
	}
	return r, nil
}

func (f *fakePayrollRepo) ListResults(ctx context.Context, organizationID string, month, year int) ([]payroll.PayrollCalculationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []payroll.PayrollCalculationResult
	for _, r := range f.results {
		if r.OrganizationID == organizationID && r.PeriodMonth == month && r.PeriodYear == year {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourierID < out[j].CourierID })
	return out, nil
}

func (f *fakePayrollRepo) GetPeriodSummary(ctx context.Context, organizationID string, month, year int) (payroll.PeriodSummary, error) {
	results, _ := f.ListResults(ctx, organizationID, month, year)
	s := payroll.PeriodSummary{
		OrganizationID:   organizationID,
		PeriodMonth:      month,
		PeriodYear:       year,
		TotalCouriers:    len(results),
		TotalBasicSalary: decimal.Zero,
		TotalBonus:       decimal.Zero,
		TotalGasDeserved: decimal.Zero,
		TotalPayroll:     decimal.Zero,
	}
	for _, r := range results {
		s.TotalBasicSalary = s.TotalBasicSalary.Add(r.BasicSalary)
		s.TotalBonus = s.TotalBonus.Add(r.BonusAmount)
		s.TotalGasDeserved = s.TotalGasDeserved.Add(r.GasDeserved)
		s.TotalPayroll = s.TotalPayroll.Add(r.TotalSalary)
	}
	return s, nil
}

type fakeCourierRepo struct {
	organizations map[string]bool
	couriers      []payroll.Courier
}

func (f *fakeCourierRepo) OrganizationExists(ctx context.Context, organizationID string) (bool, error) {
	return f.organizations[organizationID], nil
}

func (f *fakeCourierRepo) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range f.organizations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeCourierRepo) GetByID(ctx context.Context, id string, organizationID string) (payroll.Courier, error) {
	for _, c := range f.couriers {
		if c.ID == id && c.OrganizationID == organizationID {
			return c, nil
		}
	}
	return payroll.Courier{}, payroll.ErrCourierNotFound
}

func (f *fakeCourierRepo) GetByIDs(ctx context.Context, ids []string, organizationID string) ([]payroll.Courier, error) {
	var out []payroll.Courier
	for _, c := range f.couriers {
		for _, id := range ids {
			if c.ID == id && c.OrganizationID == organizationID {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeCourierRepo) GetActiveByOrganizationID(ctx context.Context, organizationID string) ([]payroll.Courier, error) {
	var out []payroll.Courier
	for _, c := range f.couriers {
		if c.OrganizationID == organizationID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeInputProvider struct {
	inputs      map[string]payroll.CourierPayrollInput
	getInputsFn func(ctx context.Context, organizationID string, period payroll.Period, courierIDs []string) (map[string]payroll.CourierPayrollInput, error)
}

func (f *fakeInputProvider) GetInputs(ctx context.Context, organizationID string, period payroll.Period, courierIDs []string) (map[string]payroll.CourierPayrollInput, error) {
	if f.getInputsFn != nil {
		return f.getInputsFn(ctx, organizationID, period, courierIDs)
	}
	out := make(map[string]payroll.CourierPayrollInput)
	for _, id := range courierIDs {
		if in, ok := f.inputs[id]; ok {
			out[id] = in
		}
	}
	return out, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	acquired []string
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[key]; ok {
		return "", payroll.ErrRunInProgress
	}
	token := uuid.NewString()
	f.held[key] = token
	f.acquired = append(f.acquired, key)
	return token, nil
}

func (f *fakeLocker) Release(ctx context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] == token {
		delete(f.held, key)
		f.released = append(f.released, key)
	}
	return nil
}
