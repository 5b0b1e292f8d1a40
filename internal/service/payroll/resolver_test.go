package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type erroringPayrollRepo struct {
	*fakePayrollRepo
	err error
}

func (r *erroringPayrollRepo) GetParameters(ctx context.Context, category payroll.PayrollCategory, organizationID string) (payroll.PayrollParameters, error) {
	r.paramHits[category]++
	return payroll.PayrollParameters{}, r.err
}

func TestParameterResolver_ExactMatch(t *testing.T) {
	ctx := context.Background()
	repo := newFakePayrollRepo(motorcycleParams())
	resolver := NewParameterResolver(repo)

	params, err := resolver.Resolve(ctx, payroll.CategoryMotorcycle, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, payroll.CategoryMotorcycle, params.Category)

	_, err = resolver.Resolve(ctx, payroll.CategoryMotorcycle, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.paramHits[payroll.CategoryMotorcycle])
}

func TestParameterResolver_NoDefaultSubstitution(t *testing.T) {
	ctx := context.Background()
	repo := newFakePayrollRepo(motorcycleParams())
	resolver := NewParameterResolver(repo)

	_, err := resolver.Resolve(ctx, payroll.CategoryFoodTrial, testOrgID)
	assert.ErrorIs(t, err, payroll.ErrConfigurationMissing)

	// Another organization's row is never used
	_, err = resolver.Resolve(ctx, payroll.CategoryMotorcycle, "0190a6f0-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, payroll.ErrConfigurationMissing)

	// Negative results are memoized too
	_, err = resolver.Resolve(ctx, payroll.CategoryFoodTrial, testOrgID)
	assert.ErrorIs(t, err, payroll.ErrConfigurationMissing)
	assert.Equal(t, 1, repo.paramHits[payroll.CategoryFoodTrial])
}

func TestParameterResolver_AjeerCheckedBeforeLookup(t *testing.T) {
	ctx := context.Background()
	repo := newFakePayrollRepo()
	resolver := NewParameterResolver(repo)

	_, err := resolver.Resolve(ctx, payroll.CategoryAjeer, testOrgID)
	assert.ErrorIs(t, err, payroll.ErrUnsupportedCategory)
	assert.Zero(t, repo.paramHits[payroll.CategoryAjeer])

	_, err = resolver.Resolve(ctx, payroll.PayrollCategory("Bicycle"), testOrgID)
	assert.ErrorIs(t, err, payroll.ErrInvalidCategory)
}

func TestParameterResolver_TransientErrorNotCached(t *testing.T) {
	ctx := context.Background()
	repo := &erroringPayrollRepo{fakePayrollRepo: newFakePayrollRepo(), err: errors.New("conn closed")}
	resolver := NewParameterResolver(repo)

	_, err := resolver.Resolve(ctx, payroll.CategoryMotorcycle, testOrgID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, payroll.ErrConfigurationMissing)

	_, err = resolver.Resolve(ctx, payroll.CategoryMotorcycle, testOrgID)
	require.Error(t, err)
	assert.Equal(t, 2, repo.paramHits[payroll.CategoryMotorcycle])
}
