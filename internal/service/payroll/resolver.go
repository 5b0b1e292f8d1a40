package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
)

type resolverKey struct {
	category       payroll.PayrollCategory
	organizationID string
}

type resolverEntry struct {
	params payroll.PayrollParameters
	err    error
}

// ParameterResolver looks up the parameter row for a (category, organization) pair.
// Lookups are memoized for the resolver's lifetime, so create one per batch.
type ParameterResolver struct {
	repo payroll.PayrollRepository

	mu    sync.Mutex
	cache map[resolverKey]resolverEntry
}

func NewParameterResolver(repo payroll.PayrollRepository) *ParameterResolver {
	return &ParameterResolver{
		repo:  repo,
		cache: make(map[resolverKey]resolverEntry),
	}
}

// Resolve never substitutes defaults: a missing row is ErrConfigurationMissing.
func (r *ParameterResolver) Resolve(ctx context.Context, category payroll.PayrollCategory, organizationID string) (payroll.PayrollParameters, error) {
	kind, err := category.Formula()
	if err != nil {
		return payroll.PayrollParameters{}, err
	}
	if kind == payroll.FormulaUnsupported {
		return payroll.PayrollParameters{}, fmt.Errorf("%w: %s", payroll.ErrUnsupportedCategory, category)
	}

	key := resolverKey{category: category, organizationID: organizationID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.cache[key]; ok {
		return entry.params, entry.err
	}

	params, err := r.repo.GetParameters(ctx, category, organizationID)
	if err != nil {
		if !errors.Is(err, payroll.ErrConfigurationMissing) {
			return payroll.PayrollParameters{}, fmt.Errorf("failed to resolve parameters for %s: %w", category, err)
		}
		err = fmt.Errorf("%w: %s", err, category)
	}
	r.cache[key] = resolverEntry{params: params, err: err}
	return params, err
}
