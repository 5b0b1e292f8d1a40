package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type courierRepository struct {
	db *database.DB
}

func NewCourierRepository(db *database.DB) payroll.CourierRepository {
	return &courierRepository{db: db}
}

const courierColumns = `id, organization_id, full_name, payroll_category, joining_date, is_active`

func scanCouriers(rows pgx.Rows) ([]payroll.Courier, error) {
	defer rows.Close()

	var couriers []payroll.Courier
	for rows.Next() {
		var c payroll.Courier
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.FullName, &c.Category, &c.JoiningDate, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan courier: %w", err)
		}
		couriers = append(couriers, c)
	}
	return couriers, rows.Err()
}

func (r *courierRepository) OrganizationExists(ctx context.Context, organizationID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`, organizationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check organization: %w", err)
	}
	return exists, nil
}

func (r *courierRepository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *courierRepository) GetByID(ctx context.Context, id string, organizationID string) (payroll.Courier, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + courierColumns + ` FROM couriers WHERE id = $1 AND organization_id = $2`

	var c payroll.Courier
	err := q.QueryRow(ctx, query, id, organizationID).Scan(
		&c.ID, &c.OrganizationID, &c.FullName, &c.Category, &c.JoiningDate, &c.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Courier{}, payroll.ErrCourierNotFound
		}
		return payroll.Courier{}, fmt.Errorf("failed to get courier: %w", err)
	}
	return c, nil
}

// GetByIDs returns the subset of ids belonging to the organization, in no particular order.
func (r *courierRepository) GetByIDs(ctx context.Context, ids []string, organizationID string) ([]payroll.Courier, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + courierColumns + ` FROM couriers WHERE id = ANY($1::uuid[]) AND organization_id = $2`

	rows, err := q.Query(ctx, query, ids, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get couriers: %w", err)
	}
	return scanCouriers(rows)
}

func (r *courierRepository) GetActiveByOrganizationID(ctx context.Context, organizationID string) ([]payroll.Courier, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + courierColumns + `
		FROM couriers
		WHERE organization_id = $1 AND is_active = TRUE
		ORDER BY full_name, id
	`

	rows, err := q.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active couriers: %w", err)
	}
	return scanCouriers(rows)
}
