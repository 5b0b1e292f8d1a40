package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const performanceTable = "courier_performance_monthly"

// rowsQuerier is the subset of driver.Conn used for reads.
type rowsQuerier interface {
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

type performanceRepositoryImpl struct {
	conn  rowsQuerier
	table string
}

// NewPerformanceRepository reads monthly courier performance from the warehouse.
// table must already be database-qualified.
func NewPerformanceRepository(conn rowsQuerier, table string) payroll.InputProvider {
	return &performanceRepositoryImpl{conn: conn, table: table}
}

// PerformanceTable returns the unqualified warehouse table name.
func PerformanceTable() string {
	return performanceTable
}

// GetInputs implements payroll.InputProvider.
func (r *performanceRepositoryImpl) GetInputs(ctx context.Context, organizationID string, period payroll.Period, courierIDs []string) (map[string]payroll.CourierPayrollInput, error) {
	inputs := make(map[string]payroll.CourierPayrollInput, len(courierIDs))
	if len(courierIDs) == 0 {
		return inputs, nil
	}

	orgID, err := uuid.Parse(organizationID)
	if err != nil {
		return nil, fmt.Errorf("invalid organization id %q: %w", organizationID, err)
	}
	ids := make([]uuid.UUID, 0, len(courierIDs))
	for _, id := range courierIDs {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid courier id %q: %w", id, err)
		}
		ids = append(ids, parsed)
	}

	// FINAL collapses ReplacingMergeTree versions so late corrections win
	query := fmt.Sprintf(`
		SELECT
			courier_id,
			total_orders,
			total_revenue,
			gas_usage,
			target,
			joining_date
		FROM %s FINAL
		WHERE organization_id = ?
			AND period_year = ?
			AND period_month = ?
			AND courier_id IN (?)
	`, r.table)

	rows, err := r.conn.Query(ctx, query, orgID, uint16(period.Year), uint8(period.Month), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query courier performance: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			courierID    uuid.UUID
			totalOrders  uint64
			totalRevenue decimal.Decimal
			gasUsage     decimal.Decimal
			target       decimal.Decimal
			joiningDate  *time.Time
		)
		if err := rows.Scan(&courierID, &totalOrders, &totalRevenue, &gasUsage, &target, &joiningDate); err != nil {
			return nil, fmt.Errorf("failed to scan courier performance: %w", err)
		}

		inputs[courierID.String()] = payroll.CourierPayrollInput{
			CourierID:    courierID.String(),
			TotalOrders:  int64(totalOrders),
			TotalRevenue: totalRevenue,
			GasUsage:     gasUsage,
			Target:       target,
			JoiningDate:  joiningDate,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courier performance: %w", err)
	}

	return inputs, nil
}
