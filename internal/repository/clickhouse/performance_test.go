package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrgID   = "0190a6f0-1111-7000-8000-000000000001"
	testCourier = "0190a6f0-2222-7000-8000-000000000001"
)

type perfRow struct {
	courierID   uuid.UUID
	totalOrders uint64
	revenue     decimal.Decimal
	gasUsage    decimal.Decimal
	target      decimal.Decimal
	joiningDate *time.Time
}

// fakeRows embeds driver.Rows so only the methods under test need bodies.
type fakeRows struct {
	driver.Rows
	rows    []perfRow
	pos     int
	scanErr error
	closed  bool
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.pos-1]
	*dest[0].(*uuid.UUID) = row.courierID
	*dest[1].(*uint64) = row.totalOrders
	*dest[2].(*decimal.Decimal) = row.revenue
	*dest[3].(*decimal.Decimal) = row.gasUsage
	*dest[4].(*decimal.Decimal) = row.target
	*dest[5].(**time.Time) = row.joiningDate
	return nil
}

func (f *fakeRows) Err() error   { return nil }
func (f *fakeRows) Close() error { f.closed = true; return nil }

type fakeConn struct {
	rows     *fakeRows
	err      error
	calls    int
	lastSQL  string
	lastArgs []any
}

func (c *fakeConn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	c.calls++
	c.lastSQL = query
	c.lastArgs = args
	if c.err != nil {
		return nil, c.err
	}
	return c.rows, nil
}

func mustPeriod(t *testing.T) payroll.Period {
	t.Helper()
	p, err := payroll.NewPeriod(5, 2024)
	require.NoError(t, err)
	return p
}

// ===== GET INPUTS TESTS =====

func TestPerformanceRepository_GetInputs_MapsRows(t *testing.T) {
	joined := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := &fakeRows{rows: []perfRow{{
		courierID:   uuid.MustParse(testCourier),
		totalOrders: 620,
		revenue:     decimal.RequireFromString("-120.50"),
		gasUsage:    decimal.RequireFromString("180.00"),
		target:      decimal.RequireFromString("20"),
		joiningDate: &joined,
	}}}
	conn := &fakeConn{rows: rows}
	repo := NewPerformanceRepository(conn, "analytics."+PerformanceTable())

	inputs, err := repo.GetInputs(context.Background(), testOrgID, mustPeriod(t), []string{testCourier})
	require.NoError(t, err)
	require.Len(t, inputs, 1)

	in := inputs[testCourier]
	assert.Equal(t, testCourier, in.CourierID)
	assert.Equal(t, int64(620), in.TotalOrders)
	assert.Equal(t, "-120.5", in.TotalRevenue.String())
	assert.Equal(t, "180", in.GasUsage.String())
	require.NotNil(t, in.JoiningDate)
	assert.True(t, joined.Equal(*in.JoiningDate))

	assert.True(t, rows.closed)
	assert.Contains(t, conn.lastSQL, "FROM analytics.courier_performance_monthly FINAL")
	require.Len(t, conn.lastArgs, 4)
	assert.Equal(t, uint16(2024), conn.lastArgs[1])
	assert.Equal(t, uint8(5), conn.lastArgs[2])
}

func TestPerformanceRepository_GetInputs_AbsentCourierNotInMap(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{}}
	repo := NewPerformanceRepository(conn, "analytics."+PerformanceTable())

	inputs, err := repo.GetInputs(context.Background(), testOrgID, mustPeriod(t), []string{testCourier})
	require.NoError(t, err)
	_, ok := inputs[testCourier]
	assert.False(t, ok)
}

func TestPerformanceRepository_GetInputs_EmptyIDsSkipsQuery(t *testing.T) {
	conn := &fakeConn{}
	repo := NewPerformanceRepository(conn, "analytics."+PerformanceTable())

	inputs, err := repo.GetInputs(context.Background(), testOrgID, mustPeriod(t), nil)
	require.NoError(t, err)
	assert.Empty(t, inputs)
	assert.Zero(t, conn.calls)
}

func TestPerformanceRepository_GetInputs_InvalidCourierID(t *testing.T) {
	conn := &fakeConn{}
	repo := NewPerformanceRepository(conn, "analytics."+PerformanceTable())

	_, err := repo.GetInputs(context.Background(), testOrgID, mustPeriod(t), []string{"not-a-uuid"})
	require.Error(t, err)
	assert.Zero(t, conn.calls)
}

func TestPerformanceRepository_GetInputs_QueryError(t *testing.T) {
	conn := &fakeConn{err: errors.New("code: 60, table does not exist")}
	repo := NewPerformanceRepository(conn, "analytics."+PerformanceTable())

	_, err := repo.GetInputs(context.Background(), testOrgID, mustPeriod(t), []string{testCourier})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query courier performance")
}

func TestPerformanceRepository_GetInputs_ScanError(t *testing.T) {
	rows := &fakeRows{rows: []perfRow{{}}, scanErr: errors.New("converting Decimal")}
	repo := NewPerformanceRepository(&fakeConn{rows: rows}, "analytics."+PerformanceTable())

	_, err := repo.GetInputs(context.Background(), testOrgID, mustPeriod(t), []string{testCourier})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan")
	assert.True(t, rows.closed)
}
