package payroll

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestPayrollService_ExportPeriod(t *testing.T) {
	ctx := context.Background()
	f := newBatchFixture()
	svc := f.service(1)

	_, err := svc.RunBatch(ctx, batchRequest())
	require.NoError(t, err)

	data, err := svc.ExportPeriod(ctx, testOrgID, 5, 2024)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	assert.Equal(t, []string{resultsSheet, summarySheet}, xl.GetSheetList())

	rows, err := xl.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, resultsHeader, rows[0])

	period, err := xl.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2024-05", period)

	couriers, err := xl.GetCellValue(summarySheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "3", couriers)

	total, err := xl.GetCellValue(summarySheet, "B9")
	require.NoError(t, err)
	assert.Equal(t, "9572.3", total)
}

func TestPayrollService_ExportPeriod_EmptyPeriod(t *testing.T) {
	ctx := context.Background()
	f := newBatchFixture()

	data, err := f.service(1).ExportPeriod(ctx, testOrgID, 6, 2024)
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows(resultsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
