package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/rabbitmq"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/validator"
)

type queueConsumer interface {
	ConsumeQueue(ctx context.Context, queueName string, handler rabbitmq.Handler) error
}

// PayrollWorker runs on-demand batches requested over RabbitMQ.
type PayrollWorker struct {
	consumer   queueConsumer
	payrollSvc payroll.PayrollService
	queueName  string
	timeout    time.Duration
}

// NewPayrollWorker bounds each run by timeout, which should not exceed the run lock TTL.
func NewPayrollWorker(consumer queueConsumer, payrollSvc payroll.PayrollService, queueName string, timeout time.Duration) *PayrollWorker {
	return &PayrollWorker{
		consumer:   consumer,
		payrollSvc: payrollSvc,
		queueName:  queueName,
		timeout:    timeout,
	}
}

func (w *PayrollWorker) Start(ctx context.Context) error {
	slog.Info("Starting payroll worker", "queue", w.queueName)
	return w.consumer.ConsumeQueue(ctx, w.queueName, w.HandleMessage)
}

func (w *PayrollWorker) HandleMessage(ctx context.Context, body []byte) error {
	var req payroll.BatchPayrollRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return rabbitmq.Permanent(fmt.Errorf("failed to unmarshal payroll request: %w", err))
	}

	slog.Info("Processing payroll request",
		"organization_id", req.OrganizationID,
		"period_month", req.PeriodMonth,
		"period_year", req.PeriodYear,
		"courier_count", len(req.CourierIDs),
	)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if _, err := w.payrollSvc.RunBatch(ctx, req); err != nil {
		var validationErrs validator.ValidationErrors
		switch {
		case errors.As(err, &validationErrs):
			slog.Warn("Rejected invalid payroll request", "fields", validationErrs.ToMap())
			return rabbitmq.Permanent(err)
		case isPermanent(err):
			return rabbitmq.Permanent(err)
		case errors.Is(err, payroll.ErrRunInProgress):
			// requeued after the consumer's retry delay
			slog.Info("Payroll run in progress, request will be retried",
				"organization_id", req.OrganizationID,
				"period_month", req.PeriodMonth,
				"period_year", req.PeriodYear,
			)
			return err
		default:
			return err
		}
	}
	return nil
}

// isPermanent reports errors that no redelivery can fix.
func isPermanent(err error) bool {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return true
	case errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrOrganizationNotFound),
		errors.Is(err, payroll.ErrInvalidCategory):
		return true
	default:
		return false
	}
}
