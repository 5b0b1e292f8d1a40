package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/config"
	appHTTP "github.com/cmlabs-hris/courier-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/clickhouse"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/cron"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/logger"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/rabbitmq"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/redisclient"
	chRepo "github.com/cmlabs-hris/courier-payroll-go/internal/repository/clickhouse"
	"github.com/cmlabs-hris/courier-payroll-go/internal/repository/postgresql"
	redisRepo "github.com/cmlabs-hris/courier-payroll-go/internal/repository/redis"
	payrollService "github.com/cmlabs-hris/courier-payroll-go/internal/service/payroll"
	"github.com/cmlabs-hris/courier-payroll-go/internal/workers"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, logCloser := logger.New(cfg.App)
	defer logCloser.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("Connected to Postgres", "host", cfg.Database.Host, "database", cfg.Database.Name)

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		return err
	}
	defer chClient.Close()
	slog.Info("Connected to ClickHouse", "host", cfg.ClickHouse.Host, "database", cfg.ClickHouse.Database)

	rdb, err := redisclient.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	slog.Info("Connected to Redis", "addr", cfg.Redis.Addr)

	payrollRepo := postgresql.NewPayrollRepository(db)
	courierRepo := postgresql.NewCourierRepository(db)
	inputs := chRepo.NewPerformanceRepository(chClient.Conn(), chClient.Table(chRepo.PerformanceTable()))
	locker := redisRepo.NewRunLocker(rdb)

	payrollSvc := payrollService.NewPayrollService(payrollRepo, courierRepo, inputs, locker, payrollService.Options{
		Workers: cfg.Payroll.Workers,
		LockTTL: cfg.Payroll.LockTTL,
	})

	var wg sync.WaitGroup
	checks := []appHTTP.Check{
		{Name: "postgres", Fn: db.Ping},
		{Name: "clickhouse", Fn: chClient.Ping},
		{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	if cfg.Payroll.CronEnabled {
		scheduler := cron.NewScheduler()
		cron.NewPayrollJobs(courierRepo, payrollSvc).RegisterJobs(scheduler, cfg.Payroll.CronInterval)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	if cfg.Payroll.ConsumerEnabled {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ)
		if err != nil {
			return err
		}
		defer consumer.Close()
		slog.Info("Connected to RabbitMQ", "queue", cfg.RabbitMQ.PayrollQueue)
		checks = append(checks, appHTTP.Check{Name: "rabbitmq", Fn: consumer.Ping})

		worker := workers.NewPayrollWorker(consumer, payrollSvc, cfg.RabbitMQ.PayrollQueue, cfg.Payroll.LockTTL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker.Start(ctx); err != nil {
				slog.Error("Payroll worker stopped", "error", err)
				stop()
			}
		}()
	}

	router := appHTTP.NewOpsRouter(log, checks...)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Ops server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Ops server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Ops server shutdown failed", "error", err)
	}

	wg.Wait()
	slog.Info("Worker stopped gracefully")
	return nil
}
