package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cmlabs-hris/courier-payroll-go/internal/config"
	"github.com/cmlabs-hris/courier-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/clickhouse"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/logger"
	"github.com/cmlabs-hris/courier-payroll-go/internal/pkg/redisclient"
	chRepo "github.com/cmlabs-hris/courier-payroll-go/internal/repository/clickhouse"
	"github.com/cmlabs-hris/courier-payroll-go/internal/repository/postgresql"
	redisRepo "github.com/cmlabs-hris/courier-payroll-go/internal/repository/redis"
	payrollService "github.com/cmlabs-hris/courier-payroll-go/internal/service/payroll"
	"github.com/cmlabs-hris/courier-payroll-go/migrations"
)

const usage = `Usage: payroll <command> [flags]

Commands:
  migrate        apply the Postgres schema
  run            calculate and store payroll for an organization and period
  calculate      calculate one courier (use -persist to store the result)
  summary        print stored totals for a period
  export         write stored results of a period to an xlsx workbook
  params-list    print the payroll parameters configured for an organization
  params-import  upsert payroll parameters from a .json or .xlsx file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	orgID := fs.String("org", "", "organization UUID")
	month := fs.Int("month", 0, "period month (1-12)")
	year := fs.Int("year", 0, "period year")

	var (
		courierIDs = fs.String("couriers", "", "comma separated courier UUIDs (run), defaults to all active couriers")
		courierID  = fs.String("courier", "", "courier UUID (calculate)")
		category   = fs.String("category", "", "override the courier payroll category")
		persist    = fs.Bool("persist", false, "store the result (calculate)")
		out        = fs.String("out", "", "output file (export)")
		file       = fs.String("file", "", "parameters file (params-import)")
	)

	switch command {
	case "migrate", "run", "calculate", "summary", "export", "params-list", "params-import":
	case "-h", "--help", "help":
		fmt.Print(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

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

	if command == "migrate" {
		return migrations.Apply(ctx, db)
	}

	payrollRepo := postgresql.NewPayrollRepository(db)
	courierRepo := postgresql.NewCourierRepository(db)
	opts := payrollService.Options{Workers: cfg.Payroll.Workers, LockTTL: cfg.Payroll.LockTTL}

	var categoryOverride *payroll.PayrollCategory
	if *category != "" {
		c := payroll.PayrollCategory(*category)
		categoryOverride = &c
	}

	switch command {
	case "run", "calculate":
		chClient, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			return err
		}
		defer chClient.Close()
		inputs := chRepo.NewPerformanceRepository(chClient.Conn(), chClient.Table(chRepo.PerformanceTable()))

		if command == "calculate" {
			svc := payrollService.NewPayrollService(payrollRepo, courierRepo, inputs, nil, opts)
			result, err := svc.CalculateCourier(ctx, payroll.CalculateCourierRequest{
				OrganizationID: *orgID,
				CourierID:      *courierID,
				PeriodMonth:    *month,
				PeriodYear:     *year,
				Category:       categoryOverride,
				Persist:        *persist,
			})
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, result)
		}

		rdb, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		svc := payrollService.NewPayrollService(payrollRepo, courierRepo, inputs, redisRepo.NewRunLocker(rdb), opts)
		resp, err := svc.RunBatch(ctx, payroll.BatchPayrollRequest{
			OrganizationID: *orgID,
			PeriodMonth:    *month,
			PeriodYear:     *year,
			CourierIDs:     splitIDs(*courierIDs),
			Category:       categoryOverride,
		})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, resp)
	}

	// Remaining commands read and write Postgres only
	svc := payrollService.NewPayrollService(payrollRepo, courierRepo, nil, nil, opts)

	switch command {
	case "summary":
		summary, err := svc.GetPeriodSummary(ctx, *orgID, *month, *year)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, summary)

	case "export":
		if *out == "" {
			*out = fmt.Sprintf("payroll-%04d-%02d.xlsx", *year, *month)
		}
		data, err := svc.ExportPeriod(ctx, *orgID, *month, *year)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *out, err)
		}
		slog.Info("Payroll exported", "file", *out, "bytes", len(data))
		return nil

	case "params-list":
		params, err := svc.ListParameters(ctx, *orgID)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, params)

	case "params-import":
		rows, err := readParameters(*file)
		if err != nil {
			return err
		}
		saved, err := svc.ImportParameters(ctx, payroll.ImportParametersRequest{
			OrganizationID: *orgID,
			Rows:           rows,
		})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, saved)
	}

	return nil
}

func readParameters(path string) ([]payroll.ParametersImportRow, error) {
	if path == "" {
		return nil, fmt.Errorf("-file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return payrollService.ParseParametersWorkbook(f)
	case ".json":
		return payrollService.ParseParametersJSON(f)
	default:
		return nil, fmt.Errorf("unsupported parameters file %s, want .json or .xlsx", path)
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
