package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/infrastructure/excel"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/infrastructure/iec"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/infrastructure/persistence"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/infrastructure/report"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/services"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/composables"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/configuration"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/eventbus"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/ratelimit"
)

type runOptions struct {
	File      string
	ReportDir string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run --file <path>",
		Short: "Validate, verify and persist a membership spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.File) == "" {
				return errors.New("--file is required")
			}

			conf := configuration.Use()
			logger := conf.Logger()
			if strings.TrimSpace(opts.ReportDir) == "" {
				opts.ReportDir = conf.Upload.ReportDir
			}

			reader := excel.NewReader()
			if amount, err := decimal.NewFromString(conf.Upload.DefaultSubscriptionAmount); err == nil {
				reader = reader.WithDefaultSubscription(amount)
			}
			records, err := reader.Read(opts.File)
			if err != nil {
				return err
			}

			poolCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			pool, err := pgxpool.New(poolCtx, conf.Database.Opts)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			limiter, err := ratelimit.NewFromConfig(conf.RateLimit)
			if err != nil {
				return fmt.Errorf("configure rate limiter: %w", err)
			}

			repo := persistence.NewMemberRepository()
			svc := services.NewUploadService(
				services.NewPreValidationService(repo, logger),
				services.NewVerificationService(iec.NewClient(conf.IEC), limiter, conf.IEC.BatchSize, logger),
				services.NewPersistenceService(repo, conf.Upload.StrictAtomic, logger),
				report.NewXlsxSink(opts.ReportDir),
				eventbus.NewEventPublisher(logger),
				logger,
			)

			ctx := composables.WithPool(cmd.Context(), pool)
			result, err := svc.ProcessRecords(ctx, filepath.Base(opts.File), records,
				func(stage upload.Stage, percent int, message string) {
					fmt.Printf("[%3d%%] %-14s %s\n", percent, stage, message)
				})
			if err != nil {
				return err
			}

			printSummary(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "path to the .xlsx upload file")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", "", "directory for the run report (defaults to BULK_REPORT_DIR)")
	return cmd
}

func printSummary(result *upload.RunResult) {
	fmt.Println()
	fmt.Printf("Run %s finished in %s\n", result.RunID,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Printf("  records:   %d (%d valid, %d invalid, %d duplicate rows)\n",
		result.Validation.Stats.TotalRecords,
		result.Validation.Stats.ValidIDs,
		result.Validation.Stats.InvalidIDs,
		result.Validation.Stats.Duplicates)
	fmt.Printf("  inserted:  %d\n", result.Persistence.Stats.Inserts)
	fmt.Printf("  updated:   %d\n", result.Persistence.Stats.Updates)
	fmt.Printf("  skipped:   %d\n", result.Persistence.Stats.Skipped)
	fmt.Printf("  failed:    %d\n", result.Persistence.Stats.Failures)
	if result.ReportPath != "" {
		fmt.Printf("  report:    %s\n", result.ReportPath)
	}
}
