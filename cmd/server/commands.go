package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diewo77/gst-invoices/auth"
	"github.com/diewo77/gst-invoices/internal/batch"
	"github.com/diewo77/gst-invoices/internal/db"
	"github.com/diewo77/gst-invoices/internal/export"
	"github.com/diewo77/gst-invoices/internal/logging"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/server"
	"github.com/diewo77/gst-invoices/internal/stats"
)

const shutdownTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "gst-invoices",
	Short: "GST invoicing service with monthly batch generation",
	Long: `gst-invoices keeps recurring GST clients, generates one numbered invoice per
client every month, renders it to PDF and emails it.

Without a subcommand the HTTP server starts, together with the monthly
scheduler unless BATCH_SCHEDULER=false.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the monthly scheduler",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context(), bootstrapOptions{migrate: true})
		if err != nil {
			return err
		}
		defer a.close()
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the operator, default email settings and default template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context(), bootstrapOptions{migrate: true, seed: true})
		if err != nil {
			return err
		}
		defer a.close()
		if demo, _ := cmd.Flags().GetBool("demo"); demo {
			if err := db.SeedDemo(a.db); err != nil {
				return fmt.Errorf("seeding demo clients failed: %w", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Seeding completed successfully")
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Monthly invoice generation",
}

var batchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one invoicing cycle now and print the summary",
	Example: `  # Generate and send this month's invoices
  gst-invoices batch run

  # Use four workers
  BATCH_WORKERS=4 gst-invoices batch run`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := bootstrap(ctx, bootstrapOptions{migrate: true, seed: true, storage: true})
		if err != nil {
			return err
		}
		defer a.close()

		summary, err := a.routerConfig().Orchestrator.Run(ctx)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, summary); err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d clients failed", summary.Failed, summary.Processed)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard statistics for the current month",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context(), bootstrapOptions{})
		if err != nil {
			return err
		}
		defer a.close()
		s, err := stats.NewService(a.store).Compute(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records as .xlsx workbooks",
}

var exportInvoicesCmd = &cobra.Command{
	Use:     "invoices",
	Short:   "Write invoices to a workbook",
	Example: `  gst-invoices export invoices --out july.xlsx --status sent`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")
		status, _ := cmd.Flags().GetString("status")
		f := repository.InvoiceFilter{Status: models.InvoiceStatus(status)}
		if status != "" && !f.Status.Valid() {
			return fmt.Errorf("unknown status %q", status)
		}

		a, err := bootstrap(cmd.Context(), bootstrapOptions{})
		if err != nil {
			return err
		}
		defer a.close()
		invoices, err := a.store.ListInvoices(cmd.Context(), f)
		if err != nil {
			return err
		}

		file, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := export.Invoices(file, invoices); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d invoices to %s\n", len(invoices), out)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash to put in OPERATOR_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	seedCmd.Flags().Bool("demo", false, "Also create sample clients")
	exportInvoicesCmd.Flags().String("out", "invoices.xlsx", "Output file")
	exportInvoicesCmd.Flags().String("status", "", "Only export invoices with this status")

	batchCmd.AddCommand(batchRunCmd)
	exportCmd.AddCommand(exportInvoicesCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, batchCmd, statsCmd, exportCmd, hashPasswordCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, bootstrapOptions{
		migrate: true,
		seed:    true,
		storage: true,
	})
	if err != nil {
		return err
	}
	defer a.close()
	log := logging.WithComponent(a.logger, "server")

	rc := a.routerConfig()
	cfg := a.cfg
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.New(a.db, rc, a.logger),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	var scheduler *batch.Scheduler
	if cfg.Batch.SchedulerEnabled {
		scheduler, err = batch.NewScheduler(cfg.Batch.Schedule, rc.Orchestrator, logging.WithComponent(a.logger, "scheduler"))
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).WithField("dev", cfg.App.Dev).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	log.Info("server stopped gracefully")
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
