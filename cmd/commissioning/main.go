// Command commissioning ingests commissioning tracker workbooks and serves
// the derived metrics over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/service"
	"github.com/FACorreiaa/commissioning-tracker/pkg/config"
)

var errImportRejected = errors.New("import rejected")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "commissioning",
		Short:        "Commissioning tracker ingestion and metrics",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newImportCmd(), newSummarizeCmd(), newExportCmd())
	return root
}

// setup loads the configuration, builds the logger and wires the app.
func setup() (*Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return InitDependencies(cfg, logger)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the summary scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup()
			if err != nil {
				return err
			}
			defer deps.Cleanup()
			return serve(cmd.Context(), deps)
		},
	}
}

func serve(ctx context.Context, deps *Dependencies) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if deps.Scheduler != nil {
		if err := deps.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { <-deps.Scheduler.Stop().Done() }()
	}

	srv := &http.Server{
		Addr:              deps.Config.Server.Addr(),
		Handler:           deps.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	deps.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	var (
		fiscalYear string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a tracker workbook (.xlsx or .csv) for a fiscal year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			deps, err := setup()
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			res, err := deps.ImportService.Import(cmd.Context(), service.ImportRequest{
				FiscalYear: firstNonEmpty(fiscalYear, deps.Config.Import.DefaultFiscalYear),
				FileName:   filepath.Base(args[0]),
				Data:       data,
				DryRun:     dryRun,
			})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%w: %s", errImportRejected, strings.Join(res.Errors, "; "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&fiscalYear, "fiscal-year", "y", "", "Fiscal year label, e.g. FY_25-26")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and report without storing")
	return cmd
}

func newSummarizeCmd() *cobra.Command {
	var (
		fiscalYear string
		domain     string
		status     string
		recompute  bool
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Print the aggregate for a fiscal year, domain and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, ok := project.ParseDomain(domain)
			if !ok {
				return fmt.Errorf("unknown domain %q", domain)
			}
			var st project.Status
			if status != "" {
				if st, ok = project.ParseStatus(status); !ok {
					return fmt.Errorf("unknown status %q", status)
				}
			}

			deps, err := setup()
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			fy := firstNonEmpty(fiscalYear, deps.Config.Import.DefaultFiscalYear)
			if recompute {
				if _, err := deps.ProjectService.RecomputeSummaries(cmd.Context(), fy); err != nil {
					return err
				}
			}
			sum, err := deps.ProjectService.Summary(cmd.Context(), fy, d, st)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().StringVarP(&fiscalYear, "fiscal-year", "y", "", "Fiscal year label")
	cmd.Flags().StringVar(&domain, "domain", string(project.DomainOverall), "Solar, Wind or Overall")
	cmd.Flags().StringVar(&status, "status", "", "Plan, Rephase or Actual (empty sums every status)")
	cmd.Flags().BoolVar(&recompute, "recompute", false, "Also rebuild the stored summaries")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		fiscalYear string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored projects of a fiscal year as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup()
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			out, err := deps.ProjectService.ExportCSV(cmd.Context(), firstNonEmpty(fiscalYear, deps.Config.Import.DefaultFiscalYear))
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&fiscalYear, "fiscal-year", "y", "", "Fiscal year label")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
