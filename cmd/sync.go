package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/staffline/boond-sync/internal/quality"
	boondsync "github.com/staffline/boond-sync/internal/sync"
	"github.com/staffline/boond-sync/pkg/boond"
)

// -- fetch --

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every candidate, resource and project of an environment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx, "client", false)
		if err != nil {
			return err
		}
		defer app.Close()

		env, err := app.Environment()
		if err != nil {
			return err
		}
		snap, err := app.Service.FetchAllData(ctx, env)
		if snap == nil {
			return err
		}
		if err != nil {
			zap.L().Warn("snapshot incomplete", zap.String("environment", string(env)), zap.Error(err))
		}

		summary, _ := cmd.Flags().GetBool("summary")
		if summary {
			formatSnapshotSummary(os.Stdout, snap)
			return nil
		}
		return printOutput(os.Stdout, outputFlag, snap)
	},
}

// -- quality --

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Report incomplete, malformed and duplicated records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx, "client", false)
		if err != nil {
			return err
		}
		defer app.Close()

		env, err := app.Environment()
		if err != nil {
			return err
		}
		rep, err := app.Service.AnalyzeAllDataQuality(ctx, env)
		if err != nil {
			return err
		}

		if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return eris.Wrapf(err, "create %s", path)
			}
			defer f.Close() //nolint:errcheck
			if err := quality.WriteXLSX(*rep, f); err != nil {
				return err
			}
			zap.L().Info("quality report written", zap.String("path", path))
			return nil
		}
		return printOutput(os.Stdout, outputFlag, rep)
	},
}

// -- sync --

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replicate production into sandbox",
	Long:  "Creates sandbox counterparts of production records, updates those that differ and copies missing resumes. Production is never written.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if noDocs, _ := cmd.Flags().GetBool("no-documents"); noDocs {
			cfg.Sync.IncludeDocuments = false
		}

		app, err := initApp(ctx, "sync", true)
		if err != nil {
			return err
		}
		defer app.Close()

		if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		res, err := app.Service.SyncProdToSandbox(ctx)
		if err != nil {
			return err
		}

		summary, _ := cmd.Flags().GetBool("summary")
		if summary {
			formatSyncSummary(os.Stdout, res)
		} else if err := printOutput(os.Stdout, outputFlag, res); err != nil {
			return err
		}
		if res.Cancelled {
			return eris.New("sync cancelled before completion")
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().Bool("summary", false, "print record counts only")
	qualityCmd.Flags().String("xlsx", "", "write the report to an Excel workbook instead of stdout")
	syncCmd.Flags().Bool("no-documents", false, "skip resume replication")
	syncCmd.Flags().Duration("timeout", 0, "stop starting new records after this duration")
	syncCmd.Flags().Bool("summary", false, "print a per-type table instead of the full result")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(syncCmd)
}

// formatSnapshotSummary writes one line per resource type.
func formatSnapshotSummary(out io.Writer, snap *boondsync.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tRECORDS\tERROR")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----")
	for _, t := range snap.Types {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", t.Type, len(t.Records), t.Error)
	}
	_ = w.Flush()
}

// formatSyncSummary writes per-type outcome counts and the totals.
func formatSyncSummary(out io.Writer, res *boondsync.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tCREATED\tUPDATED\tSKIPPED\tFAILED\tNOT_ATTEMPTED\tFETCH_ERROR")
	_, _ = fmt.Fprintln(w, "----\t-------\t-------\t-------\t------\t-------------\t-----------")
	for _, t := range res.Types {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			t.Type, t.Created, t.Updated, t.Skipped, t.Failed, t.NotAttempted, t.FetchError)
	}
	_, _ = fmt.Fprintf(w, "total\t%d\t%d\t%d\t%d\t%d\t\n",
		res.Totals.Created, res.Totals.Updated, res.Totals.Skipped, res.Totals.Failed, res.Totals.NotAttempted)
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nRun %s finished in %s", truncateID(res.RunID), res.FinishedAt.Sub(res.StartedAt).Round(time.Second))
	if res.Cancelled {
		_, _ = fmt.Fprint(out, " (cancelled)")
	}
	_, _ = fmt.Fprintln(out)
	if docs := res.Type(boond.Documents); docs != nil && docs.ParentsNotAttempted > 0 {
		_, _ = fmt.Fprintf(out, "Resumes of %d linked records were not checked\n", docs.ParentsNotAttempted)
	}
}
