package main

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertextoedge/txtfetch/internal/adapter/resolver"
	"github.com/vertextoedge/txtfetch/internal/port"
	"github.com/vertextoedge/txtfetch/internal/service/fetcher"
	"github.com/vertextoedge/txtfetch/internal/service/progress"
	"github.com/vertextoedge/txtfetch/internal/util/limiter"
)

type fetchOptions struct {
	concurrency int
	retries     int
	failFast    bool
	noProgress  bool
}

func newFetchCmd(a *app) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download every record that is not on disk yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("concurrency") {
				a.cfg.Fetch.MaxConcurrent = opts.concurrency
			}
			if cmd.Flags().Changed("retries") {
				a.cfg.Fetch.MaxRetries = opts.retries
			}
			if cmd.Flags().Changed("fail-fast") {
				a.cfg.Fetch.FailFast = opts.failFast
			}
			if opts.noProgress {
				a.cfg.Progress.Enabled = false
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runFetch(cmd, a)
		},
	}

	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "n", 0, "maximum concurrent downloads (default CPU count - 1)")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "retries per download after a transient network error")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop admitting downloads after the first permanent failure")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress character stream")
	return cmd
}

func runFetch(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	log := a.logger
	fc := a.cfg.Fetch

	maxConcurrent := fc.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = limiter.DefaultMax()
	}

	fsManager, err := a.newFileSystem()
	if err != nil {
		return err
	}
	if err := fsManager.EnsureRootDir(); err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	var ledger port.RunRepository
	if store != nil {
		ledger = store
	}

	dns := resolver.New(nil)
	client := a.newClient(maxConcurrent, dns)
	defer client.CloseIdleConnections()

	loader := a.newLoader()

	reporter := progress.New(os.Stdout, progress.Config{
		Enabled:     a.cfg.Progress.Enabled,
		LogInterval: a.cfg.Progress.GetLogInterval(),
	}, log.Named("progress"))

	f := fetcher.New(&fetcher.Config{
		MaxConcurrent:     maxConcurrent,
		MaxRetries:        fc.MaxRetries,
		RetryBackoff:      fc.GetRetryBackoff(),
		PollInterval:      fc.GetPollInterval(),
		RequestsPerSecond: fc.RequestsPerSecond,
		FailFast:          fc.FailFast,
	}, loader, client, fsManager, ledger, reporter, log.Named("fetcher"))

	fields := []zap.Field{
		zap.String("version", version),
		zap.String("metadata_dir", a.cfg.Metadata.Dir),
		zap.String("output_dir", fsManager.RootDir()),
		zap.Int("max_concurrent", maxConcurrent),
		zap.Int("max_total_sockets", fc.GetMaxTotalSockets(maxConcurrent)),
		zap.Int("max_retries", fc.MaxRetries),
	}
	if usage, err := fsManager.DiskUsage(); err == nil {
		fields = append(fields,
			zap.String("disk_free", humanize.Bytes(usage.Free)),
			zap.String("disk_total", humanize.Bytes(usage.Total)))
	}
	if existing, err := fsManager.CountFiles(a.cfg.Output.Extension); err == nil {
		fields = append(fields, zap.Int("files_on_disk", existing))
	}
	log.Info("Starting txtfetch", fields...)

	plan, report, runErr := f.RunCatalog(ctx)

	if plan != nil && a.cfg.Metadata.WriteNotFound && len(plan.Catalog.NotFound) > 0 {
		path, err := loader.WriteNotFound(plan.Catalog.NotFound, time.Now())
		if err != nil {
			log.Warn("Failed to write not-found list", zap.Error(err))
		} else {
			log.Info("Wrote not-found list",
				zap.String("path", path),
				zap.Int("records", len(plan.Catalog.NotFound)))
		}
	}

	log.Debug("DNS cache",
		zap.Int("hosts", dns.Len()),
		zap.Int64("hits", dns.Hits()),
		zap.Int64("misses", dns.Misses()))

	if runErr != nil {
		return runErr
	}

	if err := fetcher.CheckReport(report); err != nil {
		for _, res := range report.Failed() {
			log.Error("Download failed",
				zap.String("slug", res.Slug),
				zap.String("url", res.URL),
				zap.String("kind", res.ErrorKind),
				zap.Int("attempts", res.Attempts),
				zap.String("error", res.Error))
		}
		log.Error("Run finished with failures",
			zap.String("run_id", report.ID),
			zap.Int64("failed", report.Counters.Failed))
		return err
	}
	return nil
}
