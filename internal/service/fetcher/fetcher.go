package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vertextoedge/txtfetch/internal/domain"
	domainservice "github.com/vertextoedge/txtfetch/internal/domain/service"
	"github.com/vertextoedge/txtfetch/internal/port"
	"github.com/vertextoedge/txtfetch/internal/service/progress"
	"github.com/vertextoedge/txtfetch/internal/util/limiter"
	"github.com/vertextoedge/txtfetch/internal/util/retry"
)

// Config contains fetcher configuration
type Config struct {
	MaxConcurrent     int
	MaxRetries        int
	RetryBackoff      time.Duration
	PollInterval      time.Duration
	RequestsPerSecond float64
	FailFast          bool
	StatConcurrency   int
}

// DefaultConfig returns default fetcher configuration
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:   limiter.DefaultMax(),
		MaxRetries:      retry.DefaultMaxRetries,
		RetryBackoff:    retry.DefaultBackoffStep,
		PollInterval:    10 * time.Millisecond,
		StatConcurrency: 16,
	}
}

// Plan is the schedule of a run before anything is downloaded
type Plan struct {
	Catalog *domain.Catalog

	// Pending holds the tasks to download in admission order
	Pending []*domain.DownloadTask

	// Existing holds the tasks whose destination is already present
	Existing []*domain.DownloadTask
}

// Fetcher downloads a catalog with bounded concurrency
type Fetcher struct {
	config   *Config
	loader   port.CatalogLoader
	client   port.ContentClient
	fs       port.FileSystem
	ledger   port.RunRepository
	reporter *progress.Reporter
	logger   *zap.Logger

	limiter *limiter.Limiter
	gate    *rate.Limiter
}

// New creates a new Fetcher. ledger may be nil.
func New(
	cfg *Config,
	loader port.CatalogLoader,
	client port.ContentClient,
	fs port.FileSystem,
	ledger port.RunRepository,
	reporter *progress.Reporter,
	logger *zap.Logger,
) *Fetcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = retry.DefaultMaxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = retry.DefaultBackoffStep
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	if cfg.StatConcurrency == 0 {
		cfg.StatConcurrency = 16
	}
	if reporter == nil {
		reporter = progress.New(nil, progress.Config{LogInterval: 10 * time.Second}, logger)
	}

	f := &Fetcher{
		config:   cfg,
		loader:   loader,
		client:   client,
		fs:       fs,
		ledger:   ledger,
		reporter: reporter,
		logger:   logger,
		limiter:  limiter.New(cfg.MaxConcurrent),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.gate = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return f
}

// Limiter returns the admission limiter shared by all runs of this Fetcher
func (f *Fetcher) Limiter() *limiter.Limiter {
	return f.limiter
}

// Plan loads the catalog, orders it and checks which files already exist
func (f *Fetcher) Plan(ctx context.Context) (*Plan, error) {
	catalog, err := f.loader.LoadDir()
	if err != nil {
		return nil, err
	}

	for _, file := range catalog.Files {
		f.logger.Info("Metadata file",
			zap.String("path", file.Path),
			zap.Int("records", file.Records))
	}

	scheduled := domainservice.Schedule(catalog.Tasks)
	pending, existing, err := f.partition(ctx, scheduled)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Catalog loaded",
		zap.Int("records", catalog.TotalRecords()),
		zap.Int("unique", len(catalog.Tasks)),
		zap.Int("duplicates", catalog.Duplicates),
		zap.Int("not_found", len(catalog.NotFound)),
		zap.Int("invalid", catalog.Invalid),
		zap.Int("existing", len(existing)),
		zap.Int("to_download", len(pending)))

	return &Plan{Catalog: catalog, Pending: pending, Existing: existing}, nil
}

// RunCatalog plans and runs the whole catalog
func (f *Fetcher) RunCatalog(ctx context.Context) (*Plan, *domain.RunReport, error) {
	plan, err := f.Plan(ctx)
	if err != nil {
		return nil, nil, err
	}
	report, err := f.run(ctx, plan.Pending, plan.Existing)
	return plan, report, err
}

// Run downloads tasks in the given order, skipping those already on disk.
// Per-task failures are recorded in the report. An error is returned only
// when the context ends the run or, with FailFast, for the first failure.
func (f *Fetcher) Run(ctx context.Context, tasks []*domain.DownloadTask) (*domain.RunReport, error) {
	pending, existing, err := f.partition(ctx, tasks)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, pending, existing)
}

// partition splits tasks into those to download and those already present,
// keeping the input order in both.
func (f *Fetcher) partition(ctx context.Context, tasks []*domain.DownloadTask) (pending, existing []*domain.DownloadTask, err error) {
	exists := make([]bool, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.StatConcurrency)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := f.fs.FileExists(task.DestinationPath)
			if err != nil {
				return fmt.Errorf("check %s: %w", task.DestinationFileName, err)
			}
			exists[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i, task := range tasks {
		if exists[i] {
			existing = append(existing, task)
		} else {
			pending = append(pending, task)
		}
	}
	return pending, existing, nil
}

func (f *Fetcher) run(parent context.Context, pending, existing []*domain.DownloadTask) (*domain.RunReport, error) {
	report := domain.NewRunReport(ksuid.New().String(), time.Now())
	counters := &domain.RunCounters{}

	if removed, err := f.fs.CleanTempFiles(); err != nil {
		f.logger.Warn("Failed to clean temp files", zap.Error(err))
	} else if removed > 0 {
		f.logger.Info("Removed leftover temp files", zap.Int("count", removed))
	}

	if f.ledger != nil {
		if err := f.ledger.CreateRun(report.Summary(nil)); err != nil {
			f.logger.Warn("Failed to record run start", zap.String("run_id", report.ID), zap.Error(err))
		}
	}

	for _, task := range existing {
		counters.Skip()
		f.record(report, domain.TaskResult{
			Slug:       task.DestinationFileName,
			URL:        task.ContentURL,
			Status:     domain.TaskStatusSkipped,
			FinishedAt: time.Now(),
		})
	}

	f.logger.Info("Starting downloads",
		zap.String("run_id", report.ID),
		zap.Int("max_concurrent", f.limiter.Max()),
		zap.Int("to_download", len(pending)),
		zap.Int("skipped", len(existing)))

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	f.reporter.Start(len(pending))

	var wg sync.WaitGroup
	for _, task := range pending {
		if err := f.limiter.Acquire(ctx); err != nil {
			break
		}
		if ctx.Err() != nil {
			f.limiter.Release()
			break
		}
		counters.Admit()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer f.limiter.Release()
			f.download(ctx, cancel, task, counters, report)
		}()
	}

	f.drain(ctx, &wg, counters)

	report.FinishedAt = time.Now()
	report.Counters = counters.Snapshot()

	var runErr error
	if cause := context.Cause(ctx); cause != nil && domain.IsTaskError(cause) {
		runErr = cause
	} else if err := parent.Err(); err != nil {
		runErr = err
	}

	if f.ledger != nil {
		if err := f.ledger.FinishRun(report.Summary(runErr)); err != nil {
			f.logger.Warn("Failed to record run end", zap.String("run_id", report.ID), zap.Error(err))
		}
	}
	f.reporter.Finish(report)

	return report, runErr
}

// drain waits for every admitted task. It ticks the reporter every
// PollInterval so slow runs keep logging progress.
func (f *Fetcher) drain(ctx context.Context, wg *sync.WaitGroup, counters *domain.RunCounters) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()

	canceled := ctx.Done()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			f.reporter.Tick(counters.Snapshot())
		case <-canceled:
			snap := counters.Snapshot()
			f.logger.Info("Run canceled, waiting for in-flight downloads",
				zap.Int64("in_flight", snap.Admitted-snap.Finished()))
			canceled = nil
		}
	}
}

// download runs one admitted task to completion
func (f *Fetcher) download(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	task *domain.DownloadTask,
	counters *domain.RunCounters,
	report *domain.RunReport,
) {
	policy := retry.Policy{
		MaxRetries:  f.config.MaxRetries,
		IsRetryable: retry.IsRetryableTransport,
		Backoff:     retry.LinearBackoff(f.config.RetryBackoff),
		OnRetry: func(attempt int, err error) {
			kind := retry.Classify(err)
			f.reporter.Retry(kind.Code(), attempt)
			f.logger.Debug("Retrying download",
				zap.String("slug", task.DestinationFileName),
				zap.Int("attempt", attempt),
				zap.String("kind", kind.String()),
				zap.Error(err))
		},
	}
	if f.gate != nil {
		policy.Gate = f.gate
	}

	written, attempts, err := retry.Do(ctx, policy, func(ctx context.Context) (int64, error) {
		body, err := f.client.Fetch(ctx, task.ContentURL)
		if err != nil {
			return 0, err
		}
		defer body.Close()
		return f.fs.WriteFile(task.DestinationPath, body)
	})

	result := domain.TaskResult{
		Slug:       task.DestinationFileName,
		URL:        task.ContentURL,
		Attempts:   attempts,
		FinishedAt: time.Now(),
	}

	if err != nil {
		if delErr := f.fs.DeleteTempFile(task.DestinationPath); delErr != nil {
			f.logger.Warn("Failed to remove temp file",
				zap.String("path", task.DestinationPath),
				zap.Error(delErr))
		}

		taskErr := domain.NewTaskError(task, attempts, err)
		kind := ErrorKind(err)
		result.Status = domain.TaskStatusFailed
		result.Error = err.Error()
		result.ErrorKind = kind
		counters.Fail()

		if kind != KindCanceled {
			f.logger.Warn("Download failed",
				zap.String("slug", task.DestinationFileName),
				zap.String("url", task.ContentURL),
				zap.Int("attempts", attempts),
				zap.String("kind", kind),
				zap.Error(err))
			if f.config.FailFast {
				cancel(taskErr)
			}
		}
	} else {
		result.Status = domain.TaskStatusCompleted
		result.Bytes = written
		counters.Complete(written)
	}

	f.record(report, result)
	f.reporter.TaskDone(counters.Snapshot())
}

func (f *Fetcher) record(report *domain.RunReport, result domain.TaskResult) {
	report.Add(result)
	if f.ledger == nil {
		return
	}
	if err := f.ledger.SaveTaskResult(report.ID, &result); err != nil {
		f.logger.Warn("Failed to record task result",
			zap.String("run_id", report.ID),
			zap.String("slug", result.Slug),
			zap.Error(err))
	}
}

// ErrFailedTasks is returned by callers that treat failed tasks as an error.
var ErrFailedTasks = errors.New("some downloads failed")

// CheckReport returns ErrFailedTasks wrapped with the count if any task failed
func CheckReport(report *domain.RunReport) error {
	if report == nil || report.Counters.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d: %w",
		report.Counters.Failed, report.Counters.Admitted, ErrFailedTasks)
}
