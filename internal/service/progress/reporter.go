package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vertextoedge/txtfetch/internal/domain"
)

const (
	// dotSteps is how many dots a full run prints at most
	dotSteps = 120
	// percentSteps is how many percentages a full run prints at most
	percentSteps = 13
)

// Config holds reporter configuration
type Config struct {
	// Enabled turns the character stream on or off
	Enabled bool

	// LogInterval throttles the structured progress log
	LogInterval time.Duration
}

// DefaultConfig returns default reporter configuration
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		LogInterval: 10 * time.Second,
	}
}

// Reporter prints a compact progress stream and logs periodic summaries.
// It is safe for concurrent use.
type Reporter struct {
	out      io.Writer
	enabled  bool
	logger   *zap.Logger
	logEvery *rate.Sometimes

	mu         sync.Mutex
	total      int
	finished   int
	dotMod     int
	percentMod int
	startedAt  time.Time
}

// New creates a new Reporter writing characters to out
func New(out io.Writer, cfg Config, logger *zap.Logger) *Reporter {
	return &Reporter{
		out:      out,
		enabled:  cfg.Enabled && out != nil,
		logger:   logger,
		logEvery: &rate.Sometimes{Interval: cfg.LogInterval},
	}
}

// Start resets the reporter for a run of total tasks
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.finished = 0
	r.dotMod = ceilDiv(total, dotSteps)
	r.percentMod = ceilDiv(total, percentSteps)
	r.startedAt = time.Now()
}

// Mods returns the dot and percent print intervals of the current run
func (r *Reporter) Mods() (dot, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dotMod, r.percentMod
}

// TaskDone records one finished task, successful or not
func (r *Reporter) TaskDone(snap domain.CounterSnapshot) {
	r.mu.Lock()
	r.finished++
	done := r.finished
	var mark string
	switch {
	case r.percentMod > 0 && done%r.percentMod == 0:
		mark = fmt.Sprintf("%d%%", (done*200+r.total)/(2*r.total))
	case r.dotMod > 0 && done%r.dotMod == 0:
		mark = "."
	}
	if r.enabled && mark != "" {
		io.WriteString(r.out, mark)
	}
	r.mu.Unlock()

	r.Tick(snap)
}

// Retry prints a retry marker such as "R2x"
func (r *Reporter) Retry(code string, attempt int) {
	if code == "" {
		code = "E"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		fmt.Fprintf(r.out, "%s%dx", code, attempt)
	}
}

// Tick logs a progress summary if the log interval has elapsed.
// The first call always logs; a zero interval logs every call.
func (r *Reporter) Tick(snap domain.CounterSnapshot) {
	r.logEvery.Do(func() { r.logProgress(snap) })
}

func (r *Reporter) logProgress(snap domain.CounterSnapshot) {
	r.mu.Lock()
	total, elapsed := r.total, time.Since(r.startedAt)
	r.mu.Unlock()

	r.logger.Info("Download progress",
		zap.Int64("completed", snap.Completed),
		zap.Int64("failed", snap.Failed),
		zap.Int64("in_flight", snap.Admitted-snap.Finished()),
		zap.Int("total", total),
		zap.String("downloaded", humanize.Bytes(uint64(snap.Bytes))),
		zap.Duration("elapsed", elapsed.Round(time.Second)))
}

// Finish ends the character stream and logs the final summary
func (r *Reporter) Finish(report *domain.RunReport) {
	r.mu.Lock()
	if r.enabled {
		io.WriteString(r.out, "\n")
	}
	r.mu.Unlock()

	c := report.Counters
	r.logger.Info(fmt.Sprintf("Downloaded %s files in %s",
		humanize.Comma(c.Completed), FormatDuration(report.Elapsed())),
		zap.String("run_id", report.ID),
		zap.Int64("completed", c.Completed),
		zap.Int64("failed", c.Failed),
		zap.Int64("skipped", c.Skipped),
		zap.String("bytes", humanize.Bytes(uint64(c.Bytes))))
}

// FormatDuration renders d the way a person would say it, e.g. "2m 5.3s"
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		m := d / time.Minute
		return fmt.Sprintf("%dm %.1fs", m, (d - m*time.Minute).Seconds())
	}
	h := d / time.Hour
	m := (d - h*time.Hour) / time.Minute
	return fmt.Sprintf("%dh %dm", h, m)
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
