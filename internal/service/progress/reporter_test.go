package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vertextoedge/txtfetch/internal/domain"
)

func TestReporter_Mods(t *testing.T) {
	tests := []struct {
		total   int
		dot     int
		percent int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{13, 1, 1},
		{120, 1, 10},
		{240, 2, 19},
		{1000, 9, 77},
	}

	for _, tt := range tests {
		r := New(&bytes.Buffer{}, DefaultConfig(), zap.NewNop())
		r.Start(tt.total)
		dot, percent := r.Mods()
		if dot != tt.dot || percent != tt.percent {
			t.Errorf("total %d: Mods() = %d, %d, want %d, %d", tt.total, dot, percent, tt.dot, tt.percent)
		}
	}
}

func TestReporter_TaskDone_Stream(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Config{Enabled: true, LogInterval: time.Hour}, zap.NewNop())
	r.Start(240)

	for i := 0; i < 40; i++ {
		r.TaskDone(domain.CounterSnapshot{})
	}

	// Dots on every even count, percentages at 19 and 38 take precedence.
	want := strings.Repeat(".", 9) + "8%" + strings.Repeat(".", 9) + "16%" + "."
	if got := buf.String(); got != want {
		t.Errorf("stream = %q, want %q", got, want)
	}
}

func TestReporter_TaskDone_Complete(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Config{Enabled: true, LogInterval: time.Hour}, zap.NewNop())
	r.Start(13)

	for i := 0; i < 13; i++ {
		r.TaskDone(domain.CounterSnapshot{})
	}
	if !strings.HasSuffix(buf.String(), "100%") {
		t.Errorf("stream = %q, want it to end with 100%%", buf.String())
	}
}

func TestReporter_Retry(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, DefaultConfig(), zap.NewNop())
	r.Retry("R", 1)
	r.Retry("TD", 2)
	r.Retry("", 3)

	if got := buf.String(); got != "R1xTD2xE3x" {
		t.Errorf("stream = %q", got)
	}
}

func TestReporter_Disabled(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Config{Enabled: false}, zap.NewNop())
	r.Start(2)
	r.TaskDone(domain.CounterSnapshot{})
	r.Retry("R", 1)
	r.Finish(domain.NewRunReport("id", time.Now()))

	if buf.Len() != 0 {
		t.Errorf("disabled reporter wrote %q", buf.String())
	}
}

func TestReporter_LogsThrottled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := New(nil, Config{Enabled: false, LogInterval: time.Hour}, zap.New(core))
	r.Start(10)

	for i := 0; i < 5; i++ {
		r.TaskDone(domain.CounterSnapshot{Admitted: 10, Completed: int64(i + 1)})
	}
	if n := logs.FilterMessage("Download progress").Len(); n != 1 {
		t.Errorf("progress logged %d times, want 1", n)
	}

	report := domain.NewRunReport("run-1", time.Now().Add(-time.Minute))
	report.Counters = domain.CounterSnapshot{Completed: 1234}
	r.Finish(report)

	final := logs.FilterField(zap.String("run_id", "run-1")).All()
	if len(final) != 1 || !strings.HasPrefix(final[0].Message, "Downloaded 1,234 files in ") {
		t.Errorf("final summary = %+v", final)
	}
}

func TestReporter_TickWithoutInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := New(nil, Config{}, zap.New(core))
	r.Start(3)

	for i := 0; i < 3; i++ {
		r.Tick(domain.CounterSnapshot{Admitted: 3, Completed: int64(i + 1)})
	}
	if n := logs.FilterMessage("Download progress").Len(); n != 3 {
		t.Errorf("progress logged %d times, want 3", n)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{2*time.Minute + 5300*time.Millisecond, "2m 5.3s"},
		{3*time.Hour + 7*time.Minute, "3h 7m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
