package repository

import (
	"github.com/vertextoedge/txtfetch/internal/domain"
)

// RunRepository defines the interface for the run ledger
type RunRepository interface {
	// CreateRun records the start of a run
	CreateRun(run *domain.RunSummary) error

	// SaveTaskResult records the outcome of one task
	SaveTaskResult(runID string, result *domain.TaskResult) error

	// FinishRun stores the final counters of a run
	FinishRun(run *domain.RunSummary) error

	// GetRun returns a run by ID
	// Returns domain.ErrNotFound if the run does not exist
	GetRun(runID string) (*domain.RunSummary, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(limit int) ([]*domain.RunSummary, error)

	// GetRunResults returns the task results of a run
	// If status is empty, all results are returned
	GetRunResults(runID string, status domain.TaskStatus) ([]*domain.TaskResult, error)
}
