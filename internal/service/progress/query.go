package progress

import (
	"context"
	"math"

	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/repository"
)

// View is the full read model of one application's ledger.
type View struct {
	Rows    []model.ProgressDetail `json:"rows"`
	Summary model.ProgressSummary  `json:"summary"`
}

// Query serves the read side of the ledger.
type Query struct {
	store     repository.ProgressStore
	directory repository.Directory
	logger    *zap.Logger
}

func NewQuery(store repository.ProgressStore, directory repository.Directory, logger *zap.Logger) *Query {
	return &Query{
		store:     store,
		directory: directory,
		logger:    logger,
	}
}

// GetProgress returns the ordered ledger rows plus the aggregate summary.
func (q *Query) GetProgress(ctx context.Context, applicationID int64) (*View, error) {
	if _, err := q.directory.GetApplication(ctx, applicationID); err != nil {
		return nil, err
	}

	rows, err := q.store.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	return &View{
		Rows:    rows,
		Summary: Summarize(rows),
	}, nil
}

// Summarize computes the aggregate view of a set of ledger rows. The
// percentage is guarded to 0 for an empty ledger.
func Summarize(rows []model.ProgressDetail) model.ProgressSummary {
	summary := model.ProgressSummary{Total: len(rows)}

	for i := range rows {
		row := &rows[i]
		if row.Status == model.StatusCompleted {
			summary.Completed++
		}
		if row.Status == model.StatusInProgress && summary.CurrentMilestone == nil {
			name := row.MilestoneName
			summary.CurrentMilestone = &name
		}
	}

	summary.Pending = summary.Total - summary.Completed
	if summary.Total > 0 {
		summary.Percentage = math.Round(float64(summary.Completed) / float64(summary.Total) * 100)
	}

	return summary
}
