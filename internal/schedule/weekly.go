package schedule

import (
	"context"

	"github.com/nhle/studytrack/internal/model"
)

// SummaryGenerator produces the current week's summary.
type SummaryGenerator interface {
	Generate(ctx context.Context) (model.WeeklySummary, error)
}

// WeeklySummaryJob generates the week's summary. Runs after the first one
// in a week return the stored summary without calling the AI gateway.
func WeeklySummaryJob(g SummaryGenerator) Job {
	return func(ctx context.Context) error {
		_, err := g.Generate(ctx)
		return err
	}
}
