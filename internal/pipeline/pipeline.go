// Package pipeline defines the warehouse transform stages and executes
// their SQL against the store.
package pipeline

import (
	"context"
	"fmt"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/store"
	"dw-pipeline/internal/util"

	"go.uber.org/zap"
)

// Statement is one labeled unit of transform SQL.
type Statement struct {
	Label string
	SQL   string
}

// Stage is an ordered list of statements building one warehouse layer.
type Stage struct {
	ID         models.StageID
	Name       string
	Statements []Statement
}

// Stages returns the transform stages in execution order. ODS loading is
// not a transform; it runs through the generator and store directly.
func Stages() []Stage {
	return []Stage{
		{ID: models.StageDWD, Name: "明细层构建", Statements: dwdStatements},
		{ID: models.StageDWS, Name: "汇总层构建", Statements: dwsStatements},
		{ID: models.StageADS, Name: "应用层构建", Statements: adsStatements},
	}
}

// StageByID looks up a transform stage.
func StageByID(id models.StageID) (Stage, bool) {
	for _, st := range Stages() {
		if st.ID == id {
			return st, true
		}
	}
	return Stage{}, false
}

// ProgressFunc receives one line per executed statement.
type ProgressFunc func(msg string)

// Runner executes transform stages.
type Runner struct {
	store  *store.Store
	logger *zap.Logger
}

func NewRunner(st *store.Store) *Runner {
	return &Runner{store: st, logger: util.GetLogger()}
}

// Run executes every statement of the stage in order. Cancellation is
// honored between statements; a cancelled run reports ctx.Err() so the
// caller can distinguish a stop from a failure.
func (r *Runner) Run(ctx context.Context, id models.StageID, progress ProgressFunc) error {
	stage, ok := StageByID(id)
	if !ok {
		return fmt.Errorf("unknown transform stage %q", id)
	}

	db := r.store.GetDB()
	for i, stmt := range stage.Statements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if progress != nil {
			progress(fmt.Sprintf("[%d/%d] %s", i+1, len(stage.Statements), stmt.Label))
		}
		if _, err := db.ExecContext(ctx, stmt.SQL); err != nil {
			r.logger.Error("Transform statement failed",
				zap.String("stage", string(id)),
				zap.String("statement", stmt.Label),
				zap.Error(err))
			return fmt.Errorf("%s: %s: %w", stage.Name, stmt.Label, err)
		}
	}

	r.logger.Info("Transform stage finished",
		zap.String("stage", string(id)),
		zap.Int("statements", len(stage.Statements)))
	return nil
}
