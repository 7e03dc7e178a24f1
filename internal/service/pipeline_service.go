// Package service coordinates generation, transforms, and verification
// behind one facade.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"dw-pipeline/internal/configstore"
	"dw-pipeline/internal/generator"
	"dw-pipeline/internal/models"
	"dw-pipeline/internal/pipeline"
	"dw-pipeline/internal/redisclient"
	"dw-pipeline/internal/runner"
	"dw-pipeline/internal/scale"
	"dw-pipeline/internal/store"
	"dw-pipeline/internal/supervisor"
	"dw-pipeline/internal/util"
	"dw-pipeline/internal/verifier"
)

// stagePrereqs maps each transform stage to the stage that must be Done
// first. ODS has no prerequisite.
var stagePrereqs = map[models.StageID]models.StageID{
	models.StageDWD: models.StageODS,
	models.StageDWS: models.StageDWD,
	models.StageADS: models.StageDWS,
}

// PipelineService is the coordinator behind the HTTP and broker surfaces.
type PipelineService struct {
	mu         sync.RWMutex
	st         *store.Store
	sup        *supervisor.Supervisor
	cfg        *configstore.Store
	redis      *redisclient.Client
	dataDir    string
	proc       *runner.Runner
	external   map[models.StageID][]string
	lastReport *verifier.Report
	logger     *zap.Logger
}

// NewPipelineService wires the coordinator. redis may be nil; caching is
// then skipped. dataDir receives the CSV export of each generated dataset.
func NewPipelineService(st *store.Store, sup *supervisor.Supervisor, cfg *configstore.Store, redis *redisclient.Client, dataDir string) *PipelineService {
	return &PipelineService{
		st:       st,
		sup:      sup,
		cfg:      cfg,
		redis:    redis,
		dataDir:  dataDir,
		proc:     runner.New(),
		external: make(map[models.StageID][]string),
		logger:   util.GetLogger(),
	}
}

// UseExternalCommand points a transform stage at an external command
// instead of the built-in SQL runner. Operators migrating from a script
// toolchain can keep a stage on its old script; output lines stream as
// progress and cancellation reaps the process group.
func (s *PipelineService) UseExternalCommand(id models.StageID, cmdline string) {
	argv := strings.Fields(cmdline)
	if len(argv) == 0 {
		return
	}
	s.mu.Lock()
	s.external[id] = argv
	s.mu.Unlock()
	s.logger.Info("Stage bound to external command",
		zap.String("stage", string(id)),
		zap.String("command", argv[0]))
}

func (s *PipelineService) externalCommand(id models.StageID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.external[id]
}

func (s *PipelineService) currentStore() *store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// GenerateDataset claims the ODS slot and runs synthesis plus load in the
// background. The returned run ID identifies the slot occupancy.
func (s *PipelineService) GenerateDataset(ctx context.Context, req *generator.Request) (string, error) {
	ctx, span := util.StartSpan(ctx, "service.GenerateDataset")
	defer span.End()

	// Reject invalid requests before claiming the slot.
	if err := req.Validate(); err != nil {
		return "", err
	}
	st := s.currentStore()
	if st == nil {
		return "", &models.ConfigurationError{Field: "database", Reason: "no database connection"}
	}
	if err := st.Probe(ctx); err != nil {
		return "", err
	}

	return s.sup.Start(ctx, models.StageODS, func(runCtx context.Context, progress func(string)) error {
		gen := generator.New(func(msg string) { progress(msg) })
		ds, err := gen.Generate(runCtx, req)
		if err != nil {
			return err
		}
		progress("loading dataset into warehouse")
		if err := st.LoadDataset(runCtx, ds); err != nil {
			return err
		}
		if s.dataDir != "" {
			progress("exporting dataset to csv")
			if err := generator.ExportCSV(ds, s.dataDir); err != nil {
				// The warehouse load already succeeded; a bad export
				// must not fail the stage.
				s.logger.Warn("CSV export failed", zap.Error(err))
			}
		}
		progress("load finished")
		return nil
	})
}

// RunStage claims a transform stage's slot. The prerequisite stage must be
// Done; the check happens before any SQL executes.
func (s *PipelineService) RunStage(ctx context.Context, id models.StageID) (string, error) {
	ctx, span := util.StartSpan(ctx, "service.RunStage")
	defer span.End()

	prereq, ok := stagePrereqs[id]
	if !ok {
		return "", &models.ConfigurationError{Field: "stage", Reason: "not a transform stage: " + string(id)}
	}
	if state, ok := s.sup.StatusOf(prereq); !ok || state.Status != models.StatusDone {
		return "", fmt.Errorf("%w: %s requires %s to be done", models.ErrPrerequisiteNotMet, id, prereq)
	}

	if argv := s.externalCommand(id); len(argv) > 0 {
		return s.sup.Start(ctx, id, func(runCtx context.Context, progress func(string)) error {
			return s.proc.Run(runCtx, argv[0], argv[1:], nil, func(_, line string) {
				progress(line)
			})
		})
	}

	st := s.currentStore()
	if st == nil {
		return "", &models.ConfigurationError{Field: "database", Reason: "no database connection"}
	}

	tr := pipeline.NewRunner(st)
	return s.sup.Start(ctx, id, func(runCtx context.Context, progress func(string)) error {
		return tr.Run(runCtx, id, progress)
	})
}

// CancelStage requests cancellation of any live run in the slot.
func (s *PipelineService) CancelStage(id models.StageID) error {
	return s.sup.Cancel(id)
}

// Status returns the full slot snapshot. With Redis available it records
// terminal outcomes and fills never-run slots from the previous process's
// records, so the dashboard keeps its history across restarts. Prerequisite
// checks still demand an in-memory Done: a restart means re-running.
func (s *PipelineService) Status(ctx context.Context) map[models.StageID]models.StageState {
	snapshot := s.sup.Snapshot()
	if s.redis == nil {
		return snapshot
	}

	for id, st := range snapshot {
		switch st.Status {
		case models.StatusDone, models.StatusFailed, models.StatusStopped:
			if err := s.redis.RecordLastRun(ctx, st); err != nil {
				s.logger.Warn("Failed to record stage outcome", zap.Error(err))
			}
		case models.StatusNotRun:
			if last, err := s.redis.LastRun(ctx, id); err == nil && last != nil {
				snapshot[id] = *last
			}
		}
	}
	if err := s.redis.CacheStatus(ctx, snapshot); err != nil {
		s.logger.Warn("Failed to cache status snapshot", zap.Error(err))
	}
	return snapshot
}

// StartVerification claims the verify slot and audits the warehouse. The
// report lands in LatestReport when the run completes.
func (s *PipelineService) StartVerification(ctx context.Context) (string, error) {
	ctx, span := util.StartSpan(ctx, "service.StartVerification")
	defer span.End()

	st := s.currentStore()
	if st == nil {
		return "", &models.ConfigurationError{Field: "database", Reason: "no database connection"}
	}

	v := verifier.New(st)
	return s.sup.Start(ctx, models.StageVerify, func(runCtx context.Context, progress func(string)) error {
		progress("verification started")
		report, err := v.Verify(runCtx)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.lastReport = report
		s.mu.Unlock()
		if s.redis != nil {
			if err := s.redis.CacheVerificationReport(runCtx, report); err != nil {
				s.logger.Warn("Failed to cache verification report", zap.Error(err))
			}
		}

		progress(fmt.Sprintf("verification finished: consistent=%t findings=%d",
			report.Consistent, len(report.Findings)))
		if !report.Consistent {
			// Discrepancies are report content; the run itself succeeded.
			for _, f := range report.Findings {
				progress(fmt.Sprintf("discrepancy %s.%s: expected %s, got %s",
					f.Table, f.Field, f.Expected, f.Actual))
			}
		}
		return nil
	})
}

// LatestReport returns the most recent verification report, falling back
// to the Redis cache across restarts. Nil when never verified.
func (s *PipelineService) LatestReport(ctx context.Context) *verifier.Report {
	s.mu.RLock()
	report := s.lastReport
	s.mu.RUnlock()
	if report != nil {
		return report
	}

	if s.redis != nil {
		var cached verifier.Report
		if ok, err := s.redis.CachedVerificationReport(ctx, &cached); err == nil && ok {
			return &cached
		}
	}
	return nil
}

// Estimate computes the projected dataset volume.
func (s *PipelineService) Estimate(scaleName string, storeCount, timeSpanDays int) (scale.Estimate, error) {
	return scale.EstimateVolume(scaleName, storeCount, timeSpanDays)
}

// DatabaseConfig returns the persisted connection settings.
func (s *PipelineService) DatabaseConfig() (configstore.ConnectionInfo, error) {
	return s.cfg.LoadConnection()
}

// UpdateDatabaseConfig verifies the new settings, persists them, and swaps
// the live pool. The old pool keeps serving until the new one has passed
// its probe.
func (s *PipelineService) UpdateDatabaseConfig(ctx context.Context, info configstore.ConnectionInfo) error {
	ctx, span := util.StartSpan(ctx, "service.UpdateDatabaseConfig")
	defer span.End()

	if err := store.ProbeDSN(ctx, info.DSN()); err != nil {
		return err
	}
	newStore, err := store.NewStore(info.DSN())
	if err != nil {
		return err
	}
	if err := s.cfg.SaveConnection(info); err != nil {
		newStore.Close()
		return err
	}

	s.mu.Lock()
	old := s.st
	s.st = newStore
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}

	s.logger.Info("Database connection updated",
		zap.String("host", info.Host),
		zap.Int("port", info.Port),
		zap.String("database", info.Database))
	return nil
}

// TestConnection probes candidate settings without touching live state.
func (s *PipelineService) TestConnection(ctx context.Context, info configstore.ConnectionInfo) error {
	return store.ProbeDSN(ctx, info.DSN())
}

// GenerationConfig returns the persisted dataset shape.
func (s *PipelineService) GenerationConfig() (configstore.GenerationConfig, error) {
	return s.cfg.LoadGeneration()
}

// UpdateGenerationConfig validates and persists the dataset shape.
func (s *PipelineService) UpdateGenerationConfig(cfg configstore.GenerationConfig) error {
	req := &generator.Request{
		PlatformStores: cfg.PlatformStores,
		BusinessScale:  cfg.BusinessScale,
		TimeSpanDays:   cfg.TimeSpanDays,
		MainCategory:   cfg.MainCategory,
		TargetOrders:   cfg.TargetOrders,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return s.cfg.SaveGeneration(cfg)
}

// Ready reports whether the warehouse is reachable.
func (s *PipelineService) Ready(ctx context.Context) error {
	st := s.currentStore()
	if st == nil {
		return &models.ConfigurationError{Field: "database", Reason: "no database connection"}
	}
	return st.Probe(ctx)
}
