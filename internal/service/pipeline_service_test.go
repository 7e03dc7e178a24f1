package service

import (
	"context"
	"testing"
	"time"

	"dw-pipeline/internal/configstore"
	"dw-pipeline/internal/models"
	"dw-pipeline/internal/pipeline"
	"dw-pipeline/internal/store"
	"dw-pipeline/internal/supervisor"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*PipelineService, sqlmock.Sqlmock, *supervisor.Supervisor) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sup := supervisor.New(nil)
	svc := NewPipelineService(
		store.NewStoreFromDB(sqlx.NewDb(db, "sqlmock")),
		sup,
		configstore.New(t.TempDir()),
		nil,
		t.TempDir(),
	)
	return svc, mock, sup
}

func waitIdle(t *testing.T, sup *supervisor.Supervisor, id models.StageID) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Wait(ctx, id))
}

func markDone(t *testing.T, sup *supervisor.Supervisor, id models.StageID) {
	t.Helper()
	_, err := sup.Start(context.Background(), id, func(context.Context, func(string)) error {
		return nil
	})
	require.NoError(t, err)
	waitIdle(t, sup, id)
}

func TestRunStageRequiresPrerequisite(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RunStage(context.Background(), models.StageDWD)
	assert.ErrorIs(t, err, models.ErrPrerequisiteNotMet)

	_, err = svc.RunStage(context.Background(), models.StageADS)
	assert.ErrorIs(t, err, models.ErrPrerequisiteNotMet)
}

func TestRunStageRejectsNonTransformStage(t *testing.T) {
	svc, _, _ := newTestService(t)

	var cfgErr *models.ConfigurationError
	_, err := svc.RunStage(context.Background(), models.StageODS)
	assert.ErrorAs(t, err, &cfgErr)
	_, err = svc.RunStage(context.Background(), models.StageID("bogus"))
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunStageExecutesAfterPrerequisiteDone(t *testing.T) {
	svc, mock, sup := newTestService(t)
	markDone(t, sup, models.StageODS)

	// Every DWD statement runs in order.
	stage, ok := pipeline.StageByID(models.StageDWD)
	require.True(t, ok)
	for range stage.Statements {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	runID, err := svc.RunStage(context.Background(), models.StageDWD)
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	waitIdle(t, sup, models.StageDWD)

	state, _ := sup.StatusOf(models.StageDWD)
	assert.Equal(t, models.StatusDone, state.Status)
}

// A stage bound to an external command shells out instead of running its
// built-in SQL; process output lands in the slot as progress.
func TestRunStageViaExternalCommand(t *testing.T) {
	svc, _, sup := newTestService(t)
	markDone(t, sup, models.StageODS)
	svc.UseExternalCommand(models.StageDWD, "echo legacy transform done")

	runID, err := svc.RunStage(context.Background(), models.StageDWD)
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	waitIdle(t, sup, models.StageDWD)

	state, _ := sup.StatusOf(models.StageDWD)
	assert.Equal(t, models.StatusDone, state.Status)
	assert.Equal(t, "legacy transform done", state.LastLine)
}

func TestRunStageExternalCommandFailure(t *testing.T) {
	svc, _, sup := newTestService(t)
	markDone(t, sup, models.StageODS)
	svc.UseExternalCommand(models.StageDWD, "false")

	_, err := svc.RunStage(context.Background(), models.StageDWD)
	require.NoError(t, err)
	waitIdle(t, sup, models.StageDWD)

	state, _ := sup.StatusOf(models.StageDWD)
	assert.Equal(t, models.StatusFailed, state.Status)
	assert.NotEmpty(t, state.Error)
}

func TestRunStageFailureLandsInSlotState(t *testing.T) {
	svc, mock, sup := newTestService(t)
	markDone(t, sup, models.StageODS)

	mock.ExpectExec(".*").WillReturnError(assert.AnError)

	_, err := svc.RunStage(context.Background(), models.StageDWD)
	require.NoError(t, err)
	waitIdle(t, sup, models.StageDWD)

	state, _ := sup.StatusOf(models.StageDWD)
	assert.Equal(t, models.StatusFailed, state.Status)
	assert.NotEmpty(t, state.Error)
}

func TestStatusSnapshot(t *testing.T) {
	svc, _, _ := newTestService(t)
	snapshot := svc.Status(context.Background())
	assert.Len(t, snapshot, len(models.PipelineStages)+1)
}

func TestEstimate(t *testing.T) {
	svc, _, _ := newTestService(t)

	est, err := svc.Estimate("小型企业", 8, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(8*1500), est.DailyTraffic)

	_, err = svc.Estimate("巨型企业", 8, 30)
	assert.ErrorIs(t, err, models.ErrUnknownScale)
}

func TestUpdateGenerationConfigValidates(t *testing.T) {
	svc, _, _ := newTestService(t)

	bad := configstore.DefaultGeneration()
	bad.TimeSpanDays = -1
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, svc.UpdateGenerationConfig(bad), &cfgErr)

	good := configstore.DefaultGeneration()
	require.NoError(t, svc.UpdateGenerationConfig(good))
	loaded, err := svc.GenerationConfig()
	require.NoError(t, err)
	assert.Equal(t, good, loaded)
}

func TestReadyProbesDatabase(t *testing.T) {
	svc, mock, _ := newTestService(t)
	mock.ExpectPing()
	assert.NoError(t, svc.Ready(context.Background()))
}

func TestLatestReportNilBeforeVerification(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.Nil(t, svc.LatestReport(context.Background()))
}
