// Package worker drives the pipeline from broker messages so automation
// can sequence stages without the HTTP surface.
package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"dw-pipeline/internal/broker"
	"dw-pipeline/internal/models"
	"dw-pipeline/internal/service"
	"dw-pipeline/internal/util"
)

// StageWorker consumes StageRequested events and starts the matching
// stage through the coordinator.
type StageWorker struct {
	consumer *broker.Consumer
	svc      *service.PipelineService
	logger   *zap.Logger
}

// NewStageWorker creates a new stage worker
func NewStageWorker(consumer *broker.Consumer, svc *service.PipelineService) *StageWorker {
	return &StageWorker{
		consumer: consumer,
		svc:      svc,
		logger:   util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled.
func (w *StageWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stage worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *StageWorker) Stop() error {
	w.logger.Info("Stopping stage worker")
	return w.consumer.Close()
}

func (w *StageWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		// Malformed payloads would never parse on redelivery either.
		w.logger.Warn("Discarding unparseable message", zap.Error(err))
		return nil
	}
	if baseEvent.EventType != models.EventTypeStageRequested {
		return nil
	}

	var event models.StageRequestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Warn("Discarding malformed stage request", zap.Error(err))
		return nil
	}

	runID, err := w.dispatch(ctx, event.Stage)
	switch {
	case err == nil:
		w.logger.Info("Stage started from broker request",
			zap.String("stage", string(event.Stage)),
			zap.String("run_id", runID))
		return nil
	case errors.Is(err, models.ErrAlreadyRunning),
		errors.Is(err, models.ErrPrerequisiteNotMet),
		errors.As(err, new(*models.ConfigurationError)):
		// The requester raced the pipeline state; redelivering the same
		// request would only race again.
		w.logger.Warn("Dropping stage request",
			zap.String("stage", string(event.Stage)),
			zap.Error(err))
		return nil
	default:
		return err
	}
}

func (w *StageWorker) dispatch(ctx context.Context, stage models.StageID) (string, error) {
	switch stage {
	case models.StageVerify:
		return w.svc.StartVerification(ctx)
	case models.StageDWD, models.StageDWS, models.StageADS:
		return w.svc.RunStage(ctx, stage)
	default:
		return "", &models.ConfigurationError{
			Field: "stage", Reason: "stage not runnable from broker: " + string(stage)}
	}
}
