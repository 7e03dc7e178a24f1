package broker

import (
	"context"

	"go.uber.org/zap"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/util"
)

// EventPublisher adapts the producer to the supervisor's sink. Publish
// failures are logged, never propagated: losing an observer event must
// not fail the stage that emitted it.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer, logger: util.GetLogger()}
}

// Publish routes a stage event to the broker, keyed by stage so each
// stage's lifecycle stays in partition order.
func (ep *EventPublisher) Publish(ctx context.Context, event interface{}) {
	var key string
	switch e := event.(type) {
	case models.StageStartedEvent:
		key = string(e.Stage)
	case models.StageProgressEvent:
		key = string(e.Stage)
	case models.StageCompletedEvent:
		key = string(e.Stage)
	case models.StageFailedEvent:
		key = string(e.Stage)
	case models.StageStoppedEvent:
		key = string(e.Stage)
	case models.StageRequestedEvent:
		key = string(e.Stage)
	default:
		ep.logger.Warn("Dropping event of unknown type", zap.Any("event", event))
		return
	}

	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		ep.logger.Error("Failed to publish stage event",
			zap.String("key", key),
			zap.Error(err))
	}
}
