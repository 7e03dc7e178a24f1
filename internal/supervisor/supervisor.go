// Package supervisor owns the per-stage execution slots: one slot per
// pipeline stage, at most one live run per slot.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/util"
)

// fsm event names. Stage status strings double as fsm states.
const (
	evStart  = "start"
	evFinish = "finish"
	evFail   = "fail"
	evStop   = "stop"
)

// progressBuffer bounds the per-run line queue. A full queue drops the
// newest line (with a counter) so a slow sink can never stall the run.
const progressBuffer = 256

// EventSink receives lifecycle and progress events. Implementations must
// tolerate being called from run goroutines.
type EventSink interface {
	Publish(ctx context.Context, event interface{})
}

// RunFunc is one unit of stage work. It must honor ctx cancellation and
// may emit free-text progress lines.
type RunFunc func(ctx context.Context, progress func(line string)) error

type slot struct {
	machine  *fsm.FSM
	state    models.StageState
	cancel   context.CancelFunc
	released bool
}

// Supervisor coordinates stage slots. All state transitions happen under
// the mutex; run work happens outside it.
type Supervisor struct {
	mu     sync.Mutex
	slots  map[models.StageID]*slot
	sink   EventSink
	logger *zap.Logger
}

func New(sink EventSink) *Supervisor {
	s := &Supervisor{
		slots:  make(map[models.StageID]*slot),
		sink:   sink,
		logger: util.GetLogger(),
	}
	for _, id := range append(append([]models.StageID{}, models.PipelineStages...), models.StageVerify) {
		s.slots[id] = newSlot(id)
	}
	return s
}

func newSlot(id models.StageID) *slot {
	sl := &slot{
		state: models.StageState{Stage: id, Status: models.StatusNotRun},
	}
	sl.machine = fsm.NewFSM(
		string(models.StatusNotRun),
		fsm.Events{
			{Name: evStart, Src: []string{
				string(models.StatusNotRun),
				string(models.StatusDone),
				string(models.StatusFailed),
				string(models.StatusStopped),
			}, Dst: string(models.StatusRunning)},
			{Name: evFinish, Src: []string{string(models.StatusRunning)}, Dst: string(models.StatusDone)},
			{Name: evFail, Src: []string{string(models.StatusRunning)}, Dst: string(models.StatusFailed)},
			{Name: evStop, Src: []string{string(models.StatusRunning)}, Dst: string(models.StatusStopped)},
		},
		fsm.Callbacks{},
	)
	return sl
}

// StatusOf returns the current snapshot for one stage.
func (s *Supervisor) StatusOf(id models.StageID) (models.StageState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return models.StageState{}, false
	}
	return sl.state, true
}

// Snapshot returns the state of every slot, keyed by stage.
func (s *Supervisor) Snapshot() map[models.StageID]models.StageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.StageID]models.StageState, len(s.slots))
	for id, sl := range s.slots {
		out[id] = sl.state
	}
	return out
}

// Start claims the stage's slot and launches run in a goroutine. It
// returns ErrAlreadyRunning without side effects when the slot is taken.
// The slot is released exactly once no matter how the run exits.
func (s *Supervisor) Start(ctx context.Context, id models.StageID, run RunFunc) (string, error) {
	s.mu.Lock()
	sl, ok := s.slots[id]
	if !ok {
		s.mu.Unlock()
		return "", &models.ConfigurationError{Field: "stage", Reason: "unknown stage " + string(id)}
	}
	if err := sl.machine.Event(ctx, evStart); err != nil {
		s.mu.Unlock()
		return "", models.ErrAlreadyRunning
	}

	runID := uuid.New().String()
	// The run outlives the caller (an HTTP request, a broker delivery);
	// only Cancel ends it early. Trace and log values still flow through.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	now := time.Now()
	sl.cancel = cancel
	sl.released = false
	sl.state = models.StageState{
		Stage:     id,
		Status:    models.StatusRunning,
		RunID:     runID,
		StartedAt: &now,
	}
	s.mu.Unlock()

	util.StageRunsTotal.WithLabelValues(string(id)).Inc()
	s.publish(runCtx, models.NewStageStartedEvent(id, runID))

	lines := make(chan string, progressBuffer)
	drained := make(chan struct{})
	go func() {
		s.drainProgress(id, runID, lines)
		close(drained)
	}()

	go func() {
		defer cancel()
		err := run(runCtx, func(line string) {
			select {
			case lines <- line:
			default:
				util.ProgressLinesDropped.WithLabelValues(string(id)).Inc()
			}
		})
		close(lines)
		// Every queued progress event must reach the sink before the
		// terminal event for this run.
		<-drained
		s.release(id, runID, now, err, runCtx.Err())
	}()

	return runID, nil
}

// drainProgress forwards lines to the sink one at a time, preserving the
// order the run emitted them.
func (s *Supervisor) drainProgress(id models.StageID, runID string, lines <-chan string) {
	for line := range lines {
		s.mu.Lock()
		if sl, ok := s.slots[id]; ok && sl.state.RunID == runID {
			sl.state.LastLine = line
		}
		s.mu.Unlock()
		s.publish(context.Background(), models.NewStageProgressEvent(id, runID, line))
	}
}

// release transitions the slot out of running exactly once and publishes
// the terminal event.
func (s *Supervisor) release(id models.StageID, runID string, startedAt time.Time, runErr, ctxErr error) {
	s.mu.Lock()
	sl := s.slots[id]
	if sl.released || sl.state.RunID != runID {
		s.mu.Unlock()
		return
	}
	sl.released = true
	sl.cancel = nil

	ended := time.Now()
	sl.state.EndedAt = &ended

	var event interface{}
	switch {
	case runErr == nil:
		_ = sl.machine.Event(context.Background(), evFinish)
		sl.state.Status = models.StatusDone
		event = models.NewStageCompletedEvent(id, runID)
	case ctxErr != nil:
		_ = sl.machine.Event(context.Background(), evStop)
		sl.state.Status = models.StatusStopped
		event = models.NewStageStoppedEvent(id, runID)
		util.StageStopsTotal.WithLabelValues(string(id)).Inc()
	default:
		_ = sl.machine.Event(context.Background(), evFail)
		sl.state.Status = models.StatusFailed
		sl.state.Error = runErr.Error()
		event = models.NewStageFailedEvent(id, runID, runErr.Error())
		util.StageFailuresTotal.WithLabelValues(string(id)).Inc()
	}
	s.mu.Unlock()

	util.StageDuration.WithLabelValues(string(id)).Observe(ended.Sub(startedAt).Seconds())
	s.publish(context.Background(), event)
	s.logger.Info("Stage run released",
		zap.String("stage", string(id)),
		zap.String("run_id", runID),
		zap.Duration("elapsed", ended.Sub(startedAt)),
		zap.Error(runErr))
}

// Cancel requests cancellation of the stage's live run. Idle slots are a
// no-op, not an error: the caller cares that nothing is running after.
func (s *Supervisor) Cancel(id models.StageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return &models.ConfigurationError{Field: "stage", Reason: "unknown stage " + string(id)}
	}
	if sl.cancel != nil {
		sl.cancel()
	}
	return nil
}

// Wait blocks until the stage's slot is idle or the context expires. Test
// and shutdown helper.
func (s *Supervisor) Wait(ctx context.Context, id models.StageID) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		st, ok := s.StatusOf(id)
		if !ok || st.Status != models.StatusRunning {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) publish(ctx context.Context, event interface{}) {
	if s.sink != nil {
		s.sink.Publish(ctx, event)
	}
}
