package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dw-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *recordingSink) Publish(_ context.Context, event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) all() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}{}, r.events...)
}

func waitIdle(t *testing.T, s *Supervisor, id models.StageID) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx, id))
}

func TestStartAndComplete(t *testing.T) {
	sink := &recordingSink{}
	s := New(sink)

	runID, err := s.Start(context.Background(), models.StageDWD, func(ctx context.Context, progress func(string)) error {
		progress("working")
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	waitIdle(t, s, models.StageDWD)
	st, ok := s.StatusOf(models.StageDWD)
	require.True(t, ok)
	assert.Equal(t, models.StatusDone, st.Status)
	assert.Equal(t, runID, st.RunID)
	assert.NotNil(t, st.StartedAt)
	assert.NotNil(t, st.EndedAt)
}

func TestStartWhileRunningReturnsAlreadyRunning(t *testing.T) {
	s := New(nil)
	release := make(chan struct{})

	_, err := s.Start(context.Background(), models.StageODS, func(ctx context.Context, _ func(string)) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	_, err = s.Start(context.Background(), models.StageODS, func(ctx context.Context, _ func(string)) error {
		return nil
	})
	assert.ErrorIs(t, err, models.ErrAlreadyRunning)

	close(release)
	waitIdle(t, s, models.StageODS)
}

func TestFailureCapturedNotRaised(t *testing.T) {
	s := New(nil)
	boom := errors.New("transform blew up")

	_, err := s.Start(context.Background(), models.StageDWS, func(ctx context.Context, _ func(string)) error {
		return boom
	})
	require.NoError(t, err)

	waitIdle(t, s, models.StageDWS)
	st, _ := s.StatusOf(models.StageDWS)
	assert.Equal(t, models.StatusFailed, st.Status)
	assert.Contains(t, st.Error, "transform blew up")
}

func TestCancelStopsAndSlotIsReusable(t *testing.T) {
	s := New(nil)

	_, err := s.Start(context.Background(), models.StageADS, func(ctx context.Context, _ func(string)) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	require.NoError(t, s.Cancel(models.StageADS))
	waitIdle(t, s, models.StageADS)
	st, _ := s.StatusOf(models.StageADS)
	assert.Equal(t, models.StatusStopped, st.Status)

	// The slot must accept a fresh run after a stop.
	_, err = s.Start(context.Background(), models.StageADS, func(ctx context.Context, _ func(string)) error {
		return nil
	})
	require.NoError(t, err)
	waitIdle(t, s, models.StageADS)
	st, _ = s.StatusOf(models.StageADS)
	assert.Equal(t, models.StatusDone, st.Status)
}

func TestCancelIdleSlotIsNoOp(t *testing.T) {
	s := New(nil)
	assert.NoError(t, s.Cancel(models.StageDWD))
	st, _ := s.StatusOf(models.StageDWD)
	assert.Equal(t, models.StatusNotRun, st.Status)
}

func TestProgressLinesPreserveOrder(t *testing.T) {
	sink := &recordingSink{}
	s := New(sink)

	const n = 50
	_, err := s.Start(context.Background(), models.StageDWD, func(ctx context.Context, progress func(string)) error {
		for i := 0; i < n; i++ {
			progress(fmt.Sprintf("line %03d", i))
		}
		return nil
	})
	require.NoError(t, err)
	waitIdle(t, s, models.StageDWD)

	// Release waits for the drain, so every line is published by now.
	var got []string
	for _, ev := range sink.all() {
		if pe, ok := ev.(models.StageProgressEvent); ok {
			got = append(got, pe.Message)
		}
	}
	require.Len(t, got, n)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}
}

// No progress event for a run may arrive after its terminal event.
func TestTerminalEventFollowsProgress(t *testing.T) {
	sink := &recordingSink{}
	s := New(sink)

	const n = 20
	_, err := s.Start(context.Background(), models.StageDWS, func(ctx context.Context, progress func(string)) error {
		for i := 0; i < n; i++ {
			progress(fmt.Sprintf("step %02d", i))
		}
		return nil
	})
	require.NoError(t, err)
	waitIdle(t, s, models.StageDWS)

	require.Eventually(t, func() bool {
		for _, ev := range sink.all() {
			if _, ok := ev.(models.StageCompletedEvent); ok {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	progressSeen := 0
	terminalAt := -1
	for i, ev := range sink.all() {
		switch ev.(type) {
		case models.StageProgressEvent:
			require.Less(t, terminalAt, 0, "progress event at %d after terminal event at %d", i, terminalAt)
			progressSeen++
		case models.StageCompletedEvent:
			terminalAt = i
		}
	}
	assert.Equal(t, n, progressSeen)
	assert.GreaterOrEqual(t, terminalAt, 0)
}

func TestSnapshotCoversEverySlot(t *testing.T) {
	s := New(nil)
	snap := s.Snapshot()
	assert.Len(t, snap, len(models.PipelineStages)+1)
	for _, id := range models.PipelineStages {
		assert.Equal(t, models.StatusNotRun, snap[id].Status)
	}
	assert.Equal(t, models.StatusNotRun, snap[models.StageVerify].Status)
}

func TestUnknownStage(t *testing.T) {
	s := New(nil)
	_, err := s.Start(context.Background(), models.StageID("bogus"), func(ctx context.Context, _ func(string)) error {
		return nil
	})
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Error(t, s.Cancel(models.StageID("bogus")))
}
