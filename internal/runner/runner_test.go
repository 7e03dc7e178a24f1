package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"dw-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) record(_, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *lineRecorder) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.lines...)
}

func TestRunStreamsStdout(t *testing.T) {
	r := New()
	rec := &lineRecorder{}

	err := r.Run(context.Background(), "sh", []string{"-c", "echo one; echo two"}, nil, rec.record)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, rec.all())
}

func TestRunNonZeroExitIsProcessFailure(t *testing.T) {
	r := New()

	err := r.Run(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 3"}, nil, nil)
	var pf *models.ProcessFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, 3, pf.ExitCode)
	assert.Contains(t, pf.Stderr, "oops")
}

func TestRunMissingCommand(t *testing.T) {
	r := New()
	err := r.Run(context.Background(), "/nonexistent/binary", nil, nil, nil)
	require.Error(t, err)
}

func TestRunEnvOverride(t *testing.T) {
	r := New()
	rec := &lineRecorder{}

	err := r.Run(context.Background(), "sh", []string{"-c", "echo $MARKER"},
		map[string]string{"MARKER": "custom-value"}, rec.record)
	require.NoError(t, err)
	require.Len(t, rec.all(), 1)
	assert.Equal(t, "custom-value", rec.all()[0])
}

func TestRunCancellationKillsProcess(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	var once sync.Once
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx, "sh", []string{"-c", "echo ready; sleep 60"}, nil,
			func(_, line string) {
				if line == "ready" {
					once.Do(func() { close(started) })
				}
			})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("subprocess never produced output")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("cancellation did not terminate the run")
	}
}

func TestClassifyLine(t *testing.T) {
	assert.Equal(t, models.LevelError, ClassifyLine("ERROR: it broke"))
	assert.Equal(t, models.LevelError, ClassifyLine("数据库连接错误"))
	assert.Equal(t, models.LevelError, ClassifyLine("导入失败"))
	assert.Equal(t, models.LevelWarn, ClassifyLine("WARN: slow query"))
	assert.Equal(t, models.LevelWarn, ClassifyLine("警告: 磁盘空间不足"))
	assert.Equal(t, models.LevelInfo, ClassifyLine("已生成 500 行"))
}
