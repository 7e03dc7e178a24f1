// Package runner executes out-of-process units of work and streams their
// output line by line.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/util"
)

// gracePeriod is how long a process gets between the interrupt and the
// group kill.
const gracePeriod = 5 * time.Second

// stderrTailLimit bounds the captured stderr carried inside a
// ProcessFailure.
const stderrTailLimit = 4096

// LineFunc receives one output line with its classified level.
type LineFunc func(level, line string)

// Runner launches subprocesses in their own process group so cancellation
// reaps the whole tree, not just the direct child.
type Runner struct {
	logger *zap.Logger
}

func New() *Runner {
	return &Runner{logger: util.GetLogger()}
}

// Run executes the command, streaming stdout and stderr lines to onLine
// as they arrive. On cancellation the process group first gets SIGINT,
// then SIGKILL after the grace period. A non-zero exit surfaces as a
// ProcessFailure carrying the stderr tail.
func (r *Runner) Run(ctx context.Context, command string, args []string, env map[string]string, onLine LineFunc) error {
	cmd := exec.Command(command, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Force unbuffered, UTF-8 text output from interpreter children so
	// lines stream instead of arriving in one flush at exit.
	cmd.Env = append(os.Environ(),
		"PYTHONIOENCODING=utf-8",
		"PYTHONUNBUFFERED=1",
	)
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", command, err)
	}
	r.logger.Info("Subprocess started",
		zap.String("command", command),
		zap.Int("pid", cmd.Process.Pid))

	var stderrTail strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.scan(stdout, onLine, nil)
	}()
	go func() {
		defer wg.Done()
		r.scan(stderr, onLine, &stderrTail)
	}()

	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return r.exitError(command, err, stderrTail.String())
	case <-ctx.Done():
		// Interrupt the whole group; escalate to SIGKILL if it lingers.
		pgid := -cmd.Process.Pid
		_ = syscall.Kill(pgid, syscall.SIGINT)
		select {
		case <-done:
		case <-time.After(gracePeriod):
			_ = syscall.Kill(pgid, syscall.SIGKILL)
			<-done
		}
		return ctx.Err()
	}
}

func (r *Runner) scan(src io.Reader, onLine LineFunc, tail *strings.Builder) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if tail != nil && tail.Len() < stderrTailLimit {
			tail.WriteString(line)
			tail.WriteString("\n")
		}
		if onLine != nil {
			onLine(ClassifyLine(line), line)
		}
	}
}

func (r *Runner) exitError(command string, err error, stderrTail string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if e, ok := err.(*exec.ExitError); ok {
		exitErr = e
	}
	if exitErr != nil {
		return &models.ProcessFailure{
			Command:  command,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderrTail),
		}
	}
	return fmt.Errorf("%s: %w", command, err)
}

// ClassifyLine maps free-text subprocess output to a progress level.
// Substring matching is a legacy adapter for tools that do not emit
// structured events; anything unrecognized is info.
func ClassifyLine(line string) string {
	switch {
	case strings.Contains(line, "ERROR"), strings.Contains(line, "错误"),
		strings.Contains(line, "失败"), strings.Contains(line, "Traceback"):
		return models.LevelError
	case strings.Contains(line, "WARN"), strings.Contains(line, "警告"):
		return models.LevelWarn
	default:
		return models.LevelInfo
	}
}
