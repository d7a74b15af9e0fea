// Supervisor owns the lifecycle of the two cmd/capture child processes,
// generalizing the teacher's SensorsController "own a set of workers,
// start/stop/log stats" shape from goroutines to child OS processes.
package switchctl

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/petcam-rdk/core/internal/metrics"
)

// ChildSpec describes how to launch one capture child.
type ChildSpec struct {
	Name string // "day" or "night", used for logging and metrics labels
	Path string // binary path, typically the running process's own cmd/capture build
	Args []string
}

// Supervisor keeps each configured child running, respawning with
// exponential backoff on unexpected exit.
type Supervisor struct {
	log    *zerolog.Logger
	specs  []ChildSpec

	mu   sync.Mutex
	cmds map[string]*exec.Cmd
}

// NewSupervisor creates a supervisor for the given children.
func NewSupervisor(log *zerolog.Logger, specs []ChildSpec) *Supervisor {
	return &Supervisor{log: log, specs: specs, cmds: make(map[string]*exec.Cmd)}
}

// Run launches and supervises every child until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, spec := range s.specs {
		wg.Add(1)
		go func(spec ChildSpec) {
			defer wg.Done()
			s.superviseOne(ctx, spec)
		}(spec)
	}
	wg.Wait()
}

func (s *Supervisor) superviseOne(ctx context.Context, spec ChildSpec) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
		s.mu.Lock()
		s.cmds[spec.Name] = cmd
		s.mu.Unlock()

		s.log.Info().Str("child", spec.Name).Str("path", spec.Path).Msg("starting capture child")
		err := cmd.Run()

		if ctx.Err() != nil {
			return
		}

		metrics.ChildRespawns.WithLabelValues(spec.Name).Inc()
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = b.MaxInterval
		}
		s.log.Warn().Str("child", spec.Name).Err(err).Dur("backoff", wait).Msg("capture child exited, respawning")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Stop signals every tracked child to stop by cancelling their context;
// callers normally achieve this by cancelling the context passed to Run,
// this method exists for an explicit single-child restart (e.g. an
// active-camera handoff that does not want to tear down the whole
// supervisor).
func (s *Supervisor) Stop(name string) {
	s.mu.Lock()
	cmd := s.cmds[name]
	s.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
