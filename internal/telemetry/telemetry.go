// Package telemetry provides a periodic stats reporter, adapted from the
// teacher's SensorsController.LogStats ticker loop: a process hands it a
// function returning its counters and it logs them on a fixed cadence
// instead of a dashboard pull. cmd/capture is the binary that uses it.
package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Stat is one named counter snapshot to report.
type Stat struct {
	Name  string
	Value uint64
}

// Source supplies the current snapshot of counters to report.
type Source func() []Stat

// Reporter logs a Source's counters on a fixed interval until ctx is
// cancelled, mirroring LogStats's "produced=%d dropped=%d" shape.
type Reporter struct {
	interval time.Duration
	source   Source
	log      *zerolog.Logger
}

// NewReporter creates a stats reporter. interval defaults to 5 seconds,
// matching the teacher's main-loop statsTicker.
func NewReporter(log *zerolog.Logger, interval time.Duration, source Source) *Reporter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Reporter{interval: interval, source: source, log: log}
}

// Run blocks, logging on every tick, until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := r.log.Info()
			for _, s := range r.source() {
				ev = ev.Uint64(s.Name, s.Value)
			}
			ev.Msg("stats")
		}
	}
}
