// Package metrics exports the Prometheus counters and gauges named in
// spec.md §7/§8: dropped frames, switch events, stale zero-copy imports,
// semaphore-wait timeouts, and per-region version/write-index gauges.
// The dependency is named in several pack manifests
// (warpcomdev-asicamera2, ManuGH-xg2g, viamrobotics-rdk) even though none
// of the retrieved source files exercise it directly, so the
// registration shape here follows client_golang's own promauto
// convention rather than a pack source file.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petcam_frames_produced_total",
		Help: "Frames published to a ring or zero-copy region, by camera.",
	}, []string{"camera"})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petcam_frames_dropped_total",
		Help: "Ring publishes that overwrote an earlier slot after the ring wrapped (a consumer may not have read it), plus frames the encoder did not emit (region=encode), by camera and region.",
	}, []string{"camera", "region"})

	SwitchEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petcam_switch_events_total",
		Help: "Day/night active-camera switches performed by the switch controller.",
	}, []string{"direction"})

	StaleZeroCopyImports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petcam_stale_zerocopy_imports_total",
		Help: "Zero-copy descriptor reads that failed because the DMA buffer was already recycled.",
	}, []string{"camera"})

	SemaphoreWaitTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petcam_semaphore_wait_timeouts_total",
		Help: "wait_update calls that fell back to version polling after a semaphore timeout streak.",
	}, []string{"region"})

	RegionWriteIndex = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "petcam_region_write_index",
		Help: "Current write_index (ring) or version (latest-value) counter per region.",
	}, []string{"region"})

	ChildRespawns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petcam_capture_child_respawns_total",
		Help: "Times the switch controller respawned a capture child process.",
	}, []string{"camera"})
)
