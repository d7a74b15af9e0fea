// Command switchctl runs the day/night switch controller: it polls
// brightness from the day camera's zero-copy descriptor, drives the
// hysteresis state machine, updates the control region, and supervises
// the two capture child processes.
package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petcam-rdk/core/internal/config"
	"github.com/petcam-rdk/core/internal/hal"
	"github.com/petcam-rdk/core/internal/logging"
	"github.com/petcam-rdk/core/internal/metrics"
	"github.com/petcam-rdk/core/internal/shm"
	"github.com/petcam-rdk/core/internal/switchctl"
)

func main() {
	var (
		topologyPath string
		logLevel     string
		logFile      string
		captureBin   string
	)

	root := &cobra.Command{
		Use:   "switchctl",
		Short: "Supervise capture children and drive the day/night switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init("switchctl", logging.Options{Level: logLevel, FilePath: logFile, Pretty: logFile == ""})
			log := logging.L()

			topo, err := config.Load(topologyPath)
			if err != nil {
				log.Fatal().Err(err).Msg("load topology")
			}

			if captureBin == "" {
				if self, err := os.Executable(); err == nil {
					if resolved, err := exec.LookPath(self + "-capture"); err == nil {
						captureBin = resolved
					}
				}
			}
			if captureBin == "" {
				captureBin = "capture"
			}

			control, err := shm.CreateControlRegion()
			if err != nil {
				log.Fatal().Err(err).Msg("create control region")
			}
			defer control.Destroy()

			// The active-output rings are shared across both camera
			// processes and outlive any single capture child restart, so
			// the switch controller owns them; the capture pipelines only
			// ever attach with shm.OpenRing.
			activeFrame, err := shm.CreateRing(topo.Regions.ActiveFrame)
			if err != nil {
				log.Fatal().Err(err).Msg("create active-frame ring")
			}
			defer activeFrame.Destroy()

			stream, err := shm.CreateRing(topo.Regions.Stream)
			if err != nil {
				log.Fatal().Err(err).Msg("create stream ring")
			}
			defer stream.Destroy()

			// The MJPEG region is optional (spec §6): created unconditionally
			// here since it costs one ring's worth of shared memory, but a
			// capture child only publishes to it when run with --mjpeg.
			mjpeg, err := shm.CreateRing(topo.Regions.MJPEG)
			if err != nil {
				log.Fatal().Err(err).Msg("create mjpeg ring")
			}
			defer mjpeg.Destroy()

			if day := topo.CameraByHostRoute(hal.HostRouteDay); day != nil && day.FPS > 0 {
				hint := uint32(1000 / day.FPS)
				activeFrame.SetFrameIntervalHint(hint)
				stream.SetFrameIntervalHint(hint)
				mjpeg.SetFrameIntervalHint(hint)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Info().Msg("received shutdown signal")
				cancel()
			}()

			var specs []switchctl.ChildSpec
			for _, cam := range topo.Cameras {
				specs = append(specs, switchctl.ChildSpec{
					Name: cam.Name,
					Path: captureBin,
					Args: []string{"--camera", strconv.Itoa(cam.HostRoute), "--topology", topologyPath},
				})
			}
			supervisor := switchctl.NewSupervisor(log, specs)
			go supervisor.Run(ctx)

			hysteresis := switchctl.NewHysteresis(switchctl.Thresholds{
				DayBrightness:   topo.Switch.DayBrightness,
				NightBrightness: topo.Switch.NightBrightness,
				DwellDown:       time.Duration(topo.Switch.DwellDownMs) * time.Millisecond,
				DwellUp:         time.Duration(topo.Switch.DwellUpMs) * time.Millisecond,
				PollDay:         time.Duration(topo.Switch.PollDayMs) * time.Millisecond,
				PollNight:       time.Duration(topo.Switch.PollNightMs) * time.Millisecond,
			})

			runSwitchLoop(ctx, control, hysteresis)
			return nil
		},
	}

	root.Flags().StringVar(&topologyPath, "topology", "", "path to topology.yaml (defaults built in)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	root.Flags().StringVar(&logFile, "log-file", "", "optional JSON log file path")
	root.Flags().StringVar(&captureBin, "capture-bin", "", "path to the cmd/capture binary")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runSwitchLoop samples brightness at an adaptive cadence and commits
// hysteresis transitions to the control region. Both thresholds in
// spec §4.4 ("switch-to-night when day-camera brightness ≤ 50",
// "switch-to-day when day-camera brightness ≥ 70") are phrased in
// terms of the day camera specifically — the day sensor keeps
// publishing its zero-copy descriptor (and therefore its brightness)
// whether or not it is the active camera, so the dwell machine always
// reads day's region regardless of which camera is currently active.
// The night region is also attached, per spec §4.4's "attaches to both
// ... regions", and its brightness is logged for visibility but never
// feeds the state machine.
func runSwitchLoop(ctx context.Context, control *shm.LatestRegion, h *switchctl.Hysteresis) {
	lg := logging.L()
	day, night := shm.CameraDay, shm.CameraNight

	// Spec §4.4: commit the preferred initial camera before entering the
	// poll loop, with no dwell window — there is no prior state to debounce
	// against at start-up.
	h.Start(switchctl.StateDay)
	control.PublishLatest(shm.ControlRecord{ActiveCamera: day}.Encode())
	metrics.RegionWriteIndex.WithLabelValues("control").Set(float64(control.Stat().Version))

	dayZC, _ := openWithRetryCtx(ctx, shm.ZeroCopyRegionName(day))
	if dayZC == nil {
		return
	}
	defer dayZC.Close()

	nightZC, _ := openWithRetryCtx(ctx, shm.ZeroCopyRegionName(night))
	if nightZC == nil {
		return
	}
	defer nightZC.Close()

	var generation uint32
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if desc, _ := nightZC.Read(); desc != nil {
			lg.Debug().Uint8("brightness", desc.BrightnessAvg).Msg("night camera brightness probe")
		}

		desc, _ := dayZC.Read()
		if desc != nil {
			now := time.Now()
			newState, changed := h.Observe(desc.BrightnessAvg, now)
			if changed {
				var target shm.CameraID
				dir := "up"
				if newState == switchctl.StateNight {
					target = shm.CameraNight
					dir = "down"
				} else {
					target = shm.CameraDay
				}
				metrics.SwitchEvents.WithLabelValues(dir).Inc()
				generation++
				ctrl := shm.ControlRecord{ActiveCamera: target, Generation: generation}
				control.PublishLatest(ctrl.Encode())
				metrics.RegionWriteIndex.WithLabelValues("control").Set(float64(control.Stat().Version))
				lg.Info().Str("state", newState.String()).Msg("switch controller transitioned")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(h.PollInterval()):
		}
	}
}

// openWithRetryCtx polls for a zero-copy region's existence until it
// appears or ctx is cancelled. The capture children create their
// zero-copy regions shortly after the supervisor spawns them, so the
// switch controller's first few attempts are expected to race them.
func openWithRetryCtx(ctx context.Context, name string) (*shm.ZeroCopyRegion, error) {
	for {
		zc, err := shm.OpenZeroCopy(name)
		if err == nil {
			return zc, nil
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(250 * time.Millisecond):
		}
	}
}
