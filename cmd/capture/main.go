// Command capture runs one camera's capture pipeline. The switch
// controller launches one instance per physical camera with a distinct
// -camera index; it is also runnable standalone for development.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petcam-rdk/core/internal/capture"
	"github.com/petcam-rdk/core/internal/config"
	"github.com/petcam-rdk/core/internal/hal"
	"github.com/petcam-rdk/core/internal/logging"
	"github.com/petcam-rdk/core/internal/shm"
	"github.com/petcam-rdk/core/internal/telemetry"
)

func main() {
	var (
		cameraIndex int
		topologyPath string
		logLevel    string
		logFile     string
		simulate    bool
		mjpeg       bool
	)

	root := &cobra.Command{
		Use:   "capture",
		Short: "Run one camera's capture pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init("capture", logging.Options{Level: logLevel, FilePath: logFile, Pretty: logFile == ""})
			log := logging.L()

			topo, err := config.Load(topologyPath)
			if err != nil {
				log.Fatal().Err(err).Msg("load topology")
			}
			cam := topo.CameraByHostRoute(cameraIndex)
			if cam == nil && len(topo.Cameras) > cameraIndex {
				cam = &topo.Cameras[cameraIndex]
			}
			if cam == nil {
				log.Fatal().Int("camera_index", cameraIndex).Msg("no camera at that index/host route")
			}

			camID := shm.CameraDay
			if cam.Name == "night" {
				camID = shm.CameraNight
			}

			zc, err := shm.CreateZeroCopy(shm.ZeroCopyRegionName(camID))
			if err != nil {
				log.Fatal().Err(err).Msg("create zero-copy region")
			}
			defer zc.Destroy()

			// The active-frame, stream, and control regions are owned by
			// switchctl (it creates them once, before spawning either
			// capture child, and they outlive any single child restart);
			// this process only attaches, with the same bounded retry
			// every consumer uses.
			activeFrame, err := shm.OpenRing(topo.Regions.ActiveFrame)
			if err != nil {
				log.Fatal().Err(err).Msg("open active-frame ring")
			}
			defer activeFrame.Close()

			stream, err := shm.OpenRing(topo.Regions.Stream)
			if err != nil {
				log.Fatal().Err(err).Msg("open stream ring")
			}
			defer stream.Close()

			control, err := shm.OpenControlRegion()
			if err != nil {
				log.Fatal().Err(err).Msg("open control region")
			}
			defer control.Close()

			var mjpegRing *shm.RingRegion
			if mjpeg {
				mjpegRing, err = shm.OpenRing(topo.Regions.MJPEG)
				if err != nil {
					log.Fatal().Err(err).Msg("open mjpeg ring")
				}
				defer mjpegRing.Close()
			}

			var vio hal.VIOContext
			var encoder hal.EncoderContext
			if simulate {
				vio = hal.NewSimulatedVIO(camID, cam.Width, cam.Height, cam.FPS, 128)
				encoder = hal.NewSimulatedEncoder(hal.EncoderParams{Width: cam.Width, Height: cam.Height, FPS: cam.FPS, Bitrate: cam.BitrateBPS})
			} else {
				log.Fatal().Msg("non-simulated VIO/encoder bindings are not available in this build")
			}
			defer vio.Close()
			defer encoder.Close()

			pipeline := capture.New(capture.Config{
				Camera:  camID,
				Width:   cam.Width,
				Height:  cam.Height,
				FPS:     cam.FPS,
				Bitrate: cam.BitrateBPS,
			}, log, vio, encoder, zc, activeFrame, stream, control)

			if mjpegRing != nil {
				pipeline = pipeline.WithMJPEG(hal.NewSimulatedJPEGEncoder(0), mjpegRing)
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

			reporter := telemetry.NewReporter(log, 5*time.Second, func() []telemetry.Stat {
				produced, dropped := pipeline.Stats()
				return []telemetry.Stat{{Name: "produced", Value: produced}, {Name: "dropped", Value: dropped}}
			})
			go reporter.Run(ctx)

			err = pipeline.Run(ctx)
			if err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	root.Flags().IntVar(&cameraIndex, "camera", 0, "camera index/host route (0=day, 2=night)")
	root.Flags().StringVar(&topologyPath, "topology", "", "path to topology.yaml (defaults built in)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	root.Flags().StringVar(&logFile, "log-file", "", "optional JSON log file path")
	root.Flags().BoolVar(&simulate, "simulate", true, "use the simulated HAL instead of hardware bindings")
	root.Flags().BoolVar(&mjpeg, "mjpeg", false, "publish an optional MJPEG payload to the web-monitor region")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
