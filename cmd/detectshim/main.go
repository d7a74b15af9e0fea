// Command detectshim is the reference implementation of the
// detection-boundary consumer contract: it imports the active camera's
// zero-copy descriptor, runs a placeholder detector, and publishes
// Detection records to the detections region. It exists so integration
// tests (and anyone wiring a real detector) have a runnable example of
// the consumer side of the protocol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petcam-rdk/core/internal/config"
	"github.com/petcam-rdk/core/internal/detect"
	"github.com/petcam-rdk/core/internal/export"
	"github.com/petcam-rdk/core/internal/logging"
	"github.com/petcam-rdk/core/internal/metrics"
	"github.com/petcam-rdk/core/internal/shm"
)

func main() {
	var (
		topologyPath string
		logLevel     string
		logFile      string
		csvPath      string
	)

	root := &cobra.Command{
		Use:   "detectshim",
		Short: "Reference detection-boundary consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init("detectshim", logging.Options{Level: logLevel, FilePath: logFile, Pretty: logFile == ""})
			log := logging.L()

			topo, err := config.Load(topologyPath)
			if err != nil {
				log.Fatal().Err(err).Msg("load topology")
			}

			control, err := shm.OpenControlRegion()
			if err != nil {
				log.Fatal().Err(err).Msg("open control region")
			}
			defer control.Close()

			publisher, err := detect.NewPublisher(topo.Regions.Detections)
			if err != nil {
				log.Fatal().Err(err).Msg("create detections region")
			}
			defer publisher.Close()

			reader := detect.NewReader(control, shm.ZeroCopyRegionName)
			defer reader.Close()

			var csvSink *export.CSVWriter
			if csvPath != "" {
				csvSink, err = export.NewCSVWriter(csvPath, 0, true, detect.Detection{}.CSVHeader())
				if err != nil {
					log.Fatal().Err(err).Msg("open csv sink")
				}
				defer csvSink.Close()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				desc, _, err := reader.ReadActive()
				if err != nil {
					metrics.StaleZeroCopyImports.WithLabelValues("active").Inc()
					reader.WaitActive(50 * time.Millisecond)
					continue
				}

				d := &detect.Detection{
					FrameSeq:  desc.FrameSeq,
					Timestamp: desc.Timestamp,
					Camera:    desc.Camera,
					Boxes:     placeholderDetect(desc),
				}
				publisher.Publish(d)
				metrics.RegionWriteIndex.WithLabelValues("detections").Set(float64(publisher.Stat().Version))
				if csvSink != nil {
					csvSink.WriteRecord(d)
				}
				reader.Release()

				reader.WaitActive(33 * time.Millisecond)
			}
		},
	}

	root.Flags().StringVar(&topologyPath, "topology", "", "path to topology.yaml (defaults built in)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	root.Flags().StringVar(&logFile, "log-file", "", "optional JSON log file path")
	root.Flags().StringVar(&csvPath, "csv", "", "optional path to mirror detections as CSV rows")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// placeholderDetect is a stand-in for a real detector model: it returns
// no boxes. Neural inference is explicitly out of scope; this shim only
// demonstrates the shared-memory consumer contract.
func placeholderDetect(desc *shm.ZeroCopyDescriptor) []detect.Box {
	_ = desc
	return nil
}
