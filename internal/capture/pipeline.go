// Package capture implements the per-camera capture pipeline: one
// process pulls frames from the HAL, runs the adaptive brightness
// pipeline, and publishes to the shared-memory regions consumers read
// from. The main-loop/capture split is grounded on the teacher's
// CameraReader.run()/capture(), generalized from a channel-with-drop
// boundary to a ring-buffer-slot-overwrite boundary at the shm layer.
package capture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/petcam-rdk/core/internal/annexb"
	"github.com/petcam-rdk/core/internal/hal"
	"github.com/petcam-rdk/core/internal/metrics"
	"github.com/petcam-rdk/core/internal/shm"
)

// Config configures one capture pipeline instance.
type Config struct {
	Camera     shm.CameraID
	Width      int
	Height     int
	FPS        int
	Bitrate    int
	FrameWait  time.Duration // timeout for VIOContext.GetFrame
	NRInterval time.Duration // minimum spacing between SetNoiseReductionBand calls
}

// Pipeline owns one camera's VIO/encoder contexts and the shm regions it
// publishes to. Per spec §4.3 the pipeline is stateless across switches:
// it keeps running and keeps the zero-copy descriptor current regardless
// of active status, and only gates the NV12/H.264 publish steps on the
// control region's active-camera index.
type Pipeline struct {
	cfg Config
	log *zerolog.Logger

	vio     hal.VIOContext
	encoder hal.EncoderContext

	zeroCopy    *shm.ZeroCopyRegion
	activeFrame *shm.RingRegion
	stream      *shm.RingRegion
	control     *shm.LatestRegion

	jpegEncoder hal.JPEGEncoder
	mjpeg       *shm.RingRegion

	gamma   *hal.GammaLUTs
	tracker annexb.Tracker

	lastNR   time.Time
	nrBand   hal.NRBand
	sequence uint64
	produced uint64
	dropped  uint64
	active   bool
}

// New wires a pipeline against already-open shm regions. The caller owns
// creating/destroying the per-camera zero-copy region; the activeFrame,
// stream and control regions are shared across both camera processes and
// are created once by the switch controller (the pipelines only attach).
func New(cfg Config, log *zerolog.Logger, vio hal.VIOContext, encoder hal.EncoderContext, zeroCopy *shm.ZeroCopyRegion, activeFrame, stream *shm.RingRegion, control *shm.LatestRegion) *Pipeline {
	if cfg.FrameWait <= 0 {
		cfg.FrameWait = 200 * time.Millisecond
	}
	if cfg.NRInterval <= 0 {
		cfg.NRInterval = time.Second
	}
	return &Pipeline{
		cfg:         cfg,
		log:         log,
		vio:         vio,
		encoder:     encoder,
		zeroCopy:    zeroCopy,
		activeFrame: activeFrame,
		stream:      stream,
		control:     control,
		gamma:       hal.NewGammaLUTs(),
	}
}

// WithMJPEG attaches the optional `/pet_camera_mjpeg_frame` ring (spec §6)
// and the encoder that feeds it. Neither is required: a pipeline with no
// JPEG encoder configured simply never publishes to that region, matching
// spec §6's "(optional)" annotation for the MJPEG payload.
func (p *Pipeline) WithMJPEG(encoder hal.JPEGEncoder, ring *shm.RingRegion) *Pipeline {
	p.jpegEncoder = encoder
	p.mjpeg = ring
	return p
}

// Run executes the pipeline's hot loop until ctx is cancelled. Each
// iteration waits for a hardware frame, derives its bit-depth-normalised
// brightness, re-applies the noise-reduction band at most once per
// NRInterval, publishes the zero-copy descriptor, reads the control
// region's active-camera index, and — only while active — applies the
// gamma LUT and publishes NV12 (plus optional MJPEG) and H.264, then
// releases the frame.
func (p *Pipeline) Run(ctx context.Context) error {
	camName := p.cfg.Camera.String()
	p.log.Info().Str("camera", camName).Int("fps", p.cfg.FPS).Msg("capture pipeline started")

	for {
		select {
		case <-ctx.Done():
			produced, dropped := p.Stats()
			p.log.Info().Str("camera", camName).Uint64("produced", produced).Uint64("dropped", dropped).Msg("capture pipeline stopped")
			return ctx.Err()
		default:
		}

		frame, err := p.vio.GetFrame(p.cfg.FrameWait)
		if err != nil {
			if err == hal.ErrAgain {
				continue
			}
			p.log.Warn().Str("camera", camName).Err(err).Msg("GetFrame failed")
			continue
		}

		p.step(frame)
	}
}

func (p *Pipeline) step(frame *hal.VIOFrame) {
	brightness := p.brightnessFor(frame)
	frame.Descriptor.BrightnessAvg = brightness

	now := time.Now()
	band := hal.NRBandFor(brightness)
	if now.Sub(p.lastNR) >= p.cfg.NRInterval {
		if err := p.vio.SetNoiseReductionBand(band); err != nil {
			p.log.Warn().Err(err).Msg("SetNoiseReductionBand failed")
		} else {
			p.nrBand = band
			p.lastNR = now
		}
	}

	p.sequence++
	frame.Descriptor.FrameSeq = p.sequence
	frame.Descriptor.Timestamp = now

	// Step 4 consulted ahead of step 3's publish: CorrectionApplied must
	// describe what step 5a is actually about to do to the shared Y plane,
	// not a prediction based on brightness alone — an inactive camera's
	// buffer is never gamma-corrected, so its descriptor must say so.
	wasActive := p.active
	p.active = p.isActive()
	if p.active != wasActive {
		p.log.Info().Str("camera", p.cfg.Camera.String()).Bool("active", p.active).Msg("active status changed")
	}
	frame.Descriptor.CorrectionApplied = p.active && brightness < 80

	// Step 3: the zero-copy descriptor is published every frame
	// regardless of active status (spec §4.3 step 3) so the switch
	// controller can probe brightness off either camera at any time.
	p.zeroCopy.Publish(&frame.Descriptor)
	metrics.FramesProduced.WithLabelValues(p.cfg.Camera.String()).Inc()

	if !p.active {
		if err := p.vio.ReleaseFrame(frame); err != nil {
			p.log.Warn().Err(err).Msg("ReleaseFrame failed")
		}
		return
	}

	// Step 5a: gamma only applies while this camera feeds the active
	// outputs — an inactive camera's Y plane is never read downstream.
	ySize := int(frame.Descriptor.Width) * int(frame.Descriptor.Height)
	if len(frame.NV12) >= ySize {
		p.gamma.ApplyGamma(frame.NV12[:ySize], brightness)
	}

	// Step 5b: publish the NV12 frame to the active region.
	nv12 := &shm.Frame{
		Sequence:  p.sequence,
		Timestamp: now,
		Camera:    p.cfg.Camera,
		Width:     frame.Descriptor.Width,
		Height:    frame.Descriptor.Height,
		Format:    shm.FormatNV12,
		Payload:   frame.NV12,
	}
	if p.activeFrame.PublishRing(nv12) {
		metrics.FramesDropped.WithLabelValues(p.cfg.Camera.String(), "active_frame").Inc()
	}
	metrics.RegionWriteIndex.WithLabelValues("active_frame").Set(float64(p.activeFrame.Stat().WriteIndex))

	// Optional MJPEG tap (spec §6): only runs when a JPEG encoder and ring
	// were attached via WithMJPEG, so a topology without a web monitor
	// never pays for it.
	if p.jpegEncoder != nil && p.mjpeg != nil {
		if jpg, err := p.jpegEncoder.EncodeJPEG(frame.NV12[:ySize], int(frame.Descriptor.Width), int(frame.Descriptor.Height)); err != nil {
			p.log.Warn().Err(err).Msg("mjpeg encode failed")
		} else {
			if p.mjpeg.PublishRing(&shm.Frame{
				Sequence:  p.sequence,
				Timestamp: now,
				Camera:    p.cfg.Camera,
				Width:     frame.Descriptor.Width,
				Height:    frame.Descriptor.Height,
				Format:    shm.FormatJPEG,
				Payload:   jpg,
			}) {
				metrics.FramesDropped.WithLabelValues(p.cfg.Camera.String(), "mjpeg").Inc()
			}
		}
	}

	// Step 5c: submit to the encoder and publish a completed bitstream.
	accessUnit, err := p.encoder.Encode(frame)
	if err != nil {
		if err != hal.ErrAgain {
			p.log.Warn().Err(err).Msg("encode failed")
		}
		atomic.AddUint64(&p.dropped, 1)
		metrics.FramesDropped.WithLabelValues(p.cfg.Camera.String(), "encode").Inc()
		if err := p.vio.ReleaseFrame(frame); err != nil {
			p.log.Warn().Err(err).Msg("ReleaseFrame failed")
		}
		return
	}
	if len(accessUnit) > 0 {
		p.tracker.Observe(mustScan(accessUnit))

		h264 := &shm.Frame{
			Sequence:  p.sequence,
			Timestamp: now,
			Camera:    p.cfg.Camera,
			Width:     frame.Descriptor.Width,
			Height:    frame.Descriptor.Height,
			Format:    shm.FormatH264,
			Payload:   accessUnit,
		}
		// PublishRing never blocks: a slow consumer simply loses the
		// oldest unread slot on the next wrap, which is the ring's own
		// backpressure mechanism rather than a distinct failure path
		// (unlike the teacher's channel-with-default drop, there is no
		// separate "full" branch here) — tracked via FramesDropped rather
		// than a returned error.
		if p.stream.PublishRing(h264) {
			metrics.FramesDropped.WithLabelValues(p.cfg.Camera.String(), "stream").Inc()
		}
		atomic.AddUint64(&p.produced, 1)
		metrics.RegionWriteIndex.WithLabelValues("stream").Set(float64(p.stream.Stat().WriteIndex))
	}

	if err := p.vio.ReleaseFrame(frame); err != nil {
		p.log.Warn().Err(err).Msg("ReleaseFrame failed")
	}
}

// isActive reads the control region's active-camera index with acquire
// ordering (spec §4.3 step 4). A read failure (region not yet observed,
// or a torn read past its retry bound) keeps the pipeline's last-known
// status rather than forcing it inactive.
func (p *Pipeline) isActive() bool {
	raw, _ := p.control.ReadLatestRecord()
	if raw == nil {
		return p.active
	}
	return shm.DecodeControlRecord(raw).ActiveCamera == p.cfg.Camera
}

func mustScan(accessUnit []byte) []annexb.Unit {
	units, err := annexb.Scan(accessUnit)
	if err != nil {
		return nil
	}
	return units
}

// brightnessFor returns the ISP-reported brightness, bit-depth
// normalised, or falls back to a sampled mean of the Y plane when the
// ISP statistic is unavailable (spec §4.3 step 2).
func (p *Pipeline) brightnessFor(frame *hal.VIOFrame) uint8 {
	if frame.ISPStatsValid {
		return hal.NormalizeBrightness(frame.ISPBrightness)
	}
	ySize := int(frame.Descriptor.Width) * int(frame.Descriptor.Height)
	if len(frame.NV12) < ySize {
		return 0
	}
	return hal.SampledMeanY(frame.NV12[:ySize], hal.DefaultYSampleStride)
}

// Stats returns the (produced, dropped) counts. The hot loop updates them
// with sync/atomic, so a reporter goroutine may call this concurrently
// with Run; the two values are loaded separately, not as one snapshot.
func (p *Pipeline) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&p.produced), atomic.LoadUint64(&p.dropped)
}
