package shm

// RingStat is a point-in-time snapshot of a ring region's counters; the
// capture pipeline writes its WriteIndex into the internal/metrics
// monotonicity gauge from spec §8.
type RingStat struct {
	WriteIndex    uint64
	FrameInterval uint32
}

func (r *RingRegion) Stat() RingStat {
	return RingStat{WriteIndex: r.WriteIndex(), FrameInterval: r.FrameIntervalHint()}
}

// LatestStat is the equivalent snapshot for a latest-value region.
type LatestStat struct {
	Version uint64
}

func (l *LatestRegion) Stat() LatestStat {
	return LatestStat{Version: l.Version()}
}
