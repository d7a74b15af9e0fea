package shm

import (
	"fmt"
	"time"

	"github.com/petcam-rdk/core/internal/metrics"
)

const (
	latestVersionOff = 0
	latestHeaderSize = 8
)

// LatestRegion is the single-record region shape from spec §3: an atomic
// version counter plus one record, no ring. Used for the active-camera
// control word and for detection results.
type LatestRegion struct {
	m           *mapping
	name        string
	recordSize  int
	lastVersion uint64

	timeoutStreak int
}

func latestRegionSize(recordSize int) int {
	return latestHeaderSize + recordSize
}

// CreateLatest allocates a fresh latest-value region sized to hold
// recordSize bytes of payload.
func CreateLatest(name string, recordSize int) (*LatestRegion, error) {
	m, err := createMapping(name, latestRegionSize(recordSize))
	if err != nil {
		return nil, fmt.Errorf("shm: create latest %s: %w", name, err)
	}
	return &LatestRegion{m: m, name: name, recordSize: recordSize}, nil
}

// OpenLatest attaches to an existing latest-value region with the same
// bounded retry window as OpenRing.
func OpenLatest(name string, recordSize int) (*LatestRegion, error) {
	m, err := openWithRetry(name, latestRegionSize(recordSize))
	if err != nil {
		return nil, err
	}
	return &LatestRegion{m: m, name: name, recordSize: recordSize}, nil
}

// PublishLatest writes record fully, then increments the version with
// release ordering and signals the semaphore (spec §4.1).
func (l *LatestRegion) PublishLatest(record []byte) {
	if len(record) > l.recordSize {
		record = record[:l.recordSize]
	}
	buf := l.m.bytes()
	copy(buf[latestHeaderSize:latestHeaderSize+len(record)], record)
	addU64(buf, latestVersionOff, 1)
	_ = l.m.signal()
}

// Version reads the current version counter with acquire ordering.
func (l *LatestRegion) Version() uint64 {
	return loadU64(l.m.bytes(), latestVersionOff)
}

// ReadLatestRecord reads the record with the torn-read retry described in
// spec §4.1: read version, read record, re-read version; retry up to three
// attempts if they differ. Returns the record bytes and the version they
// were read at, so callers can suppress duplicates.
func (l *LatestRegion) ReadLatestRecord() (record []byte, version uint64) {
	buf := l.m.bytes()
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		v1 := loadU64(buf, latestVersionOff)
		out := make([]byte, l.recordSize)
		copy(out, buf[latestHeaderSize:latestHeaderSize+l.recordSize])
		v2 := loadU64(buf, latestVersionOff)
		if v1 == v2 {
			return out, v1
		}
	}

	// Give up after the bound; return the last-seen version anyway so the
	// caller can still detect staleness rather than block forever.
	return nil, loadU64(buf, latestVersionOff)
}

// HasNewRecord reports whether the region's version has advanced since the
// last call, without paying for a full record copy.
func (l *LatestRegion) HasNewRecord() bool {
	v := l.Version()
	if v == l.lastVersion {
		return false
	}
	l.lastVersion = v
	return true
}

// WaitUpdate blocks up to timeout for the next publish signal, falling
// back to polling Version every IdleBackoffPoll after IdleBackoffStreak
// consecutive semaphore timeouts (spec §7's idle back-off, shared with
// RingRegion.WaitUpdate).
func (l *LatestRegion) WaitUpdate(timeout time.Duration) WaitResult {
	if l.timeoutStreak < IdleBackoffStreak {
		res := l.m.wait(timeout.Milliseconds())
		if res != WaitTimeout {
			l.timeoutStreak = 0
			return res
		}
		l.timeoutStreak++
		return res
	}

	metrics.SemaphoreWaitTimeouts.WithLabelValues(l.name).Inc()
	res := pollForChange(timeout, func() uint64 { return l.Version() })
	if res == WaitNewUpdate {
		l.timeoutStreak = 0
	}
	return res
}

func (l *LatestRegion) Close() error {
	return l.m.close(l.m.owner)
}

func (l *LatestRegion) Destroy() error {
	return l.m.close(true)
}
