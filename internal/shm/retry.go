package shm

import "time"

// Bounded retry window for Open, per spec §4.1: "the pipeline uses 5s with
// 100ms polling before returning NotFound". Exported as variables (not
// consts) so tests can shrink them.
var (
	OpenRetryWindow  = 5 * time.Second
	OpenPollInterval = 100 * time.Millisecond
)

// Idle back-off policy for WaitUpdate, per spec §7: "a consumer that sees
// no semaphore wake within its timeout falls into an idle back-off and
// polls the version counter every 100 ms; on wake-up resumes event-driven
// mode". IdleBackoffStreak is how many consecutive sem_timedwait timeouts
// are tolerated before a region's WaitUpdate stops trusting the semaphore
// and starts polling; exported (like the retry window above) so tests can
// shrink it.
var (
	IdleBackoffStreak = 3
	IdleBackoffPoll   = 100 * time.Millisecond
)

// pollForChange samples counter every IdleBackoffPoll until it differs
// from its starting value or timeout elapses, used by WaitUpdate's idle
// back-off path once the semaphore has timed out IdleBackoffStreak times
// running.
func pollForChange(timeout time.Duration, counter func() uint64) WaitResult {
	start := counter()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return WaitTimeout
		}
		step := IdleBackoffPoll
		if remaining < step {
			step = remaining
		}
		time.Sleep(step)
		if counter() != start {
			return WaitNewUpdate
		}
	}
}

func openWithRetry(name string, size int) (*mapping, error) {
	deadline := time.Now().Add(OpenRetryWindow)
	for {
		m, err := attachMapping(name, size)
		if err == nil {
			return m, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotFound
		}
		time.Sleep(OpenPollInterval)
	}
}
