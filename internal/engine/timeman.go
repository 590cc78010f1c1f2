package engine

import "time"

// DefaultMinThinkTime is how long an engine move takes at least, so that
// replies to simple positions do not appear instantly.
const DefaultMinThinkTime = 3 * time.Second

// TimeManager enforces the minimum think time of one engine request.
type TimeManager struct {
	minimum   time.Duration // Floor for the whole request
	startTime time.Time     // When the request started
}

// NewTimeManager creates a new time manager. A negative minimum is treated
// as zero.
func NewTimeManager(minimum time.Duration) *TimeManager {
	if minimum < 0 {
		minimum = 0
	}
	return &TimeManager{minimum: minimum}
}

// Init starts the clock.
func (tm *TimeManager) Init() {
	tm.startTime = time.Now()
}

// Elapsed returns the time elapsed since Init.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// Remaining returns how long the request must still wait before it may
// deliver a move.
func (tm *TimeManager) Remaining() time.Duration {
	if r := tm.minimum - tm.Elapsed(); r > 0 {
		return r
	}
	return 0
}

// WaitMinimum blocks until the minimum think time has passed. It returns
// false if stop is closed first.
func (tm *TimeManager) WaitMinimum(stop <-chan struct{}) bool {
	r := tm.Remaining()
	if r == 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(r)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}
