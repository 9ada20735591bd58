package client

import "github.com/alanmc-zz/c-distributed-client-simulator/types"

// suspicionWindow bounds how many recent heartbeat timestamps are kept per
// buddy when computing a diagnostic suspicion score.
const suspicionWindow = 5

// suspicionTracker computes a phi-accrual-style suspicion score from the
// gaps between a buddy's recent heartbeats, adapted from the sibling
// codebase's standalone phi-accrual FailureDetector (detector/detector.go)
// onto simulated-second timestamps instead of wall-clock time.
//
// It is diagnostic only: the heartbeat client's actual demotion decision
// follows the fixed multi-period threshold in the module's staleness sweep
// (handleHeartbeatMessage / runHeartbeatTasks), never this score. The score
// is logged only on the line runHeartbeatTasks writes when that threshold
// trips and a buddy is demoted; it is not logged on earlier ticks.
type suspicionTracker struct {
	recent map[types.ClientID][]uint32
}

func newSuspicionTracker() *suspicionTracker {
	return &suspicionTracker{recent: make(map[types.ClientID][]uint32)}
}

// notify records a heartbeat receipt from id at the given simulated second.
func (t *suspicionTracker) notify(id types.ClientID, timestamp uint32) {
	times := append(t.recent[id], timestamp)
	if len(times) > suspicionWindow {
		times = times[len(times)-suspicionWindow:]
	}
	t.recent[id] = times
}

// phi estimates suspicion as the ratio of the gap since the oldest
// heartbeat still in the window to the mean inter-heartbeat gap observed in
// that window. It returns 0 for a buddy with fewer than two samples.
func (t *suspicionTracker) phi(id types.ClientID, now uint32) float64 {
	times, ok := t.recent[id]
	if !ok || len(times) < 2 {
		return 0
	}

	var total uint32
	for i := 1; i < len(times); i++ {
		total += times[i] - times[i-1]
	}
	mean := float64(total) / float64(len(times)-1)
	if mean == 0 {
		return 0
	}

	delta := now - times[0]
	return float64(delta) / mean
}
