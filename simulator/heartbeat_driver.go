package simulator

import "github.com/alanmc-zz/c-distributed-client-simulator/types"

// heartbeatConvergenceSpan is how many extra ticks the heartbeat
// convergence phase runs after forcing every node online. It is longer
// than the gossip variant's because round-robin pings propagate far more
// slowly than a flood.
const heartbeatConvergenceSpan = 2200

// heartbeatTick fires one simulated second of the heartbeat variant: every
// online node gets its own RunTasks+drain burst (so each node's internal
// "more than 11 seconds since my last ping" gate fires against real
// per-node cadence rather than a single batched cadence), then, if
// allowToggles is set, applies any toggles scheduled for t.
func (s *Simulator) heartbeatTick(t uint32, allowToggles bool) {
	for i := 0; i < s.cfg.NodeCount; i++ {
		id := types.ClientID(i)
		node := s.clients[id]
		if !node.IsOnline() {
			continue
		}
		node.RunTasks(t)
		s.drainQueue()
	}

	if allowToggles {
		s.applyScheduledToggles(t)
	}
}

func (s *Simulator) runHeartbeatMainSpan() MainSpanReport {
	for s.timeElapsed < s.cfg.Timespan {
		s.heartbeatTick(s.timeElapsed, true)
		s.timeElapsed++
		if s.timeElapsed%10000 == 0 {
			s.logf("[SIM] %d seconds elapsed", s.timeElapsed)
		}
	}
	return s.mainSpanReport()
}

func (s *Simulator) runHeartbeatConvergencePhase() AccuracyReport {
	// Preserved quirk from the original implementation: the heartbeat
	// convergence phase forces nodes online at t=0 rather than the current
	// simulated time, which corrupts lastStateSwitch for those nodes.
	// ForceConvergenceAtCurrentTime isolates this behind a Config toggle for
	// tests that want the non-quirky behavior instead.
	forceAt := uint32(0)
	if s.cfg.ForceConvergenceAtCurrentTime {
		forceAt = s.timeElapsed
	}

	for i := 0; i < s.cfg.NodeCount; i++ {
		id := types.ClientID(i)
		if !s.clients[id].IsOnline() {
			s.switchClientState(id, forceAt)
		}
	}

	end := s.timeElapsed + heartbeatConvergenceSpan
	for s.timeElapsed < end {
		s.heartbeatTick(s.timeElapsed, false)
		s.timeElapsed++
		if s.timeElapsed%10000 == 0 {
			s.logf("[SIM] %d seconds elapsed", s.timeElapsed)
		}
	}

	return s.verifyAndReport()
}
