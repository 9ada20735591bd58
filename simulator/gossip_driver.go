package simulator

import "github.com/alanmc-zz/c-distributed-client-simulator/types"

// gossipCadence is how often (in simulated seconds) the gossip protocol
// fires a fresh origination burst.
const gossipCadence = 60

// gossipConvergenceSpan is how many extra ticks the gossip convergence
// phase runs after forcing every node online.
const gossipConvergenceSpan = 1200

// gossipTick fires one simulated second of the gossip variant: every 60
// seconds it runs every online node's origination task and drains whatever
// that produces (including further forwards enqueued during the same
// drain); on every second, if allowToggles is set, it applies any toggles
// scheduled for t.
func (s *Simulator) gossipTick(t uint32, allowToggles bool) {
	if t%gossipCadence == 0 {
		for i := 0; i < s.cfg.NodeCount; i++ {
			id := types.ClientID(i)
			if !s.onlineClients.Has(id) {
				continue
			}
			s.clients[id].RunTasks(t)
		}
		s.drainQueue()
	}

	if allowToggles {
		s.applyScheduledToggles(t)
	}
}

func (s *Simulator) runGossipMainSpan() MainSpanReport {
	for s.timeElapsed < s.cfg.Timespan {
		s.gossipTick(s.timeElapsed, true)
		s.timeElapsed++
		if s.timeElapsed%10000 == 0 {
			s.logf("[SIM] %d seconds elapsed", s.timeElapsed)
		}
	}
	return s.mainSpanReport()
}

func (s *Simulator) runGossipConvergencePhase() AccuracyReport {
	// The gossip variant forces offline nodes online at the current
	// simulated time, unlike the heartbeat variant's preserved t=0 quirk
	// (see runHeartbeatConvergencePhase).
	for i := 0; i < s.cfg.NodeCount; i++ {
		id := types.ClientID(i)
		if !s.clients[id].IsOnline() {
			s.switchClientState(id, s.timeElapsed)
		}
	}

	end := s.timeElapsed + gossipConvergenceSpan
	for s.timeElapsed < end {
		s.gossipTick(s.timeElapsed, false)
		s.timeElapsed++
	}

	return s.verifyAndReport()
}
