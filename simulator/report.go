package simulator

// MainSpanReport is the stdout-reportable summary computed after the main
// simulated span, before the convergence phase runs.
type MainSpanReport struct {
	PresenceUpdates     uint64
	MessagesSent        uint64
	MessagesDropped     uint64
	MessagesPerSecond   float64
	MeanConvergenceTime float64
	MeanSleepTime       float64
}

// AccuracyReport is the stdout-reportable summary computed after the
// convergence phase's verification pass.
type AccuracyReport struct {
	TotalBuddyRecords        uint64
	TotalCorrectBuddyRecords uint64
	Accuracy                 float64
}

// RunMainSpan runs the simulator's main event loop for cfg.Timespan
// simulated seconds and returns the resulting report. It must be called
// before RunConvergencePhase.
func (s *Simulator) RunMainSpan() MainSpanReport {
	switch s.protocol {
	case GossipProtocol:
		return s.runGossipMainSpan()
	default:
		return s.runHeartbeatMainSpan()
	}
}

// RunConvergencePhase forces every offline node online, runs the
// protocol's convergence span with the sleep schedule disabled, then
// verifies every node's buddy-state table against ground truth.
func (s *Simulator) RunConvergencePhase() AccuracyReport {
	switch s.protocol {
	case GossipProtocol:
		return s.runGossipConvergencePhase()
	default:
		return s.runHeartbeatConvergencePhase()
	}
}

func (s *Simulator) mainSpanReport() MainSpanReport {
	st := s.stats
	var perSecond float64
	if s.timeElapsed > 0 {
		perSecond = float64(st.TotalMessagesSent()) / float64(s.timeElapsed)
	}
	return MainSpanReport{
		PresenceUpdates:     st.PresenceUpdates(),
		MessagesSent:        st.TotalMessagesSent(),
		MessagesDropped:     st.TotalMessagesDropped(),
		MessagesPerSecond:   perSecond,
		MeanConvergenceTime: st.MeanConvergenceTime(),
		MeanSleepTime:       st.MeanSleepTime(),
	}
}

func (s *Simulator) verifyAndReport() AccuracyReport {
	for _, node := range s.clients {
		node.VerifyState(s.clientState)
	}
	st := s.stats
	return AccuracyReport{
		TotalBuddyRecords:        st.TotalBuddyRecords(),
		TotalCorrectBuddyRecords: st.TotalCorrectBuddyRecords(),
		Accuracy:                 st.Accuracy(),
	}
}
