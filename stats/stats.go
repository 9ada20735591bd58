// Package stats implements the simulator's statistics sink: a plain counter
// aggregator plus the per-node "last switch" memory that the gossip and
// heartbeat clients consult to compute convergence deltas.
//
// The sink is intentionally not safe for concurrent use. The simulator is
// single-threaded (see the simulator package's concurrency notes), and every
// client receives it through the narrower Recorder capability rather than a
// raw pointer, so clients cannot reach the other counters directly.
package stats

import "github.com/alanmc-zz/c-distributed-client-simulator/types"

// Recorder is the capability surface handed to clients: enough to credit a
// presence update, look up a peer's last known ground truth, or count
// verified buddy records, nothing more.
type Recorder interface {
	IncrementPresenceUpdates()
	AddConvergenceTime(delta uint32)
	LastStateSwitch(id types.ClientID) uint32
	LastState(id types.ClientID) types.ClientState
	IncrementTotalBuddyRecords()
	IncrementTotalCorrectBuddyRecords()
}

// Sink aggregates every counter enumerated in the module's external
// interface: presence convergence, message accounting, buddy-record
// accuracy, and sleep-schedule bookkeeping.
type Sink struct {
	presenceUpdates          uint64
	totalConvergenceTime     uint64
	totalMessagesSent        uint64
	totalMessagesDropped     uint64
	totalBuddyRecords        uint64
	totalCorrectBuddyRecords uint64
	totalSleepTime           uint64
	totalSleepStates         uint64

	lastStateSwitch map[types.ClientID]uint32
	lastState       map[types.ClientID]types.ClientState
}

func New() *Sink {
	return &Sink{
		lastStateSwitch: make(map[types.ClientID]uint32),
		lastState:       make(map[types.ClientID]types.ClientState),
	}
}

func (s *Sink) IncrementPresenceUpdates() {
	s.presenceUpdates++
}

func (s *Sink) AddConvergenceTime(delta uint32) {
	s.totalConvergenceTime += uint64(delta)
}

func (s *Sink) IncrementMessagesSent() {
	s.totalMessagesSent++
}

func (s *Sink) IncrementMessagesDropped() {
	s.totalMessagesDropped++
}

func (s *Sink) IncrementTotalBuddyRecords() {
	s.totalBuddyRecords++
}

func (s *Sink) IncrementTotalCorrectBuddyRecords() {
	s.totalCorrectBuddyRecords++
}

func (s *Sink) AddSleepTime(delta uint32) {
	s.totalSleepTime += uint64(delta)
}

func (s *Sink) IncrementSleepStates() {
	s.totalSleepStates++
}

// AddStateSwitch records the timestamp and new state of a toggle. It is
// called for every scheduled toggle, plus once per node at t=0 during
// simulator initialization, so LastState/LastStateSwitch are always
// populated before any client runs.
func (s *Sink) AddStateSwitch(id types.ClientID, timestamp uint32, state types.ClientState) {
	s.lastStateSwitch[id] = timestamp
	s.lastState[id] = state
}

// LastStateSwitch returns the timestamp of id's most recent recorded
// switch, defaulting to (and latching) 0 for an id never seen before.
func (s *Sink) LastStateSwitch(id types.ClientID) uint32 {
	if _, ok := s.lastStateSwitch[id]; !ok {
		s.lastStateSwitch[id] = 0
	}
	return s.lastStateSwitch[id]
}

// LastState returns id's most recently recorded ground-truth state. The
// zero value (Online) is returned for an id never seen before; callers never
// observe that default in practice because AddStateSwitch is always called
// at t=0 for every node.
func (s *Sink) LastState(id types.ClientID) types.ClientState {
	return s.lastState[id]
}

func (s *Sink) PresenceUpdates() uint64          { return s.presenceUpdates }
func (s *Sink) TotalConvergenceTime() uint64     { return s.totalConvergenceTime }
func (s *Sink) TotalMessagesSent() uint64        { return s.totalMessagesSent }
func (s *Sink) TotalMessagesDropped() uint64     { return s.totalMessagesDropped }
func (s *Sink) TotalBuddyRecords() uint64        { return s.totalBuddyRecords }
func (s *Sink) TotalCorrectBuddyRecords() uint64 { return s.totalCorrectBuddyRecords }
func (s *Sink) TotalSleepTime() uint64           { return s.totalSleepTime }
func (s *Sink) TotalSleepStates() uint64         { return s.totalSleepStates }

// MeanConvergenceTime is the report-friendly average of TotalConvergenceTime
// over PresenceUpdates, defined as 0 when there have been no updates yet.
func (s *Sink) MeanConvergenceTime() float64 {
	if s.presenceUpdates == 0 {
		return 0
	}
	return float64(s.totalConvergenceTime) / float64(s.presenceUpdates)
}

// MeanSleepTime is the report-friendly average sleep duration, defined as 0
// when no toggle has occurred yet.
func (s *Sink) MeanSleepTime() float64 {
	if s.totalSleepStates == 0 {
		return 0
	}
	return float64(s.totalSleepTime) / float64(s.totalSleepStates)
}

// Accuracy is total correct buddy records over total buddy records. Per the
// module's reporting convention, an empty verification pass (buddyCount==0)
// reports 0 rather than NaN.
func (s *Sink) Accuracy() float64 {
	if s.totalBuddyRecords == 0 {
		return 0
	}
	return float64(s.totalCorrectBuddyRecords) / float64(s.totalBuddyRecords)
}
