package client

import (
	"testing"

	"github.com/alanmc-zz/c-distributed-client-simulator/types"
)

func TestRunHeartbeatTasksGatedByHeartbeatGap(t *testing.T) {
	n, q, _ := newTestNode(1, Heartbeat, nil)
	n.AddObserver(2)

	// lastMessageTimestamp starts at 0, so the gap check at t=0 itself
	// (0-0 > heartbeatGap) does not fire; the first real emission needs a
	// timestamp strictly more than heartbeatGap past it.
	n.runHeartbeatTasks(0)
	if !q.Empty() {
		t.Fatalf("a call at t=0 with a fresh node must not emit (0-0 is not > heartbeatGap)")
	}

	n.runHeartbeatTasks(heartbeatGap + 1)
	if q.Len() != 1 {
		t.Fatalf("a call past heartbeatGap should emit one ping, got queue len %d", q.Len())
	}
	q.Pop()

	n.runHeartbeatTasks(2*heartbeatGap + 1)
	if !q.Empty() {
		t.Fatalf("a call within heartbeatGap of the last emission must not ping again")
	}

	n.runHeartbeatTasks(2*heartbeatGap + 3)
	if q.Len() != 1 {
		t.Fatalf("a call past heartbeatGap must emit again, got queue len %d", q.Len())
	}
}

func TestRunHeartbeatTasksRoundRobinsObservers(t *testing.T) {
	n, q, _ := newTestNode(1, Heartbeat, nil)
	n.AddObserver(2)
	n.AddObserver(3)
	n.AddObserver(4)

	var targets []types.ClientID
	ts := uint32(heartbeatGap + 1)
	for i := 0; i < 3; i++ {
		n.runHeartbeatTasks(ts)
		msg, ok := q.Pop()
		if !ok {
			t.Fatalf("expected a ping on round %d", i)
		}
		targets = append(targets, msg.Recipient)
		ts += heartbeatGap + 1
	}

	want := []types.ClientID{2, 3, 4}
	for i, w := range want {
		if targets[i] != w {
			t.Errorf("round %d target = %d, want %d", i, targets[i], w)
		}
	}
}

func TestRunHeartbeatTasksNoObserversEmitsNothing(t *testing.T) {
	n, q, _ := newTestNode(1, Heartbeat, nil)
	n.runHeartbeatTasks(heartbeatGap + 1)
	if !q.Empty() {
		t.Fatalf("a node with no observers must not emit a ping even past heartbeatGap")
	}
}

func TestHandleHeartbeatMessageMarksSenderOnlineAndCreditsPresence(t *testing.T) {
	n, _, s := newTestNode(1, Heartbeat, nil)
	n.AddBuddy(9, types.Offline)
	s.AddStateSwitch(9, 10, types.Online)

	n.handleHeartbeatMessage(types.Message{Sender: 9, Timestamp: 50})

	if state, _ := n.BuddyState(9); state != types.Online {
		t.Errorf("BuddyState(9) = %v, want ONLINE after a heartbeat", state)
	}
	if got := s.PresenceUpdates(); got != 1 {
		t.Errorf("PresenceUpdates() = %d, want 1", got)
	}
	if got := s.TotalConvergenceTime(); got != 40 {
		t.Errorf("TotalConvergenceTime() = %d, want 40 (50-10)", got)
	}
}

func TestHandleHeartbeatMessageAlreadyOnlineDoesNotCreditPresence(t *testing.T) {
	n, _, s := newTestNode(1, Heartbeat, nil)
	n.AddBuddy(9, types.Online)

	n.handleHeartbeatMessage(types.Message{Sender: 9, Timestamp: 50})

	if got := s.PresenceUpdates(); got != 0 {
		t.Errorf("PresenceUpdates() = %d, want 0 when buddy was already believed ONLINE", got)
	}
}

func TestRunHeartbeatTasksDemotesStaleBuddy(t *testing.T) {
	n, _, s := newTestNode(1, Heartbeat, nil)
	n.AddObserver(2)
	n.AddBuddy(9, types.Online)
	n.lastBuddyUpdate[9] = 0
	s.AddStateSwitch(9, 0, types.Online)

	staleAfter := uint32(len(n.observers)) * heartbeatPeriod * stalePeriods

	n.runHeartbeatTasks(staleAfter + 1)

	if state, _ := n.BuddyState(9); state != types.Offline {
		t.Errorf("BuddyState(9) = %v, want OFFLINE after exceeding the staleness threshold", state)
	}
	if got := s.PresenceUpdates(); got != 1 {
		t.Errorf("PresenceUpdates() = %d, want 1", got)
	}
}

func TestRunHeartbeatTasksDoesNotDemoteFreshBuddy(t *testing.T) {
	n, _, _ := newTestNode(1, Heartbeat, nil)
	n.AddObserver(2)
	n.AddBuddy(9, types.Online)
	n.lastBuddyUpdate[9] = 100

	n.runHeartbeatTasks(101)

	if state, _ := n.BuddyState(9); state != types.Online {
		t.Errorf("BuddyState(9) = %v, want ONLINE for a recently-updated buddy", state)
	}
}

func TestRunHeartbeatTasksNeverDemotesAlreadyOfflineBuddy(t *testing.T) {
	n, _, s := newTestNode(1, Heartbeat, nil)
	n.AddObserver(2)
	n.AddBuddy(9, types.Offline)

	n.runHeartbeatTasks(100000)

	if got := s.PresenceUpdates(); got != 0 {
		t.Errorf("PresenceUpdates() = %d, want 0: a buddy already believed OFFLINE must not re-trigger the sweep", got)
	}
}
