package client

import (
	"testing"

	"github.com/alanmc-zz/c-distributed-client-simulator/types"
)

func TestRandomObserversExcludesSelfAndDeduplicates(t *testing.T) {
	n, _, _ := newTestNode(1, Gossip, &sequenceRNG{seq: []int{0, 0, 1, 2}})
	n.AddObserver(2)
	n.AddObserver(3)
	n.AddObserver(4)

	picked := n.randomObservers(3)
	if len(picked) != 3 {
		t.Fatalf("expected 3 distinct observers, got %d: %v", len(picked), picked)
	}
	seen := types.NewClientSet()
	for _, id := range picked {
		if id == n.ID() {
			t.Fatalf("randomObservers must never return self")
		}
		if seen.Has(id) {
			t.Fatalf("randomObservers returned a duplicate: %v", picked)
		}
		seen.Add(id)
	}
}

func TestRandomObserversNoObservers(t *testing.T) {
	n, _, _ := newTestNode(1, Gossip, nil)
	if picked := n.randomObservers(2); picked != nil {
		t.Fatalf("expected nil with no observers, got %v", picked)
	}
}

func TestRunGossipTasksOriginatesToDistinctObservers(t *testing.T) {
	n, q, _ := newTestNode(1, Gossip, &sequenceRNG{seq: []int{0, 1}})
	n.AddObserver(2)
	n.AddObserver(3)
	n.AddObserver(4)

	n.runGossipTasks(100)

	if q.Len() != originationFanout {
		t.Fatalf("expected %d originated messages, got %d", originationFanout, q.Len())
	}
	for i := 0; i < originationFanout; i++ {
		msg, ok := q.Pop()
		if !ok {
			t.Fatalf("expected a queued message")
		}
		if msg.MessageType != types.Gossip {
			t.Errorf("expected a GOSSIP message, got %v", msg.MessageType)
		}
		if msg.GossipID != 100 {
			t.Errorf("expected GossipID 100, got %d", msg.GossipID)
		}
		if !msg.ClientChain.Has(1) {
			t.Errorf("origination chain must include the originator's own id")
		}
	}
	if n.messagesSent != originationFanout {
		t.Errorf("messagesSent = %d, want %d", n.messagesSent, originationFanout)
	}
}

func TestRunGossipTasksNoObserversIsNoOp(t *testing.T) {
	n, q, _ := newTestNode(1, Gossip, nil)
	n.runGossipTasks(100)
	if !q.Empty() {
		t.Fatalf("a node with no observers must not originate any message")
	}
}

func TestHandleGossipMessageResetsOnNewCycleWithPessimisticReset(t *testing.T) {
	// No observer is registered, so pickForwardTarget fails and the call
	// returns right after the pessimistic reset, before blanket promotion
	// would otherwise flip every buddy back ONLINE in the same call.
	n, _, s := newTestNode(1, Gossip, &sequenceRNG{seq: []int{0}})
	n.AddBuddy(10, types.Online)
	n.AddBuddy(11, types.Online)
	s.AddStateSwitch(10, 0, types.Offline)
	s.AddStateSwitch(11, 0, types.Online)

	n.handleGossipMessage(types.Message{
		Sender:      9,
		GossipID:    555,
		Timestamp:   200,
		ClientChain: types.NewClientSet(9),
	})

	if n.lastGossipRequest != 555 {
		t.Errorf("lastGossipRequest = %d, want 555", n.lastGossipRequest)
	}
	for _, buddy := range []types.ClientID{10, 11} {
		if state, _ := n.BuddyState(buddy); state != types.Offline {
			t.Errorf("pessimistic reset should set buddy %d OFFLINE, got %v", buddy, state)
		}
	}
	// Buddy 10's ground truth was already OFFLINE, so the reset "catches up"
	// to a state already true and is credited as a presence update.
	if got := s.PresenceUpdates(); got != 1 {
		t.Errorf("PresenceUpdates() = %d, want 1", got)
	}
}

func TestHandleGossipMessageForwardsWithinCap(t *testing.T) {
	n, q, _ := newTestNode(1, Gossip, &sequenceRNG{seq: []int{0}})
	n.AddObserver(2)

	msg := types.Message{Sender: 9, GossipID: 1, Timestamp: 0, ClientChain: types.NewClientSet(9)}
	n.handleGossipMessage(msg)

	if q.Len() != 1 {
		t.Fatalf("expected 1 forwarded message, got %d", q.Len())
	}
	forwarded, _ := q.Pop()
	if !forwarded.ClientChain.Has(1) {
		t.Errorf("forwarded chain must include this node's id")
	}
	if forwarded.GossipID != msg.GossipID {
		t.Errorf("forwarded GossipID = %d, want %d", forwarded.GossipID, msg.GossipID)
	}
}

func TestHandleGossipMessageStopsAtForwardCap(t *testing.T) {
	n, q, _ := newTestNode(1, Gossip, &sequenceRNG{seq: []int{0}})
	n.AddObserver(2)

	msg := types.Message{Sender: 9, GossipID: 1, Timestamp: 0, ClientChain: types.NewClientSet(9)}
	for i := 0; i < maxForwardsPerCycle; i++ {
		n.handleGossipMessage(msg)
	}
	if n.messagesSent != maxForwardsPerCycle {
		t.Fatalf("messagesSent = %d, want %d", n.messagesSent, maxForwardsPerCycle)
	}
	for !q.Empty() {
		q.Pop()
	}

	n.handleGossipMessage(msg)
	if !q.Empty() {
		t.Fatalf("a node at its forward cap must not forward again within the same cycle")
	}
}

func TestHandleGossipMessageBlanketPromotesOnForward(t *testing.T) {
	n, _, s := newTestNode(1, Gossip, &sequenceRNG{seq: []int{0}})
	n.AddObserver(2)
	n.AddBuddy(10, types.Offline)
	s.AddStateSwitch(10, 0, types.Online)

	n.handleGossipMessage(types.Message{Sender: 9, GossipID: 1, Timestamp: 50, ClientChain: types.NewClientSet(9)})

	if state, _ := n.BuddyState(10); state != types.Online {
		t.Errorf("blanket promotion should mark buddy 10 ONLINE, got %v", state)
	}
	if got := s.PresenceUpdates(); got != 1 {
		t.Errorf("PresenceUpdates() = %d, want 1", got)
	}
}
