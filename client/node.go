// Package client implements the per-node simulation state: the bookkeeping
// shared by every node (buddy/observer lists, belief table, state toggling,
// verification) plus the two dissemination protocols layered on top of it.
//
// The two protocols are modeled as a tagged variant dispatched by Kind, not
// as an inheritance hierarchy: Node carries both protocols' private fields,
// and HandleMessage/RunTasks switch on Kind before touching them. This
// mirrors how the sibling gossip daemon keeps one Member/MemberInfo record
// per peer and layers membership, service-discovery, and failure-detection
// concerns on top of it, rather than subclassing a peer type per concern.
package client

import (
	"github.com/alanmc-zz/c-distributed-client-simulator/rng"
	"github.com/alanmc-zz/c-distributed-client-simulator/stats"
	"github.com/alanmc-zz/c-distributed-client-simulator/types"
)

// Kind selects which dissemination protocol a Node runs.
type Kind int

const (
	Gossip Kind = iota
	Heartbeat
)

// Node is one member of the buddy graph. It owns its own belief about every
// buddy's liveness (BuddyState) and is itself watched by its Observers.
type Node struct {
	id          types.ClientID
	kind        Kind
	state       types.ClientState
	sleepPeriod uint32

	buddies      []types.ClientID
	buddiesSet   types.ClientSet
	observers    []types.ClientID
	observersSet types.ClientSet

	buddyState map[types.ClientID]types.ClientState

	// gossip-specific fields, touched only when kind == Gossip.
	lastGossipRequest uint32
	messagesSent      int
	gossipedNodes     types.ClientSet

	// heartbeat-specific fields, touched only when kind == Heartbeat.
	nextObserver         int
	lastMessageTimestamp uint32
	lastBuddyUpdate      map[types.ClientID]uint32
	detector             *suspicionTracker

	queue  types.Enqueuer
	stats  stats.Recorder
	rng    rng.Source
	logger Logger
}

// Logger is the minimal logging capability a Node accepts for optional
// diagnostics (see suspicion.go). A nil Logger disables diagnostics
// entirely; the simulator wires one in only when running non-quiet.
type Logger interface {
	Printf(format string, args ...any)
}

// SetLogger installs a diagnostic logger. It is optional; most simulation
// runs (e.g. property tests over thousands of nodes) leave it nil.
func (n *Node) SetLogger(l Logger) {
	n.logger = l
}

// New constructs a Node with no buddies or observers yet; the simulator
// populates those via AddBuddy/AddObserver while building the buddy graph.
func New(id types.ClientID, kind Kind, initialSleepPeriod uint32, initialState types.ClientState, queue types.Enqueuer, sink stats.Recorder, source rng.Source) *Node {
	n := &Node{
		id:          id,
		kind:        kind,
		state:       initialState,
		sleepPeriod: initialSleepPeriod,

		buddiesSet:   types.NewClientSet(),
		observersSet: types.NewClientSet(),
		buddyState:   make(map[types.ClientID]types.ClientState),

		queue: queue,
		stats: sink,
		rng:   source,
	}
	if kind == Gossip {
		n.gossipedNodes = types.NewClientSet()
	} else {
		n.lastBuddyUpdate = make(map[types.ClientID]uint32)
		n.detector = newSuspicionTracker()
	}
	return n
}

func (n *Node) ID() types.ClientID           { return n.id }
func (n *Node) Kind() Kind                   { return n.kind }
func (n *Node) State() types.ClientState     { return n.state }
func (n *Node) IsOnline() bool               { return n.state == types.Online }
func (n *Node) SleepPeriod() uint32          { return n.sleepPeriod }
func (n *Node) SetSleepPeriod(period uint32) { n.sleepPeriod = period }
func (n *Node) BuddyCount() int              { return len(n.buddiesSet) }
func (n *Node) ObserverCount() int           { return len(n.observersSet) }
func (n *Node) Buddies() []types.ClientID    { return n.buddies }
func (n *Node) Observers() []types.ClientID  { return n.observers }

// BuddyState returns the node's current belief about buddy b, and whether
// b is tracked at all.
func (n *Node) BuddyState(b types.ClientID) (types.ClientState, bool) {
	s, ok := n.buddyState[b]
	return s, ok
}

// AddBuddy records b as a buddy with an initial belief of s. It returns
// false (and does nothing) if b is this node's own id or is already a
// buddy.
func (n *Node) AddBuddy(b types.ClientID, s types.ClientState) bool {
	if b == n.id || n.buddiesSet.Has(b) {
		return false
	}
	n.buddies = append(n.buddies, b)
	n.buddiesSet.Add(b)
	n.buddyState[b] = s
	return true
}

// AddObserver records o as an observer of this node. It returns false (and
// does nothing) if o is this node's own id or is already an observer.
func (n *Node) AddObserver(o types.ClientID) bool {
	if o == n.id || n.observersSet.Has(o) {
		return false
	}
	n.observers = append(n.observers, o)
	n.observersSet.Add(o)
	return true
}

// SwitchState flips ONLINE<->OFFLINE and returns the new state. Protocol
// memory (gossip cycle state, heartbeat cursor, belief tables) is left
// untouched; a node that comes back online resumes with stale beliefs until
// the protocol corrects them.
func (n *Node) SwitchState(uint32) types.ClientState {
	if n.state == types.Online {
		n.state = types.Offline
	} else {
		n.state = types.Online
	}
	return n.state
}

// VerifyState compares every recorded belief against truth, crediting the
// stats sink's total and correct buddy-record counters.
func (n *Node) VerifyState(truth map[types.ClientID]types.ClientState) {
	for buddy, believed := range n.buddyState {
		n.stats.IncrementTotalBuddyRecords()
		if truth[buddy] == believed {
			n.stats.IncrementTotalCorrectBuddyRecords()
		}
	}
}

// HandleMessage dispatches an inbound message to the node's protocol logic.
// Offline nodes are inert: neither protocol mutates any state for a message
// arriving while asleep.
func (n *Node) HandleMessage(msg types.Message) {
	if !n.IsOnline() {
		return
	}
	switch n.kind {
	case Gossip:
		n.handleGossipMessage(msg)
	case Heartbeat:
		n.handleHeartbeatMessage(msg)
	}
}

// RunTasks dispatches the node's protocol-specific periodic work. Offline
// nodes are inert.
func (n *Node) RunTasks(timestamp uint32) {
	if !n.IsOnline() {
		return
	}
	switch n.kind {
	case Gossip:
		n.runGossipTasks(timestamp)
	case Heartbeat:
		n.runHeartbeatTasks(timestamp)
	}
}

func (n *Node) createMessage(recipient types.ClientID, msgType types.MessageType, timestamp, gossipID uint32, chain types.ClientSet) types.Message {
	return types.Message{
		Recipient:   recipient,
		Sender:      n.id,
		Timestamp:   timestamp,
		GossipID:    gossipID,
		MessageType: msgType,
		ClientChain: chain,
	}
}
