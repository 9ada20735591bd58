package client

import "github.com/alanmc-zz/c-distributed-client-simulator/types"

// maxForwardsPerCycle caps how many times a node will forward a single
// gossip cycle before going silent, bounding the flood's fan-out.
const maxForwardsPerCycle = 5

// originationFanout is how many distinct observers a node pings when it
// originates a new gossip cycle in RunTasks.
const originationFanout = 2

// randomObservers draws k distinct observer ids, never including this
// node's own id. If fewer than k observers exist, it returns as many as it
// can (the reference configuration keeps the buddy graph dense enough that
// this never binds in practice).
func (n *Node) randomObservers(k int) []types.ClientID {
	if len(n.observers) == 0 {
		return nil
	}
	chosen := make([]types.ClientID, 0, k)
	seen := make(map[int]struct{}, k)
	attempts := 0
	maxAttempts := (len(n.observers) + 1) * 8
	for len(chosen) < k && len(chosen) < len(n.observers) && attempts < maxAttempts {
		attempts++
		idx := n.rng.IntN(len(n.observers))
		if _, dup := seen[idx]; dup {
			continue
		}
		candidate := n.observers[idx]
		if candidate == n.id {
			continue
		}
		seen[idx] = struct{}{}
		chosen = append(chosen, candidate)
	}
	return chosen
}

// handleGossipMessage implements the flooded gossip protocol's receive
// path: cycle detection with a pessimistic reset, chain absorption with
// blanket promotion to ONLINE, and bounded forwarding.
func (n *Node) handleGossipMessage(msg types.Message) {
	if n.lastGossipRequest != msg.GossipID {
		n.gossipedNodes = types.NewClientSet()
		n.messagesSent = 0
		n.lastGossipRequest = msg.GossipID

		// Pessimistic reset: assume every buddy has gone quiet, crediting a
		// presence update for any buddy whose last known ground truth was
		// already OFFLINE (i.e. our belief is "catching up" to a state it
		// should already have reflected).
		for buddy := range n.buddyState {
			n.buddyState[buddy] = types.Offline

			if n.stats.LastState(buddy) == types.Offline {
				n.stats.IncrementPresenceUpdates()
				delta := msg.Timestamp - n.stats.LastStateSwitch(msg.Sender)
				n.stats.AddConvergenceTime(delta)
			}
		}
	}

	if n.messagesSent >= maxForwardsPerCycle {
		return
	}

	target, ok := n.pickForwardTarget()
	if !ok {
		return
	}

	n.gossipedNodes.Union(msg.ClientChain)

	// Anyone who forwarded the chain along is alive; promote every tracked
	// buddy to ONLINE, crediting a presence update for any that had been
	// believed OFFLINE while its last known ground truth was ONLINE.
	for buddy := range n.buddyState {
		if n.buddyState[buddy] != types.Online {
			if n.stats.LastState(buddy) == types.Online {
				n.stats.IncrementPresenceUpdates()
				delta := msg.Timestamp - n.stats.LastStateSwitch(msg.Sender)
				n.stats.AddConvergenceTime(delta)
			}
		}
		n.buddyState[buddy] = types.Online
	}

	chain := msg.ClientChain.Clone()
	chain.Add(n.id)

	n.queue.Push(n.createMessage(target, types.Gossip, msg.Timestamp, msg.GossipID, chain))
	n.messagesSent++
}

// pickForwardTarget draws the single observer this node forwards the
// current gossip cycle to.
func (n *Node) pickForwardTarget() (types.ClientID, bool) {
	picked := n.randomObservers(1)
	if len(picked) == 0 {
		return 0, false
	}
	return picked[0], true
}

// runGossipTasks originates a fresh gossip cycle: it pre-charges the
// forward budget (mirroring the two messages it is about to send), resets
// per-cycle memory, and pings originationFanout distinct observers.
func (n *Node) runGossipTasks(timestamp uint32) {
	targets := n.randomObservers(originationFanout)
	if len(targets) == 0 {
		return
	}

	n.messagesSent = originationFanout
	n.gossipedNodes = types.NewClientSet()
	n.lastGossipRequest = timestamp

	chain := types.NewClientSet(n.id)
	for _, target := range targets {
		n.queue.Push(n.createMessage(target, types.Gossip, timestamp, timestamp, chain))
	}
}
