package client

import "github.com/alanmc-zz/c-distributed-client-simulator/types"

// heartbeatGap is the number of simulated seconds since a node's last
// emission that must be exceeded before it emits again, so two emissions
// from the same node are at least heartbeatGap+1 seconds apart.
const heartbeatGap = 11

// stalePeriods is the number of "observer-scaled heartbeat periods" of
// silence tolerated before a buddy is demoted to OFFLINE.
const stalePeriods = 3

// heartbeatPeriod is the nominal per-observer heartbeat interval used to
// scale the staleness threshold; see runHeartbeatTasks.
const heartbeatPeriod = 12

// handleHeartbeatMessage implements the round-robin heartbeat protocol's
// receive path: a heartbeat is unconditional proof of life from its sender.
func (n *Node) handleHeartbeatMessage(msg types.Message) {
	if n.buddyState[msg.Sender] == types.Offline {
		n.stats.IncrementPresenceUpdates()
		delta := msg.Timestamp - n.stats.LastStateSwitch(msg.Sender)
		n.stats.AddConvergenceTime(delta)
	}

	n.buddyState[msg.Sender] = types.Online
	n.lastBuddyUpdate[msg.Sender] = msg.Timestamp
	n.detector.notify(msg.Sender, msg.Timestamp)
}

// runHeartbeatTasks emits one ping (gated by heartbeatGap) and sweeps every
// buddy believed ONLINE for staleness.
func (n *Node) runHeartbeatTasks(timestamp uint32) {
	if timestamp-n.lastMessageTimestamp > heartbeatGap {
		if len(n.observers) > 0 {
			target := n.observers[n.nextObserver]
			n.queue.Push(n.createMessage(target, types.Heartbeat, timestamp, 0, nil))

			n.nextObserver++
			if n.nextObserver >= len(n.observers) {
				n.nextObserver = 0
			}
		}
		n.lastMessageTimestamp = timestamp
	}

	staleAfter := uint32(len(n.observers)) * heartbeatPeriod * stalePeriods

	for _, buddy := range n.buddies {
		if n.buddyState[buddy] == types.Offline {
			continue
		}

		lastUpdate := n.lastBuddyUpdate[buddy]
		delta := timestamp - lastUpdate

		if delta > staleAfter {
			if n.logger != nil {
				n.logger.Printf("[HEARTBEAT] node=%d buddy=%d suspicion=phi(%.2f) stale_delta=%d threshold=%d, demoting to OFFLINE",
					n.id, buddy, n.detector.phi(buddy, timestamp), delta, staleAfter)
			}

			n.stats.IncrementPresenceUpdates()
			convergenceDelta := timestamp - n.stats.LastStateSwitch(buddy)
			n.stats.AddConvergenceTime(convergenceDelta)
			n.buddyState[buddy] = types.Offline
		}
	}
}
