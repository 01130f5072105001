// Package connection exposes the publisher connection as a node. The node
// itself is always usable once started; connection health is read from
// PublisherOnline and PublisherState.
package connection

import (
	"time"

	"motifcore/src/datamodels"
	"motifcore/src/node"
)

type ConnectionNode struct {
	*node.Base

	state             datamodels.PublisherState
	waiting           bool
	stateChangedAt    time.Time
	online            bool
	socketCloseReason string
	lastReconnect     *datamodels.Reconnect
	reconnects        int
	endpoint          string
	endpoints         []string
	counters          datamodels.ConnectionCounters
	termination       *datamodels.SessionTermination
}

func NewConnectionNode(deps node.Deps) node.Node {
	return &ConnectionNode{
		Base:     node.NewBase(deps),
		state:    datamodels.PublisherStateInitialise,
		counters: datamodels.ConnectionCounters{SubscriptionErrorCounts: map[datamodels.SubscriptionErrorType]int{}},
	}
}

func Register(registry node.Registry) {
	registry.Register(datamodels.ChannelConnection, NewConnectionNode)
}

func (n *ConnectionNode) PublisherState() datamodels.PublisherState { return n.state }

// Waiting reports whether the publisher is pausing before its next state, e.g. a reconnect delay.
func (n *ConnectionNode) Waiting() bool             { return n.waiting }
func (n *ConnectionNode) StateChangedAt() time.Time { return n.stateChangedAt }
func (n *ConnectionNode) PublisherOnline() bool     { return n.online }
func (n *ConnectionNode) SocketCloseReason() string { return n.socketCloseReason }
func (n *ConnectionNode) Endpoint() string          { return n.endpoint }
func (n *ConnectionNode) Reconnects() int           { return n.reconnects }

func (n *ConnectionNode) Endpoints() []string {
	return append([]string(nil), n.endpoints...)
}

// LastReconnect is the reason given for the most recent reconnect, if any.
func (n *ConnectionNode) LastReconnect() (datamodels.Reconnect, bool) {
	if n.lastReconnect == nil {
		return datamodels.Reconnect{}, false
	}
	return *n.lastReconnect, true
}

// Counters returns a copy of the latest counters snapshot.
func (n *ConnectionNode) Counters() datamodels.ConnectionCounters { return n.counters.Copy() }

func (n *ConnectionNode) Terminated() (datamodels.SessionTermination, bool) {
	if n.termination == nil {
		return datamodels.SessionTermination{}, false
	}
	return *n.termination, true
}

func (n *ConnectionNode) ProcessMessage(update datamodels.Update) {
	switch update.Kind {
	case datamodels.KindPublisherState, datamodels.KindPublisherOnline, datamodels.KindReconnect,
		datamodels.KindEndpointSelected, datamodels.KindCounters, datamodels.KindSessionTerminated:
	default:
		n.Base.ProcessMessage(update)
		return
	}

	n.BeginUpdate()
	defer n.EndUpdate()
	if n.termination != nil {
		n.Logger().Debug("Ignoring connection update after session termination", "kind", update.Kind)
		return
	}

	switch update.Kind {
	case datamodels.KindPublisherState:
		change := node.Payload[datamodels.PublisherStateChange](update, "CN:PM:10080")
		n.setState(change)
	case datamodels.KindPublisherOnline:
		change := node.Payload[datamodels.PublisherOnlineChange](update, "CN:PM:10081")
		n.setOnline(change.Online, change.SocketCloseReason)
	case datamodels.KindReconnect:
		reconnect := node.Payload[datamodels.Reconnect](update, "CN:PM:10082")
		n.lastReconnect = &reconnect
		n.reconnects++
		n.Logger().Info("Publisher reconnecting", "reason", reconnect.Reason, "text", reconnect.Text)
		n.MarkChanged()
	case datamodels.KindEndpointSelected:
		selected := node.Payload[datamodels.EndpointSelected](update, "CN:PM:10083")
		n.endpoint = selected.Endpoint
		n.endpoints = append([]string(nil), selected.Endpoints...)
		n.MarkChanged()
	case datamodels.KindCounters:
		counters := node.Payload[datamodels.ConnectionCounters](update, "CN:PM:10084")
		n.counters = counters.Copy()
		n.MarkChanged()
	case datamodels.KindSessionTerminated:
		termination := node.Payload[datamodels.SessionTermination](update, "CN:PM:10085")
		n.terminate(termination)
	}
}

func (n *ConnectionNode) setState(change datamodels.PublisherStateChange) {
	if change.State == n.state && change.Waiting == n.waiting {
		return
	}
	n.Logger().Info("Publisher state changed", "from", n.state, "to", change.State, "waiting", change.Waiting)
	n.state = change.State
	n.waiting = change.Waiting
	n.stateChangedAt = change.Timestamp
	if n.stateChangedAt.IsZero() {
		n.stateChangedAt = time.Now()
	}
	n.Recorder().RecordConnectionState(n.state, n.online, "")
	n.MarkChanged()
}

func (n *ConnectionNode) setOnline(online bool, closeReason string) {
	if online == n.online {
		return
	}
	n.online = online
	n.socketCloseReason = closeReason
	if online {
		n.Logger().Info("Publisher online", "endpoint", n.endpoint)
	} else {
		n.Logger().Warn("Publisher offline", "reason", closeReason)
	}
	n.Recorder().RecordConnectionState(n.state, online, closeReason)
	n.MarkChanged()
}

func (n *ConnectionNode) terminate(termination datamodels.SessionTermination) {
	n.termination = &termination
	n.online = false
	n.state = datamodels.PublisherStateFinalised
	n.waiting = false
	n.stateChangedAt = time.Now()
	n.Logger().Warn("Publisher session terminated", "reason", termination.Reason, "text", termination.Text)
	n.Recorder().RecordConnectionState(n.state, false, termination.Reason)
	n.MarkChanged()
}
