// Package node holds the subscription node framework: lifecycle, health,
// batched change notification, the publisher subscription layer and the
// keyed record list every list-shaped node is built on.
package node

import (
	"log/slog"

	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/multicast"
)

type State int

const (
	Inactive State = iota
	Starting
	Active
	Stopping
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Node is a live, reference counted view over one request.
type Node interface {
	ID() uint64
	Request() datamodels.Request
	State() State
	Start()
	Stop()
	ProcessMessage(update datamodels.Update)

	Badness() health.Badness
	Correctness() health.Correctness
	Usable() bool

	SubscribeBadnessChanged(handler func(health.Badness)) multicast.ID
	UnsubscribeBadnessChanged(id multicast.ID)
	SubscribeCorrectnessChanged(handler func(health.Correctness)) multicast.ID
	UnsubscribeCorrectnessChanged(id multicast.ID)
	SubscribeUpdated(handler func(struct{})) multicast.ID
	UnsubscribeUpdated(id multicast.ID)
}

// Manager hands out shared nodes. Every Subscribe must be paired with one Unsubscribe.
type Manager interface {
	Subscribe(request datamodels.Request) Node
	Unsubscribe(n Node)
}

// Wire carries publisher subscriptions to the server.
type Wire interface {
	Subscribe(nodeID uint64, request datamodels.Request) error
	Unsubscribe(nodeID uint64, request datamodels.Request) error
}

// StatusRecorder receives feed status and connection state transitions.
type StatusRecorder interface {
	RecordFeedStatus(code string, class datamodels.FeedClass, from, to datamodels.FeedStatus)
	RecordConnectionState(state datamodels.PublisherState, online bool, detail string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFeedStatus(string, datamodels.FeedClass, datamodels.FeedStatus, datamodels.FeedStatus) {
}

func (nopRecorder) RecordConnectionState(datamodels.PublisherState, bool, string) {}

// NopRecorder discards everything.
var NopRecorder StatusRecorder = nopRecorder{}

// Deps is what a node receives at construction.
type Deps struct {
	ID       uint64
	Request  datamodels.Request
	Manager  Manager
	Wire     Wire
	Logger   *slog.Logger
	Recorder StatusRecorder
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Recorder == nil {
		d.Recorder = NopRecorder
	}
	return d
}

// Factory builds a node for a request on one channel.
type Factory func(deps Deps) Node

// Registry accepts node factories per channel.
type Registry interface {
	Register(channel datamodels.Channel, factory Factory)
}
