package server

import (
	"context"
	"sort"
	"time"

	"motifcore/src/connection"
	"motifcore/src/datamodels"
	"motifcore/src/feeds"
	"motifcore/src/health"
	"motifcore/src/node"
	"motifcore/src/utils/general"
	"motifcore/src/version"
)

// NodeLister is satisfied by the subscription manager.
type NodeLister interface {
	Nodes() []node.Node
	RefCount(request datamodels.Request) int
}

// Executor runs fn on the goroutine that owns the nodes and waits for it.
type Executor interface {
	Call(ctx context.Context, fn func()) error
}

// ConnectionStatus is the connection node as seen by /health and /status
// @Description Publisher connection state
type ConnectionStatus struct {
	State             datamodels.PublisherState      `json:"state" example:"online"`
	Online            bool                           `json:"online"`
	Waiting           bool                           `json:"waiting"`
	StateChangedAt    time.Time                      `json:"state_changed_at"`
	Endpoint          string                         `json:"endpoint,omitempty"`
	Reconnects        int                            `json:"reconnects"`
	SocketCloseReason string                         `json:"socket_close_reason,omitempty"`
	Terminated        *datamodels.SessionTermination `json:"terminated,omitempty"`
	Counters          datamodels.ConnectionCounters  `json:"counters"`
	Correctness       health.Correctness             `json:"correctness"`
	Badness           health.Badness                 `json:"badness"`
}

// HealthReport is the /health body
// @Description Service health, healthy when the publisher is online
type HealthReport struct {
	Healthy    bool              `json:"healthy"`
	Connection *ConnectionStatus `json:"connection,omitempty"`
}

// NodeStatus describes one live subscription node
type NodeStatus struct {
	ID          uint64             `json:"id"`
	Key         string             `json:"key" example:"markets:ASX"`
	Channel     datamodels.Channel `json:"channel"`
	State       string             `json:"state"`
	RefCount    int                `json:"ref_count"`
	Correctness health.Correctness `json:"correctness"`
	Badness     health.Badness     `json:"badness"`
}

// FeedStatus describes one entry of the feed registry
type FeedStatus struct {
	Code        string                `json:"code" example:"ASX"`
	Class       datamodels.FeedClass  `json:"class" example:"market"`
	Status      datamodels.FeedStatus `json:"status" example:"online"`
	Correctness health.Correctness    `json:"correctness"`
	Badness     health.Badness        `json:"badness"`
}

// StatusReport is the /status body
// @Description Snapshot of the node graph
type StatusReport struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Build       map[string]string `json:"build"`
	System      map[string]string `json:"system"`
	Connection  *ConnectionStatus `json:"connection,omitempty"`
	Nodes       []NodeStatus      `json:"nodes"`
	Feeds       []FeedStatus      `json:"feeds"`
}

// Inspector reads the node graph for the HTTP handlers. Nodes are only
// touched inside Executor.Call.
type Inspector struct {
	exec  Executor
	nodes NodeLister
	now   func() time.Time
}

func NewInspector(exec Executor, nodes NodeLister) *Inspector {
	return &Inspector{exec: exec, nodes: nodes, now: time.Now}
}

func (i *Inspector) Health(ctx context.Context) (HealthReport, error) {
	var report HealthReport
	err := i.exec.Call(ctx, func() {
		if conn := i.connectionNode(); conn != nil {
			status := connectionStatus(conn)
			report.Connection = &status
			report.Healthy = status.Online
		}
	})
	return report, err
}

func (i *Inspector) Status(ctx context.Context) (StatusReport, error) {
	report := StatusReport{
		GeneratedAt: i.now(),
		Build:       version.GetBuildInfo(),
		System:      general.GetSystemUsage(),
		Nodes:       []NodeStatus{},
		Feeds:       []FeedStatus{},
	}
	err := i.exec.Call(ctx, func() {
		for _, n := range i.nodes.Nodes() {
			report.Nodes = append(report.Nodes, NodeStatus{
				ID:          n.ID(),
				Key:         n.Request().Key(),
				Channel:     n.Request().Channel(),
				State:       n.State().String(),
				RefCount:    i.nodes.RefCount(n.Request()),
				Correctness: n.Correctness(),
				Badness:     n.Badness(),
			})
			switch typed := n.(type) {
			case *connection.ConnectionNode:
				status := connectionStatus(typed)
				report.Connection = &status
			case *feeds.FeedsNode:
				report.Feeds = append(report.Feeds, feedStatuses(typed)...)
			}
		}
	})
	sort.Slice(report.Nodes, func(a, b int) bool { return report.Nodes[a].ID < report.Nodes[b].ID })
	return report, err
}

func (i *Inspector) connectionNode() *connection.ConnectionNode {
	for _, n := range i.nodes.Nodes() {
		if conn, ok := n.(*connection.ConnectionNode); ok {
			return conn
		}
	}
	return nil
}

func connectionStatus(conn *connection.ConnectionNode) ConnectionStatus {
	status := ConnectionStatus{
		State:             conn.PublisherState(),
		Online:            conn.PublisherOnline(),
		Waiting:           conn.Waiting(),
		StateChangedAt:    conn.StateChangedAt(),
		Endpoint:          conn.Endpoint(),
		Reconnects:        conn.Reconnects(),
		SocketCloseReason: conn.SocketCloseReason(),
		Counters:          conn.Counters(),
		Correctness:       conn.Correctness(),
		Badness:           conn.Badness(),
	}
	if termination, ok := conn.Terminated(); ok {
		status.Terminated = &termination
	}
	return status
}

func feedStatuses(registry *feeds.FeedsNode) []FeedStatus {
	out := make([]FeedStatus, 0, registry.Count())
	for _, feed := range registry.Records() {
		out = append(out, FeedStatus{
			Code:        feed.Code(),
			Class:       feed.Class(),
			Status:      feed.Status(),
			Correctness: feed.Correctness(),
			Badness:     feed.Badness(),
		})
	}
	return out
}
