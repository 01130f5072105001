package metrics

import (
	"time"

	"motifcore/src/connection"
	"motifcore/src/datamodels"
	"motifcore/src/node"
)

// Lister is satisfied by the subscription manager.
type Lister interface {
	Nodes() []node.Node
}

// Snapshot samples node health and connection counters. It reads nodes
// directly, so it must run on the goroutine that owns them.
func Snapshot(now time.Time, lister Lister) []datamodels.Metric {
	var out []datamodels.Metric
	for _, n := range lister.Nodes() {
		source := n.Request().Key()
		if conn, ok := n.(*connection.ConnectionNode); ok {
			out = append(out, connectionMetrics(now, conn)...)
			continue
		}
		out = append(out,
			sample(now, datamodels.MetricSourceNode, source, "correctness", float64(n.Correctness())),
			sample(now, datamodels.MetricSourceNode, source, "usable", boolValue(n.Usable())),
		)
	}
	return out
}

func connectionMetrics(now time.Time, conn *connection.ConnectionNode) []datamodels.Metric {
	source := string(datamodels.ChannelConnection)
	c := conn.Counters()
	metric := func(name string, value float64) datamodels.Metric {
		return sample(now, datamodels.MetricSourceConnection, source, name, value)
	}
	return []datamodels.Metric{
		metric("online", boolValue(conn.PublisherOnline())),
		metric("reconnects", float64(conn.Reconnects())),
		metric("socket_open_success", float64(c.SocketOpenSuccessCount)),
		metric("socket_open_failure", float64(c.SocketOpenFailureCount)),
		metric("socket_closed", float64(c.SocketClosedCount)),
		metric("socket_unexpected_close", float64(c.SocketUnexpectedCloseCount)),
		metric("socket_error", float64(c.SocketErrorCount)),
		metric("timeout", float64(c.TimeoutCount)),
		metric("subscription_errors", float64(c.SubscriptionErrorTotal())),
		metric("sent_packets", float64(c.SentPacketCount)),
		metric("received_packets", float64(c.ReceivedPacketCount)),
		metric("sent_bytes", float64(c.SentByteCount)),
		metric("received_bytes", float64(c.ReceivedByteCount)),
	}
}

func sample(now time.Time, sourceType datamodels.MetricSourceType, source, name string, value float64) datamodels.Metric {
	return datamodels.Metric{
		MetricSourceName: source,
		MetricSourceType: sourceType,
		MetricTime:       now,
		MetricName:       name,
		MetricValue:      value,
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
