//go:build unit

package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/manager"
)

type stateRecord struct {
	state  datamodels.PublisherState
	online bool
	detail string
}

type recorder struct {
	states []stateRecord
}

func (r *recorder) RecordFeedStatus(string, datamodels.FeedClass, datamodels.FeedStatus, datamodels.FeedStatus) {
}

func (r *recorder) RecordConnectionState(state datamodels.PublisherState, online bool, detail string) {
	r.states = append(r.states, stateRecord{state: state, online: online, detail: detail})
}

func newConnection(t *testing.T) (*manager.Manager, *ConnectionNode, *recorder) {
	rec := &recorder{}
	mgr := manager.New(nil, nil, rec)
	Register(mgr)
	n, ok := mgr.Subscribe(datamodels.ConnectionRequest{}).(*ConnectionNode)
	require.True(t, ok)
	t.Cleanup(mgr.Close)
	return mgr, n, rec
}

func send(t *testing.T, mgr *manager.Manager, n *ConnectionNode, kind datamodels.UpdateKind, payload any) {
	require.NoError(t, mgr.Dispatch(datamodels.Update{NodeID: n.ID(), Kind: kind, Payload: payload}))
}

func TestUsableRegardlessOfConnection(t *testing.T) {
	mgr, n, _ := newConnection(t)

	assert.True(t, n.Usable())
	assert.Equal(t, health.Good, n.Correctness())
	assert.Equal(t, datamodels.PublisherStateInitialise, n.PublisherState())
	assert.False(t, n.PublisherOnline())

	send(t, mgr, n, datamodels.KindPublisherOnline, datamodels.PublisherOnlineChange{Online: false, SocketCloseReason: "eof"})
	assert.True(t, n.Usable())
}

func TestStateAndOnlineAreRecorded(t *testing.T) {
	mgr, n, rec := newConnection(t)
	updates := 0
	n.SubscribeUpdated(func(struct{}) { updates++ })

	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	send(t, mgr, n, datamodels.KindPublisherState, datamodels.PublisherStateChange{State: datamodels.PublisherStateConnecting, Timestamp: at})
	send(t, mgr, n, datamodels.KindPublisherState, datamodels.PublisherStateChange{State: datamodels.PublisherStateConnecting, Timestamp: at})
	send(t, mgr, n, datamodels.KindEndpointSelected, datamodels.EndpointSelected{Endpoint: "wss://b", Endpoints: []string{"wss://a", "wss://b"}})
	send(t, mgr, n, datamodels.KindPublisherState, datamodels.PublisherStateChange{State: datamodels.PublisherStateOnline})
	send(t, mgr, n, datamodels.KindPublisherOnline, datamodels.PublisherOnlineChange{Online: true})

	assert.Equal(t, datamodels.PublisherStateOnline, n.PublisherState())
	assert.True(t, n.PublisherOnline())
	assert.Equal(t, "wss://b", n.Endpoint())
	assert.Equal(t, []string{"wss://a", "wss://b"}, n.Endpoints())
	assert.Equal(t, 4, updates, "repeated state is not a change")
	assert.Equal(t, []stateRecord{
		{state: datamodels.PublisherStateConnecting},
		{state: datamodels.PublisherStateOnline},
		{state: datamodels.PublisherStateOnline, online: true},
	}, rec.states)
}

func TestReconnectAndCounters(t *testing.T) {
	mgr, n, _ := newConnection(t)
	_, ok := n.LastReconnect()
	assert.False(t, ok)

	send(t, mgr, n, datamodels.KindReconnect, datamodels.Reconnect{Reason: datamodels.ReconnectUnexpectedSocketClose, Text: "1006"})
	reconnect, ok := n.LastReconnect()
	require.True(t, ok)
	assert.Equal(t, datamodels.ReconnectUnexpectedSocketClose, reconnect.Reason)
	assert.Equal(t, 1, n.Reconnects())

	send(t, mgr, n, datamodels.KindCounters, datamodels.ConnectionCounters{
		SocketOpenSuccessCount:  2,
		SubscriptionErrorCounts: map[datamodels.SubscriptionErrorType]int{datamodels.SubscriptionErrorTimeout: 3},
	})
	counters := n.Counters()
	assert.Equal(t, 2, counters.SocketOpenSuccessCount)
	assert.Equal(t, 3, counters.SubscriptionErrorTotal())

	counters.SubscriptionErrorCounts[datamodels.SubscriptionErrorTimeout] = 99
	assert.Equal(t, 3, n.Counters().SubscriptionErrorCounts[datamodels.SubscriptionErrorTimeout])

	send(t, mgr, n, datamodels.KindCounters, datamodels.ConnectionCounters{SentPacketCount: 7})
	assert.Equal(t, 0, n.Counters().SocketOpenSuccessCount, "counters are replaced wholesale")
	assert.Equal(t, 7, n.Counters().SentPacketCount)
}

func TestSessionTerminationIsIdempotent(t *testing.T) {
	mgr, n, rec := newConnection(t)
	send(t, mgr, n, datamodels.KindPublisherOnline, datamodels.PublisherOnlineChange{Online: true})

	send(t, mgr, n, datamodels.KindSessionTerminated, datamodels.SessionTermination{Reason: "kicked", Text: "logged in elsewhere"})
	send(t, mgr, n, datamodels.KindSessionTerminated, datamodels.SessionTermination{Reason: "again"})
	send(t, mgr, n, datamodels.KindPublisherOnline, datamodels.PublisherOnlineChange{Online: true})

	termination, ok := n.Terminated()
	require.True(t, ok)
	assert.Equal(t, "kicked", termination.Reason)
	assert.False(t, n.PublisherOnline())
	assert.Equal(t, datamodels.PublisherStateFinalised, n.PublisherState())
	assert.True(t, n.Usable())
	assert.Len(t, rec.states, 2)
}

func TestUnhandledKindIsFatal(t *testing.T) {
	mgr, n, _ := newConnection(t)
	assert.Panics(t, func() {
		send(t, mgr, n, datamodels.KindFeeds, nil)
	})
}
