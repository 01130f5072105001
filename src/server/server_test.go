//go:build unit

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"motifcore/src/connection"
	"motifcore/src/database"
	"motifcore/src/datamodels"
	"motifcore/src/feeds"
	"motifcore/src/manager"
	"motifcore/src/metrics"
	"motifcore/src/publisher"
)

// fakeNotifications hands out one buffered stream per channel.
type fakeNotifications struct {
	mu      sync.Mutex
	streams map[string]chan string
}

func (f *fakeNotifications) NewSubscriber() string { return "subscriber" }

func (f *fakeNotifications) Subscribe(_ string, channel string, _ string) (<-chan string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stream := make(chan string, 4)
	f.streams[channel] = stream
	return stream, nil
}

func (f *fakeNotifications) Unsubscribe(channel string, _ string, _ ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.streams, channel)
	return nil
}

func (f *fakeNotifications) stream(channel string) chan string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[channel]
}

type ServerTestSuite struct {
	suite.Suite
	cancel        context.CancelFunc
	pump          *publisher.Pump
	mgr           *manager.Manager
	registry      *prometheus.Registry
	ws            *metrics.WebsocketMetricsWriter
	notifications *fakeNotifications
	journal       database.MotifDatabase
	http          *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.pump = publisher.NewPump(16)
	go s.pump.Run(ctx)

	s.mgr = manager.New(nil, nil, nil)
	feeds.Register(s.mgr)
	connection.Register(s.mgr)

	db, err := database.NewSqliteConnection(filepath.Join(s.T().TempDir(), "journal.db"))
	s.Require().NoError(err)
	s.journal = db

	s.registry = prometheus.NewRegistry()
	s.ws = metrics.NewWebSocketMetricsWriter()
	s.notifications = &fakeNotifications{streams: map[string]chan string{}}

	srv := NewServer(datamodels.ServerConfig{}, datamodels.WSConfig{}, nil).
		WithInspector(NewInspector(s.pump, s.mgr)).
		WithGatherer(s.registry).
		WithMetricsWriter(s.ws).
		WithJournal(db, s.notifications)
	handler, err := srv.Handler()
	s.Require().NoError(err)
	s.http = httptest.NewServer(handler)
}

func (s *ServerTestSuite) TearDownTest() {
	s.http.Close()
	s.onPump(s.mgr.Close)
	s.cancel()
	<-s.pump.Done()
	s.NoError(s.journal.Close())
}

func (s *ServerTestSuite) onPump(fn func()) {
	s.Require().NoError(s.pump.Call(context.Background(), fn))
}

func (s *ServerTestSuite) dispatch(request datamodels.Request, kind datamodels.UpdateKind, payload any) {
	var err error
	s.onPump(func() {
		n, ok := s.mgr.Lookup(request)
		if !ok {
			err = manager.ErrNodeNotFound
			return
		}
		err = s.mgr.Dispatch(datamodels.Update{NodeID: n.ID(), Kind: kind, Payload: payload})
	})
	s.Require().NoError(err)
}

func (s *ServerTestSuite) get(path string, out any) int {
	resp, err := http.Get(s.http.URL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *ServerTestSuite) dial(path string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	return conn
}

func (s *ServerTestSuite) TestHealthWithoutConnectionNode() {
	var report HealthReport
	s.Equal(http.StatusServiceUnavailable, s.get("/health", &report))
	s.False(report.Healthy)
	s.Nil(report.Connection)
}

func (s *ServerTestSuite) TestHealthFollowsPublisherOnline() {
	s.onPump(func() { s.mgr.Subscribe(datamodels.ConnectionRequest{}) })

	var report HealthReport
	s.Equal(http.StatusServiceUnavailable, s.get("/health", &report))

	s.dispatch(datamodels.ConnectionRequest{}, datamodels.KindPublisherState,
		datamodels.PublisherStateChange{State: datamodels.PublisherStateOnline})
	s.dispatch(datamodels.ConnectionRequest{}, datamodels.KindPublisherOnline, datamodels.PublisherOnlineChange{Online: true})

	s.Equal(http.StatusOK, s.get("/health", &report))
	s.True(report.Healthy)
	s.Require().NotNil(report.Connection)
	s.Equal(datamodels.PublisherStateOnline, report.Connection.State)
}

func (s *ServerTestSuite) TestStatusListsNodesAndFeeds() {
	s.onPump(func() {
		s.mgr.Subscribe(datamodels.ConnectionRequest{})
		s.mgr.Subscribe(datamodels.FeedsRequest{})
	})
	s.dispatch(datamodels.FeedsRequest{}, datamodels.KindFeeds, []datamodels.FeedChange{{
		Type:    datamodels.ChangeAdd,
		Code:    "NEWS",
		ClassID: datamodels.Known(datamodels.FeedClassNews),
		Status:  datamodels.Known(datamodels.FeedStatusClosed),
	}})
	s.dispatch(datamodels.FeedsRequest{}, datamodels.KindSynchronised, nil)

	var report StatusReport
	s.Equal(http.StatusOK, s.get("/status", &report))
	s.Require().Len(report.Nodes, 2)
	s.Equal("connection", report.Nodes[0].Key)
	s.Equal(1, report.Nodes[1].RefCount)
	s.NotNil(report.Connection)
	s.NotEmpty(report.System)
	s.Require().Len(report.Feeds, 1)
	s.Equal("NEWS", report.Feeds[0].Code)
	s.Equal(datamodels.FeedStatusClosed, report.Feeds[0].Status)
}

func (s *ServerTestSuite) TestPrometheusEndpointServesRegistry() {
	writer, err := metrics.NewPrometheusMetricsWriter(s.registry)
	s.Require().NoError(err)
	s.Require().NoError(writer.Write(context.Background(), datamodels.Metric{
		MetricSourceType: datamodels.MetricSourceNode,
		MetricSourceName: "feeds",
		MetricName:       "usable",
		MetricValue:      1,
	}))

	resp, err := http.Get(s.http.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	body := new(strings.Builder)
	_, err = body.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Contains(body.String(), `motifcore_metric_value{name="usable",source="feeds",source_type="node"} 1`)
}

func (s *ServerTestSuite) TestWebSocketAnswersAndStreamsMetrics() {
	conn := s.dial("/ws")
	defer conn.Close()

	var welcome WebSocketResponse
	s.Require().NoError(conn.ReadJSON(&welcome))
	s.True(welcome.Success)

	s.Require().NoError(conn.WriteJSON(WebSocketMessage{MessageType: Health}))
	var response WebSocketResponse
	s.Require().NoError(conn.ReadJSON(&response))
	s.True(response.Success)

	s.Require().NoError(conn.WriteJSON(WebSocketMessage{MessageType: "bogus"}))
	s.Require().NoError(conn.ReadJSON(&response))
	s.False(response.Success)
	s.Contains(response.Error, "bogus")

	s.Eventually(func() bool { return s.ws.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	s.Require().NoError(s.ws.Write(context.Background(), datamodels.Metric{MetricName: "online", MetricValue: 1}))
	var metric datamodels.Metric
	s.Require().NoError(conn.ReadJSON(&metric))
	s.Equal("online", metric.MetricName)
}

func (s *ServerTestSuite) TestJournalQueries() {
	ctx := context.Background()
	s.Require().NoError(s.journal.WriteFeedStatusChange(ctx, datamodels.FeedStatusChange{
		FeedCode: "ASX", FeedClass: datamodels.FeedClassAuthority,
		FromStatus: datamodels.FeedStatusOnline, ToStatus: datamodels.FeedStatusOffline, ChangedAt: time.Now(),
	}))
	s.Require().NoError(s.journal.WriteConnectionStateChange(ctx, datamodels.ConnectionStateChange{
		State: datamodels.PublisherStateOnline, Online: true, ChangedAt: time.Now(),
	}))

	var changes []datamodels.FeedStatusChange
	s.Equal(http.StatusOK, s.get("/journal/feeds/ASX?limit=5", &changes))
	s.Require().Len(changes, 1)
	s.Equal(datamodels.FeedStatusOffline, changes[0].ToStatus)

	var states []datamodels.ConnectionStateChange
	s.Equal(http.StatusOK, s.get("/journal/connection", &states))
	s.Require().Len(states, 1)
	s.True(states[0].Online)
}

func (s *ServerTestSuite) TestJournalStreamForwardsNotifications() {
	conn := s.dial("/journal/stream")
	defer conn.Close()

	s.Eventually(func() bool {
		return s.notifications.stream(database.FeedStatusChannel) != nil
	}, time.Second, 5*time.Millisecond)
	s.notifications.stream(database.FeedStatusChannel) <- database.FeedStatusChannel + ";ASX;offline"

	var event JournalEvent
	s.Require().NoError(conn.ReadJSON(&event))
	s.Equal(JournalEvent{Channel: database.FeedStatusChannel, ObjectID: "ASX", Payload: "offline"}, event)
}

func TestHandlerNeedsInspector(t *testing.T) {
	_, err := NewServer(datamodels.ServerConfig{}, datamodels.WSConfig{}, nil).Handler()
	if err == nil {
		t.Fatal("expected an error without an inspector")
	}
}
