//go:build unit

package feeds

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/listchange"
	"motifcore/src/manager"
	"motifcore/src/node"
)

type statusChange struct {
	code     string
	from, to datamodels.FeedStatus
}

type recordingRecorder struct {
	feeds []statusChange
}

func (r *recordingRecorder) RecordFeedStatus(code string, _ datamodels.FeedClass, from, to datamodels.FeedStatus) {
	r.feeds = append(r.feeds, statusChange{code: code, from: from, to: to})
}

func (r *recordingRecorder) RecordConnectionState(datamodels.PublisherState, bool, string) {}

func feedAdd(class datamodels.FeedClass, code string, status datamodels.FeedStatus) datamodels.FeedChange {
	return datamodels.FeedChange{
		Type:    datamodels.ChangeAdd,
		Code:    code,
		ClassID: datamodels.Known(class),
		Status:  datamodels.Known(status),
	}
}

func feedStatus(code string, status datamodels.FeedStatus) datamodels.FeedChange {
	return datamodels.FeedChange{Type: datamodels.ChangeUpdate, Code: code, Status: datamodels.Known(status)}
}

type FeedsTestSuite struct {
	suite.Suite
	recorder *recordingRecorder
	mgr      *manager.Manager
	feeds    *FeedsNode
}

func TestFeedsSuite(t *testing.T) {
	suite.Run(t, new(FeedsTestSuite))
}

func (s *FeedsTestSuite) SetupTest() {
	s.recorder = &recordingRecorder{}
	s.mgr = manager.New(nil, nil, s.recorder)
	Register(s.mgr)
	s.feeds = s.mgr.Subscribe(datamodels.FeedsRequest{}).(*FeedsNode)
}

func (s *FeedsTestSuite) TearDownTest() {
	s.mgr.Close()
}

func (s *FeedsTestSuite) send(n node.Node, kind datamodels.UpdateKind, payload any) {
	s.Require().NoError(s.mgr.Dispatch(datamodels.Update{NodeID: n.ID(), Kind: kind, Payload: payload}))
}

func (s *FeedsTestSuite) sendFeeds(changes ...datamodels.FeedChange) {
	s.send(s.feeds, datamodels.KindFeeds, changes)
}

func (s *FeedsTestSuite) synchronise(n node.Node) {
	s.send(n, datamodels.KindSynchronised, nil)
}

func (s *FeedsTestSuite) tradingChildren(code string) (*TradingMarketsNode, *OrderStatusesNode) {
	markets, ok := s.mgr.Lookup(datamodels.TradingMarketsRequest{FeedCode: code})
	s.Require().True(ok)
	statuses, ok := s.mgr.Lookup(datamodels.OrderStatusesRequest{FeedCode: code})
	s.Require().True(ok)
	return markets.(*TradingMarketsNode), statuses.(*OrderStatusesNode)
}

func (s *FeedsTestSuite) TestRegistryHoldsFeedsByClass() {
	s.sendFeeds(
		feedAdd(datamodels.FeedClassNews, "NEWS", datamodels.FeedStatusOnline),
		feedAdd(datamodels.FeedClassAuthority, "ASX", datamodels.FeedStatusOnline),
	)
	s.synchronise(s.feeds)

	s.True(s.feeds.Usable())
	s.Equal(2, s.feeds.Count())

	news, index := s.feeds.FindByCode("NEWS", "")
	s.Equal(0, index)
	s.IsType(&Feed{}, news)
	s.True(news.Usable())
	s.Equal(health.Good, news.Correctness())

	trading, ok := s.feeds.TradingFeed("ASX")
	s.Require().True(ok)
	s.Equal(1, s.mgr.RefCount(datamodels.TradingMarketsRequest{FeedCode: "ASX"}))
	s.Equal(1, s.mgr.RefCount(datamodels.OrderStatusesRequest{FeedCode: "ASX"}))
	s.Equal(health.FeedOrderStatusesWaiting, trading.Badness().Reason)
}

func (s *FeedsTestSuite) TestTradingFeedBecomesReadyWithChildren() {
	s.sendFeeds(feedAdd(datamodels.FeedClassAuthority, "ASX", datamodels.FeedStatusOnline))
	s.synchronise(s.feeds)
	trading, _ := s.feeds.TradingFeed("ASX")
	markets, statuses := s.tradingChildren("ASX")

	s.send(markets, datamodels.KindTradingMarkets, []datamodels.TradingMarketChange{
		{Type: datamodels.ChangeAdd, Code: "ASX:TM", Display: datamodels.Known("ASX TradeMatch")},
	})
	s.synchronise(markets)
	s.Equal(health.FeedOrderStatusesWaiting, trading.Badness().Reason)
	result, done := trading.TradingMarketsReady().Result()
	s.True(done)
	s.Same(markets, result.Value)
	s.Equal(0, s.feeds.ReadyTradingFeeds())

	s.synchronise(statuses)
	s.True(trading.Usable())
	s.Equal(health.Good, trading.Correctness())
	s.Equal(1, s.feeds.ReadyTradingFeeds())
	s.Equal("ASX TradeMatch", markets.At(0).Display)
}

func (s *FeedsTestSuite) TestOrderStatusesErrorDominatesOnlineFeed() {
	s.sendFeeds(feedAdd(datamodels.FeedClassAuthority, "ASX", datamodels.FeedStatusOnline))
	s.synchronise(s.feeds)
	trading, _ := s.feeds.TradingFeed("ASX")
	markets, statuses := s.tradingChildren("ASX")
	s.synchronise(markets)

	s.Equal(health.Suspect, statuses.Correctness())
	s.Equal(health.Suspect, trading.Correctness())

	changed := 0
	trading.SubscribeChanged(func(struct{}) { changed++ })
	s.send(statuses, datamodels.KindSubscriptionError, datamodels.SubscriptionError{
		Type: datamodels.SubscriptionErrorUserNotAuthorised,
		Text: "no trading permission",
	})

	s.Equal(health.Error, statuses.Correctness())
	s.Equal(datamodels.FeedStatusOnline, trading.Status())
	s.Equal(health.Error, trading.Correctness())
	s.Equal(health.FeedOrderStatusesError, trading.Badness().Reason)
	s.Equal(1, changed)
}

func (s *FeedsTestSuite) TestRemovingTradingFeedCancelsReadiness() {
	s.sendFeeds(feedAdd(datamodels.FeedClassAuthority, "ASX", datamodels.FeedStatusOnline))
	s.synchronise(s.feeds)
	trading, _ := s.feeds.TradingFeed("ASX")
	marketsNode, _ := s.tradingChildren("ASX")
	s.synchronise(marketsNode)

	s.sendFeeds(datamodels.FeedChange{Type: datamodels.ChangeRemove, Code: "ASX"})

	s.True(trading.Destroyed())
	markets, _ := trading.TradingMarketsReady().Result()
	s.False(markets.Cancelled, "already completed stays completed")
	statuses, done := trading.OrderStatusesReady().Result()
	s.True(done)
	s.True(statuses.Cancelled)
	s.Nil(statuses.Value)

	_, found := s.mgr.Lookup(datamodels.TradingMarketsRequest{FeedCode: "ASX"})
	s.False(found)
	_, found = s.mgr.Lookup(datamodels.OrderStatusesRequest{FeedCode: "ASX"})
	s.False(found)
	s.Equal(0, s.feeds.Count())
}

func (s *FeedsTestSuite) TestStatusChangesAreRecordedAndGraded() {
	s.sendFeeds(feedAdd(datamodels.FeedClassMarket, "ASX", datamodels.FeedStatusInitialising))
	s.synchronise(s.feeds)
	feed, _ := s.feeds.FindByCode("ASX", datamodels.FeedClassMarket)
	s.Equal(health.FeedStatusInitialising, feed.Badness().Reason)

	s.sendFeeds(feedStatus("ASX", datamodels.FeedStatusClosed))
	s.True(feed.Usable())
	s.Equal(health.Usable, feed.Correctness())

	s.sendFeeds(feedStatus("ASX", datamodels.FeedStatusOffline))
	s.Equal(health.FeedStatusOffline, feed.Badness().Reason)
	s.Equal(health.Error, feed.Correctness())

	s.Equal([]statusChange{
		{code: "ASX", from: "", to: datamodels.FeedStatusInitialising},
		{code: "ASX", from: datamodels.FeedStatusInitialising, to: datamodels.FeedStatusClosed},
		{code: "ASX", from: datamodels.FeedStatusClosed, to: datamodels.FeedStatusOffline},
	}, s.recorder.feeds)
}

func (s *FeedsTestSuite) TestMalformedFeedIsRejected() {
	s.synchronise(s.feeds)
	s.sendFeeds(
		datamodels.FeedChange{Type: datamodels.ChangeAdd, Code: "BAD"},
		feedAdd(datamodels.FeedClassNews, "NEWS", datamodels.FeedStatusOnline),
	)
	s.Equal(health.DataError, s.feeds.Badness().Reason)
	s.Equal(1, s.feeds.Count())

	s.sendFeeds(datamodels.FeedChange{Type: datamodels.ChangeClear})
	s.True(s.feeds.Usable())
}

func (s *FeedsTestSuite) TestListCorrectnessReachesFeeds() {
	s.sendFeeds(feedAdd(datamodels.FeedClassNews, "NEWS", datamodels.FeedStatusOnline))
	s.synchronise(s.feeds)
	feed := s.feeds.At(0)
	s.True(feed.Usable())

	s.send(s.feeds, datamodels.KindOfflined, nil)
	s.False(feed.Usable())
	s.Equal(health.FeedsWaiting, feed.Badness().Reason)
}

// gatedNode is a node gated on one feed.
type gatedNode struct {
	*node.Base
	feed *FeedSubscription
}

func (s *FeedsTestSuite) newGatedNode(class datamodels.FeedClass, code string) *gatedNode {
	p := &gatedNode{Base: node.NewBase(node.Deps{ID: 1000, Request: datamodels.MarketsRequest{FeedCode: code}, Manager: s.mgr})}
	p.feed = AttachFeedSubscription(p.Base, class, code)
	return p
}

func (s *FeedsTestSuite) TestUpstreamListCauseComesFirst() {
	p := s.newGatedNode(datamodels.FeedClassMarket, "NOPE")
	p.Start()
	s.Equal(health.FeedsWaiting, p.Badness().Reason)

	s.synchronise(s.feeds)
	s.Equal(health.FeedNotAvailable, p.Badness().Reason)
	s.Equal("NOPE", p.Badness().Extra)
	p.Stop()
}

func (s *FeedsTestSuite) TestFeedSubscriptionFollowsFeed() {
	p := s.newGatedNode(datamodels.FeedClassMarket, "ASX")
	p.Start()
	s.synchronise(s.feeds)

	var signals []listchange.Event
	s.feeds.SubscribeListChange(func(e listchange.Event) { signals = append(signals, e) })

	s.sendFeeds(feedAdd(datamodels.FeedClassMarket, "ASX", datamodels.FeedStatusOnline))
	s.True(p.Usable())
	s.Same(s.feeds.At(0), p.feed.Feed())

	s.sendFeeds(feedStatus("ASX", datamodels.FeedStatusClosed))
	s.True(p.Usable())
	s.Equal(health.Usable, p.Correctness())

	s.sendFeeds(feedStatus("ASX", datamodels.FeedStatusImpaired))
	s.Equal(health.FeedStatusImpaired, p.Badness().Reason)

	s.sendFeeds(datamodels.FeedChange{Type: datamodels.ChangeRemove, Code: "ASX"})
	s.Equal(health.FeedNotAvailable, p.Badness().Reason)
	s.Nil(p.feed.Feed())

	s.Equal([]listchange.Event{listchange.NewInsert(0, 1), listchange.NewRemove(0, 1)}, signals)

	before := s.feeds.ListChangeSubscriberCount()
	p.Stop()
	s.Equal(before-1, s.feeds.ListChangeSubscriberCount())
	s.Equal(1, s.mgr.RefCount(datamodels.FeedsRequest{}))
}

func (s *FeedsTestSuite) TestTradingSubCauseComesBeforeStatus() {
	p := s.newGatedNode(datamodels.FeedClassAuthority, "ASX")
	p.Start()
	s.sendFeeds(feedAdd(datamodels.FeedClassAuthority, "ASX", datamodels.FeedStatusImpaired))
	s.synchronise(s.feeds)

	s.Equal(health.FeedOrderStatusesWaiting, p.Badness().Reason)

	markets, statuses := s.tradingChildren("ASX")
	s.synchronise(markets)
	s.synchronise(statuses)
	s.Equal(health.FeedStatusImpaired, p.Badness().Reason)

	s.sendFeeds(feedStatus("ASX", datamodels.FeedStatusOnline))
	s.True(p.Usable())
	p.Stop()
}

func (s *FeedsTestSuite) TestFeedSubscriptionRebindsAfterResync() {
	p := s.newGatedNode(datamodels.FeedClassMarket, "ASX")
	p.Start()
	s.sendFeeds(feedAdd(datamodels.FeedClassMarket, "ASX", datamodels.FeedStatusOnline))
	s.synchronise(s.feeds)
	s.Require().True(p.Usable())
	stale := p.feed.Feed()

	s.send(s.feeds, datamodels.KindOfflined, nil)
	s.False(p.Usable())
	s.send(s.feeds, datamodels.KindOnlined, nil)
	s.sendFeeds(
		datamodels.FeedChange{Type: datamodels.ChangeClear},
		feedAdd(datamodels.FeedClassMarket, "ASX", datamodels.FeedStatusOnline),
	)
	s.True(stale.Destroyed())
	s.False(p.Usable())

	s.synchronise(s.feeds)
	s.True(p.Usable())
	s.NotSame(stale, p.feed.Feed())
	s.Same(s.feeds.At(0), p.feed.Feed())
	p.Stop()
}

func (s *FeedsTestSuite) TestMistypedFeedsPayloadIsFatal() {
	s.Panics(func() {
		_ = s.mgr.Dispatch(datamodels.Update{NodeID: s.feeds.ID(), Kind: datamodels.KindFeeds, Payload: []datamodels.MarketChange{}})
	})
	s.Equal(0, s.feeds.Count())
}
