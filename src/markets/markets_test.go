//go:build unit

package markets

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"motifcore/src/datamodels"
	"motifcore/src/feeds"
	"motifcore/src/health"
	"motifcore/src/listchange"
	"motifcore/src/manager"
	"motifcore/src/node"
)

type MarketsTestSuite struct {
	suite.Suite
	mgr     *manager.Manager
	feeds   *feeds.FeedsNode
	markets *MarketsNode
	mirror  *listchange.Mirror[string]
}

func TestMarketsSuite(t *testing.T) {
	suite.Run(t, new(MarketsTestSuite))
}

func (s *MarketsTestSuite) SetupTest() {
	s.mgr = manager.New(nil, nil, nil)
	feeds.Register(s.mgr)
	Register(s.mgr)
	s.feeds = s.mgr.Subscribe(datamodels.FeedsRequest{}).(*feeds.FeedsNode)
	s.markets = s.mgr.Subscribe(datamodels.MarketsRequest{FeedCode: "ASX"}).(*MarketsNode)
	s.mirror = listchange.NewMirror(func(i int) string { return s.markets.At(i).Code })
	s.markets.SubscribeListChange(s.mirror.Apply)
}

func (s *MarketsTestSuite) TearDownTest() {
	s.mgr.Close()
	s.Empty(s.mirror.Violations)
}

func (s *MarketsTestSuite) send(n node.Node, kind datamodels.UpdateKind, payload any) {
	s.Require().NoError(s.mgr.Dispatch(datamodels.Update{NodeID: n.ID(), Kind: kind, Payload: payload}))
}

func (s *MarketsTestSuite) addMarkets(codes ...string) {
	changes := make([]datamodels.MarketChange, 0, len(codes))
	for _, code := range codes {
		changes = append(changes, datamodels.MarketChange{Type: datamodels.ChangeAdd, Code: code, Status: datamodels.Known("open")})
	}
	s.send(s.markets, datamodels.KindMarkets, changes)
}

func (s *MarketsTestSuite) TestGatedOnMarketFeed() {
	s.addMarkets("ASX:A", "ASX:B")
	s.send(s.markets, datamodels.KindSynchronised, nil)
	s.Equal(health.FeedsWaiting, s.markets.Badness().Reason)

	s.send(s.feeds, datamodels.KindSynchronised, nil)
	s.Equal(health.FeedNotAvailable, s.markets.Badness().Reason)

	s.send(s.feeds, datamodels.KindFeeds, []datamodels.FeedChange{{
		Type:    datamodels.ChangeAdd,
		Code:    "ASX",
		ClassID: datamodels.Known(datamodels.FeedClassMarket),
		Status:  datamodels.Known(datamodels.FeedStatusOnline),
	}})
	s.True(s.markets.Usable())
	s.Equal([]string{"ASX:A", "ASX:B"}, s.mirror.Items())
	s.Equal(health.Good, s.markets.At(0).Correctness())
	s.Equal("ASX", s.markets.Feed().Code())
}

func (s *MarketsTestSuite) TestOwnPublisherStateAfterFeed() {
	s.send(s.feeds, datamodels.KindFeeds, []datamodels.FeedChange{{
		Type:    datamodels.ChangeAdd,
		Code:    "ASX",
		ClassID: datamodels.Known(datamodels.FeedClassMarket),
		Status:  datamodels.Known(datamodels.FeedStatusClosed),
	}})
	s.send(s.feeds, datamodels.KindSynchronised, nil)
	s.Equal(health.MarketsWaiting, s.markets.Badness().Reason)

	s.send(s.markets, datamodels.KindSynchronised, nil)
	s.True(s.markets.Usable())
	s.Equal(health.Usable, s.markets.Correctness())

	s.addMarkets("ASX:A")
	s.send(s.markets, datamodels.KindMarkets, []datamodels.MarketChange{
		{Type: datamodels.ChangeUpdate, Code: "ASX:A", Status: datamodels.Known("closed")},
	})
	s.Equal("closed", s.markets.At(0).Status)
	s.Equal([]string{"ASX:A"}, s.mirror.Items())
}
