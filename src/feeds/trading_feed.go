package feeds

import (
	"log/slog"

	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/incubator"
	"motifcore/src/multicast"
	"motifcore/src/node"
	"motifcore/src/utils/errors"
)

// TradingFeed is an authority feed with its trading markets and order statuses attached.
// Its correctness is merge(feed, mergeOptional(markets, orderStatuses)).
type TradingFeed struct {
	*Feed

	manager node.Manager
	logger  *slog.Logger

	markets       *TradingMarketsNode
	orderStatuses *OrderStatusesNode
	subscriptions []func()

	marketsReady       *incubator.Cell[*TradingMarketsNode]
	orderStatusesReady *incubator.Cell[*OrderStatusesNode]
}

func newTradingFeed(code string, status datamodels.FeedStatus, manager node.Manager, recorder node.StatusRecorder, logger *slog.Logger) *TradingFeed {
	t := &TradingFeed{
		Feed:               newFeed(datamodels.FeedClassAuthority, code, status, recorder),
		manager:            manager,
		logger:             logger,
		marketsReady:       incubator.NewCell[*TradingMarketsNode](),
		orderStatusesReady: incubator.NewCell[*OrderStatusesNode](),
	}
	t.calculate = t.tradingHealth

	t.markets = openChild[*TradingMarketsNode](t, datamodels.TradingMarketsRequest{FeedCode: code})
	t.watchReady(t.markets, func() { t.marketsReady.Complete(t.markets) })
	t.orderStatuses = openChild[*OrderStatusesNode](t, datamodels.OrderStatusesRequest{FeedCode: code})
	t.watchReady(t.orderStatuses, func() { t.orderStatusesReady.Complete(t.orderStatuses) })

	t.refresh(true)
	return t
}

func openChild[N node.Node](t *TradingFeed, request datamodels.Request) N {
	served := t.manager.Subscribe(request)
	n, ok := served.(N)
	if !ok {
		t.manager.Unsubscribe(served)
		errors.Fatal("FD:OC:10040", "trading feed child %s served by unexpected %T", request.Key(), served)
	}
	id := n.SubscribeCorrectnessChanged(func(health.Correctness) { t.refresh(false) })
	badnessID := n.SubscribeBadnessChanged(func(health.Badness) { t.refresh(false) })
	t.subscriptions = append(t.subscriptions, func() {
		n.UnsubscribeBadnessChanged(badnessID)
		n.UnsubscribeCorrectnessChanged(id)
		t.manager.Unsubscribe(n)
	})
	return n
}

func (t *TradingFeed) watchReady(n node.Node, complete func()) {
	if n.Usable() {
		complete()
		return
	}
	var id multicast.ID
	id = n.SubscribeBadnessChanged(func(b health.Badness) {
		if b.IsUsable() {
			n.UnsubscribeBadnessChanged(id)
			complete()
		}
	})
	t.subscriptions = append(t.subscriptions, func() { n.UnsubscribeBadnessChanged(id) })
}

func (t *TradingFeed) TradingMarkets() *TradingMarketsNode { return t.markets }
func (t *TradingFeed) OrderStatuses() *OrderStatusesNode   { return t.orderStatuses }

// TradingMarketsReady resolves once the trading markets first become usable,
// or cancelled if the feed is destroyed before that.
func (t *TradingFeed) TradingMarketsReady() *incubator.Cell[*TradingMarketsNode] {
	return t.marketsReady
}

func (t *TradingFeed) OrderStatusesReady() *incubator.Cell[*OrderStatusesNode] {
	return t.orderStatusesReady
}

func childCorrectness(n node.Node) health.Optional {
	if n == nil || n.State() != node.Active {
		return health.None
	}
	return health.Some(n.Correctness())
}

func (t *TradingFeed) tradingHealth() (health.Badness, health.Correctness) {
	badness, correctness := t.statusHealth()
	if t.markets == nil || t.orderStatuses == nil {
		return badness, correctness
	}
	children := health.MergeOptional(childCorrectness(t.markets), childCorrectness(t.orderStatuses))
	correctness = health.MergeWithOptional(correctness, children)

	switch {
	case !t.orderStatuses.Usable():
		badness = health.Upstream(t.orderStatuses.Badness(), health.FeedOrderStatusesWaiting, health.FeedOrderStatusesError)
	case !t.markets.Usable():
		badness = health.Upstream(t.markets.Badness(), health.FeedTradingMarketsWaiting, health.FeedTradingMarketsError)
	}
	return badness, correctness
}

func (t *TradingFeed) Destroy() {
	if t.destroyed {
		return
	}
	t.Feed.Destroy()
	for i := len(t.subscriptions) - 1; i >= 0; i-- {
		t.subscriptions[i]()
	}
	t.subscriptions = nil
	if t.marketsReady.Cancel() {
		t.logger.Debug("Trading markets never became ready", "feed", t.code)
	}
	if t.orderStatusesReady.Cancel() {
		t.logger.Debug("Order statuses never became ready", "feed", t.code)
	}
	t.markets = nil
	t.orderStatuses = nil
}
