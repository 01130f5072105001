package feeds

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/incubator"
	"motifcore/src/multicast"
	"motifcore/src/node"
)

// FeedsNode is the feed registry. Authority feeds are held as TradingFeeds.
type FeedsNode struct {
	*node.RecordList[FeedRecord]

	feedChangedIDs map[FeedRecord]multicast.ID
	readyTrading   int
}

func NewFeedsNode(deps node.Deps) node.Node {
	n := &FeedsNode{
		RecordList: node.NewRecordList[FeedRecord](deps, node.PublisherReasons{
			Waiting: health.FeedsWaiting,
			Error:   health.FeedsError,
		}),
		feedChangedIDs: make(map[FeedRecord]multicast.ID),
	}
	n.OnStop(func() {
		clear(n.feedChangedIDs)
		n.readyTrading = 0
	})
	return n
}

// FindByCode returns the first feed with code, optionally restricted to one class.
func (n *FeedsNode) FindByCode(code string, class datamodels.FeedClass) (FeedRecord, int) {
	if class != "" {
		key := FeedKey(class, code)
		if feed, ok := n.Get(key); ok {
			return feed, n.IndexOfKey(key)
		}
		return nil, -1
	}
	for i := 0; i < n.Count(); i++ {
		if feed := n.At(i); feed.Code() == code {
			return feed, i
		}
	}
	return nil, -1
}

// TradingFeed returns the usable-or-not trading feed with code, if present.
func (n *FeedsNode) TradingFeed(code string) (*TradingFeed, bool) {
	feed, _ := n.FindByCode(code, datamodels.FeedClassAuthority)
	trading, ok := feed.(*TradingFeed)
	return trading, ok
}

// ReadyTradingFeeds counts trading feeds whose markets and order statuses have both become usable.
func (n *FeedsNode) ReadyTradingFeeds() int { return n.readyTrading }

func (n *FeedsNode) ProcessMessage(update datamodels.Update) {
	if update.Kind != datamodels.KindFeeds {
		n.RecordList.ProcessMessage(update)
		return
	}
	changes := node.Payload[[]datamodels.FeedChange](update, "FD:PM:10043")
	n.BeginUpdate()
	defer n.EndUpdate()
	n.NoteData()
	for _, change := range changes {
		n.applyChange(change)
	}
}

func (n *FeedsNode) applyChange(change datamodels.FeedChange) {
	switch change.Type {
	case datamodels.ChangeAdd:
		n.add(change)
	case datamodels.ChangeUpdate:
		n.update(change)
	case datamodels.ChangeRemove:
		if _, index := n.FindByCode(change.Code, change.ClassID.Or("")); index >= 0 {
			n.Remove(index)
		}
	case datamodels.ChangeClear:
		n.Clear()
		n.ClearDataError()
	default:
		n.RejectData("unknown feed change " + string(change.Type))
	}
}

func (n *FeedsNode) add(change datamodels.FeedChange) {
	if change.Code == "" {
		n.RejectData("feed without code")
		return
	}
	class, ok := change.ClassID.Get()
	if !ok || !class.IsValid() {
		n.RejectData("feed " + change.Code + " has no valid class")
		return
	}
	if _, exists := n.Get(FeedKey(class, change.Code)); exists {
		n.RejectData("duplicate feed " + FeedKey(class, change.Code))
		return
	}
	status := change.Status.Or(datamodels.FeedStatusUnknown)
	if !status.IsValid() {
		status = datamodels.FeedStatusUnknown
	}

	var feed FeedRecord
	if class.IsTrading() {
		trading := newTradingFeed(change.Code, status, n.Manager(), n.Recorder(), n.Logger())
		n.countReady(trading)
		feed = trading
	} else {
		feed = newFeed(class, change.Code, status, n.Recorder())
	}
	n.Recorder().RecordFeedStatus(change.Code, class, "", status)
	n.feedChangedIDs[feed] = feed.SubscribeChanged(func(struct{}) { n.MarkChanged() })
	n.Insert(feed)
	n.Logger().Debug("Feed added", "feed", feed.MapKey(), "status", status)
}

func (n *FeedsNode) countReady(trading *TradingFeed) {
	trading.TradingMarketsReady().Then(func(markets incubator.Result[*TradingMarketsNode]) {
		if markets.Cancelled {
			return
		}
		trading.OrderStatusesReady().Then(func(statuses incubator.Result[*OrderStatusesNode]) {
			if statuses.Cancelled || trading.Destroyed() {
				return
			}
			n.readyTrading++
			n.Logger().Info("Trading feed ready", "feed", trading.Code(),
				"markets", markets.Value.Count(), "order_statuses", statuses.Value.Count())
		})
	})
}

func (n *FeedsNode) update(change datamodels.FeedChange) {
	feed, index := n.FindByCode(change.Code, change.ClassID.Or(""))
	if index < 0 {
		n.RejectData("update for unknown feed " + change.Code)
		return
	}
	switch change.Status.Presence() {
	case datamodels.Present:
		status, _ := change.Status.Get()
		if !status.IsValid() {
			status = datamodels.FeedStatusUnknown
		}
		feed.base().setStatus(status)
	case datamodels.Absent:
		feed.base().setStatus(datamodels.FeedStatusUnknown)
	}
}

// Remove detaches the feed's change subscription before the record is destroyed.
func (n *FeedsNode) Remove(index int) {
	feed := n.At(index)
	if trading, ok := feed.(*TradingFeed); ok {
		n.uncountReady(trading)
	}
	n.forget(feed)
	n.RecordList.Remove(index)
}

func (n *FeedsNode) Clear() {
	for _, feed := range n.Records() {
		if trading, ok := feed.(*TradingFeed); ok {
			n.uncountReady(trading)
		}
		n.forget(feed)
	}
	n.RecordList.Clear()
}

func (n *FeedsNode) uncountReady(trading *TradingFeed) {
	m, mok := trading.TradingMarketsReady().Result()
	s, sok := trading.OrderStatusesReady().Result()
	if mok && sok && !m.Cancelled && !s.Cancelled {
		n.readyTrading--
	}
}

func (n *FeedsNode) forget(feed FeedRecord) {
	if id, ok := n.feedChangedIDs[feed]; ok {
		feed.UnsubscribeChanged(id)
		delete(n.feedChangedIDs, feed)
	}
}
