package accounts

import (
	"motifcore/src/datamodels"
	"motifcore/src/feeds"
	"motifcore/src/health"
	"motifcore/src/listchange"
	"motifcore/src/multicast"
	"motifcore/src/node"
)

// AccountsNode lists brokerage accounts. Account changes are held back while
// the feeds registry is unusable, since every account must resolve its trading feed.
type AccountsNode struct {
	*node.RecordList[*BrokerageAccount]

	feeds             *feeds.FeedsNode
	pending           []datamodels.AccountChange
	accountChangedIDs map[*BrokerageAccount]multicast.ID
}

func NewAccountsNode(deps node.Deps) node.Node {
	n := &AccountsNode{
		RecordList: node.NewRecordList[*BrokerageAccount](deps, node.PublisherReasons{
			Waiting: health.AccountsWaiting,
			Error:   health.AccountsError,
		}),
		accountChangedIDs: make(map[*BrokerageAccount]multicast.ID),
	}
	n.AddContributor(node.RankUpstream, n.feedsContribution)
	n.OnStart(n.attachFeeds)
	n.OnStop(func() { clear(n.accountChangedIDs) })
	return n
}

func (n *AccountsNode) attachFeeds() {
	n.feeds = node.Acquire[*feeds.FeedsNode](n.Base, datamodels.FeedsRequest{})
	listID := n.feeds.SubscribeListChange(n.onFeedsListChange)
	badnessID := n.feeds.SubscribeBadnessChanged(n.onFeedsBadness)
	n.Defer(func() {
		n.feeds.UnsubscribeBadnessChanged(badnessID)
		n.feeds.UnsubscribeListChange(listID)
		for _, account := range n.Records() {
			account.attachFeed(nil)
		}
		n.pending = nil
		n.feeds = nil
	})
}

func (n *AccountsNode) feedsContribution() node.Contribution {
	if n.feeds == nil {
		return node.Contribution{Badness: health.Bad(health.FeedsWaiting, "")}
	}
	if !n.feeds.Usable() {
		return node.Contribution{Badness: health.Upstream(n.feeds.Badness(), health.FeedsWaiting, health.FeedsError)}
	}
	return node.Contribution{Cap: health.Good}
}

// Pending is the number of account changes waiting for the feeds registry.
func (n *AccountsNode) Pending() int { return len(n.pending) }

func (n *AccountsNode) ProcessMessage(update datamodels.Update) {
	if update.Kind != datamodels.KindAccounts {
		n.RecordList.ProcessMessage(update)
		return
	}
	changes := node.Payload[[]datamodels.AccountChange](update, "AC:PM:10072")
	n.BeginUpdate()
	defer n.EndUpdate()
	n.NoteData()
	if !n.feeds.Usable() {
		n.pending = append(n.pending, changes...)
		return
	}
	for _, change := range changes {
		n.applyChange(change)
	}
}

func (n *AccountsNode) onFeedsBadness(b health.Badness) {
	n.BeginUpdate()
	defer n.EndUpdate()
	if b.IsUsable() && len(n.pending) > 0 {
		pending := n.pending
		n.pending = nil
		n.Logger().Debug("Replaying account changes", "count", len(pending))
		for _, change := range pending {
			n.applyChange(change)
		}
	}
	n.Recalculate()
}

func (n *AccountsNode) onFeedsListChange(e listchange.Event) {
	n.BeginUpdate()
	defer n.EndUpdate()
	switch e.Type {
	case listchange.Remove:
		for _, account := range n.Records() {
			if account.feed == nil {
				continue
			}
			if i := n.feeds.IndexOf(account.feed); i >= e.Index && i < e.Index+e.Count {
				n.Logger().Info("Account trading feed removed", "account", account.ID, "feed", account.FeedCode)
				account.attachFeed(nil)
			}
		}
	case listchange.Clear:
		for _, account := range n.Records() {
			account.attachFeed(nil)
		}
	case listchange.BeforeReplace:
		for i := e.Index; i < e.Index+e.Count; i++ {
			doomed := n.feeds.At(i)
			for _, account := range n.Records() {
				if account.feed == doomed {
					account.attachFeed(nil)
				}
			}
		}
	case listchange.Insert, listchange.AfterReplace, listchange.Usable:
		// A resync replaces feeds without Remove or Clear; stale bindings are caught here.
		for _, account := range n.Records() {
			account.attachFeed(n.tradingFeed(account.FeedCode))
		}
	}
}

func (n *AccountsNode) tradingFeed(code string) feeds.FeedRecord {
	feed, _ := n.feeds.FindByCode(code, datamodels.FeedClassAuthority)
	return feed
}

func (n *AccountsNode) applyChange(change datamodels.AccountChange) {
	switch change.Type {
	case datamodels.ChangeAdd:
		n.add(change)
	case datamodels.ChangeUpdate:
		n.update(change)
	case datamodels.ChangeRemove:
		if index := n.IndexOfKey(change.ID); index >= 0 {
			n.Remove(index)
		}
	case datamodels.ChangeClear:
		n.Clear()
		n.ClearDataError()
	default:
		n.RejectData("unknown account change " + string(change.Type))
	}
}

func (n *AccountsNode) add(change datamodels.AccountChange) {
	if change.ID == "" {
		n.RejectData("account without id")
		return
	}
	if _, exists := n.Get(change.ID); exists {
		n.RejectData("duplicate account " + change.ID)
		return
	}
	feedCode, ok := change.FeedCode.Get()
	if !ok || feedCode == "" {
		n.RejectData("account " + change.ID + " has no trading feed")
		return
	}
	feed := n.tradingFeed(feedCode)
	if feed == nil {
		n.RejectData("account " + change.ID + " references unknown trading feed " + feedCode)
		return
	}

	account := newBrokerageAccount(change.ID)
	account.FeedCode = feedCode
	account.apply(change)
	account.attachFeed(feed)
	n.accountChangedIDs[account] = account.SubscribeChanged(func(struct{}) { n.MarkChanged() })
	n.Insert(account)
}

func (n *AccountsNode) update(change datamodels.AccountChange) {
	account, ok := n.Get(change.ID)
	if !ok {
		n.RejectData("update for unknown account " + change.ID)
		return
	}
	if feedCode, ok := change.FeedCode.Get(); ok && feedCode != account.FeedCode {
		feed := n.tradingFeed(feedCode)
		if feed == nil {
			n.RejectData("account " + change.ID + " moved to unknown trading feed " + feedCode)
			return
		}
		account.FeedCode = feedCode
		account.attachFeed(feed)
	}
	account.apply(change)
}

func (n *AccountsNode) Remove(index int) {
	n.forget(n.At(index))
	n.RecordList.Remove(index)
}

func (n *AccountsNode) Clear() {
	for _, account := range n.Records() {
		n.forget(account)
	}
	n.RecordList.Clear()
}

func (n *AccountsNode) forget(account *BrokerageAccount) {
	if id, ok := n.accountChangedIDs[account]; ok {
		account.UnsubscribeChanged(id)
		delete(n.accountChangedIDs, account)
	}
}

func Register(registry node.Registry) {
	registry.Register(datamodels.ChannelAccounts, NewAccountsNode)
	registry.Register(datamodels.ChannelBalances, NewBalancesNode)
}
