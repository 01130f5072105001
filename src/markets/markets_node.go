// Package markets serves the market list of one market feed.
package markets

import (
	"motifcore/src/datamodels"
	"motifcore/src/feeds"
	"motifcore/src/health"
	"motifcore/src/node"
	"motifcore/src/utils/errors"
)

type Market struct {
	Code        string
	Display     string
	TradingDate string
	Status      string

	correctness health.Correctness
	destroyed   bool
}

func (m *Market) MapKey() string                  { return m.Code }
func (m *Market) Destroy()                        { m.destroyed = true }
func (m *Market) Correctness() health.Correctness { return m.correctness }

func (m *Market) SetListCorrectness(correctness health.Correctness) {
	m.correctness = correctness
}

func (m *Market) apply(change datamodels.MarketChange) {
	change.Display.ApplyTo(&m.Display)
	change.TradingDate.ApplyTo(&m.TradingDate)
	change.Status.ApplyTo(&m.Status)
}

// MarketsNode lists the markets of a market feed. It is unusable until the feed is.
type MarketsNode struct {
	*node.RecordList[*Market]
	feed *feeds.FeedSubscription
}

func NewMarketsNode(deps node.Deps) node.Node {
	request, ok := deps.Request.(datamodels.MarketsRequest)
	if !ok {
		errors.Fatal("MK:NW:10060", "markets node built for %T", deps.Request)
	}
	n := &MarketsNode{
		RecordList: node.NewRecordList[*Market](deps, node.PublisherReasons{
			Waiting: health.MarketsWaiting,
			Error:   health.MarketsError,
		}),
	}
	n.feed = feeds.AttachFeedSubscription(n.Base, datamodels.FeedClassMarket, request.FeedCode)
	return n
}

func Register(registry node.Registry) {
	registry.Register(datamodels.ChannelMarkets, NewMarketsNode)
}

func (n *MarketsNode) Feed() feeds.FeedRecord { return n.feed.Feed() }

func (n *MarketsNode) ProcessMessage(update datamodels.Update) {
	if update.Kind != datamodels.KindMarkets {
		n.RecordList.ProcessMessage(update)
		return
	}
	changes := node.Payload[[]datamodels.MarketChange](update, "MK:PM:10061")
	n.BeginUpdate()
	defer n.EndUpdate()
	n.NoteData()
	for _, change := range changes {
		switch change.Type {
		case datamodels.ChangeAdd:
			if change.Code == "" {
				n.RejectData("market without code on feed " + n.feed.Code())
				continue
			}
			if _, exists := n.Get(change.Code); exists {
				n.RejectData("duplicate market " + change.Code)
				continue
			}
			market := &Market{Code: change.Code}
			market.apply(change)
			n.Insert(market)
		case datamodels.ChangeUpdate:
			index := n.IndexOfKey(change.Code)
			if index < 0 {
				n.RejectData("update for unknown market " + change.Code)
				continue
			}
			updated := *n.At(index)
			updated.apply(change)
			n.Replace(index, &updated)
		case datamodels.ChangeRemove:
			if index := n.IndexOfKey(change.Code); index >= 0 {
				n.Remove(index)
			}
		case datamodels.ChangeClear:
			n.Clear()
			n.ClearDataError()
		default:
			n.RejectData("unknown market change " + string(change.Type))
		}
	}
}
