package feeds

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/node"
	"motifcore/src/utils/errors"
)

// TradingMarket is a market orders can be routed to through a trading feed.
type TradingMarket struct {
	Code           string
	Display        string
	MarketFeedCode string

	correctness health.Correctness
	destroyed   bool
}

func (m *TradingMarket) MapKey() string                  { return m.Code }
func (m *TradingMarket) Destroy()                        { m.destroyed = true }
func (m *TradingMarket) Correctness() health.Correctness { return m.correctness }

func (m *TradingMarket) SetListCorrectness(correctness health.Correctness) {
	m.correctness = correctness
}

func (m *TradingMarket) apply(change datamodels.TradingMarketChange) {
	change.Display.ApplyTo(&m.Display)
	change.MarketFeedCode.ApplyTo(&m.MarketFeedCode)
}

// TradingMarketsNode lists the trading markets of one trading feed.
type TradingMarketsNode struct {
	*node.RecordList[*TradingMarket]
	feedCode string
}

func NewTradingMarketsNode(deps node.Deps) node.Node {
	request, ok := deps.Request.(datamodels.TradingMarketsRequest)
	if !ok {
		errors.Fatal("FD:TM:10041", "trading markets node built for %T", deps.Request)
	}
	return &TradingMarketsNode{
		RecordList: node.NewRecordList[*TradingMarket](deps, node.PublisherReasons{
			Waiting: health.TradingMarketsWaiting,
			Error:   health.TradingMarketsError,
		}),
		feedCode: request.FeedCode,
	}
}

func (n *TradingMarketsNode) FeedCode() string { return n.feedCode }

func (n *TradingMarketsNode) ProcessMessage(update datamodels.Update) {
	if update.Kind != datamodels.KindTradingMarkets {
		n.RecordList.ProcessMessage(update)
		return
	}
	changes := node.Payload[[]datamodels.TradingMarketChange](update, "FD:PM:10045")
	n.BeginUpdate()
	defer n.EndUpdate()
	n.NoteData()
	for _, change := range changes {
		n.applyChange(change)
	}
}

func (n *TradingMarketsNode) applyChange(change datamodels.TradingMarketChange) {
	switch change.Type {
	case datamodels.ChangeAdd:
		if change.Code == "" {
			n.RejectData("trading market without code on feed " + n.feedCode)
			return
		}
		if _, exists := n.Get(change.Code); exists {
			n.RejectData("duplicate trading market " + change.Code)
			return
		}
		market := &TradingMarket{Code: change.Code}
		market.apply(change)
		n.Insert(market)
	case datamodels.ChangeUpdate:
		index := n.IndexOfKey(change.Code)
		if index < 0 {
			n.RejectData("update for unknown trading market " + change.Code)
			return
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
		n.RejectData("unknown trading market change " + string(change.Type))
	}
}
