package accounts

import (
	"github.com/shopspring/decimal"

	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/node"
	"motifcore/src/utils/errors"
)

// Balance is one currency balance of an account.
type Balance struct {
	AccountID string
	Currency  string
	Amount    decimal.Decimal
	Available decimal.Decimal

	correctness health.Correctness
	destroyed   bool
}

func (b *Balance) MapKey() string                  { return b.Currency }
func (b *Balance) Destroy()                        { b.destroyed = true }
func (b *Balance) Correctness() health.Correctness { return b.correctness }

func (b *Balance) SetListCorrectness(correctness health.Correctness) {
	b.correctness = correctness
}

func (b *Balance) apply(change datamodels.BalanceChange) {
	change.Amount.ApplyTo(&b.Amount)
	change.Available.ApplyTo(&b.Available)
}

// BalancesNode lists the balances of one account, gated on that account.
type BalancesNode struct {
	*node.RecordList[*Balance]
	account *AccountSubscription
}

func NewBalancesNode(deps node.Deps) node.Node {
	request, ok := deps.Request.(datamodels.BalancesRequest)
	if !ok {
		errors.Fatal("AC:BN:10070", "balances node built for %T", deps.Request)
	}
	n := &BalancesNode{
		RecordList: node.NewRecordList[*Balance](deps, node.PublisherReasons{
			Waiting: health.BalancesWaiting,
			Error:   health.BalancesError,
		}),
	}
	n.account = AttachAccountSubscription(n.Base, request.AccountID)
	return n
}

func (n *BalancesNode) Account() *BrokerageAccount { return n.account.Account() }

// Total sums the amounts held in currency.
func (n *BalancesNode) Total(currency string) decimal.Decimal {
	if b, ok := n.Get(currency); ok {
		return b.Amount
	}
	return decimal.Zero
}

func (n *BalancesNode) ProcessMessage(update datamodels.Update) {
	if update.Kind != datamodels.KindBalances {
		n.RecordList.ProcessMessage(update)
		return
	}
	changes := node.Payload[[]datamodels.BalanceChange](update, "AC:PM:10071")
	n.BeginUpdate()
	defer n.EndUpdate()
	n.NoteData()
	for _, change := range changes {
		if change.Type != datamodels.ChangeClear && change.AccountID != n.account.AccountID() {
			n.RejectData("balance for account " + change.AccountID + " on " + n.account.AccountID())
			continue
		}
		switch change.Type {
		case datamodels.ChangeAdd, datamodels.ChangeUpdate:
			n.upsert(change)
		case datamodels.ChangeRemove:
			if index := n.IndexOfKey(change.Currency); index >= 0 {
				n.Remove(index)
			}
		case datamodels.ChangeClear:
			n.Clear()
			n.ClearDataError()
		default:
			n.RejectData("unknown balance change " + string(change.Type))
		}
	}
}

func (n *BalancesNode) upsert(change datamodels.BalanceChange) {
	if change.Currency == "" {
		n.RejectData("balance without currency")
		return
	}
	index := n.IndexOfKey(change.Currency)
	if index < 0 {
		if change.Amount.IsUnknown() {
			n.RejectData("new balance " + change.Currency + " without amount")
			return
		}
		balance := &Balance{AccountID: change.AccountID, Currency: change.Currency}
		balance.apply(change)
		n.Insert(balance)
		return
	}
	updated := *n.At(index)
	updated.apply(change)
	n.Replace(index, &updated)
}
