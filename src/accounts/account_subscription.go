package accounts

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/listchange"
	"motifcore/src/multicast"
	"motifcore/src/node"
)

// AccountSubscription gates its owner on one brokerage account. Most urgent
// first it reports: the accounts list's own badness, AccountNotAvailable, the
// account's badness (which puts its trading feed's sub-causes first).
type AccountSubscription struct {
	owner     *node.Base
	accountID string

	accounts         *AccountsNode
	account          *BrokerageAccount
	accountChangedID multicast.ID
}

func AttachAccountSubscription(owner *node.Base, accountID string) *AccountSubscription {
	s := &AccountSubscription{owner: owner, accountID: accountID}
	owner.OnStart(s.start)
	owner.AddContributor(node.RankUpstream, s.contribution)
	return s
}

func (s *AccountSubscription) AccountID() string { return s.accountID }

// Account is the attached account, nil while it is not listed.
func (s *AccountSubscription) Account() *BrokerageAccount { return s.account }

func (s *AccountSubscription) start() {
	s.accounts = node.Acquire[*AccountsNode](s.owner, datamodels.AccountsRequest{})
	listID := s.accounts.SubscribeListChange(s.onListChange)
	badnessID := s.accounts.SubscribeBadnessChanged(func(health.Badness) { s.owner.Recalculate() })
	s.resolve()
	s.owner.Defer(func() {
		s.accounts.UnsubscribeBadnessChanged(badnessID)
		s.accounts.UnsubscribeListChange(listID)
		s.attach(nil)
		s.accounts = nil
	})
}

func (s *AccountSubscription) onListChange(e listchange.Event) {
	s.owner.BeginUpdate()
	defer s.owner.EndUpdate()
	switch e.Type {
	case listchange.Remove:
		if s.account != nil {
			if i := s.accounts.IndexOf(s.account); i >= e.Index && i < e.Index+e.Count {
				s.attach(nil)
			}
		}
	case listchange.Clear, listchange.BeforeReplace:
		s.attach(nil)
	case listchange.Insert, listchange.AfterReplace, listchange.Usable:
		s.resolve()
	}
	s.owner.Recalculate()
}

func (s *AccountSubscription) resolve() {
	account, _ := s.accounts.Get(s.accountID)
	s.attach(account)
}

func (s *AccountSubscription) attach(account *BrokerageAccount) {
	if account == s.account {
		return
	}
	if s.account != nil {
		s.account.UnsubscribeChanged(s.accountChangedID)
		s.accountChangedID = 0
	}
	s.account = account
	if account != nil {
		s.accountChangedID = account.SubscribeChanged(func(struct{}) { s.owner.Recalculate() })
	}
}

func (s *AccountSubscription) contribution() node.Contribution {
	if s.accounts == nil {
		return node.Contribution{Badness: health.Bad(health.AccountsWaiting, "")}
	}
	if !s.accounts.Usable() {
		return node.Contribution{Badness: health.Upstream(s.accounts.Badness(), health.AccountsWaiting, health.AccountsError)}
	}
	if s.account == nil {
		return node.Contribution{Badness: health.Bad(health.AccountNotAvailable, s.accountID)}
	}
	if !s.account.Usable() {
		return node.Contribution{Badness: s.account.Badness()}
	}
	return node.Contribution{Cap: s.account.Correctness()}
}
