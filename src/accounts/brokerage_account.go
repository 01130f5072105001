// Package accounts serves brokerage accounts and their balances. Accounts
// trade through an authority feed and are only usable while that feed is.
package accounts

import (
	"motifcore/src/datamodels"
	"motifcore/src/feeds"
	"motifcore/src/health"
	"motifcore/src/multicast"
)

type BrokerageAccount struct {
	ID       string
	Name     string
	Currency string
	FeedCode string

	feed          feeds.FeedRecord
	feedChangedID multicast.ID

	listCorrectness health.Correctness
	badness         health.Badness
	correctness     health.Correctness
	destroyed       bool
	changed         multicast.Signal
}

func newBrokerageAccount(id string) *BrokerageAccount {
	a := &BrokerageAccount{ID: id, listCorrectness: health.Suspect}
	a.badness, a.correctness = a.calculate()
	return a
}

func (a *BrokerageAccount) MapKey() string                  { return a.ID }
func (a *BrokerageAccount) Badness() health.Badness         { return a.badness }
func (a *BrokerageAccount) Correctness() health.Correctness { return a.correctness }
func (a *BrokerageAccount) Usable() bool                    { return a.badness.IsUsable() }
func (a *BrokerageAccount) Destroyed() bool                 { return a.destroyed }

// Feed is the account's trading feed, nil while it is not in the registry.
func (a *BrokerageAccount) Feed() feeds.FeedRecord { return a.feed }

func (a *BrokerageAccount) SubscribeChanged(handler func(struct{})) multicast.ID {
	return a.changed.Subscribe(handler)
}

func (a *BrokerageAccount) UnsubscribeChanged(id multicast.ID) { a.changed.Unsubscribe(id) }

func (a *BrokerageAccount) SetListCorrectness(correctness health.Correctness) {
	if correctness == a.listCorrectness {
		return
	}
	a.listCorrectness = correctness
	a.refresh()
}

func (a *BrokerageAccount) Destroy() {
	if a.destroyed {
		return
	}
	a.attachFeed(nil)
	a.destroyed = true
}

func (a *BrokerageAccount) apply(change datamodels.AccountChange) {
	change.Name.ApplyTo(&a.Name)
	change.Currency.ApplyTo(&a.Currency)
	a.refresh()
}

func (a *BrokerageAccount) attachFeed(feed feeds.FeedRecord) {
	if feed == a.feed {
		return
	}
	if a.feed != nil {
		a.feed.UnsubscribeChanged(a.feedChangedID)
		a.feedChangedID = 0
	}
	a.feed = feed
	if feed != nil {
		a.feedChangedID = feed.SubscribeChanged(func(struct{}) { a.refresh() })
	}
	a.refresh()
}

func (a *BrokerageAccount) calculate() (health.Badness, health.Correctness) {
	if a.feed == nil {
		return health.Bad(health.AccountFeedNotAvailable, a.FeedCode), health.Error
	}
	correctness := health.Merge(a.listCorrectness, a.feed.Correctness())
	if !a.feed.Usable() {
		return a.feed.Badness(), correctness
	}
	if !a.listCorrectness.IsUsable() {
		reason := health.AccountsWaiting
		if a.listCorrectness == health.Error {
			reason = health.AccountsError
		}
		return health.Bad(reason, a.ID), correctness
	}
	return health.Healthy, correctness
}

// refresh notifies on every call; detail fields may change without the health moving.
func (a *BrokerageAccount) refresh() {
	if a.destroyed {
		return
	}
	a.badness, a.correctness = a.calculate()
	multicast.Fire(&a.changed)
}
