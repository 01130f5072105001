package health

import "fmt"

// Entity partitions reasons by the thing they describe.
type Entity int

const (
	EntityGeneral Entity = iota
	EntityPublisher
	EntityFeeds
	EntityFeed
	EntityTradingFeed
	EntityTradingMarkets
	EntityOrderStatuses
	EntityMarkets
	EntityAccounts
	EntityAccount
	EntityBalances
)

// Reason is the code part of a Badness.
type Reason int

const (
	NotBad Reason = iota
	Inactive
	PublisherSubscriptionWaiting
	PublisherSubscriptionError
	PublisherOffline
	Reading
	DataError

	FeedsWaiting
	FeedsError

	FeedNotAvailable
	FeedStatusUnknown
	FeedStatusInitialising
	FeedStatusImpaired
	FeedStatusOffline
	FeedStatusExpired

	FeedTradingMarketsWaiting
	FeedTradingMarketsError
	FeedOrderStatusesWaiting
	FeedOrderStatusesError

	TradingMarketsWaiting
	TradingMarketsError
	OrderStatusesWaiting
	OrderStatusesError

	MarketsWaiting
	MarketsError

	AccountsWaiting
	AccountsError
	AccountNotAvailable
	AccountFeedNotAvailable

	BalancesWaiting
	BalancesError

	reasonCount
)

type reasonInfo struct {
	name        string
	display     string
	entity      Entity
	correctness Correctness
}

var reasonInfos = [reasonCount]reasonInfo{
	NotBad:                       {"NotBad", "", EntityGeneral, Good},
	Inactive:                     {"Inactive", "Inactive", EntityGeneral, Suspect},
	PublisherSubscriptionWaiting: {"PublisherSubscriptionWaiting", "Waiting for publisher", EntityPublisher, Suspect},
	PublisherSubscriptionError:   {"PublisherSubscriptionError", "Publisher subscription error", EntityPublisher, Error},
	PublisherOffline:             {"PublisherOffline", "Publisher offline", EntityPublisher, Suspect},
	Reading:                      {"Reading", "Reading", EntityPublisher, Suspect},
	DataError:                    {"DataError", "Data error", EntityPublisher, Error},

	FeedsWaiting: {"FeedsWaiting", "Waiting for feeds", EntityFeeds, Suspect},
	FeedsError:   {"FeedsError", "Feeds error", EntityFeeds, Error},

	FeedNotAvailable:       {"FeedNotAvailable", "Feed not available", EntityFeed, Error},
	FeedStatusUnknown:      {"FeedStatusUnknown", "Feed status unknown", EntityFeed, Suspect},
	FeedStatusInitialising: {"FeedStatusInitialising", "Feed initialising", EntityFeed, Suspect},
	FeedStatusImpaired:     {"FeedStatusImpaired", "Feed impaired", EntityFeed, Suspect},
	FeedStatusOffline:      {"FeedStatusOffline", "Feed offline", EntityFeed, Error},
	FeedStatusExpired:      {"FeedStatusExpired", "Feed expired", EntityFeed, Error},

	FeedTradingMarketsWaiting: {"FeedTradingMarketsWaiting", "Waiting for feed trading markets", EntityTradingFeed, Suspect},
	FeedTradingMarketsError:   {"FeedTradingMarketsError", "Feed trading markets error", EntityTradingFeed, Error},
	FeedOrderStatusesWaiting:  {"FeedOrderStatusesWaiting", "Waiting for feed order statuses", EntityTradingFeed, Suspect},
	FeedOrderStatusesError:    {"FeedOrderStatusesError", "Feed order statuses error", EntityTradingFeed, Error},

	TradingMarketsWaiting: {"TradingMarketsWaiting", "Waiting for trading markets", EntityTradingMarkets, Suspect},
	TradingMarketsError:   {"TradingMarketsError", "Trading markets error", EntityTradingMarkets, Error},
	OrderStatusesWaiting:  {"OrderStatusesWaiting", "Waiting for order statuses", EntityOrderStatuses, Suspect},
	OrderStatusesError:    {"OrderStatusesError", "Order statuses error", EntityOrderStatuses, Error},

	MarketsWaiting: {"MarketsWaiting", "Waiting for markets", EntityMarkets, Suspect},
	MarketsError:   {"MarketsError", "Markets error", EntityMarkets, Error},

	AccountsWaiting:         {"AccountsWaiting", "Waiting for accounts", EntityAccounts, Suspect},
	AccountsError:           {"AccountsError", "Accounts error", EntityAccounts, Error},
	AccountNotAvailable:     {"AccountNotAvailable", "Account not available", EntityAccount, Error},
	AccountFeedNotAvailable: {"AccountFeedNotAvailable", "Account trading feed not available", EntityAccount, Error},

	BalancesWaiting: {"BalancesWaiting", "Waiting for balances", EntityBalances, Suspect},
	BalancesError:   {"BalancesError", "Balances error", EntityBalances, Error},
}

func (r Reason) valid() bool { return r >= NotBad && r < reasonCount }

func (r Reason) String() string {
	if !r.valid() {
		return fmt.Sprintf("reason(%d)", int(r))
	}
	return reasonInfos[r].name
}

func (r Reason) Display() string {
	if !r.valid() {
		return r.String()
	}
	return reasonInfos[r].display
}

func (r Reason) Entity() Entity {
	if !r.valid() {
		return EntityGeneral
	}
	return reasonInfos[r].entity
}

// Correctness is the grade a node carries while this reason applies.
func (r Reason) Correctness() Correctness {
	if !r.valid() {
		return Error
	}
	return reasonInfos[r].correctness
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Badness says why a node is not usable. The zero value is NotBad.
type Badness struct {
	Reason Reason `json:"reason"`
	Extra  string `json:"extra,omitempty"`
}

// Healthy is the NotBad badness.
var Healthy = Badness{}

// Bad builds a badness with detail text.
func Bad(reason Reason, extra string) Badness {
	return Badness{Reason: reason, Extra: extra}
}

func (b Badness) IsUsable() bool { return b.Reason == NotBad }

func (b Badness) IsBad() bool { return b.Reason != NotBad }

func (b Badness) Correctness() Correctness { return b.Reason.Correctness() }

func (b Badness) Equal(other Badness) bool {
	return b.Reason == other.Reason && b.Extra == other.Extra
}

func (b Badness) String() string {
	if b.Extra == "" {
		return b.Reason.Display()
	}
	return b.Reason.Display() + ": " + b.Extra
}

// Upstream reports an upstream's badness as one of our own reasons:
// failed when the upstream is in error, waiting otherwise.
func Upstream(upstream Badness, waiting, failed Reason) Badness {
	reason := waiting
	if upstream.Correctness() == Error {
		reason = failed
	}
	return Bad(reason, upstream.String())
}
