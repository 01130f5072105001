package datamodels

import "motifcore/src/health"

type FeedClass string

const (
	FeedClassAuthority FeedClass = "authority"
	FeedClassMarket    FeedClass = "market"
	FeedClassNews      FeedClass = "news"
	FeedClassWatchlist FeedClass = "watchlist"
	FeedClassScanner   FeedClass = "scanner"
	FeedClassChannel   FeedClass = "channel"
)

// IsTrading reports whether feeds of this class carry trading markets and order statuses.
func (c FeedClass) IsTrading() bool {
	return c == FeedClassAuthority
}

func (c FeedClass) IsValid() bool {
	switch c {
	case FeedClassAuthority, FeedClassMarket, FeedClassNews, FeedClassWatchlist, FeedClassScanner, FeedClassChannel:
		return true
	default:
		return false
	}
}

type FeedStatus string

const (
	FeedStatusUnknown      FeedStatus = "unknown"
	FeedStatusInitialising FeedStatus = "initialising"
	FeedStatusOnline       FeedStatus = "online"
	FeedStatusClosed       FeedStatus = "closed"
	FeedStatusOffline      FeedStatus = "offline"
	FeedStatusImpaired     FeedStatus = "impaired"
	FeedStatusExpired      FeedStatus = "expired"
)

func (s FeedStatus) IsValid() bool {
	switch s {
	case FeedStatusUnknown, FeedStatusInitialising, FeedStatusOnline, FeedStatusClosed,
		FeedStatusOffline, FeedStatusImpaired, FeedStatusExpired:
		return true
	default:
		return false
	}
}

// Correctness maps a feed status onto the correctness scale.
// Closed feeds still serve their last data, so they are usable but not good.
func (s FeedStatus) Correctness() health.Correctness {
	switch s {
	case FeedStatusOnline:
		return health.Good
	case FeedStatusClosed:
		return health.Usable
	case FeedStatusOffline, FeedStatusExpired:
		return health.Error
	default:
		return health.Suspect
	}
}

// BadnessReason is the reason a feed with this status is unusable.
// It returns NotBad for usable statuses.
func (s FeedStatus) BadnessReason() health.Reason {
	switch s {
	case FeedStatusOnline, FeedStatusClosed:
		return health.NotBad
	case FeedStatusInitialising:
		return health.FeedStatusInitialising
	case FeedStatusImpaired:
		return health.FeedStatusImpaired
	case FeedStatusOffline:
		return health.FeedStatusOffline
	case FeedStatusExpired:
		return health.FeedStatusExpired
	default:
		return health.FeedStatusUnknown
	}
}

type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeUpdate ChangeType = "update"
	ChangeRemove ChangeType = "remove"
	ChangeClear  ChangeType = "clear"
)

type FeedChange struct {
	Type    ChangeType        `json:"type"`
	Code    string            `json:"code"`
	ClassID Field[FeedClass]  `json:"class"`
	Status  Field[FeedStatus] `json:"status"`
}

type TradingMarketChange struct {
	Type    ChangeType    `json:"type"`
	Code    string        `json:"code"`
	Display Field[string] `json:"display"`
	// Market feed that prices this trading market, if any.
	MarketFeedCode Field[string] `json:"market_feed"`
}

type OrderStatusChange struct {
	Type            ChangeType      `json:"type"`
	Code            string          `json:"code"`
	Display         Field[string]   `json:"display"`
	IsDeletedOrDone Field[bool]     `json:"is_deleted_or_done"`
	AllowedSides    Field[[]string] `json:"allowed_sides"`
}

type MarketChange struct {
	Type        ChangeType    `json:"type"`
	Code        string        `json:"code"`
	Display     Field[string] `json:"display"`
	TradingDate Field[string] `json:"trading_date"`
	Status      Field[string] `json:"status"`
}
