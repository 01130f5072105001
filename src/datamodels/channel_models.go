package datamodels

import (
	"strings"

	"motifcore/src/utils/errors"
)

type Channel string

const (
	ChannelConnection     Channel = "connection"
	ChannelFeeds          Channel = "feeds"
	ChannelTradingMarkets Channel = "trading_markets"
	ChannelOrderStatuses  Channel = "order_statuses"
	ChannelMarkets        Channel = "markets"
	ChannelAccounts       Channel = "accounts"
	ChannelBalances       Channel = "balances"
)

// IsPublished reports whether nodes on this channel hold a publisher subscription.
func (c Channel) IsPublished() bool {
	return c != ChannelConnection
}

// Request describes what a node subscribes to. Key is its identity:
// two requests with equal keys are served by the same node.
type Request interface {
	Channel() Channel
	Key() string
}

func keyOf(channel Channel, param string) string {
	if param == "" {
		return string(channel)
	}
	return string(channel) + ":" + param
}

type ConnectionRequest struct{}

func (ConnectionRequest) Channel() Channel { return ChannelConnection }
func (ConnectionRequest) Key() string      { return keyOf(ChannelConnection, "") }

type FeedsRequest struct{}

func (FeedsRequest) Channel() Channel { return ChannelFeeds }
func (FeedsRequest) Key() string      { return keyOf(ChannelFeeds, "") }

type TradingMarketsRequest struct {
	FeedCode string `json:"feed_code"`
}

func (TradingMarketsRequest) Channel() Channel { return ChannelTradingMarkets }
func (r TradingMarketsRequest) Key() string    { return keyOf(ChannelTradingMarkets, r.FeedCode) }

type OrderStatusesRequest struct {
	FeedCode string `json:"feed_code"`
}

func (OrderStatusesRequest) Channel() Channel { return ChannelOrderStatuses }
func (r OrderStatusesRequest) Key() string    { return keyOf(ChannelOrderStatuses, r.FeedCode) }

type MarketsRequest struct {
	FeedCode string `json:"feed_code"`
}

func (MarketsRequest) Channel() Channel { return ChannelMarkets }
func (r MarketsRequest) Key() string    { return keyOf(ChannelMarkets, r.FeedCode) }

type AccountsRequest struct{}

func (AccountsRequest) Channel() Channel { return ChannelAccounts }
func (AccountsRequest) Key() string      { return keyOf(ChannelAccounts, "") }

type BalancesRequest struct {
	AccountID string `json:"account_id"`
}

func (BalancesRequest) Channel() Channel { return ChannelBalances }
func (r BalancesRequest) Key() string    { return keyOf(ChannelBalances, r.AccountID) }

// ParseRequest builds a request from its key form, e.g. "balances:ACC1".
func ParseRequest(key string) (Request, error) {
	channel, param, _ := strings.Cut(key, ":")
	switch Channel(channel) {
	case ChannelConnection:
		return ConnectionRequest{}, nil
	case ChannelFeeds:
		return FeedsRequest{}, nil
	case ChannelAccounts:
		return AccountsRequest{}, nil
	}
	if param == "" {
		return nil, errors.Newf("request %q needs a parameter", key)
	}
	switch Channel(channel) {
	case ChannelTradingMarkets:
		return TradingMarketsRequest{FeedCode: param}, nil
	case ChannelOrderStatuses:
		return OrderStatusesRequest{FeedCode: param}, nil
	case ChannelMarkets:
		return MarketsRequest{FeedCode: param}, nil
	case ChannelBalances:
		return BalancesRequest{AccountID: param}, nil
	default:
		return nil, errors.Newf("unknown channel in request %q", key)
	}
}
