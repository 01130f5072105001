package datamodels

import (
	"encoding/json"

	"motifcore/src/utils/errors"
)

type UpdateKind string

const (
	KindSynchronised      UpdateKind = "synchronised"
	KindOnlined           UpdateKind = "onlined"
	KindOfflined          UpdateKind = "offlined"
	KindSubscriptionError UpdateKind = "subscription_error"

	KindFeeds          UpdateKind = "feeds"
	KindTradingMarkets UpdateKind = "trading_markets"
	KindOrderStatuses  UpdateKind = "order_statuses"
	KindMarkets        UpdateKind = "markets"
	KindAccounts       UpdateKind = "accounts"
	KindBalances       UpdateKind = "balances"

	KindPublisherState    UpdateKind = "publisher_state"
	KindPublisherOnline   UpdateKind = "publisher_online"
	KindReconnect         UpdateKind = "reconnect"
	KindEndpointSelected  UpdateKind = "endpoint_selected"
	KindCounters          UpdateKind = "counters"
	KindSessionTerminated UpdateKind = "session_terminated"
)

// Update is one inbound message addressed to a node.
// Payload holds the decoded type that belongs to Kind.
type Update struct {
	NodeID  uint64
	Kind    UpdateKind
	Payload any
}

// Envelope is the wire form of an Update.
type Envelope struct {
	NodeID  uint64          `json:"node"`
	Kind    UpdateKind      `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var ErrUnknownUpdateKind = errors.Sentinel("unknown update kind")

// DecodeUpdate parses an envelope and its kind specific payload.
func DecodeUpdate(data []byte) (Update, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Update{}, errors.Wrap(err, "decoding envelope")
	}
	payload, err := decodePayload(env.Kind, env.Payload)
	if err != nil {
		return Update{}, errors.Wrapf(err, "decoding %s payload", env.Kind)
	}
	return Update{NodeID: env.NodeID, Kind: env.Kind, Payload: payload}, nil
}

func decodeInto[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

func decodePayload(kind UpdateKind, raw json.RawMessage) (any, error) {
	switch kind {
	case KindSynchronised, KindOnlined, KindOfflined:
		return nil, nil
	case KindSubscriptionError:
		return decodeInto[SubscriptionError](raw)
	case KindFeeds:
		return decodeInto[[]FeedChange](raw)
	case KindTradingMarkets:
		return decodeInto[[]TradingMarketChange](raw)
	case KindOrderStatuses:
		return decodeInto[[]OrderStatusChange](raw)
	case KindMarkets:
		return decodeInto[[]MarketChange](raw)
	case KindAccounts:
		return decodeInto[[]AccountChange](raw)
	case KindBalances:
		return decodeInto[[]BalanceChange](raw)
	case KindPublisherState:
		return decodeInto[PublisherStateChange](raw)
	case KindPublisherOnline:
		return decodeInto[PublisherOnlineChange](raw)
	case KindReconnect:
		return decodeInto[Reconnect](raw)
	case KindEndpointSelected:
		return decodeInto[EndpointSelected](raw)
	case KindCounters:
		return decodeInto[ConnectionCounters](raw)
	case KindSessionTerminated:
		return decodeInto[SessionTermination](raw)
	default:
		return nil, ErrUnknownUpdateKind
	}
}

// SubscribeAction is the outbound frame asking the publisher to start or stop a node's data.
type SubscribeAction struct {
	Action    string  `json:"action"`
	NodeID    uint64  `json:"node"`
	Channel   Channel `json:"channel"`
	Key       string  `json:"key"`
	Request   Request `json:"request,omitempty"`
	RequestID string  `json:"request_id"`
}
