package datamodels

import "time"

type PublisherState string

const (
	PublisherStateInitialise   PublisherState = "initialise"
	PublisherStateAuthFetch    PublisherState = "auth_fetch"
	PublisherStateConnecting   PublisherState = "connecting"
	PublisherStateAuthActive   PublisherState = "auth_active"
	PublisherStateOnline       PublisherState = "online"
	PublisherStateReconnecting PublisherState = "reconnecting"
	PublisherStateFinalised    PublisherState = "finalised"
)

type ReconnectReason string

const (
	ReconnectNewEndpoints          ReconnectReason = "new_endpoints"
	ReconnectPassportTokenFailure  ReconnectReason = "passport_token_failure"
	ReconnectSocketConnectingError ReconnectReason = "socket_connecting_error"
	ReconnectAuthRejected          ReconnectReason = "auth_rejected"
	ReconnectAuthExpired           ReconnectReason = "auth_expired"
	ReconnectUnexpectedSocketClose ReconnectReason = "unexpected_socket_close"
	ReconnectSocketClose           ReconnectReason = "socket_close"
	ReconnectTimeout               ReconnectReason = "timeout"
)

type SubscriptionErrorType string

const (
	SubscriptionErrorInternal            SubscriptionErrorType = "internal"
	SubscriptionErrorInvalidRequest      SubscriptionErrorType = "invalid_request"
	SubscriptionErrorOfflined            SubscriptionErrorType = "offlined"
	SubscriptionErrorTimeout             SubscriptionErrorType = "timeout"
	SubscriptionErrorUserNotAuthorised   SubscriptionErrorType = "user_not_authorised"
	SubscriptionErrorPublishRequestError SubscriptionErrorType = "publish_request_error"
	SubscriptionErrorSubRequestError     SubscriptionErrorType = "sub_request_error"
	SubscriptionErrorDataError           SubscriptionErrorType = "data_error"
)

var SubscriptionErrorTypes = []SubscriptionErrorType{
	SubscriptionErrorInternal,
	SubscriptionErrorInvalidRequest,
	SubscriptionErrorOfflined,
	SubscriptionErrorTimeout,
	SubscriptionErrorUserNotAuthorised,
	SubscriptionErrorPublishRequestError,
	SubscriptionErrorSubRequestError,
	SubscriptionErrorDataError,
}

type SubscriptionError struct {
	Type      SubscriptionErrorType `json:"type"`
	Text      string                `json:"text"`
	Retryable bool                  `json:"retryable"`
}

type PublisherStateChange struct {
	State     PublisherState `json:"state"`
	Waiting   bool           `json:"waiting"`
	Timestamp time.Time      `json:"timestamp"`
}

type PublisherOnlineChange struct {
	Online            bool   `json:"online"`
	SocketCloseReason string `json:"socket_close_reason,omitempty"`
}

type Reconnect struct {
	Reason ReconnectReason `json:"reason"`
	Text   string          `json:"text"`
}

type EndpointSelected struct {
	Endpoint  string   `json:"endpoint"`
	Endpoints []string `json:"endpoints"`
}

type SessionTermination struct {
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

// ConnectionCounters is the flat diagnostic snapshot of the publisher connection.
type ConnectionCounters struct {
	AuthFetchSuccessCount      int `json:"auth_fetch_success_count"`
	AuthFetchFailureCount      int `json:"auth_fetch_failure_count"`
	SocketOpenSuccessCount     int `json:"socket_open_success_count"`
	SocketOpenFailureCount     int `json:"socket_open_failure_count"`
	SocketClosedCount          int `json:"socket_closed_count"`
	SocketUnexpectedCloseCount int `json:"socket_unexpected_close_count"`
	SocketErrorCount           int `json:"socket_error_count"`
	TimeoutCount               int `json:"timeout_count"`
	AuthRejectedCount          int `json:"auth_rejected_count"`
	AuthExpiredCount           int `json:"auth_expired_count"`

	SubscriptionErrorCounts map[SubscriptionErrorType]int `json:"subscription_error_counts"`

	SentPacketCount     int `json:"sent_packet_count"`
	ReceivedPacketCount int `json:"received_packet_count"`
	SentByteCount       int `json:"sent_byte_count"`
	ReceivedByteCount   int `json:"received_byte_count"`
}

func (c ConnectionCounters) Copy() ConnectionCounters {
	out := c
	out.SubscriptionErrorCounts = make(map[SubscriptionErrorType]int, len(c.SubscriptionErrorCounts))
	for k, v := range c.SubscriptionErrorCounts {
		out.SubscriptionErrorCounts[k] = v
	}
	return out
}

func (c ConnectionCounters) SubscriptionErrorTotal() int {
	total := 0
	for _, v := range c.SubscriptionErrorCounts {
		total += v
	}
	return total
}
