//go:build unit

package datamodels

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motifcore/src/health"
)

func TestFieldDistinguishesUnknownAbsentPresent(t *testing.T) {
	var change FeedChange
	require.NoError(t, json.Unmarshal([]byte(`{"type":"update","code":"ASX","class":null}`), &change))

	assert.True(t, change.Status.IsUnknown())
	assert.True(t, change.ClassID.IsAbsent())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"update","code":"ASX","status":"online"}`), &change))
	status, ok := change.Status.Get()
	assert.True(t, ok)
	assert.Equal(t, FeedStatusOnline, status)
}

func TestFieldApplyTo(t *testing.T) {
	name := "before"
	assert.False(t, Field[string]{}.ApplyTo(&name))
	assert.Equal(t, "before", name)

	assert.True(t, Known("after").ApplyTo(&name))
	assert.Equal(t, "after", name)

	assert.True(t, AbsentField[string]().ApplyTo(&name))
	assert.Equal(t, "", name)

	assert.Equal(t, "x", Field[string]{}.Or("x"))
}

func TestFieldMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A Field[int] `json:"a"`
		B Field[int] `json:"b"`
	}{A: Known(3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":null}`, string(data))
}

func TestDecodeUpdate(t *testing.T) {
	update, err := DecodeUpdate([]byte(`{"node":7,"kind":"feeds","payload":[{"type":"add","code":"ASX","class":"authority","status":"online"}]}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), update.NodeID)
	assert.Equal(t, KindFeeds, update.Kind)
	changes, ok := update.Payload.([]FeedChange)
	require.True(t, ok)
	require.Len(t, changes, 1)
	assert.Equal(t, FeedClassAuthority, changes[0].ClassID.Or(""))

	update, err = DecodeUpdate([]byte(`{"node":3,"kind":"balances","payload":[{"type":"add","account_id":"A","currency":"AUD","amount":"10.25"}]}`))
	require.NoError(t, err)
	balances := update.Payload.([]BalanceChange)
	amount, ok := balances[0].Amount.Get()
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("10.25").Equal(amount))

	update, err = DecodeUpdate([]byte(`{"node":1,"kind":"synchronised"}`))
	require.NoError(t, err)
	assert.Nil(t, update.Payload)

	_, err = DecodeUpdate([]byte(`{"node":1,"kind":"bogus"}`))
	assert.ErrorIs(t, err, ErrUnknownUpdateKind)
}

func TestFeedStatusTables(t *testing.T) {
	assert.Equal(t, health.Good, FeedStatusOnline.Correctness())
	assert.Equal(t, health.Usable, FeedStatusClosed.Correctness())
	assert.Equal(t, health.Error, FeedStatusExpired.Correctness())
	assert.Equal(t, health.Suspect, FeedStatusInitialising.Correctness())

	assert.Equal(t, health.NotBad, FeedStatusOnline.BadnessReason())
	assert.Equal(t, health.FeedStatusImpaired, FeedStatusImpaired.BadnessReason())
	assert.Equal(t, health.FeedStatusUnknown, FeedStatus("weird").BadnessReason())
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest("balances:ACC1")
	require.NoError(t, err)
	assert.Equal(t, BalancesRequest{AccountID: "ACC1"}, req)
	assert.Equal(t, "balances:ACC1", req.Key())

	req, err = ParseRequest("feeds")
	require.NoError(t, err)
	assert.Equal(t, "feeds", req.Key())

	_, err = ParseRequest("markets")
	assert.Error(t, err)
	_, err = ParseRequest("nothing:x")
	assert.Error(t, err)
}

func TestCountersCopyIsDeep(t *testing.T) {
	c := ConnectionCounters{SubscriptionErrorCounts: map[SubscriptionErrorType]int{SubscriptionErrorTimeout: 2}}
	cp := c.Copy()
	cp.SubscriptionErrorCounts[SubscriptionErrorTimeout] = 5
	assert.Equal(t, 2, c.SubscriptionErrorCounts[SubscriptionErrorTimeout])
	assert.Equal(t, 5, cp.SubscriptionErrorTotal())
}
