//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motifcore/src/config"
	"motifcore/src/datamodels"
)

func TestMainIntegration(t *testing.T) {
	// reads config.local.yaml and needs a reachable postgres with the atlas migrations applied
	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := NewDBConnection(cfg.DatabaseConfig, true)
	require.NoError(t, err)
	defer db.Close()

	require.NotNil(t, db.Notifications())
	subscriber := db.Notifications().NewSubscriber()
	stream, err := db.Notifications().Subscribe(subscriber, FeedStatusChannel, "INTEGRATION")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.WriteFeedStatusChange(ctx, datamodels.FeedStatusChange{
		FeedCode:  "INTEGRATION",
		FeedClass: datamodels.FeedClassNews,
		ToStatus:  datamodels.FeedStatusOnline,
		ChangedAt: time.Now(),
	}))

	select {
	case payload := <-stream:
		assert.Equal(t, string(datamodels.FeedStatusOnline), payload)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification")
	}
	require.NoError(t, db.Notifications().Unsubscribe(FeedStatusChannel, subscriber, "INTEGRATION"))

	changes, err := db.GetFeedStatusChanges(ctx, "INTEGRATION", 1)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}
