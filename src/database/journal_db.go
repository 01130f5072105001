package database

import (
	"context"
	"log/slog"
	"strconv"

	"motifcore/src/datamodels"
	"motifcore/src/utils/errors"
)

const (
	FeedStatusChannel      = "feed_status_change"
	ConnectionStateChannel = "connection_state_change"
)

type JournalDatabase interface {
	WriteFeedStatusChange(ctx context.Context, change datamodels.FeedStatusChange) error
	WriteConnectionStateChange(ctx context.Context, change datamodels.ConnectionStateChange) error
	GetFeedStatusChanges(ctx context.Context, feedCode string, limit int) ([]datamodels.FeedStatusChange, error)
	GetConnectionStateChanges(ctx context.Context, limit int) ([]datamodels.ConnectionStateChange, error)
}

func (d *databaseImplementation) WriteFeedStatusChange(ctx context.Context, change datamodels.FeedStatusChange) error {
	if err := d.gormDb.WithContext(ctx).Create(&change).Error; err != nil {
		return errors.Wrapf(err, "writing status change of feed %s", change.FeedCode)
	}
	d.announce(FeedStatusChannel, change.FeedCode, string(change.ToStatus))
	return nil
}

func (d *databaseImplementation) WriteConnectionStateChange(ctx context.Context, change datamodels.ConnectionStateChange) error {
	if err := d.gormDb.WithContext(ctx).Create(&change).Error; err != nil {
		return errors.Wrap(err, "writing connection state change")
	}
	d.announce(ConnectionStateChannel, string(change.State), strconv.FormatBool(change.Online))
	return nil
}

// GetFeedStatusChanges returns the newest changes first.
func (d *databaseImplementation) GetFeedStatusChanges(ctx context.Context, feedCode string, limit int) ([]datamodels.FeedStatusChange, error) {
	var changes []datamodels.FeedStatusChange
	err := d.gormDb.WithContext(ctx).Where("feed_code = ?", feedCode).
		Order("changed_at DESC").Order("id DESC").Limit(limit).Find(&changes).Error
	return changes, err
}

func (d *databaseImplementation) GetConnectionStateChanges(ctx context.Context, limit int) ([]datamodels.ConnectionStateChange, error) {
	var changes []datamodels.ConnectionStateChange
	err := d.gormDb.WithContext(ctx).Order("changed_at DESC").Order("id DESC").Limit(limit).Find(&changes).Error
	return changes, err
}

func (d *databaseImplementation) announce(channel, objectID, payload string) {
	if !d.notify {
		return
	}
	if err := Notify(d.gormDb, channel, objectID, payload); err != nil {
		slog.Warn("Journal notification failed", "channel", channel, "error", err)
	}
}
