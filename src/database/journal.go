package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"motifcore/src/datamodels"
	"motifcore/src/node"
	"motifcore/src/utils/general"
)

const journalLoadWarning = 0.8

var _ node.StatusRecorder = (*Journal)(nil)

// Journal records feed status and connection state transitions. Record calls
// come from the node goroutine and never block it: entries are queued and
// written by Run, and dropped with a warning when the queue is full.
type Journal struct {
	db      JournalDatabase
	logger  *slog.Logger
	entries chan any
	dropped atomic.Int64
	loaded  bool
	done    chan struct{}
	now     func() time.Time
}

func NewJournal(db JournalDatabase, logger *slog.Logger, queueSize int) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		db:      db,
		logger:  logger.With("component", "journal"),
		entries: make(chan any, queueSize),
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

func (j *Journal) RecordFeedStatus(code string, class datamodels.FeedClass, from, to datamodels.FeedStatus) {
	j.enqueue(datamodels.FeedStatusChange{
		FeedCode:   code,
		FeedClass:  class,
		FromStatus: from,
		ToStatus:   to,
		ChangedAt:  j.now(),
	})
}

func (j *Journal) RecordConnectionState(state datamodels.PublisherState, online bool, detail string) {
	j.enqueue(datamodels.ConnectionStateChange{
		State:     state,
		Online:    online,
		Detail:    detail,
		ChangedAt: j.now(),
	})
}

func (j *Journal) enqueue(entry any) {
	loaded := general.ChannelAtLoadLevel(j.entries, journalLoadWarning)
	if loaded && !j.loaded {
		j.logger.Warn("Journal queue filling up", "queued", len(j.entries), "capacity", cap(j.entries))
	}
	j.loaded = loaded
	select {
	case j.entries <- entry:
	default:
		if j.dropped.Add(1) == 1 {
			j.logger.Warn("Journal queue full, dropping entries")
		}
	}
}

// Dropped counts entries lost to a full queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Run writes queued entries until ctx is cancelled, then drains what is left.
func (j *Journal) Run(ctx context.Context) {
	defer close(j.done)
	for {
		select {
		case entry := <-j.entries:
			j.write(ctx, entry)
		case <-ctx.Done():
			j.drain()
			return
		}
	}
}

// Done is closed once Run has drained the queue.
func (j *Journal) Done() <-chan struct{} { return j.done }

func (j *Journal) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case entry := <-j.entries:
			j.write(ctx, entry)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, entry any) {
	var err error
	switch e := entry.(type) {
	case datamodels.FeedStatusChange:
		err = j.db.WriteFeedStatusChange(ctx, e)
	case datamodels.ConnectionStateChange:
		err = j.db.WriteConnectionStateChange(ctx, e)
	}
	if err != nil {
		j.logger.Error("Journal write failed", "error", err)
	}
}
