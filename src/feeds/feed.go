package feeds

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/multicast"
	"motifcore/src/node"
)

// FeedRecord is a record in the feeds registry: a plain Feed or a TradingFeed.
type FeedRecord interface {
	node.Record
	Code() string
	Class() datamodels.FeedClass
	Status() datamodels.FeedStatus
	Badness() health.Badness
	Correctness() health.Correctness
	Usable() bool
	Destroyed() bool
	SubscribeChanged(handler func(struct{})) multicast.ID
	UnsubscribeChanged(id multicast.ID)

	base() *Feed
}

// FeedKey is the registry key of a feed. Feeds are identified by class and code.
func FeedKey(class datamodels.FeedClass, code string) string {
	return string(class) + ":" + code
}

// Feed is a named upstream data source with its own status.
type Feed struct {
	class  datamodels.FeedClass
	code   string
	status datamodels.FeedStatus

	listCorrectness health.Correctness
	badness         health.Badness
	correctness     health.Correctness
	destroyed       bool

	recorder node.StatusRecorder
	changed  multicast.Signal

	// calculate is replaced by TradingFeed to fold in its children.
	calculate func() (health.Badness, health.Correctness)
}

func newFeed(class datamodels.FeedClass, code string, status datamodels.FeedStatus, recorder node.StatusRecorder) *Feed {
	f := &Feed{
		class:           class,
		code:            code,
		status:          status,
		listCorrectness: health.Suspect,
		recorder:        recorder,
	}
	f.calculate = f.statusHealth
	f.badness, f.correctness = f.calculate()
	return f
}

func (f *Feed) base() *Feed { return f }

func (f *Feed) MapKey() string                  { return FeedKey(f.class, f.code) }
func (f *Feed) Code() string                    { return f.code }
func (f *Feed) Class() datamodels.FeedClass     { return f.class }
func (f *Feed) Status() datamodels.FeedStatus   { return f.status }
func (f *Feed) Badness() health.Badness         { return f.badness }
func (f *Feed) Correctness() health.Correctness { return f.correctness }
func (f *Feed) Usable() bool                    { return f.badness.IsUsable() }
func (f *Feed) Destroyed() bool                 { return f.destroyed }

// SubscribeChanged notifies on any change of status, badness or correctness.
func (f *Feed) SubscribeChanged(handler func(struct{})) multicast.ID {
	return f.changed.Subscribe(handler)
}

func (f *Feed) UnsubscribeChanged(id multicast.ID) { f.changed.Unsubscribe(id) }

func (f *Feed) SetListCorrectness(correctness health.Correctness) {
	if f.listCorrectness == correctness {
		return
	}
	f.listCorrectness = correctness
	f.refresh(false)
}

func (f *Feed) Destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true
}

func (f *Feed) setStatus(status datamodels.FeedStatus) {
	if status == f.status {
		return
	}
	from := f.status
	f.status = status
	f.recorder.RecordFeedStatus(f.code, f.class, from, status)
	f.refresh(true)
}

// statusHealth is the health of a feed from its status and the list holding it.
func (f *Feed) statusHealth() (health.Badness, health.Correctness) {
	correctness := health.Merge(f.listCorrectness, f.status.Correctness())
	if reason := f.status.BadnessReason(); reason != health.NotBad {
		return health.Bad(reason, f.code), correctness
	}
	if !f.listCorrectness.IsUsable() {
		reason := health.FeedsWaiting
		if f.listCorrectness == health.Error {
			reason = health.FeedsError
		}
		return health.Bad(reason, f.code), correctness
	}
	return health.Healthy, correctness
}

func (f *Feed) refresh(force bool) {
	if f.destroyed {
		return
	}
	badness, correctness := f.calculate()
	if !force && badness.Equal(f.badness) && correctness == f.correctness {
		return
	}
	f.badness = badness
	f.correctness = correctness
	multicast.Fire(&f.changed)
}
