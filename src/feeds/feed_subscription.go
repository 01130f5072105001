package feeds

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/listchange"
	"motifcore/src/multicast"
	"motifcore/src/node"
)

// FeedSubscription gates its owner on one feed of the registry. It contributes,
// most urgent first: the registry's own badness, FeedNotAvailable, the feed's
// badness. A usable feed caps the owner's correctness at the feed's.
type FeedSubscription struct {
	owner *node.Base
	class datamodels.FeedClass
	code  string

	feeds         *FeedsNode
	feed          FeedRecord
	feedChangedID multicast.ID
}

// AttachFeedSubscription registers the subscription's start hook and contributor on owner.
func AttachFeedSubscription(owner *node.Base, class datamodels.FeedClass, code string) *FeedSubscription {
	s := &FeedSubscription{owner: owner, class: class, code: code}
	owner.OnStart(s.start)
	owner.AddContributor(node.RankUpstream, s.contribution)
	return s
}

func (s *FeedSubscription) Code() string { return s.code }

// Feed is the attached feed, or nil when it is not in the registry.
func (s *FeedSubscription) Feed() FeedRecord { return s.feed }

func (s *FeedSubscription) start() {
	s.feeds = node.Acquire[*FeedsNode](s.owner, datamodels.FeedsRequest{})
	listID := s.feeds.SubscribeListChange(s.onListChange)
	badnessID := s.feeds.SubscribeBadnessChanged(func(health.Badness) { s.owner.Recalculate() })
	s.resolve()
	s.owner.Defer(func() {
		s.feeds.UnsubscribeBadnessChanged(badnessID)
		s.feeds.UnsubscribeListChange(listID)
		s.attach(nil)
		s.feeds = nil
	})
}

func (s *FeedSubscription) onListChange(e listchange.Event) {
	s.owner.BeginUpdate()
	defer s.owner.EndUpdate()
	switch e.Type {
	case listchange.Remove:
		// The doomed range is still readable.
		if s.feed != nil {
			if i := s.feeds.IndexOf(s.feed); i >= e.Index && i < e.Index+e.Count {
				s.attach(nil)
			}
		}
	case listchange.Clear, listchange.BeforeReplace:
		s.attach(nil)
	case listchange.Insert, listchange.AfterReplace, listchange.Usable:
		s.resolve()
	}
	s.owner.Recalculate()
}

func (s *FeedSubscription) resolve() {
	feed, _ := s.feeds.FindByCode(s.code, s.class)
	s.attach(feed)
}

func (s *FeedSubscription) attach(feed FeedRecord) {
	if feed == s.feed {
		return
	}
	if s.feed != nil {
		s.feed.UnsubscribeChanged(s.feedChangedID)
		s.feedChangedID = 0
	}
	s.feed = feed
	if feed != nil {
		s.feedChangedID = feed.SubscribeChanged(func(struct{}) { s.owner.Recalculate() })
	}
}

func (s *FeedSubscription) contribution() node.Contribution {
	if s.feeds == nil {
		return node.Contribution{Badness: health.Bad(health.FeedsWaiting, "")}
	}
	if !s.feeds.Usable() {
		return node.Contribution{Badness: health.Upstream(s.feeds.Badness(), health.FeedsWaiting, health.FeedsError)}
	}
	if s.feed == nil {
		return node.Contribution{Badness: health.Bad(health.FeedNotAvailable, s.code)}
	}
	if !s.feed.Usable() {
		return node.Contribution{Badness: s.feed.Badness()}
	}
	return node.Contribution{Cap: s.feed.Correctness()}
}
