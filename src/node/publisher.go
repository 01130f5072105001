package node

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/utils/errors"
)

// SubscriptionState tracks a node's data subscription at the publisher.
type SubscriptionState int

const (
	NeverSubscribed SubscriptionState = iota
	RequestSent
	Reading
	Synchronised
	Offlined
	Errored
)

func (s SubscriptionState) String() string {
	switch s {
	case NeverSubscribed:
		return "never_subscribed"
	case RequestSent:
		return "request_sent"
	case Reading:
		return "reading"
	case Synchronised:
		return "synchronised"
	case Offlined:
		return "offlined"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// PublisherReasons names the entity specific badness a publisher node reports
// while its data subscription is pending or failed.
type PublisherReasons struct {
	Waiting health.Reason
	Error   health.Reason
}

// Publisher is a node whose data arrives from the publisher over the wire.
type Publisher struct {
	*Base
	reasons   PublisherReasons
	subState  SubscriptionState
	lastError datamodels.SubscriptionError
}

func NewPublisher(deps Deps, reasons PublisherReasons) *Publisher {
	p := &Publisher{Base: NewBase(deps), reasons: reasons}
	p.AddContributor(RankPublisher, p.subscriptionContribution)
	p.OnStart(p.subscribe)
	return p
}

func (p *Publisher) SubscriptionState() SubscriptionState { return p.subState }

func (p *Publisher) LastSubscriptionError() datamodels.SubscriptionError { return p.lastError }

func (p *Publisher) subscribe() {
	p.subState = RequestSent
	p.sendSubscribe()
	p.Defer(func() {
		if wire := p.Wire(); wire != nil {
			if err := wire.Unsubscribe(p.ID(), p.Request()); err != nil {
				p.Logger().Warn("Publisher unsubscribe failed", "node", p.ID(), "error", err)
			}
		}
		p.subState = NeverSubscribed
	})
}

func (p *Publisher) sendSubscribe() {
	wire := p.Wire()
	if wire == nil {
		return
	}
	if err := wire.Subscribe(p.ID(), p.Request()); err != nil {
		p.Logger().Warn("Publisher subscribe failed", "node", p.ID(), "error", err)
		p.subState = Offlined
	}
}

func (p *Publisher) subscriptionContribution() Contribution {
	switch p.subState {
	case NeverSubscribed, RequestSent:
		return Contribution{Badness: health.Bad(p.reasons.Waiting, "")}
	case Reading:
		return Contribution{Badness: health.Bad(health.Reading, "")}
	case Offlined:
		return Contribution{Badness: health.Bad(health.PublisherOffline, "")}
	case Errored:
		return Contribution{Badness: health.Bad(p.reasons.Error, string(p.lastError.Type)+": "+p.lastError.Text)}
	case Synchronised:
		return Contribution{Cap: health.Good}
	default:
		errors.Unreachable("NP:SC:10010", p.subState)
		return Contribution{}
	}
}

// NoteData moves a freshly requested subscription into Reading when its first data arrives.
func (p *Publisher) NoteData() {
	if p.subState == RequestSent {
		p.subState = Reading
		p.Recalculate()
	}
}

// ProcessMessage handles the subscription control kinds shared by every publisher node.
func (p *Publisher) ProcessMessage(update datamodels.Update) {
	switch update.Kind {
	case datamodels.KindSynchronised:
		p.BeginUpdate()
		p.subState = Synchronised
		p.Recalculate()
		p.EndUpdate()
	case datamodels.KindOfflined:
		p.BeginUpdate()
		p.subState = Offlined
		p.Recalculate()
		p.EndUpdate()
	case datamodels.KindOnlined:
		p.BeginUpdate()
		if p.subState == Offlined || (p.subState == Errored && p.lastError.Retryable) {
			p.subState = RequestSent
			p.sendSubscribe()
		}
		p.Recalculate()
		p.EndUpdate()
	case datamodels.KindSubscriptionError:
		subErr := Payload[datamodels.SubscriptionError](update, "NP:PM:10011")
		p.BeginUpdate()
		p.lastError = subErr
		p.subState = Errored
		p.Logger().Warn("Subscription error", "node", p.ID(), "type", subErr.Type, "text", subErr.Text)
		p.Recalculate()
		p.EndUpdate()
	default:
		p.Base.ProcessMessage(update)
	}
}
