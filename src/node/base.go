package node

import (
	"log/slog"
	"sort"

	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/multicast"
	"motifcore/src/utils/errors"
)

// Ranks order badness contributors; lower ranks are more urgent.
const (
	RankUpstream  = 10
	RankOwn       = 30
	RankData      = 40
	RankPublisher = 50
)

// Contribution is one contributor's view of the node's health. A usable
// contribution may still cap correctness, e.g. at Usable for a closed feed.
type Contribution struct {
	Badness health.Badness
	Cap     health.Correctness
}

type Contributor func() Contribution

type rankedContributor struct {
	rank int
	fn   Contributor
}

// Base carries the lifecycle and health every node shares.
// Concrete nodes embed it and register hooks and contributors in their constructor.
type Base struct {
	deps  Deps
	state State

	badness     health.Badness
	correctness health.Correctness

	contributors []rankedContributor
	teardowns    []func()

	startHooks       []func()
	stopHooks        []func()
	usableHooks      []func(usable bool)
	correctnessHooks []func(health.Correctness)

	updateCount int
	changed     bool

	badnessChanged     multicast.Event[health.Badness]
	correctnessChanged multicast.Event[health.Correctness]
	updated            multicast.Signal
}

func NewBase(deps Deps) *Base {
	deps = deps.withDefaults()
	inactive := health.Bad(health.Inactive, "")
	return &Base{
		deps:        deps,
		badness:     inactive,
		correctness: inactive.Correctness(),
	}
}

func (b *Base) ID() uint64                  { return b.deps.ID }
func (b *Base) Request() datamodels.Request { return b.deps.Request }
func (b *Base) State() State                { return b.state }
func (b *Base) Active() bool                { return b.state == Active }
func (b *Base) Logger() *slog.Logger        { return b.deps.Logger }
func (b *Base) Manager() Manager            { return b.deps.Manager }
func (b *Base) Wire() Wire                  { return b.deps.Wire }
func (b *Base) Recorder() StatusRecorder    { return b.deps.Recorder }

func (b *Base) Badness() health.Badness         { return b.badness }
func (b *Base) Correctness() health.Correctness { return b.correctness }
func (b *Base) Usable() bool                    { return b.badness.IsUsable() }

func (b *Base) SubscribeBadnessChanged(handler func(health.Badness)) multicast.ID {
	return b.badnessChanged.Subscribe(handler)
}

func (b *Base) UnsubscribeBadnessChanged(id multicast.ID) { b.badnessChanged.Unsubscribe(id) }

func (b *Base) SubscribeCorrectnessChanged(handler func(health.Correctness)) multicast.ID {
	return b.correctnessChanged.Subscribe(handler)
}

func (b *Base) UnsubscribeCorrectnessChanged(id multicast.ID) { b.correctnessChanged.Unsubscribe(id) }

func (b *Base) SubscribeUpdated(handler func(struct{})) multicast.ID {
	return b.updated.Subscribe(handler)
}

func (b *Base) UnsubscribeUpdated(id multicast.ID) { b.updated.Unsubscribe(id) }

// SubscriberCounts reports how many handlers are attached to the health events.
func (b *Base) SubscriberCounts() (badness, correctness, updated int) {
	return b.badnessChanged.Count(), b.correctnessChanged.Count(), b.updated.Count()
}

// OnStart registers work run by Start, in registration order.
func (b *Base) OnStart(hook func()) { b.startHooks = append(b.startHooks, hook) }

// OnStop registers work run by Stop after every Defer teardown has run.
func (b *Base) OnStop(hook func()) { b.stopHooks = append(b.stopHooks, hook) }

// OnUsableChanged registers a hook run on every usable/unusable transition,
// before the badness and correctness events fire.
func (b *Base) OnUsableChanged(hook func(usable bool)) {
	b.usableHooks = append(b.usableHooks, hook)
}

// OnCorrectnessChanged registers a hook run whenever correctness changes,
// before any other notification.
func (b *Base) OnCorrectnessChanged(hook func(health.Correctness)) {
	b.correctnessHooks = append(b.correctnessHooks, hook)
}

// AddContributor inserts a badness contributor. Contributors of equal rank keep registration order.
func (b *Base) AddContributor(rank int, fn Contributor) {
	b.contributors = append(b.contributors, rankedContributor{rank: rank, fn: fn})
	sort.SliceStable(b.contributors, func(i, j int) bool {
		return b.contributors[i].rank < b.contributors[j].rank
	})
}

// Defer registers a teardown for something acquired while starting.
// Stop runs teardowns in reverse registration order.
func (b *Base) Defer(teardown func()) {
	if b.state != Starting && b.state != Active {
		errors.Fatal("NB:DF:10001", "node %d deferring teardown while %s", b.deps.ID, b.state)
	}
	b.teardowns = append(b.teardowns, teardown)
}

func (b *Base) Start() {
	if b.state != Inactive {
		errors.Fatal("NB:ST:10002", "node %d started while %s", b.deps.ID, b.state)
	}
	b.BeginUpdate()
	b.state = Starting
	for _, hook := range b.startHooks {
		hook()
	}
	b.state = Active
	b.Recalculate()
	b.EndUpdate()
}

func (b *Base) Stop() {
	if b.state != Active {
		errors.Fatal("NB:SP:10003", "node %d stopped while %s", b.deps.ID, b.state)
	}
	b.BeginUpdate()
	b.state = Stopping
	for i := len(b.teardowns) - 1; i >= 0; i-- {
		b.teardowns[i]()
	}
	b.teardowns = nil
	b.setBadness(health.Bad(health.Inactive, ""), health.Good)
	for _, hook := range b.stopHooks {
		hook()
	}
	b.state = Inactive
	b.EndUpdate()
}

// BeginUpdate opens a batch. Batches nest; the Updated event fires once when
// the outermost batch ends, and only if something changed inside it.
func (b *Base) BeginUpdate() {
	b.updateCount++
}

func (b *Base) EndUpdate() {
	if b.updateCount == 0 {
		errors.Fatal("NB:EU:10004", "node %d EndUpdate without BeginUpdate", b.deps.ID)
	}
	b.updateCount--
	if b.updateCount == 0 && b.changed {
		b.changed = false
		multicast.Fire(&b.updated)
	}
}

func (b *Base) Updating() bool { return b.updateCount > 0 }

// MarkChanged records a change for the current batch.
func (b *Base) MarkChanged() {
	b.BeginUpdate()
	b.changed = true
	b.EndUpdate()
}

// Recalculate runs the contributor chain and applies the result.
// The first bad contribution wins; usable contributions merge their caps.
func (b *Base) Recalculate() {
	if b.state != Active {
		return
	}
	badness := health.Healthy
	capped := health.Good
	for _, c := range b.contributors {
		contribution := c.fn()
		if contribution.Badness.IsBad() {
			badness = contribution.Badness
			break
		}
		capped = health.Merge(capped, contribution.Cap)
	}
	b.setBadness(badness, capped)
}

func (b *Base) setBadness(badness health.Badness, capped health.Correctness) {
	correctness := capped
	if badness.IsBad() {
		correctness = badness.Correctness()
	}

	badnessChanged := !badness.Equal(b.badness)
	correctnessChanged := correctness != b.correctness
	if !badnessChanged && !correctnessChanged {
		return
	}

	b.BeginUpdate()
	wasUsable := b.badness.IsUsable()
	b.badness = badness
	b.correctness = correctness
	b.changed = true

	if correctnessChanged {
		for _, hook := range b.correctnessHooks {
			hook(correctness)
		}
	}
	if usable := badness.IsUsable(); usable != wasUsable {
		if usable {
			b.deps.Logger.Debug("Node usable", "node", b.deps.ID, "correctness", correctness)
		} else {
			b.deps.Logger.Debug("Node unusable", "node", b.deps.ID, "badness", badness.String())
		}
		for _, hook := range b.usableHooks {
			hook(usable)
		}
	}
	if badnessChanged {
		b.badnessChanged.Trigger(badness)
	}
	if correctnessChanged {
		b.correctnessChanged.Trigger(correctness)
	}
	b.EndUpdate()
}

// ProcessMessage is the end of every dispatch chain: a kind that reaches it was not handled by anyone.
func (b *Base) ProcessMessage(update datamodels.Update) {
	errors.Fatal("NB:PM:10005", "node %d (%s) cannot process %s", b.deps.ID, b.requestKey(), update.Kind)
}

// Payload returns the update's payload as T. Decoding fixes the payload type per kind,
// so any other type is a programmer error.
func Payload[T any](update datamodels.Update, code string) T {
	payload, ok := update.Payload.(T)
	if !ok {
		errors.Fatal(code, "%s payload is %T, want %T", update.Kind, update.Payload, payload)
	}
	return payload
}

func (b *Base) requestKey() string {
	if b.deps.Request == nil {
		return "?"
	}
	return b.deps.Request.Key()
}

// Acquire subscribes to an upstream node through the manager and defers the matching unsubscribe.
func Acquire[T Node](b *Base, request datamodels.Request) T {
	if b.deps.Manager == nil {
		errors.Fatal("NB:AQ:10006", "node %d has no manager to acquire %s", b.deps.ID, request.Key())
	}
	n := b.deps.Manager.Subscribe(request)
	typed, ok := n.(T)
	if !ok {
		b.deps.Manager.Unsubscribe(n)
		errors.Fatal("NB:AQ:10007", "request %s served by unexpected %T", request.Key(), n)
	}
	b.Defer(func() { b.deps.Manager.Unsubscribe(n) })
	return typed
}
