package incubator

import (
	"log/slog"

	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/multicast"
	"motifcore/src/node"
	"motifcore/src/utils/errors"
)

// Incubator acquires one node at a time through the manager and hands it over
// once it is usable. A completed node's subscription belongs to the caller,
// who must release it with Manager.Unsubscribe.
type Incubator[N node.Node] struct {
	manager node.Manager
	logger  *slog.Logger

	pending   *Cell[N]
	node      N
	badnessID multicast.ID
}

func New[N node.Node](manager node.Manager, logger *slog.Logger) *Incubator[N] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Incubator[N]{manager: manager, logger: logger}
}

// Incubate subscribes to request. An already usable node is returned with a nil cell;
// otherwise the returned cell resolves when the node becomes usable or the request is superseded.
func (i *Incubator[N]) Incubate(request datamodels.Request) (N, *Cell[N]) {
	i.Cancel()

	var zero N
	served := i.manager.Subscribe(request)
	n, ok := served.(N)
	if !ok {
		i.manager.Unsubscribe(served)
		errors.Fatal("IN:IC:10030", "request %s served by unexpected %T", request.Key(), served)
	}
	if n.Usable() {
		return n, nil
	}

	cell := NewCell[N]()
	i.pending = cell
	i.node = n
	i.badnessID = n.SubscribeBadnessChanged(func(b health.Badness) {
		if b.IsUsable() {
			i.hatch()
		}
	})
	i.logger.Debug("Incubating", "request", request.Key(), "badness", n.Badness().String())
	return zero, cell
}

func (i *Incubator[N]) Incubating() bool { return i.pending != nil }

// Cancel resolves the pending cell as cancelled and releases its node.
func (i *Incubator[N]) Cancel() {
	if i.pending == nil {
		return
	}
	cell, n := i.detach()
	i.manager.Unsubscribe(n)
	cell.Cancel()
}

func (i *Incubator[N]) hatch() {
	cell, n := i.detach()
	cell.Complete(n)
}

func (i *Incubator[N]) detach() (*Cell[N], N) {
	var zero N
	cell, n := i.pending, i.node
	n.UnsubscribeBadnessChanged(i.badnessID)
	i.pending = nil
	i.node = zero
	i.badnessID = 0
	return cell, n
}
