// Package manager owns every live node: it deduplicates requests, counts
// references, assigns node ids and routes inbound updates to their node.
package manager

import (
	"log/slog"
	"sort"

	"motifcore/src/datamodels"
	"motifcore/src/node"
	"motifcore/src/utils/errors"
)

var (
	ErrNodeNotFound      = errors.Sentinel("no node with that id")
	ErrNoFactory         = errors.Sentinel("no factory registered for channel")
	ErrManagerClosed     = errors.Sentinel("manager closed")
	errUnknownSubscriber = "unsubscribe of a node the manager does not hold"
)

type entry struct {
	node node.Node
	refs int
}

// Manager is not safe for concurrent use. Everything that touches nodes runs
// on one goroutine, normally the publisher Pump.
type Manager struct {
	logger   *slog.Logger
	wire     node.Wire
	recorder node.StatusRecorder

	factories map[datamodels.Channel]node.Factory
	byKey     map[string]*entry
	byID      map[uint64]*entry
	lastID    uint64
	closing   bool
	closed    bool
}

func New(logger *slog.Logger, wire node.Wire, recorder node.StatusRecorder) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:    logger,
		wire:      wire,
		recorder:  recorder,
		factories: make(map[datamodels.Channel]node.Factory),
		byKey:     make(map[string]*entry),
		byID:      make(map[uint64]*entry),
	}
}

// SetWire attaches the publisher connection. Nodes started afterwards subscribe through it.
func (m *Manager) SetWire(wire node.Wire) { m.wire = wire }

func (m *Manager) Register(channel datamodels.Channel, factory node.Factory) {
	m.factories[channel] = factory
}

// Subscribe returns the node serving request, creating and starting it on first use.
func (m *Manager) Subscribe(request datamodels.Request) node.Node {
	if m.closed {
		errors.Fatal("MG:SB:10050", "subscribe to %s after close", request.Key())
	}
	key := request.Key()
	if e, ok := m.byKey[key]; ok {
		e.refs++
		return e.node
	}
	factory, ok := m.factories[request.Channel()]
	if !ok {
		errors.Fatal("MG:SB:10051", "%v: %s", ErrNoFactory, request.Channel())
	}

	m.lastID++
	id := m.lastID
	deps := node.Deps{
		ID:       id,
		Request:  request,
		Manager:  m,
		Logger:   m.logger.With("node", id, "channel", string(request.Channel())),
		Recorder: m.recorder,
	}
	if request.Channel().IsPublished() {
		deps.Wire = m.wire
	}
	n := factory(deps)
	e := &entry{node: n, refs: 1}
	m.byKey[key] = e
	m.byID[id] = e
	m.logger.Debug("Node created", "node", id, "request", key)
	n.Start()
	return n
}

// Unsubscribe releases one reference and stops the node when none remain.
func (m *Manager) Unsubscribe(n node.Node) {
	key := n.Request().Key()
	e, ok := m.byKey[key]
	if !ok && m.closing {
		return
	}
	if !ok || e.node != n {
		errors.Fatal("MG:US:10052", "%s: %s", errUnknownSubscriber, key)
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(m.byKey, key)
	delete(m.byID, n.ID())
	n.Stop()
	m.logger.Debug("Node disposed", "node", n.ID(), "request", key)
}

// Dispatch hands an update to the node it is addressed to. Updates for nodes
// already disposed are normal after an unsubscribe and are dropped.
func (m *Manager) Dispatch(update datamodels.Update) error {
	e, ok := m.byID[update.NodeID]
	if !ok {
		m.logger.Debug("Dropping update for unknown node", "node", update.NodeID, "kind", update.Kind)
		return errors.Wrapf(ErrNodeNotFound, "node %d", update.NodeID)
	}
	e.node.ProcessMessage(update)
	return nil
}

// DispatchChannel delivers update to every node on channel.
func (m *Manager) DispatchChannel(channel datamodels.Channel, update datamodels.Update) int {
	delivered := 0
	for _, n := range m.nodesWhere(func(n node.Node) bool { return n.Request().Channel() == channel }) {
		update.NodeID = n.ID()
		n.ProcessMessage(update)
		delivered++
	}
	return delivered
}

// Broadcast sends a control kind such as onlined or offlined to every published node.
func (m *Manager) Broadcast(kind datamodels.UpdateKind) {
	for _, n := range m.nodesWhere(func(n node.Node) bool { return n.Request().Channel().IsPublished() }) {
		if n.State() != node.Active {
			continue
		}
		n.ProcessMessage(datamodels.Update{NodeID: n.ID(), Kind: kind})
	}
}

// nodesWhere snapshots matching nodes in id order, so handlers may subscribe or unsubscribe while iterating.
func (m *Manager) nodesWhere(match func(node.Node) bool) []node.Node {
	var out []node.Node
	for _, e := range m.byID {
		if match(e.node) {
			out = append(out, e.node)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (m *Manager) Lookup(request datamodels.Request) (node.Node, bool) {
	e, ok := m.byKey[request.Key()]
	if !ok {
		return nil, false
	}
	return e.node, true
}

func (m *Manager) RefCount(request datamodels.Request) int {
	if e, ok := m.byKey[request.Key()]; ok {
		return e.refs
	}
	return 0
}

func (m *Manager) Nodes() []node.Node {
	return m.nodesWhere(func(node.Node) bool { return true })
}

// Close stops every node regardless of reference counts. Upstream releases
// from nodes stopping during Close are ignored for nodes already stopped.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closing = true
	nodes := m.Nodes()
	for _, n := range nodes {
		if _, live := m.byID[n.ID()]; !live {
			continue
		}
		delete(m.byKey, n.Request().Key())
		delete(m.byID, n.ID())
		if n.State() == node.Active {
			n.Stop()
		}
	}
	m.closing = false
	m.closed = true
	m.logger.Info("Subscription manager closed", "nodes", len(nodes))
}
