//go:build unit

package node

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/listchange"
)

type testRecord struct {
	key         string
	correctness health.Correctness
	destroyed   int
}

func (r *testRecord) MapKey() string { return r.key }
func (r *testRecord) Destroy()       { r.destroyed++ }

func (r *testRecord) SetListCorrectness(correctness health.Correctness) {
	r.correctness = correctness
}

// testList is a minimal publisher list keyed by feed code.
type testList struct {
	*RecordList[*testRecord]
}

func newTestList(deps Deps) *testList {
	return &testList{RecordList: NewRecordList[*testRecord](deps, PublisherReasons{
		Waiting: health.FeedsWaiting,
		Error:   health.FeedsError,
	})}
}

func (n *testList) ProcessMessage(update datamodels.Update) {
	if update.Kind != datamodels.KindFeeds {
		n.RecordList.ProcessMessage(update)
		return
	}
	n.BeginUpdate()
	defer n.EndUpdate()
	n.NoteData()
	for _, change := range update.Payload.([]datamodels.FeedChange) {
		switch change.Type {
		case datamodels.ChangeAdd:
			n.Insert(&testRecord{key: change.Code})
		case datamodels.ChangeRemove:
			if i := n.IndexOfKey(change.Code); i >= 0 {
				n.Remove(i)
			}
		case datamodels.ChangeClear:
			n.Clear()
		}
	}
}

func adds(codes ...string) datamodels.Update {
	changes := make([]datamodels.FeedChange, 0, len(codes))
	for _, code := range codes {
		changes = append(changes, datamodels.FeedChange{Type: datamodels.ChangeAdd, Code: code})
	}
	return datamodels.Update{Kind: datamodels.KindFeeds, Payload: changes}
}

func removes(codes ...string) datamodels.Update {
	changes := make([]datamodels.FeedChange, 0, len(codes))
	for _, code := range codes {
		changes = append(changes, datamodels.FeedChange{Type: datamodels.ChangeRemove, Code: code})
	}
	return datamodels.Update{Kind: datamodels.KindFeeds, Payload: changes}
}

var synchronised = datamodels.Update{Kind: datamodels.KindSynchronised}

type wireCall struct {
	subscribe bool
	nodeID    uint64
	key       string
}

type recordingWire struct {
	calls []wireCall
}

func (w *recordingWire) Subscribe(nodeID uint64, request datamodels.Request) error {
	w.calls = append(w.calls, wireCall{subscribe: true, nodeID: nodeID, key: request.Key()})
	return nil
}

func (w *recordingWire) Unsubscribe(nodeID uint64, request datamodels.Request) error {
	w.calls = append(w.calls, wireCall{nodeID: nodeID, key: request.Key()})
	return nil
}

// stubManager shares one node per request key with reference counting.
type stubManager struct {
	wire    Wire
	nextID  uint64
	nodes   map[string]Node
	refs    map[string]int
	factory func(deps Deps) Node
}

func newStubManager(wire Wire, factory func(deps Deps) Node) *stubManager {
	return &stubManager{wire: wire, nodes: map[string]Node{}, refs: map[string]int{}, factory: factory}
}

func (m *stubManager) Subscribe(request datamodels.Request) Node {
	key := request.Key()
	if n, ok := m.nodes[key]; ok {
		m.refs[key]++
		return n
	}
	m.nextID++
	n := m.factory(Deps{ID: m.nextID, Request: request, Manager: m, Wire: m.wire})
	m.nodes[key] = n
	m.refs[key] = 1
	n.Start()
	return n
}

func (m *stubManager) Unsubscribe(n Node) {
	key := n.Request().Key()
	m.refs[key]--
	if m.refs[key] == 0 {
		delete(m.nodes, key)
		delete(m.refs, key)
		n.Stop()
	}
}

// dependentNode follows an upstream testList and reports its badness ahead of its own.
type dependentNode struct {
	*Base
	upstream     *testList
	ownBadness   health.Badness
	recalculated int
}

func newDependentNode(deps Deps) *dependentNode {
	n := &dependentNode{Base: NewBase(deps)}
	n.AddContributor(RankOwn, func() Contribution {
		return Contribution{Badness: n.ownBadness, Cap: health.Good}
	})
	n.AddContributor(RankUpstream, func() Contribution {
		if n.upstream == nil {
			return Contribution{Cap: health.Good}
		}
		return Contribution{Badness: n.upstream.Badness(), Cap: n.upstream.Correctness()}
	})
	n.OnStart(func() {
		n.upstream = Acquire[*testList](n.Base, datamodels.FeedsRequest{})
		badnessID := n.upstream.SubscribeBadnessChanged(func(health.Badness) {
			n.recalculated++
			n.Recalculate()
		})
		listID := n.upstream.SubscribeListChange(n.onListChange)
		n.Defer(func() {
			n.upstream.UnsubscribeListChange(listID)
			n.upstream.UnsubscribeBadnessChanged(badnessID)
			n.upstream = nil
		})
	})
	return n
}

func (n *dependentNode) onListChange(listchange.Event) { n.Recalculate() }
