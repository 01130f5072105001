package feeds

import (
	"motifcore/src/datamodels"
	"motifcore/src/health"
	"motifcore/src/node"
	"motifcore/src/utils/errors"
)

// OrderStatus is one order status a trading feed may report.
type OrderStatus struct {
	Code            string
	Display         string
	IsDeletedOrDone bool
	AllowedSides    []string

	correctness health.Correctness
	destroyed   bool
}

func (s *OrderStatus) MapKey() string                  { return s.Code }
func (s *OrderStatus) Destroy()                        { s.destroyed = true }
func (s *OrderStatus) Correctness() health.Correctness { return s.correctness }

func (s *OrderStatus) SetListCorrectness(correctness health.Correctness) {
	s.correctness = correctness
}

func (s *OrderStatus) apply(change datamodels.OrderStatusChange) {
	change.Display.ApplyTo(&s.Display)
	change.IsDeletedOrDone.ApplyTo(&s.IsDeletedOrDone)
	change.AllowedSides.ApplyTo(&s.AllowedSides)
}

// OrderStatusesNode lists the order statuses of one trading feed.
type OrderStatusesNode struct {
	*node.RecordList[*OrderStatus]
	feedCode string
}

func NewOrderStatusesNode(deps node.Deps) node.Node {
	request, ok := deps.Request.(datamodels.OrderStatusesRequest)
	if !ok {
		errors.Fatal("FD:OS:10042", "order statuses node built for %T", deps.Request)
	}
	return &OrderStatusesNode{
		RecordList: node.NewRecordList[*OrderStatus](deps, node.PublisherReasons{
			Waiting: health.OrderStatusesWaiting,
			Error:   health.OrderStatusesError,
		}),
		feedCode: request.FeedCode,
	}
}

func (n *OrderStatusesNode) FeedCode() string { return n.feedCode }

func (n *OrderStatusesNode) ProcessMessage(update datamodels.Update) {
	if update.Kind != datamodels.KindOrderStatuses {
		n.RecordList.ProcessMessage(update)
		return
	}
	changes := node.Payload[[]datamodels.OrderStatusChange](update, "FD:PM:10044")
	n.BeginUpdate()
	defer n.EndUpdate()
	n.NoteData()
	for _, change := range changes {
		switch change.Type {
		case datamodels.ChangeAdd, datamodels.ChangeUpdate:
			n.upsert(change)
		case datamodels.ChangeRemove:
			if index := n.IndexOfKey(change.Code); index >= 0 {
				n.Remove(index)
			}
		case datamodels.ChangeClear:
			n.Clear()
			n.ClearDataError()
		default:
			n.RejectData("unknown order status change " + string(change.Type))
		}
	}
}

// Order statuses are reference data, so an add for a known code is treated as an update.
func (n *OrderStatusesNode) upsert(change datamodels.OrderStatusChange) {
	if change.Code == "" {
		n.RejectData("order status without code on feed " + n.feedCode)
		return
	}
	index := n.IndexOfKey(change.Code)
	if index < 0 {
		if change.Type == datamodels.ChangeUpdate {
			n.RejectData("update for unknown order status " + change.Code)
			return
		}
		status := &OrderStatus{Code: change.Code}
		status.apply(change)
		n.Insert(status)
		return
	}
	updated := *n.At(index)
	updated.apply(change)
	n.Replace(index, &updated)
}
