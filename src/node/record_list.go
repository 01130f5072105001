package node

import (
	"slices"

	"motifcore/src/health"
	"motifcore/src/listchange"
	"motifcore/src/multicast"
	"motifcore/src/utils/errors"
)

// Record is an entity stored in a RecordList.
// A record is created while an insertion is processed and destroyed exactly once.
type Record interface {
	MapKey() string
	Destroy()
	SetListCorrectness(correctness health.Correctness)
}

// RecordList is a publisher node that owns an ordered, keyed list of records
// and reports every population change through the listchange protocol.
type RecordList[R Record] struct {
	*Publisher

	records  []R
	byKey    map[string]R
	reserved int

	dataError health.Badness

	listChange multicast.Event[listchange.Event]
}

func NewRecordList[R Record](deps Deps, reasons PublisherReasons) *RecordList[R] {
	l := &RecordList[R]{
		Publisher: NewPublisher(deps, reasons),
		byKey:     make(map[string]R),
	}
	l.AddContributor(RankData, l.dataContribution)
	l.OnCorrectnessChanged(l.propagateCorrectness)
	l.OnUsableChanged(l.announceUsable)
	l.OnStop(l.release)
	return l
}

func (l *RecordList[R]) SubscribeListChange(handler func(listchange.Event)) multicast.ID {
	return l.listChange.Subscribe(handler)
}

func (l *RecordList[R]) UnsubscribeListChange(id multicast.ID) { l.listChange.Unsubscribe(id) }

func (l *RecordList[R]) ListChangeSubscriberCount() int { return l.listChange.Count() }

func (l *RecordList[R]) Count() int { return len(l.records) }

func (l *RecordList[R]) At(index int) R { return l.records[index] }

func (l *RecordList[R]) Get(key string) (R, bool) {
	r, ok := l.byKey[key]
	return r, ok
}

func (l *RecordList[R]) IndexOfKey(key string) int {
	if _, ok := l.byKey[key]; !ok {
		return -1
	}
	for i, r := range l.records {
		if r.MapKey() == key {
			return i
		}
	}
	return -1
}

// IndexOf finds a record by identity.
func (l *RecordList[R]) IndexOf(record R) int {
	for i, r := range l.records {
		if any(r) == any(record) {
			return i
		}
	}
	return -1
}

// Records returns a copy of the current records in list order.
func (l *RecordList[R]) Records() []R {
	return slices.Clone(l.records)
}

// Extend reserves count trailing slots and returns the index of the first.
// Every reserved slot must be filled with Set before CommitInsert.
func (l *RecordList[R]) Extend(count int) int {
	start := len(l.records)
	var zero R
	for range count {
		l.records = append(l.records, zero)
	}
	l.reserved += count
	return start
}

func (l *RecordList[R]) Set(index int, record R) {
	if index < len(l.records)-l.reserved || index >= len(l.records) {
		errors.Fatal("RL:ST:10020", "set index %d outside reserved range", index)
	}
	key := record.MapKey()
	if _, exists := l.byKey[key]; exists {
		errors.Fatal("RL:ST:10021", "duplicate record key %s", key)
	}
	l.records[index] = record
	l.byKey[key] = record
	record.SetListCorrectness(l.Correctness())
}

// CommitInsert completes a reservation. Consumers see one Insert covering it.
func (l *RecordList[R]) CommitInsert(index, count int) {
	if count == 0 {
		return
	}
	if count > l.reserved || index+count != len(l.records) {
		errors.Fatal("RL:CI:10022", "commit of %d at %d does not match reservation", count, index)
	}
	l.reserved -= count
	l.BeginUpdate()
	if l.Usable() {
		l.listChange.Trigger(listchange.NewInsert(index, count))
	}
	l.MarkChanged()
	l.EndUpdate()
}

// Insert appends a single record.
func (l *RecordList[R]) Insert(record R) int {
	index := l.Extend(1)
	l.Set(index, record)
	l.CommitInsert(index, 1)
	return index
}

func (l *RecordList[R]) Remove(index int) {
	l.BeginUpdate()
	if l.Usable() {
		l.listChange.Trigger(listchange.NewRemove(index, 1))
	}
	record := l.records[index]
	delete(l.byKey, record.MapKey())
	l.records = slices.Delete(l.records, index, index+1)
	record.Destroy()
	l.MarkChanged()
	l.EndUpdate()
}

func (l *RecordList[R]) Replace(index int, record R) {
	l.BeginUpdate()
	if l.Usable() {
		l.listChange.Trigger(listchange.NewBeforeReplace(index, 1))
	}
	old := l.records[index]
	delete(l.byKey, old.MapKey())
	l.records[index] = record
	l.byKey[record.MapKey()] = record
	old.Destroy()
	record.SetListCorrectness(l.Correctness())
	if l.Usable() {
		l.listChange.Trigger(listchange.NewAfterReplace(index, 1))
	}
	l.MarkChanged()
	l.EndUpdate()
}

func (l *RecordList[R]) Move(from, to int) {
	if from == to {
		return
	}
	l.BeginUpdate()
	if l.Usable() {
		l.listChange.Trigger(listchange.NewBeforeMove(from, 1, to))
	}
	record := l.records[from]
	l.records = slices.Delete(l.records, from, from+1)
	l.records = slices.Insert(l.records, to, record)
	if l.Usable() {
		l.listChange.Trigger(listchange.NewAfterMove(from, 1, to))
	}
	l.MarkChanged()
	l.EndUpdate()
}

func (l *RecordList[R]) Clear() {
	if len(l.records) == 0 {
		return
	}
	l.BeginUpdate()
	if l.Usable() {
		l.listChange.Trigger(listchange.NewClear(len(l.records)))
	}
	l.destroyAll()
	l.MarkChanged()
	l.EndUpdate()
}

// RejectData records malformed inbound data as an error on the list. The list stays operative.
func (l *RecordList[R]) RejectData(text string) {
	l.Logger().Warn("Rejected inbound data", "node", l.ID(), "reason", text)
	l.dataError = health.Bad(health.DataError, text)
	l.Recalculate()
}

func (l *RecordList[R]) ClearDataError() {
	if l.dataError.IsBad() {
		l.dataError = health.Healthy
		l.Recalculate()
	}
}

func (l *RecordList[R]) dataContribution() Contribution {
	return Contribution{Badness: l.dataError, Cap: health.Good}
}

func (l *RecordList[R]) propagateCorrectness(correctness health.Correctness) {
	for _, r := range l.records {
		r.SetListCorrectness(correctness)
	}
}

func (l *RecordList[R]) announceUsable(usable bool) {
	if !usable {
		l.listChange.Trigger(listchange.NewUnusable())
		return
	}
	l.listChange.Trigger(listchange.NewPreUsableClear())
	if n := len(l.records); n > 0 {
		l.listChange.Trigger(listchange.NewPreUsableAdd(0, n))
	}
	l.listChange.Trigger(listchange.NewUsable())
}

func (l *RecordList[R]) release() {
	l.destroyAll()
	l.dataError = health.Healthy
}

func (l *RecordList[R]) destroyAll() {
	records := l.records
	l.records = nil
	l.reserved = 0
	clear(l.byKey)
	for _, r := range records {
		r.Destroy()
	}
}
