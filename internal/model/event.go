package model

import "fmt"

// EventKind identifies a change notification.
type EventKind int

const (
	// EventReset means every index is invalid and the view must rebuild from scratch.
	EventReset EventKind = iota
	// EventLayoutChanged means rows may have moved; persistent indexes must be recomputed.
	EventLayoutChanged
	// EventRowsInserted carries Parent, First and Last of the new rows.
	EventRowsInserted
	// EventRowsRemoved carries Parent, First and Last of the removed rows.
	EventRowsRemoved
	// EventCellChanged carries the Index of the changed cell.
	EventCellChanged
	// EventEditRefused reports a value edit on a tag outside the whitelist. Nothing changed.
	EventEditRefused
	// EventEditFailed reports a value write the storage rejected. Nothing changed.
	EventEditFailed
)

func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventLayoutChanged:
		return "layout_changed"
	case EventRowsInserted:
		return "rows_inserted"
	case EventRowsRemoved:
		return "rows_removed"
	case EventCellChanged:
		return "cell_changed"
	case EventEditRefused:
		return "edit_refused"
	case EventEditFailed:
		return "edit_failed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to subscribers after a change has been applied.
type Event struct {
	Kind EventKind

	// Parent, First and Last describe inserted or removed rows.
	Parent      Index
	First, Last int

	// Index is the affected cell for EventCellChanged, EventEditRefused and EventEditFailed.
	Index Index
	// Err is the storage error for EventEditFailed.
	Err error
}

type subscriber struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for every event and returns a function that removes it.
// Observers may query the model but must not mutate it.
func (m *Model) Subscribe(fn func(Event)) (cancel func()) {
	m.nextID++
	id := m.nextID
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range m.subscribers {
			if s.id == id {
				m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) emit(ev Event) {
	m.notifying++
	defer func() { m.notifying-- }()
	// Copy so that subscribing or cancelling from a callback is safe.
	subs := append([]subscriber(nil), m.subscribers...)
	for _, s := range subs {
		s.fn(ev)
	}
}
