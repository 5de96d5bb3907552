package sim

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// eventKey orders pending wake-ups: wake time first, then scheduling
// sequence so that equal wake times are dispatched first-scheduled-first.
type eventKey struct {
	at  float64
	seq uint64
}

func compareEventKeys(a, b any) int {
	ka, kb := a.(eventKey), b.(eventKey)
	switch {
	case ka.at < kb.at:
		return -1
	case ka.at > kb.at:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// eventList holds the pending wake-up of every Active-Waiting process.
// A process owns at most one entry; the Proc keeps its key so the entry
// can be replaced when the process is re-armed.
type eventList struct {
	tree *redblacktree.Tree
}

func newEventList() *eventList {
	return &eventList{tree: redblacktree.NewWith(compareEventKeys)}
}

func (l *eventList) insert(k eventKey, p *Proc) {
	l.tree.Put(k, p)
}

func (l *eventList) remove(k eventKey) {
	l.tree.Remove(k)
}

// popFirst removes and returns the earliest entry.
func (l *eventList) popFirst() (eventKey, *Proc, bool) {
	node := l.tree.Left()
	if node == nil {
		return eventKey{}, nil, false
	}
	k := node.Key.(eventKey)
	p := node.Value.(*Proc)
	l.tree.Remove(k)
	return k, p, true
}

// peek returns the earliest entry's key without removing it.
func (l *eventList) peek() (eventKey, bool) {
	node := l.tree.Left()
	if node == nil {
		return eventKey{}, false
	}
	return node.Key.(eventKey), true
}

// Len returns the number of pending events.
func (l *eventList) Len() int {
	return l.tree.Size()
}
