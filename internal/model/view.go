package model

import (
	"cmp"
	"slices"
	"time"
)

// View selects which half of a user's todos is being displayed.
type View string

const (
	ViewUnchecked View = "unchecked"
	ViewChecked   View = "checked"
)

// Valid reports whether v names a known view.
func (v View) Valid() bool {
	return v == ViewUnchecked || v == ViewChecked
}

// Arrange returns the todos belonging to view in display order without
// touching the input slice.
//
// Unchecked todos are sorted oldest first; checked todos newest first. Todos
// whose timestamp cannot be parsed go after every dated todo in either view
// and keep their relative order. The subtasks of every returned todo are
// ordered by SortSubtasks.
func Arrange(todos []Todo, view View) []Todo {
	wantCompleted := view == ViewChecked

	type dated struct {
		todo Todo
		at   time.Time
		ok   bool
	}
	keyed := make([]dated, 0, len(todos))
	for _, t := range todos {
		if t.Completed != wantCompleted {
			continue
		}
		t.Subtasks = SortSubtasks(t.Subtasks)
		at, err := ParseTimestamp(t.Timestamp, time.UTC)
		keyed = append(keyed, dated{todo: t, at: at, ok: err == nil})
	}

	slices.SortStableFunc(keyed, func(a, b dated) int {
		switch {
		case !a.ok && !b.ok:
			return 0
		case !a.ok:
			return 1
		case !b.ok:
			return -1
		case wantCompleted:
			return b.at.Compare(a.at)
		default:
			return a.at.Compare(b.at)
		}
	})

	out := make([]Todo, len(keyed))
	for i, k := range keyed {
		out[i] = k.todo
	}
	return out
}

// SortSubtasks returns a copy of subtasks with completed entries first.
// Entries with the same completion state keep their original order.
func SortSubtasks(subtasks []Subtask) []Subtask {
	out := slices.Clone(subtasks)
	if out == nil {
		out = []Subtask{}
	}
	slices.SortStableFunc(out, func(a, b Subtask) int {
		return cmp.Compare(rank(a.Completed), rank(b.Completed))
	})
	return out
}

func rank(completed bool) int {
	if completed {
		return 0
	}
	return 1
}
