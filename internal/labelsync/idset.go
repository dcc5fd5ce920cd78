package labelsync

import "sort"

// IDSet is a set of email or label ids.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) Remove(id string) {
	delete(s, id)
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Diff is the correction reconciliation computes for one label.
type Diff struct {
	ToAdd    IDSet
	ToRemove IDSet
}

func emptyDiff() Diff {
	return Diff{ToAdd: IDSet{}, ToRemove: IDSet{}}
}

func (d Diff) Empty() bool {
	return d.ToAdd.Len() == 0 && d.ToRemove.Len() == 0
}

// Apply returns current with the diff applied; current is not modified.
func (d Diff) Apply(current IDSet) IDSet {
	out := make(IDSet, len(current)+len(d.ToAdd))
	for id := range current {
		if !d.ToRemove.Has(id) {
			out.Add(id)
		}
	}
	for id := range d.ToAdd {
		out.Add(id)
	}
	return out
}
