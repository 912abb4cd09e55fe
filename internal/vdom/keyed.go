package vdom

import (
	"fmt"
	"sort"

	"loom/internal/mutation"
	"loom/internal/trace"
)

// diffKeyed reconciles keyed children. Unchanged prefix and suffix are
// diffed in place; in the middle, children on the longest run that kept its
// relative order stay put and every other child is moved or created in a
// single insert.
func (d *VirtualDom) diffKeyed(s *Scope, ref parentRef, old, new []*VNode, w mutation.Writer) {
	start := 0
	for start < len(old) && start < len(new) && old[start].Key == new[start].Key {
		d.diffNode(s, old[start], new[start], w)
		start++
	}
	oldEnd, newEnd := len(old), len(new)
	for oldEnd > start && newEnd > start && old[oldEnd-1].Key == new[newEnd-1].Key {
		d.diffNode(s, old[oldEnd-1], new[newEnd-1], w)
		oldEnd--
		newEnd--
	}

	if d.tracer.Level().Allows(trace.LayerNode) {
		trace.Point(d.tracer, trace.LayerNode, "keyed",
			fmt.Sprintf("old=%d new=%d prefix=%d suffix=%d", len(old), len(new), start, len(new)-newEnd), d.cycleSpan)
	}
	switch {
	case start == oldEnd && start == newEnd:
		return
	case start == oldEnd:
		roots := d.createChildren(s, new[start:newEnd], ref, w)
		if start > 0 {
			w.Write(mutation.InsertAfter(d.lastRoot(new[start-1]), roots))
		} else {
			w.Write(mutation.InsertBefore(d.firstRoot(new[newEnd]), roots))
		}
		return
	case start == newEnd:
		for _, o := range old[start:oldEnd] {
			d.removeVNode(o, w)
		}
		return
	}
	d.diffKeyedMiddle(s, ref, old[start:oldEnd], new[start:newEnd], new[newEnd:], w)
}

func (d *VirtualDom) diffKeyedMiddle(s *Scope, ref parentRef, old, new, suffix []*VNode, w mutation.Writer) {
	oldIndex := make(map[string]int, len(old))
	for i, o := range old {
		oldIndex[o.Key] = i
	}
	newToOld := make([]int, len(new))
	used := make([]bool, len(old))
	shared, lastOld := 0, -1
	for i, v := range new {
		j, ok := oldIndex[v.Key]
		if !ok {
			newToOld[i] = -1
			continue
		}
		newToOld[i] = j
		used[j] = true
		shared++
		lastOld = max(lastOld, j)
	}

	if shared == 0 {
		var oldRoots []ElementID
		for _, o := range old {
			oldRoots = append(oldRoots, d.rootIDs(o)...)
		}
		roots := d.createChildren(s, new, ref, w)
		d.swap(oldRoots, roots, w)
		for _, o := range old {
			d.cleanupVNode(o)
		}
		return
	}

	for j, o := range old {
		if !used[j] {
			d.removeVNode(o, w)
		}
	}
	var tail *VNode
	for i, j := range newToOld {
		if j < 0 {
			continue
		}
		d.diffNode(s, old[j], new[i], w)
		if j == lastOld {
			tail = new[i]
		}
	}

	stay := increasingRun(newToOld)
	for i := len(new) - 1; i >= 0; i-- {
		if stay[i] {
			continue
		}
		v := new[i]
		var roots []ElementID
		if newToOld[i] < 0 {
			roots = d.createVNode(s, v, ref, w)
		} else {
			roots = d.rootIDs(v)
		}
		switch {
		case i+1 < len(new):
			w.Write(mutation.InsertBefore(d.firstRoot(new[i+1]), roots))
		case len(suffix) > 0:
			w.Write(mutation.InsertBefore(d.firstRoot(suffix[0]), roots))
		default:
			w.Write(mutation.InsertAfter(d.lastRoot(tail), roots))
		}
	}
}

// increasingRun marks one longest strictly increasing subsequence of seq,
// ignoring negative entries.
func increasingRun(seq []int) []bool {
	keep := make([]bool, len(seq))
	prev := make([]int, len(seq))
	var tails []int
	for i, v := range seq {
		if v < 0 {
			continue
		}
		j := sort.Search(len(tails), func(k int) bool { return seq[tails[k]] >= v })
		prev[i] = -1
		if j > 0 {
			prev[i] = tails[j-1]
		}
		if j == len(tails) {
			tails = append(tails, i)
		} else {
			tails[j] = i
		}
	}
	if len(tails) == 0 {
		return keep
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}
