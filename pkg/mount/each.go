package mount

import (
	"strconv"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/surface"
)

type itemEntry struct {
	key   string
	scope *reactive.Scope
	item  *reactive.Signal[any]
	index *reactive.Signal[any]
	block block
}

type eachBlock struct {
	region
	items []*itemEntry
}

func (b *eachBlock) nodes() []surface.Node {
	var out []surface.Node
	for _, it := range b.items {
		out = append(out, it.block.nodes()...)
	}
	return append(out, b.anchor)
}

func (m *Mount) mountEach(x *spec.Each, sc *reactive.Scope, e env, parent, before surface.Node) (block, error) {
	r, err := m.openRegion(parent, before)
	if err != nil {
		return nil, err
	}
	eb := &eachBlock{region: r}

	_, err = sc.Effect(func() error {
		v, err := m.read(x.Source, e)
		if err != nil {
			return err
		}
		list, ok := v.([]any)
		if !ok && v != nil {
			return errors.Newf("E104", "%s is %T, not a list", x.Source, v)
		}
		keys, err := ItemKeys(list, x.Key)
		if err != nil {
			return err
		}
		m.rt.Untracked(func() {
			m.rt.Batch(func() {
				err = m.reconcile(eb, x, list, keys, sc)
			})
		})
		return err
	})
	if err != nil {
		for _, it := range eb.items {
			m.disposeItem(eb, it)
		}
		eb.items = nil
		m.closeRegion(r)
		return nil, err
	}
	return eb, nil
}

// ItemKeys computes the reconciliation key of every item: the value of
// the key field, or the position when there is none.
func ItemKeys(list []any, field string) ([]string, error) {
	keys := make([]string, len(list))
	seen := make(map[string]int, len(list))
	for i, item := range list {
		if field == "" {
			keys[i] = strconv.Itoa(i)
			continue
		}
		v, ok := spec.Lookup(item, []string{field})
		if !ok {
			return nil, errors.Newf("E106", "item %d has no %q field", i, field)
		}
		key := keyString(v)
		if j, dup := seen[key]; dup {
			return nil, errors.Newf("E106", "items %d and %d share the key %s", j, i, spec.FormatValue(v))
		}
		seen[key] = i
		keys[i] = key
	}
	return keys, nil
}

func keyString(v any) string {
	if s, ok := v.(string); ok {
		return "s:" + s
	}
	return "v:" + spec.FormatValue(v)
}

// reconcile brings the live items in line with list. Items whose key
// survives keep their scope and nodes; their item and index signals are
// updated so bound content re-renders in place.
func (m *Mount) reconcile(eb *eachBlock, x *spec.Each, list []any, keys []string, sc *reactive.Scope) error {
	prevPos := make(map[*itemEntry]int, len(eb.items))
	byKey := make(map[string]*itemEntry, len(eb.items))
	for i, it := range eb.items {
		prevPos[it] = i
		byKey[it.key] = it
	}

	next := make([]*itemEntry, len(list))
	for i, key := range keys {
		if it, ok := byKey[key]; ok {
			delete(byKey, key)
			it.item.Set(list[i])
			it.index.Set(float64(i))
			next[i] = it
		}
	}
	for _, it := range eb.items {
		if _, removed := byKey[it.key]; removed {
			m.disposeItem(eb, it)
		}
	}

	var seq []int
	var seqItems []*itemEntry
	for _, it := range next {
		if it != nil {
			seq = append(seq, prevPos[it])
			seqItems = append(seqItems, it)
		}
	}
	stay := make(map[*itemEntry]bool, len(seq))
	for _, j := range longestIncreasing(seq) {
		stay[seqItems[j]] = true
	}

	cursor := eb.anchor
	for i := len(list) - 1; i >= 0; i-- {
		it := next[i]
		switch {
		case it == nil:
			var err error
			if it, err = m.mountItem(eb, x, list[i], i, keys[i], sc, cursor); err != nil {
				eb.items = compact(next)
				return err
			}
			next[i] = it
		case !stay[it]:
			if err := m.moveBefore(eb.parent, it.block.nodes(), cursor); err != nil {
				eb.items = compact(next)
				return err
			}
		}
		cursor = it.block.nodes()[0]
	}
	eb.items = next
	return nil
}

func (m *Mount) mountItem(eb *eachBlock, x *spec.Each, item any, i int, key string, sc *reactive.Scope, before surface.Node) (*itemEntry, error) {
	it := &itemEntry{
		key:   key,
		scope: sc.Child(),
		item:  m.store.Internal(item),
		index: m.store.Internal(float64(i)),
	}
	it.scope.OnCleanup(func() {
		m.store.DropInternal(it.item)
		m.store.DropInternal(it.index)
	})
	ie := env{item: it.item, index: it.index, keyField: x.Key}
	blk, err := m.mountNode(x.Template, it.scope, ie, eb.parent, before)
	if err != nil {
		it.scope.Dispose()
		return nil, err
	}
	it.block = blk
	return it, nil
}

func (m *Mount) disposeItem(eb *eachBlock, it *itemEntry) {
	it.scope.Dispose()
	m.removeBlocks(eb.parent, []block{it.block})
}

func compact(items []*itemEntry) []*itemEntry {
	out := items[:0]
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}

// longestIncreasing returns the positions in seq of one longest strictly
// increasing subsequence, in ascending order.
func longestIncreasing(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}
	// tails[k] is the position of the smallest tail of an increasing
	// subsequence of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	out := make([]int, len(tails))
	for k, i := len(tails)-1, tails[len(tails)-1]; k >= 0; k, i = k-1, prev[i] {
		out[k] = i
	}
	return out
}
