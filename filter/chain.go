package filter

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opencensus.io/trace"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/frame"
)

// Chain holds the pre-mapping and post-mapping filters, each list kept sorted by ordinal.
// Filter names are unique across both stages since they name cache stages.
type Chain struct {
	pre  []Filter
	post []Filter
}

// NewChain returns a chain holding the given filters. Filters sharing an ordinal keep the
// order they were given in and are renumbered upward to stay unique.
func NewChain(filters ...Filter) (*Chain, error) {
	c := &Chain{}
	for _, f := range filters {
		if err := c.checkName(f.Name()); err != nil {
			return nil, err
		}
		list := c.list(f.Stage())
		*list = append(*list, f)
	}
	for _, stage := range []Stage{PreMapping, PostMapping} {
		list := *c.list(stage)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Ordinal() < list[j].Ordinal() })
		c.separate(stage, 1)
	}
	return c, nil
}

func (c *Chain) list(stage Stage) *[]Filter {
	if stage == PostMapping {
		return &c.post
	}
	return &c.pre
}

func (c *Chain) checkName(name string) error {
	if name == cache.StageMapped || name == cache.StageResult {
		return errors.Errorf("filter name %q is reserved", name)
	}
	if _, ok := c.Get(name); ok {
		return errors.Errorf("a filter named %q is already in the chain", name)
	}
	return nil
}

// Add inserts f into its stage after every filter with an ordinal not above its own. If its
// ordinal collides, f and the filters after it are shifted up so ordinals stay unique.
func (c *Chain) Add(f Filter) error {
	if err := c.checkName(f.Name()); err != nil {
		return err
	}
	list := c.list(f.Stage())
	idx := sort.Search(len(*list), func(i int) bool { return (*list)[i].Ordinal() > f.Ordinal() })
	*list = append(*list, nil)
	copy((*list)[idx+1:], (*list)[idx:])
	(*list)[idx] = f
	c.separate(f.Stage(), max(idx, 1))
	return nil
}

// separate raises ordinals from position from onward until each is above its predecessor.
func (c *Chain) separate(stage Stage, from int) {
	list := *c.list(stage)
	for i := from; i < len(list); i++ {
		if prev := list[i-1].Ordinal(); list[i].Ordinal() <= prev {
			list[i].SetOrdinal(prev + 1)
		}
	}
}

// Remove removes the named filter, returning whether it was present.
func (c *Chain) Remove(name string) bool {
	for _, stage := range []Stage{PreMapping, PostMapping} {
		list := c.list(stage)
		if _, idx, ok := lo.FindIndexOf(*list, byName(name)); ok {
			*list = append((*list)[:idx], (*list)[idx+1:]...)
			return true
		}
	}
	return false
}

// Get returns the named filter.
func (c *Chain) Get(name string) (Filter, bool) {
	if f, ok := lo.Find(c.pre, byName(name)); ok {
		return f, true
	}
	return lo.Find(c.post, byName(name))
}

// Filters returns the filters of a stage in execution order.
func (c *Chain) Filters(stage Stage) []Filter {
	list := *c.list(stage)
	out := make([]Filter, len(list))
	copy(out, list)
	return out
}

// All returns every filter, pre-mapping first.
func (c *Chain) All() []Filter {
	return append(c.Filters(PreMapping), c.Filters(PostMapping)...)
}

// Enabled returns the enabled filters of a stage in execution order.
func (c *Chain) Enabled(stage Stage) []Filter {
	return lo.Filter(*c.list(stage), func(f Filter, _ int) bool { return f.Enabled() })
}

// Names returns the names of a stage's filters in execution order.
func (c *Chain) Names(stage Stage) []string {
	return lo.Map(*c.list(stage), func(f Filter, _ int) string { return f.Name() })
}

// MoveUp moves the named filter one place earlier in its stage, swapping both list position and
// ordinal with its neighbor. Moving the first filter is a no-op.
func (c *Chain) MoveUp(name string) error {
	return c.move(name, -1)
}

// MoveDown moves the named filter one place later in its stage. Moving the last filter is a no-op.
func (c *Chain) MoveDown(name string) error {
	return c.move(name, 1)
}

func (c *Chain) move(name string, delta int) error {
	f, ok := c.Get(name)
	if !ok {
		return errors.Errorf("no filter named %q in the chain", name)
	}
	list := *c.list(f.Stage())
	_, idx, _ := lo.FindIndexOf(list, byName(name))
	other := idx + delta
	if other < 0 || other >= len(list) {
		return nil
	}
	neighbor := list[other]
	ordinal := f.Ordinal()
	f.SetOrdinal(neighbor.Ordinal())
	neighbor.SetOrdinal(ordinal)
	list[idx], list[other] = neighbor, f
	return nil
}

// Normalize renumbers a stage's ordinals 0..n-1, keeping the current order.
func (c *Chain) Normalize(stage Stage) {
	for i, f := range *c.list(stage) {
		f.SetOrdinal(i)
	}
}

// Run applies every enabled filter of a stage in order, recording each output in the cache
// under the filter's name. It returns the last output, or the cache's current frame when no
// filter is enabled.
func (c *Chain) Run(ctx context.Context, stage Stage, captured *cache.CaptureCache) (*frame.Frame, error) {
	for _, f := range c.Enabled(stage) {
		_, span := trace.StartSpan(ctx, "filter::"+f.Name())
		out, err := f.ApplyCache(captured)
		span.End()
		if err != nil {
			return nil, errors.Wrapf(err, "filter %q failed", f.Name())
		}
		if err := captured.RecordFiltered(f.Name(), out); err != nil {
			return nil, err
		}
	}
	return captured.Current()
}

func byName(name string) func(Filter) bool {
	return func(f Filter) bool { return f.Name() == name }
}
