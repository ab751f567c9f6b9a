// Package stack builds LayerStacks: ordered, structurally checked collections
// of rule layers ready for composition.
package stack

import (
	"fmt"
	"sort"

	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/rules"
)

// Stack is an immutable sequence of layers sorted ascending by (tier, order).
type Stack struct {
	layers []*rules.Layer
}

// New sorts layers by (tier, order) and checks that the stack is well-formed:
// every layer has a unique non-empty name, a non-negative tier, valid glob
// patterns and non-empty env tags, and no two layers share a (tier, order)
// pair. All defects are reported together as *diag.Diagnostics of
// *diag.StackError. No settings are merged here.
func New(layers ...*rules.Layer) (*Stack, error) {
	diags := diag.New()
	names := make(map[string]int, len(layers))

	for i, layer := range layers {
		if layer == nil {
			diags.Add(&diag.StackError{Index: i, Field: "layer", Message: "layer cannot be nil"})
			continue
		}

		if layer.Name() == "" {
			diags.Add(&diag.StackError{Index: i, Field: "name", Message: "layer name cannot be empty"})
		} else if first, ok := names[layer.Name()]; ok {
			diags.Add(&diag.StackError{
				Layer:   layer.Name(),
				Index:   i,
				Field:   "name",
				Message: fmt.Sprintf("duplicate layer name (first used by layer #%d)", first),
			})
		} else {
			names[layer.Name()] = i
		}

		if layer.Tier() < 0 {
			diags.Add(&diag.StackError{
				Layer:   layer.Name(),
				Index:   i,
				Field:   "tier",
				Message: fmt.Sprintf("tier must be non-negative, got %d", layer.Tier()),
			})
		}

		scope := layer.Scope()
		for _, glob := range scope.Globs {
			if !rules.ValidGlob(glob) {
				diags.Add(&diag.StackError{
					Layer:   layer.Name(),
					Index:   i,
					Field:   "scope.globs",
					Message: fmt.Sprintf("malformed glob pattern %q", glob),
				})
			}
		}
		for _, env := range scope.Envs {
			if env == "" {
				diags.Add(&diag.StackError{
					Layer:   layer.Name(),
					Index:   i,
					Field:   "scope.envs",
					Message: "environment tag cannot be empty",
				})
			}
		}
	}

	sorted := make([]*rules.Layer, 0, len(layers))
	for _, layer := range layers {
		if layer != nil {
			sorted = append(sorted, layer)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if prev.Tier() == curr.Tier() && prev.Order() == curr.Order() {
			diags.Add(&diag.StackError{
				Layer: curr.Name(),
				Index: indexOf(layers, curr),
				Field: "order",
				Message: fmt.Sprintf("duplicate (tier %d, order %d) also used by layer %q",
					curr.Tier(), curr.Order(), prev.Name()),
			})
		}
	}

	if err := diags.ToError(); err != nil {
		return nil, err
	}
	return &Stack{layers: sorted}, nil
}

func less(a, b *rules.Layer) bool {
	if a.Tier() != b.Tier() {
		return a.Tier() < b.Tier()
	}
	return a.Order() < b.Order()
}

func indexOf(layers []*rules.Layer, target *rules.Layer) int {
	for i, l := range layers {
		if l == target {
			return i
		}
	}
	return -1
}

// Layers returns the layers in ascending precedence order.
func (s *Stack) Layers() []*rules.Layer {
	out := make([]*rules.Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Len returns the number of layers.
func (s *Stack) Len() int {
	return len(s.layers)
}

// Layer returns the layer with the given name.
func (s *Stack) Layer(name string) (*rules.Layer, bool) {
	for _, l := range s.layers {
		if l.Name() == name {
			return l, true
		}
	}
	return nil, false
}

// Tiers returns the distinct tiers in ascending order.
func (s *Stack) Tiers() []int {
	var tiers []int
	for _, l := range s.layers {
		if len(tiers) == 0 || tiers[len(tiers)-1] != l.Tier() {
			tiers = append(tiers, l.Tier())
		}
	}
	return tiers
}

// ByTier partitions the layers by tier, preserving order within each tier.
func (s *Stack) ByTier() map[int][]*rules.Layer {
	out := make(map[int][]*rules.Layer)
	for _, l := range s.layers {
		out[l.Tier()] = append(out[l.Tier()], l)
	}
	return out
}

// RuleIDs returns every rule id referenced by any layer, sorted.
func (s *Stack) RuleIDs() []rules.RuleID {
	seen := make(map[rules.RuleID]struct{})
	var ids []rules.RuleID
	for _, l := range s.layers {
		for _, id := range l.RuleIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	rules.SortIDs(ids)
	return ids
}
