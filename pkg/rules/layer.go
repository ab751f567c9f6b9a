package rules

// Layer is a named, immutable bundle of rule settings with a scope and a
// precedence tier. Construct layers with NewLayer.
type Layer struct {
	name     string
	tier     int
	order    int
	scope    Scope
	settings map[RuleID]Setting
	ids      []RuleID
}

// LayerSpec is the mutable description a Layer is built from.
type LayerSpec struct {
	Name     string
	Tier     int
	Order    int
	Scope    Scope
	Settings map[RuleID]Setting
}

// NewLayer builds an immutable layer. Settings and scope are deep-copied, so
// later changes to spec do not affect the layer. Structural checks (name,
// tier, glob syntax) happen when the layer is placed in a stack.
func NewLayer(spec LayerSpec) *Layer {
	settings := make(map[RuleID]Setting, len(spec.Settings))
	ids := make([]RuleID, 0, len(spec.Settings))
	for id, s := range spec.Settings {
		settings[id] = s.Clone()
		ids = append(ids, id)
	}
	SortIDs(ids)

	return &Layer{
		name:     spec.Name,
		tier:     spec.Tier,
		order:    spec.Order,
		scope:    spec.Scope.Clone(),
		settings: settings,
		ids:      ids,
	}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Tier returns the precedence tier.
func (l *Layer) Tier() int { return l.tier }

// Order returns the position of the layer within its tier.
func (l *Layer) Order() int { return l.order }

// Scope returns a copy of the layer scope.
func (l *Layer) Scope() Scope { return l.scope.Clone() }

// Len returns the number of rules the layer configures.
func (l *Layer) Len() int { return len(l.ids) }

// RuleIDs returns the configured rule ids in sorted order.
func (l *Layer) RuleIDs() []RuleID {
	out := make([]RuleID, len(l.ids))
	copy(out, l.ids)
	return out
}

// Setting returns a copy of the setting for id.
func (l *Layer) Setting(id RuleID) (Setting, bool) {
	s, ok := l.settings[id]
	if !ok {
		return Setting{}, false
	}
	return s.Clone(), true
}

// Defines reports whether the layer configures id.
func (l *Layer) Defines(id RuleID) bool {
	_, ok := l.settings[id]
	return ok
}

// Settings returns a deep copy of every setting in the layer.
func (l *Layer) Settings() map[RuleID]Setting {
	out := make(map[RuleID]Setting, len(l.settings))
	for id, s := range l.settings {
		out[id] = s.Clone()
	}
	return out
}

// Spec returns a LayerSpec describing the layer, e.g. to derive a variant
// with a different tier.
func (l *Layer) Spec() LayerSpec {
	return LayerSpec{
		Name:     l.name,
		Tier:     l.tier,
		Order:    l.order,
		Scope:    l.Scope(),
		Settings: l.Settings(),
	}
}
