package cascade

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"mercator-hq/cascade/pkg/rules"
)

// generations is the process-wide generation counter.
var generations atomic.Uint64

// Block is one scoped bundle of settings, derived 1:1 from a layer.
type Block struct {
	Name     string                         `json:"name"`
	Tier     int                            `json:"tier"`
	Order    int                            `json:"order"`
	Scope    rules.Scope                    `json:"scope"`
	Settings map[rules.RuleID]rules.Setting `json:"-"`
}

// Result is the outcome of resolving one rule for one input.
type Result struct {
	RuleID   rules.RuleID   `json:"rule"`
	Severity rules.Severity `json:"severity"`
	Options  []any          `json:"options,omitempty"`

	// Source is the name of the layer whose setting won.
	Source string `json:"source"`

	// Shadowed lists, highest precedence first, the lower layers that also
	// matched the input and defined the rule.
	Shadowed []string `json:"shadowed,omitempty"`
}

// Setting returns the winning setting.
func (r Result) Setting() rules.Setting {
	return rules.Setting{Severity: r.Severity, Options: r.Options}.Clone()
}

func (r Result) clone() Result {
	out := r
	out.Options = r.Setting().Options
	if r.Shadowed != nil {
		out.Shadowed = append([]string(nil), r.Shadowed...)
	}
	return out
}

// Cascade is the immutable effective configuration built by composition.
type Cascade struct {
	generation  uint64
	blocks      []Block
	ruleIDs     []rules.RuleID
	fingerprint string
}

// New builds a cascade from layers that are already validated and sorted in
// ascending precedence order. Each successful call takes the next generation
// number. It fails only when an option value has no canonical encoding.
func New(layers []*rules.Layer) (*Cascade, error) {
	blocks := make([]Block, len(layers))
	seen := make(map[rules.RuleID]struct{})
	var ids []rules.RuleID

	for i, l := range layers {
		blocks[i] = Block{
			Name:     l.Name(),
			Tier:     l.Tier(),
			Order:    l.Order(),
			Scope:    l.Scope(),
			Settings: l.Settings(),
		}
		for _, id := range l.RuleIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	rules.SortIDs(ids)

	fp, err := fingerprint(blocks)
	if err != nil {
		return nil, err
	}
	return &Cascade{
		generation:  generations.Add(1),
		blocks:      blocks,
		ruleIDs:     ids,
		fingerprint: fp,
	}, nil
}

// Generation returns the generation number of the cascade.
func (c *Cascade) Generation() uint64 { return c.generation }

// Fingerprint returns a hex sha256 of the canonical block encoding. Two
// cascades built from equal stacks have the same fingerprint.
func (c *Cascade) Fingerprint() string { return c.fingerprint }

// Len returns the number of blocks.
func (c *Cascade) Len() int { return len(c.blocks) }

// RuleIDs returns every rule configured by any block, sorted.
func (c *Cascade) RuleIDs() []rules.RuleID {
	out := make([]rules.RuleID, len(c.ruleIDs))
	copy(out, c.ruleIDs)
	return out
}

// Blocks returns deep copies of the blocks in ascending precedence order.
func (c *Cascade) Blocks() []Block {
	out := make([]Block, len(c.blocks))
	for i, b := range c.blocks {
		settings := make(map[rules.RuleID]rules.Setting, len(b.Settings))
		for id, s := range b.Settings {
			settings[id] = s.Clone()
		}
		out[i] = Block{Name: b.Name, Tier: b.Tier, Order: b.Order, Scope: b.Scope.Clone(), Settings: settings}
	}
	return out
}

// Resolve returns the winning setting for id in ctx. The second result is
// false when no matching block defines id (NotConfigured).
func (c *Cascade) Resolve(id rules.RuleID, ctx rules.Context) (Result, bool) {
	var (
		res   Result
		found bool
	)

	for i := len(c.blocks) - 1; i >= 0; i-- {
		b := &c.blocks[i]
		s, ok := b.Settings[id]
		if !ok || !b.Scope.Matches(ctx) {
			continue
		}
		if !found {
			s = s.Clone()
			res = Result{RuleID: id, Severity: s.Severity, Options: s.Options, Source: b.Name}
			found = true
			continue
		}
		res.Shadowed = append(res.Shadowed, b.Name)
	}

	return res, found
}

// Dump resolves every configured rule for ctx. Rules with no matching block
// are omitted.
func (c *Cascade) Dump(ctx rules.Context) map[rules.RuleID]Result {
	out := make(map[rules.RuleID]Result, len(c.ruleIDs))
	for _, id := range c.ruleIDs {
		if res, ok := c.Resolve(id, ctx); ok {
			out[id] = res
		}
	}
	return out
}

// Equal reports whether two cascades have the same blocks. Generations are
// ignored.
func (c *Cascade) Equal(other *Cascade) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.blocks) != len(other.blocks) {
		return false
	}
	for i := range c.blocks {
		a, b := &c.blocks[i], &other.blocks[i]
		if a.Name != b.Name || a.Tier != b.Tier || a.Order != b.Order || !a.Scope.Equal(b.Scope) {
			return false
		}
		if len(a.Settings) != len(b.Settings) {
			return false
		}
		for id, s := range a.Settings {
			t, ok := b.Settings[id]
			if !ok || !s.Equal(t) {
				return false
			}
		}
	}
	return true
}

// canonicalBlock is the fingerprinted form of a Block.
type canonicalBlock struct {
	Name     string                      `json:"name"`
	Tier     int                         `json:"tier"`
	Order    int                         `json:"order"`
	Globs    []string                    `json:"globs"`
	Envs     []string                    `json:"envs"`
	Settings map[string]canonicalSetting `json:"settings"`
}

type canonicalSetting struct {
	Severity string `json:"severity"`
	Options  []any  `json:"options"`
}

func fingerprint(blocks []Block) (string, error) {
	canon := make([]canonicalBlock, len(blocks))
	for i, b := range blocks {
		settings := make(map[string]canonicalSetting, len(b.Settings))
		for id, s := range b.Settings {
			settings[string(id)] = canonicalSetting{Severity: s.Severity.String(), Options: s.Options}
		}
		scope := b.Scope.Clone()
		canon[i] = canonicalBlock{
			Name:     b.Name,
			Tier:     b.Tier,
			Order:    b.Order,
			Globs:    scope.Globs,
			Envs:     scope.Envs,
			Settings: settings,
		}
	}

	// Maps marshal with sorted keys, so the encoding is deterministic.
	data, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("failed to encode cascade: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
