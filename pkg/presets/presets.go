package presets

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"mercator-hq/cascade/pkg/catalog"
	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/rules"
)

//go:embed catalog.yaml
var catalogData []byte

//go:embed layers/*.yaml
var layerFiles embed.FS

// Preset is a built-in bundle of rule settings.
type Preset struct {
	Name        string
	Description string

	// Environments and Plugins are what the rule table declared alongside
	// its rules. They are informational; scoping is up to the stack.
	Environments []string
	Plugins      []string

	settings map[rules.RuleID]rules.Setting
}

// Len returns the number of rules the preset configures.
func (p *Preset) Len() int { return len(p.settings) }

// RuleIDs returns the configured rule ids in sorted order.
func (p *Preset) RuleIDs() []rules.RuleID {
	ids := make([]rules.RuleID, 0, len(p.settings))
	for id := range p.settings {
		ids = append(ids, id)
	}
	rules.SortIDs(ids)
	return ids
}

// Settings returns a deep copy of the preset settings.
func (p *Preset) Settings() map[rules.RuleID]rules.Setting {
	out := make(map[rules.RuleID]rules.Setting, len(p.settings))
	for id, s := range p.settings {
		out[id] = s.Clone()
	}
	return out
}

// UnknownPresetError is returned for a preset name that is not built in.
type UnknownPresetError struct {
	Name       string
	Suggestion string
}

func (e *UnknownPresetError) Error() string {
	msg := fmt.Sprintf("unknown preset %q", e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

type presetDocument struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Environments []string       `yaml:"environments"`
	Plugins      []string       `yaml:"plugins"`
	Rules        map[string]any `yaml:"rules"`
}

var (
	loadOnce sync.Once
	loaded   map[string]*Preset
	names    []string
	loadErr  error
)

func load() error {
	loadOnce.Do(func() {
		if _, err := catalog.Parse(catalogData); err != nil {
			loadErr = fmt.Errorf("embedded catalog: %w", err)
			return
		}
		loaded, loadErr = loadLayers()
		if loadErr != nil {
			return
		}
		for name := range loaded {
			names = append(names, name)
		}
		sort.Strings(names)
	})
	return loadErr
}

func loadLayers() (map[string]*Preset, error) {
	entries, err := layerFiles.ReadDir("layers")
	if err != nil {
		return nil, err
	}

	out := make(map[string]*Preset, len(entries))
	for _, entry := range entries {
		file := path.Join("layers", entry.Name())
		data, err := layerFiles.ReadFile(file)
		if err != nil {
			return nil, err
		}
		p, err := parsePreset(data)
		if err != nil {
			return nil, fmt.Errorf("embedded preset %s: %w", entry.Name(), err)
		}
		if want := strings.TrimSuffix(entry.Name(), ".yaml"); p.Name != want {
			return nil, fmt.Errorf("embedded preset %s: name %q does not match file name", entry.Name(), p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

func parsePreset(data []byte) (*Preset, error) {
	var doc presetDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	settings := make(map[rules.RuleID]rules.Setting, len(doc.Rules))
	for id, raw := range doc.Rules {
		s, err := rules.ParseSetting(raw)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", id, err)
		}
		settings[rules.RuleID(id)] = s
	}

	return &Preset{
		Name:         doc.Name,
		Description:  doc.Description,
		Environments: doc.Environments,
		Plugins:      doc.Plugins,
		settings:     settings,
	}, nil
}

func mustLoad() {
	if err := load(); err != nil {
		panic(err)
	}
}

// Names returns the built-in preset names in sorted order.
func Names() []string {
	mustLoad()
	return append([]string(nil), names...)
}

// Get returns the named preset.
func Get(name string) (*Preset, error) {
	mustLoad()
	p, ok := loaded[name]
	if !ok {
		return nil, &UnknownPresetError{Name: name, Suggestion: diag.Suggest(name, names)}
	}
	return p, nil
}

// All returns every preset ordered by name.
func All() []*Preset {
	mustLoad()
	out := make([]*Preset, 0, len(names))
	for _, name := range names {
		out = append(out, loaded[name])
	}
	return out
}

// Layer places the named preset in a stack position. The layer is named
// after the preset.
func Layer(name string, tier, order int, scope rules.Scope) (*rules.Layer, error) {
	return NamedLayer(name, name, tier, order, scope)
}

// NamedLayer is like Layer but gives the layer its own name, so one preset
// can appear more than once in a stack.
func NamedLayer(preset, layerName string, tier, order int, scope rules.Scope) (*rules.Layer, error) {
	p, err := Get(preset)
	if err != nil {
		return nil, err
	}
	return rules.NewLayer(rules.LayerSpec{
		Name:     layerName,
		Tier:     tier,
		Order:    order,
		Scope:    scope,
		Settings: p.settings,
	}), nil
}

// Catalog returns a new registry holding the schema of every preset rule.
// Each call parses a fresh copy, so callers may register further schemas
// into it.
func Catalog() *catalog.Registry {
	mustLoad()
	reg, err := catalog.Parse(catalogData)
	if err != nil {
		panic(err)
	}
	return reg
}
