package source

import (
	"fmt"
	"sort"

	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/rules"
)

// Document is a decoded stack document.
type Document struct {
	// File is the path the document was read from.
	File string

	// Include lists further documents, relative to File.
	Include []string

	// Layers are the layer declarations in document order.
	Layers []LayerDecl
}

// LayerDecl is one entry of a document's layers list.
type LayerDecl struct {
	// Index is the position of the entry in the document's layers list,
	// counting entries that failed to parse.
	Index int

	Name   string
	Preset string
	Tier   int
	Order  int
	Scope  rules.Scope
	Rules  map[rules.RuleID]rules.Setting
}

var (
	documentKeys = []string{"include", "layers"}
	layerKeys    = []string{"name", "preset", "tier", "order", "scope", "rules"}
	scopeKeys    = []string{"globs", "envs"}
)

// ParseDocument decodes data as a stack document of the given format. Every
// problem in the document is reported in one *ErrorList, returned together
// with the parts of the document that did decode.
func ParseDocument(file string, format Format, data []byte) (*Document, error) {
	tree, err := decode(format, file, data)
	if err != nil {
		return nil, &ParseError{File: file, Message: fmt.Sprintf("invalid %s", format), Cause: err}
	}

	p := &documentParser{file: file}
	doc := p.document(tree)
	return doc, p.errs.ToError()
}

type documentParser struct {
	file string
	errs ErrorList
}

func (p *documentParser) fail(field, format string, args ...any) {
	p.errs.Add(&ParseError{File: p.file, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (p *documentParser) document(tree any) *Document {
	doc := &Document{File: p.file}
	if tree == nil {
		return doc
	}

	root, ok := tree.(map[string]any)
	if !ok {
		p.fail("", "document must be a mapping, got %s", rules.KindOf(tree))
		return doc
	}
	p.unknownKeys("", root, documentKeys)

	if v, ok := root["include"]; ok {
		doc.Include = p.stringList("include", v)
	}

	if v, ok := root["layers"]; ok && v != nil {
		items, ok := v.([]any)
		if !ok {
			p.fail("layers", "must be a list, got %s", rules.KindOf(v))
			return doc
		}
		for i, item := range items {
			if decl, ok := p.layer(fmt.Sprintf("layers[%d]", i), i, item); ok {
				doc.Layers = append(doc.Layers, decl)
			}
		}
	}
	return doc
}

func (p *documentParser) layer(field string, index int, v any) (LayerDecl, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		p.fail(field, "layer must be a mapping, got %s", rules.KindOf(v))
		return LayerDecl{}, false
	}
	p.unknownKeys(field, m, layerKeys)

	decl := LayerDecl{Index: index, Order: index}
	before := len(p.errs.Errors)

	if v, ok := m["name"]; ok {
		decl.Name = p.stringField(field+".name", v)
	}
	if v, ok := m["preset"]; ok {
		decl.Preset = p.stringField(field+".preset", v)
	}
	if decl.Name == "" && decl.Preset == "" {
		p.fail(field, "layer needs a name or a preset")
	}

	if v, ok := m["tier"]; ok {
		decl.Tier = p.intField(field+".tier", v)
	} else {
		p.fail(field+".tier", "required")
	}
	if v, ok := m["order"]; ok {
		decl.Order = p.intField(field+".order", v)
	}
	if v, ok := m["scope"]; ok && v != nil {
		decl.Scope = p.scope(field+".scope", v)
	}
	if v, ok := m["rules"]; ok && v != nil {
		decl.Rules = p.ruleSettings(field+".rules", v)
	}

	return decl, len(p.errs.Errors) == before
}

func (p *documentParser) scope(field string, v any) rules.Scope {
	m, ok := v.(map[string]any)
	if !ok {
		p.fail(field, "must be a mapping, got %s", rules.KindOf(v))
		return rules.Scope{}
	}
	p.unknownKeys(field, m, scopeKeys)

	var s rules.Scope
	if v, ok := m["globs"]; ok {
		s.Globs = p.stringList(field+".globs", v)
	}
	if v, ok := m["envs"]; ok {
		s.Envs = p.stringList(field+".envs", v)
	}
	return s
}

func (p *documentParser) ruleSettings(field string, v any) map[rules.RuleID]rules.Setting {
	m, ok := v.(map[string]any)
	if !ok {
		p.fail(field, "must be a mapping of rule id to setting, got %s", rules.KindOf(v))
		return nil
	}

	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[rules.RuleID]rules.Setting, len(m))
	for _, id := range ids {
		if id == "" {
			p.fail(field, "rule id cannot be empty")
			continue
		}
		s, err := rules.ParseSetting(m[id])
		if err != nil {
			p.fail(field+"."+id, "%v", err)
			continue
		}
		out[rules.RuleID(id)] = s
	}
	return out
}

func (p *documentParser) stringField(field string, v any) string {
	s, ok := v.(string)
	if !ok {
		p.fail(field, "must be a string, got %s", rules.KindOf(v))
	}
	return s
}

func (p *documentParser) intField(field string, v any) int {
	n, ok := v.(int64)
	if !ok {
		p.fail(field, "must be an integer, got %s", rules.KindOf(v))
		return 0
	}
	return int(n)
}

func (p *documentParser) stringList(field string, v any) []string {
	if s, ok := v.(string); ok {
		return []string{s}
	}
	items, ok := v.([]any)
	if !ok {
		p.fail(field, "must be a string or a list of strings, got %s", rules.KindOf(v))
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			p.fail(fmt.Sprintf("%s[%d]", field, i), "must be a string, got %s", rules.KindOf(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (p *documentParser) unknownKeys(field string, m map[string]any, known []string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if contains(known, k) {
			continue
		}
		path := k
		if field != "" {
			path = field + "." + k
		}
		if s := diag.Suggest(k, known); s != "" {
			p.fail(path, "unknown field (did you mean %q?)", s)
		} else {
			p.fail(path, "unknown field")
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
