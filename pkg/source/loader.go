package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"mercator-hq/cascade/pkg/presets"
	"mercator-hq/cascade/pkg/rules"
	"mercator-hq/cascade/pkg/stack"
)

// DefaultMaxIncludeDepth bounds include chains when LoaderConfig leaves it
// unset.
const DefaultMaxIncludeDepth = 8

// DefaultMaxFileSize is the largest stack document the loader reads.
const DefaultMaxFileSize = 4 << 20

// LoaderConfig contains configuration for the stack loader.
type LoaderConfig struct {
	// MaxIncludeDepth is the deepest include chain accepted. The documents
	// passed to Load are at depth 0.
	MaxIncludeDepth int

	// MaxFileSize is the largest document in bytes.
	MaxFileSize int64
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxIncludeDepth: DefaultMaxIncludeDepth,
		MaxFileSize:     DefaultMaxFileSize,
	}
}

// Loader reads stack documents and turns them into a layer stack.
type Loader struct {
	config *LoaderConfig
}

// NewLoader creates a loader. A nil config uses DefaultLoaderConfig.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if config.MaxIncludeDepth <= 0 {
		config.MaxIncludeDepth = DefaultMaxIncludeDepth
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	return &Loader{config: config}
}

// Result is the outcome of loading a set of documents.
type Result struct {
	// Stack is the validated layer stack.
	Stack *stack.Stack

	// Files lists every document that was read, includes first, each once.
	Files []string
}

// Load reads the documents at paths and everything they include. Layers are
// taken in include order: a document's includes come before its own
// layers.
//
// Unreadable documents return a *LoadError, include problems an
// *IncludeError, document content problems an *ErrorList and stack defects
// a *diag.Diagnostics.
func (l *Loader) Load(paths ...string) (*Result, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no stack documents given")
	}

	w := &walk{
		loader:   l,
		visited:  make(map[string]bool),
		visiting: make(map[string]bool),
	}
	for _, p := range paths {
		if err := w.file(p, "", 0); err != nil {
			return nil, err
		}
	}
	if err := w.errs.ToError(); err != nil {
		return nil, err
	}

	layers, err := w.build()
	if err != nil {
		return nil, err
	}
	st, err := stack.New(layers...)
	if err != nil {
		return nil, err
	}

	return &Result{Stack: st, Files: w.files}, nil
}

// LoadStack is Load without the file list.
func (l *Loader) LoadStack(paths ...string) (*stack.Stack, error) {
	res, err := l.Load(paths...)
	if err != nil {
		return nil, err
	}
	return res.Stack, nil
}

// ReadDocument reads and parses a single document without following its
// includes. Like ParseDocument it may return a partial document with an
// *ErrorList.
func (l *Loader) ReadDocument(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "unsupported file type", Cause: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, &LoadError{File: path, Message: "file not found", Cause: err}
		case errors.Is(err, fs.ErrPermission):
			return nil, &LoadError{File: path, Message: "permission denied", Cause: err}
		default:
			return nil, &LoadError{File: path, Message: "failed to access file", Cause: err}
		}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{File: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			File:    path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	return ParseDocument(path, format, data)
}

// walk is the state of one Load call.
type walk struct {
	loader   *Loader
	visited  map[string]bool
	visiting map[string]bool
	chain    []string
	files    []string
	docs     []*Document
	errs     ErrorList
}

func (w *walk) file(path, from string, depth int) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &IncludeError{File: from, Include: path, Message: "failed to resolve path", Cause: err}
	}
	abs = filepath.Clean(abs)

	if w.visited[abs] {
		return nil
	}
	if w.visiting[abs] {
		return &IncludeError{File: from, Include: path, Cycle: w.cycle(abs), Message: "circular include detected"}
	}
	if depth > w.loader.config.MaxIncludeDepth {
		return &IncludeError{
			File:    from,
			Include: path,
			Message: fmt.Sprintf("include depth %d exceeds maximum %d", depth, w.loader.config.MaxIncludeDepth),
		}
	}

	// Content problems of every document are reported together, so a
	// document with errors still has its includes followed.
	doc, err := w.loader.ReadDocument(path)
	valid := err == nil
	if err != nil {
		var (
			list  *ErrorList
			parse *ParseError
		)
		switch {
		case errors.As(err, &list):
			w.errs.Errors = append(w.errs.Errors, list.Errors...)
		case errors.As(err, &parse):
			w.errs.Add(parse)
			w.visited[abs] = true
			return nil
		case from != "":
			return &IncludeError{File: from, Include: path, Message: "failed to load", Cause: err}
		default:
			return err
		}
	}

	w.visiting[abs] = true
	w.chain = append(w.chain, abs)
	for _, inc := range doc.Include {
		target := inc
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		if err := w.file(target, path, depth+1); err != nil {
			return err
		}
	}
	w.chain = w.chain[:len(w.chain)-1]
	delete(w.visiting, abs)

	w.visited[abs] = true
	w.files = append(w.files, path)
	if valid {
		w.docs = append(w.docs, doc)
	}
	return nil
}

func (w *walk) cycle(target string) []string {
	for i, p := range w.chain {
		if p == target {
			out := append([]string(nil), w.chain[i:]...)
			return append(out, target)
		}
	}
	return []string{target}
}

// build turns the collected declarations into layers. Preset references that
// cannot be resolved are reported together.
func (w *walk) build() ([]*rules.Layer, error) {
	var (
		layers []*rules.Layer
		errs   ErrorList
	)

	for _, doc := range w.docs {
		for _, decl := range doc.Layers {
			layer, err := decl.layer()
			if err != nil {
				errs.Add(&ParseError{
					File:    doc.File,
					Field:   fmt.Sprintf("layers[%d].preset", decl.Index),
					Message: err.Error(),
					Cause:   err,
				})
				continue
			}
			layers = append(layers, layer)
		}
	}

	if err := errs.ToError(); err != nil {
		return nil, err
	}
	return layers, nil
}

// layer builds the declared layer, starting from the preset rules when one
// is named.
func (d LayerDecl) layer() (*rules.Layer, error) {
	name := d.Name
	settings := make(map[rules.RuleID]rules.Setting)

	if d.Preset != "" {
		p, err := presets.Get(d.Preset)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = p.Name
		}
		for id, s := range p.Settings() {
			settings[id] = s
		}
	}
	for id, s := range d.Rules {
		settings[id] = s
	}

	return rules.NewLayer(rules.LayerSpec{
		Name:     name,
		Tier:     d.Tier,
		Order:    d.Order,
		Scope:    d.Scope,
		Settings: settings,
	}), nil
}
