package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"mercator-hq/cascade/pkg/rules"
)

// Format is the syntax of a stack document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
)

// Extensions lists the file extensions stack documents may use.
var Extensions = []string{".yaml", ".yml", ".toml", ".cue"}

// FormatOf returns the document format for path, based on its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported document extension %q (want one of %s)", filepath.Ext(path), strings.Join(Extensions, ", "))
	}
}

// decode parses data into a normalized generic tree. An empty document
// decodes to nil.
func decode(format Format, filename string, data []byte) (any, error) {
	var (
		raw any
		err error
	)

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		var table map[string]any
		err = toml.Unmarshal(data, &table)
		if table != nil {
			raw = table
		}
	case FormatCUE:
		raw, err = decodeCUE(filename, data)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return rules.NormalizeValue(raw)
}

func decodeCUE(filename string, data []byte) (any, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}

	var out any
	if err := v.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
