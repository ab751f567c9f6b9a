package rules

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Context is the input a rule is resolved for.
type Context struct {
	// Path is the input file path. OS separators are converted to slashes
	// before matching and a leading "./" is ignored.
	Path string

	// Env is the environment tag of the run (e.g. "browser", "node"). Empty
	// means no tag.
	Env string
}

// NormalizedPath returns the slash-separated, cleaned form of Path.
func (c Context) NormalizedPath() string {
	return NormalizePath(c.Path)
}

// NormalizePath converts p to the form scope globs are matched against.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}

// Scope restricts where a layer applies. An empty Scope matches everything.
type Scope struct {
	// Globs are doublestar patterns matched against the input path. The
	// scope matches when any glob matches. No globs means any path.
	Globs []string `yaml:"globs,omitempty" json:"globs,omitempty"`

	// Envs are environment tags. The scope matches when the input env is one
	// of them. No envs means any env.
	Envs []string `yaml:"envs,omitempty" json:"envs,omitempty"`
}

// IsEmpty reports whether the scope matches every input.
func (s Scope) IsEmpty() bool {
	return len(s.Globs) == 0 && len(s.Envs) == 0
}

// Matches reports whether the scope applies to ctx.
func (s Scope) Matches(ctx Context) bool {
	if len(s.Envs) > 0 && !s.matchesEnv(ctx.Env) {
		return false
	}
	if len(s.Globs) == 0 {
		return true
	}

	p := ctx.NormalizedPath()
	for _, glob := range s.Globs {
		// Malformed patterns are rejected when the stack is built, so the
		// error from Match cannot occur here.
		if ok, _ := doublestar.Match(glob, p); ok {
			return true
		}
	}
	return false
}

func (s Scope) matchesEnv(env string) bool {
	for _, e := range s.Envs {
		if e == env {
			return true
		}
	}
	return false
}

// Clone returns a copy with sorted, de-duplicated globs and envs. Sorting
// makes two scopes with the same sets compare equal.
func (s Scope) Clone() Scope {
	return Scope{Globs: sortedSet(s.Globs), Envs: sortedSet(s.Envs)}
}

// Equal reports whether two scopes describe the same sets.
func (s Scope) Equal(other Scope) bool {
	a, b := s.Clone(), other.Clone()
	return equalStrings(a.Globs, b.Globs) && equalStrings(a.Envs, b.Envs)
}

// String renders the scope for diagnostics.
func (s Scope) String() string {
	if s.IsEmpty() {
		return "*"
	}
	var parts []string
	if len(s.Globs) > 0 {
		parts = append(parts, "globs="+strings.Join(s.Globs, ","))
	}
	if len(s.Envs) > 0 {
		parts = append(parts, "envs="+strings.Join(s.Envs, ","))
	}
	return strings.Join(parts, " ")
}

// ValidGlob reports whether pattern is well-formed doublestar syntax.
func ValidGlob(pattern string) bool {
	return pattern != "" && doublestar.ValidatePattern(pattern)
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
