package rules

import (
	"sort"
	"strings"
)

// RuleID identifies a rule. Plugin rules are namespaced as "namespace/name".
type RuleID string

// Namespace returns the part of the identifier before the last slash, or ""
// for core rules.
func (id RuleID) Namespace() string {
	s := string(id)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[:i]
	}
	return ""
}

// Name returns the identifier without its namespace.
func (id RuleID) Name() string {
	s := string(id)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// String implements fmt.Stringer.
func (id RuleID) String() string {
	return string(id)
}

// SortIDs sorts rule identifiers in place, lexically.
func SortIDs(ids []RuleID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
