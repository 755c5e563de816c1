package nixcfg

import (
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches a placeholder occurrence. Keys are word characters
// only, so keys are pairwise-distinct literal strings under replacement:
// the delimiters prevent one key's replacement from matching inside
// another's token.
var tokenPattern = regexp.MustCompile(`@@\w+@@`)

// Document is assembled configuration text whose placeholders are not yet
// resolved.
type Document struct {
	text  string
	names []string
}

// Text returns the raw, unsubstituted document text.
func (d *Document) Text() string {
	return d.text
}

// FragmentNames returns the names of the fragments that were concatenated,
// in document order.
func (d *Document) FragmentNames() []string {
	return d.names
}

// Placeholders returns the sorted set of placeholder names occurring in the
// document. This is the structural "variables needed" half of the assemble
// contract.
func (d *Document) Placeholders() []string {
	seen := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(d.text, -1) {
		name := strings.TrimSuffix(strings.TrimPrefix(tok, "@@"), "@@")
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report lists the two completeness defects a binding set can have against
// a document. Neither is detected during Substitute; callers decide whether
// unbound placeholders are fatal.
type Report struct {
	// Unused are bound keys with no occurrence in the document.
	Unused []string
	// Unbound are placeholder names with no bound key.
	Unbound []string
}

// Clean reports whether the bindings exactly cover the document.
func (r Report) Clean() bool {
	return len(r.Unused) == 0 && len(r.Unbound) == 0
}

// Validate checks every defined binding against the document and every
// placeholder against the binding set.
func (d *Document) Validate(vars Bindings) Report {
	var report Report
	for _, key := range vars.Keys() {
		if !strings.Contains(d.text, "@@"+key+"@@") {
			report.Unused = append(report.Unused, key)
		}
	}
	for _, name := range d.Placeholders() {
		if _, ok := vars.Get(name); !ok {
			report.Unbound = append(report.Unbound, name)
		}
	}
	return report
}

// Substitute replaces every bound @@key@@ token with its value in a single
// pass per key. Substitution is literal text replacement: a bound value
// containing a token-like substring is not special-cased, and unbound
// placeholders survive verbatim.
func (d *Document) Substitute(vars Bindings) string {
	out := d.text
	for _, key := range vars.Keys() {
		value, _ := vars.Get(key)
		out = strings.ReplaceAll(out, "@@"+key+"@@", value)
	}
	return out
}
