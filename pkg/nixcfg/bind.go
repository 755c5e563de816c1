package nixcfg

import (
	"sort"
	"strings"
)

// Value is an optional string. The host installer distinguishes "not
// collected" from "collected as empty", and so does the binder.
type Value struct {
	s  string
	ok bool
}

// Some wraps a present value.
func Some(s string) Value {
	return Value{s: s, ok: true}
}

// None is an absent value.
func None() Value {
	return Value{}
}

// Opt converts the (value, ok) pair returned by the global storage
// accessors into a Value.
func Opt(s string, ok bool) Value {
	return Value{s: s, ok: ok}
}

// Bindings maps placeholder names to their substitution values.
type Bindings struct {
	m map[string]string
}

// NewBindings returns an empty binding set.
func NewBindings() Bindings {
	return Bindings{m: make(map[string]string)}
}

// Catenate sets key to the concatenation of parts if none of the parts are
// absent. A partial input is a no-op: omitting the binding is how a
// placeholder is meant to resolve to "use no override" upstream.
func (b Bindings) Catenate(key string, parts ...Value) {
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if !p.ok {
			return
		}
		joined = append(joined, p.s)
	}
	b.m[key] = strings.Join(joined, "")
}

// Set unconditionally binds key to value.
func (b Bindings) Set(key, value string) {
	b.m[key] = value
}

// Get returns the bound value for key.
func (b Bindings) Get(key string) (string, bool) {
	v, ok := b.m[key]
	return v, ok
}

// Keys returns the bound keys in sorted order so substitution and
// validation are deterministic.
func (b Bindings) Keys() []string {
	keys := make([]string, 0, len(b.m))
	for k := range b.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of bound keys.
func (b Bindings) Len() int {
	return len(b.m)
}
