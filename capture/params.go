package capture

import (
	"net/url"
	"strings"
)

// Params is an ordered parameter mapping: unique names in insertion order,
// each with an ordered list of values.
type Params struct {
	names  []string
	values map[string][]string
}

// NewParams returns an empty mapping.
func NewParams() *Params {
	return &Params{values: make(map[string][]string)}
}

// ParamsFromValues copies v into a mapping. Names listed in order come first,
// in that order; any remaining names of v follow in sorted order.
func ParamsFromValues(v url.Values, order []string) *Params {
	p := NewParams()
	for _, name := range order {
		if vals, ok := v[name]; ok {
			p.set(name, vals)
		}
	}
	for _, name := range sortedKeys(v) {
		if _, seen := p.values[name]; !seen {
			p.set(name, v[name])
		}
	}
	return p
}

func (p *Params) set(name string, vals []string) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = append([]string(nil), vals...)
}

// Add appends value to name, registering name on first use.
func (p *Params) Add(name, value string) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = append(p.values[name], value)
}

// Get returns the first value of name, or "".
func (p *Params) Get(name string) string {
	if p == nil {
		return ""
	}
	if vals := p.values[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Values returns a copy of all values of name, nil when absent.
func (p *Params) Values(name string) []string {
	if p == nil {
		return nil
	}
	vals, ok := p.values[name]
	if !ok {
		return nil
	}
	return append([]string(nil), vals...)
}

// Has reports whether name is present.
func (p *Params) Has(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[name]
	return ok
}

// Names returns the parameter names in insertion order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.names...)
}

// Len returns the number of distinct names.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Map returns a copy of the mapping as url.Values.
func (p *Params) Map() url.Values {
	out := make(url.Values, p.Len())
	if p == nil {
		return out
	}
	for _, name := range p.names {
		out[name] = append([]string(nil), p.values[name]...)
	}
	return out
}

// Encode renders the mapping as loggable body text: name=value pairs joined
// by '&', with multi-valued names rendered as name=[v1, v2]. Values are not
// escaped.
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.names))
	for _, name := range p.names {
		vals := p.values[name]
		if len(vals) == 1 {
			parts = append(parts, name+"="+vals[0])
			continue
		}
		parts = append(parts, name+"=["+strings.Join(vals, ", ")+"]")
	}
	return strings.Join(parts, "&")
}

// queryOrder lists the distinct names of a URL-encoded string in the order
// they first appear. Malformed pairs are skipped.
func queryOrder(raw string) []string {
	var names []string
	seen := make(map[string]struct{})
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
