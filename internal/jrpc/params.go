package jrpc

// Params is the params member of a request envelope.
//
// Optional fields are omitted from the map rather than set to null; use the
// conditional setters so an absent value never reaches the wire.
type Params map[string]any

// Set inserts key unconditionally.
func (p Params) Set(key string, v any) Params {
	p[key] = v
	return p
}

// SetString inserts key only when s is non-empty.
func (p Params) SetString(key, s string) Params {
	if s != "" {
		p[key] = s
	}
	return p
}

// SetInt inserts key only when n is non-nil.
func (p Params) SetInt(key string, n *int) Params {
	if n != nil {
		p[key] = *n
	}
	return p
}

// SetStrings inserts key only when ss is non-empty.
func (p Params) SetStrings(key string, ss []string) Params {
	if len(ss) > 0 {
		p[key] = ss
	}
	return p
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Keys returns the present keys in canonical order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sortCanonical(keys)
	return keys
}
