package content

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the Global Text Registry. It is immutable once built.
type Registry struct {
	texts map[string]GlobalText
	keys  []string
}

// NewRegistry builds a registry from texts. Keys must be unique and
// non-empty, and every text needs a title and content.
func NewRegistry(texts []GlobalText) (*Registry, error) {
	r := &Registry{
		texts: make(map[string]GlobalText, len(texts)),
		keys:  make([]string, 0, len(texts)),
	}
	for i, t := range texts {
		switch {
		case strings.TrimSpace(t.Key) == "":
			return nil, fmt.Errorf("%w: global text %d has no key", ErrInvalidContent, i)
		case strings.Contains(t.Key, ":"):
			return nil, fmt.Errorf("%w: global text key %q contains ':'", ErrInvalidContent, t.Key)
		case t.Title == "":
			return nil, fmt.Errorf("%w: global text %q has no title", ErrInvalidContent, t.Key)
		case t.Content == "":
			return nil, fmt.Errorf("%w: global text %q has no content", ErrInvalidContent, t.Key)
		}
		if _, dup := r.texts[t.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate global text key %q", ErrInvalidContent, t.Key)
		}
		r.texts[t.Key] = t
		r.keys = append(r.keys, t.Key)
	}
	sort.Strings(r.keys)
	return r, nil
}

// Lookup returns the text stored under key.
func (r *Registry) Lookup(key string) (GlobalText, bool) {
	t, ok := r.texts[key]
	return t, ok
}

// Get is Lookup with a not-found error.
func (r *Registry) Get(key string) (GlobalText, error) {
	t, ok := r.texts[key]
	if !ok {
		return GlobalText{}, fmt.Errorf("%w: %q", ErrGlobalTextNotFound, key)
	}
	return t, nil
}

// All returns every text ordered by key. The slice is a copy.
func (r *Registry) All() []GlobalText {
	out := make([]GlobalText, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.texts[k])
	}
	return out
}

// Len returns the number of texts.
func (r *Registry) Len() int { return len(r.keys) }
