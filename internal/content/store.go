package content

import (
	"errors"
	"fmt"
	"strings"
)

// Store is the Novena Document Store. It is immutable once built.
type Store struct {
	novenas []*Novena
	byID    map[string]*Novena
	bySlug  map[string]*Novena
}

// NewStore validates novenas and indexes them by id and slug. Order is
// preserved for listing.
func NewStore(novenas []*Novena) (*Store, error) {
	s := &Store{
		novenas: make([]*Novena, 0, len(novenas)),
		byID:    make(map[string]*Novena, len(novenas)),
		bySlug:  make(map[string]*Novena, len(novenas)),
	}
	for i, n := range novenas {
		if n == nil {
			return nil, fmt.Errorf("%w: novena %d is null", ErrInvalidContent, i)
		}
		if err := validateNovena(n); err != nil {
			return nil, fmt.Errorf("novena %q: %w", n.ID, err)
		}
		if _, dup := s.byID[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate novena id %q", ErrInvalidContent, n.ID)
		}
		if _, dup := s.bySlug[n.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate novena slug %q", ErrInvalidContent, n.Slug)
		}
		s.byID[n.ID] = n
		s.bySlug[n.Slug] = n
		s.novenas = append(s.novenas, n)
	}
	return s, nil
}

// List returns all novenas in document order. The slice is a copy; the
// novenas themselves must be treated as read-only.
func (s *Store) List() []*Novena {
	out := make([]*Novena, len(s.novenas))
	copy(out, s.novenas)
	return out
}

// Get finds a novena by id, falling back to its slug.
func (s *Store) Get(idOrSlug string) (*Novena, error) {
	if n, ok := s.byID[idOrSlug]; ok {
		return n, nil
	}
	if n, ok := s.bySlug[idOrSlug]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNovenaNotFound, idOrSlug)
}

// Len returns the number of novenas.
func (s *Store) Len() int { return len(s.novenas) }

func validateNovena(n *Novena) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidContent}, args...)...))
	}

	if strings.TrimSpace(n.ID) == "" {
		add("missing id")
	}
	if strings.TrimSpace(n.Slug) == "" {
		add("missing slug")
	}
	if n.Meta.Title == "" {
		add("missing meta.title")
	}
	if n.Meta.DaysCount < 1 {
		add("meta.daysCount must be >= 1, got %d", n.Meta.DaysCount)
	}

	// Local keys must be unique across the three tables so that
	// "local:key" references are unambiguous.
	owner := make(map[string]StepKind)
	for _, kind := range localOrder {
		for key, t := range n.Table(kind) {
			if prev, dup := owner[key]; dup {
				add("local text %q defined in both %s and %s tables", key, prev, kind)
			}
			owner[key] = kind
			if t.Title == "" {
				add("%s text %q has no title", kind, key)
			}
		}
	}

	for i, step := range n.Script {
		if !step.Kind.Valid() {
			add("script step %d has unknown kind %q", i, step.Kind)
			continue
		}
		if step.Kind == StepDay {
			continue
		}
		if _, ok := n.Table(step.Kind)[step.Ref]; !ok {
			errs = append(errs, fmt.Errorf("%w: script step %d (%s:%q)", ErrDanglingRef, i, step.Kind, step.Ref))
		}
	}

	seen := make(map[int]bool, len(n.Days))
	for _, d := range n.Days {
		if d.Number < 1 || d.Number > n.Meta.DaysCount {
			add("day %d outside [1, %d]", d.Number, n.Meta.DaysCount)
		}
		if seen[d.Number] {
			add("duplicate day %d", d.Number)
		}
		seen[d.Number] = true
		if d.Title == "" {
			add("day %d has no title", d.Number)
		}
	}

	return errors.Join(errs...)
}
