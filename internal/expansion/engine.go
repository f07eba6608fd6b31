// Package expansion turns a novena day into fully resolved, client-renderable
// content.
//
// A day has three sections. The body is always the day's own content. The
// opening and closing sections come from the day's override when one is
// declared (an explicitly empty override means "no section") and from the
// novena defaults otherwise. Every reference block in the resulting sections
// is resolved against the Global Text Registry ("global:key") or the
// novena's local-text table ("local:key").
//
// Expansion fails fast: the first reference that cannot be resolved aborts
// the whole day and no partial result is returned.
package expansion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/novenad/internal/content"
)

// Engine expands novena days against a global text registry.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	registry *content.Registry
}

// NewEngine creates an engine resolving global references against registry.
func NewEngine(registry *content.Registry) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	return &Engine{registry: registry}, nil
}

// ExpandDay resolves day number of n.
//
// Returns an error wrapping content.ErrDayNotFound when n has no such day,
// and a *ReferenceError when a reference block cannot be resolved.
func (e *Engine) ExpandDay(n *content.Novena, number int) (*ExpandedDay, error) {
	day, ok := n.Day(number)
	if !ok {
		return nil, fmt.Errorf("%w: %d in novena %q", content.ErrDayNotFound, number, n.ID)
	}

	opening, err := e.expandSection(n, openingOf(n, day))
	if err != nil {
		return nil, fmt.Errorf("day %d opening: %w", number, err)
	}
	body, err := e.expandSection(n, day.Content)
	if err != nil {
		return nil, fmt.Errorf("day %d body: %w", number, err)
	}
	closing, err := e.expandSection(n, closingOf(n, day))
	if err != nil {
		return nil, fmt.Errorf("day %d closing: %w", number, err)
	}
	steps, err := materializeScript(n, day)
	if err != nil {
		return nil, fmt.Errorf("day %d script: %w", number, err)
	}

	return &ExpandedDay{
		Day:   day.Number,
		Title: day.Title,
		Parts: Parts{
			Opening: opening,
			Body:    body,
			Closing: closing,
		},
		Steps: steps,
	}, nil
}

// RawDay returns day number of n with its effective sections unexpanded,
// alongside the novena defaults.
func (e *Engine) RawDay(n *content.Novena, number int) (*RawDay, error) {
	day, ok := n.Day(number)
	if !ok {
		return nil, fmt.Errorf("%w: %d in novena %q", content.ErrDayNotFound, number, n.ID)
	}
	return &RawDay{
		Day:      day.Number,
		Title:    day.Title,
		Opening:  nonNil(openingOf(n, day)),
		Body:     nonNil(day.Content),
		Closing:  nonNil(closingOf(n, day)),
		Defaults: n.Defaults,
	}, nil
}

// Check expands every day of every novena in store and returns the first
// failure. Used at startup so that bad references never reach a request.
func (e *Engine) Check(store *content.Store) error {
	for _, n := range store.List() {
		for _, d := range n.Days {
			if _, err := e.ExpandDay(n, d.Number); err != nil {
				return fmt.Errorf("novena %q: %w", n.ID, err)
			}
		}
	}
	return nil
}

// openingOf applies the override rule: a non-nil override wins, even when
// empty.
func openingOf(n *content.Novena, d *content.Day) content.Blocks {
	if d.Opening != nil {
		return *d.Opening
	}
	return n.Defaults.Opening
}

func closingOf(n *content.Novena, d *content.Day) content.Blocks {
	if d.Closing != nil {
		return *d.Closing
	}
	return n.Defaults.Closing
}

func (e *Engine) expandSection(n *content.Novena, raw content.Blocks) ([]Block, error) {
	out := make([]Block, 0, len(raw))
	for i, b := range raw {
		blk, err := e.expandBlock(n, b)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, blk)
	}
	return out, nil
}

func (e *Engine) expandBlock(n *content.Novena, b content.Block) (Block, error) {
	switch b.Kind {
	case content.BlockText:
		return Block{Type: TypeText, Text: b.Text}, nil
	case content.BlockRubric:
		return Block{Type: TypeRubric, Text: b.Text}, nil
	case content.BlockRef:
		return e.resolve(n, b.Ref)
	default:
		return Block{}, fmt.Errorf("%w: %q", content.ErrInvalidBlock, b.Kind)
	}
}

func (e *Engine) resolve(n *content.Novena, ref string) (Block, error) {
	scope, key, err := SplitRef(ref)
	if err != nil {
		return Block{}, err
	}

	switch scope {
	case ScopeGlobal:
		t, ok := e.registry.Lookup(key)
		if !ok {
			return Block{}, &ReferenceError{Err: ErrUnresolvedReference, Ref: ref, Scope: scope, Key: key}
		}
		c := t.Content
		return Block{Type: TypeRef, Scope: scope, Key: key, Title: t.Title, Content: &c}, nil
	default:
		t, ok := n.LocalText(key)
		if !ok {
			return Block{}, &ReferenceError{Err: ErrUnresolvedReference, Ref: ref, Scope: scope, Key: key}
		}
		return Block{
			Type:      TypeRef,
			Scope:     scope,
			Key:       key,
			Title:     t.Title,
			Content:   t.Content,
			Memorized: t.Memorized(),
		}, nil
	}
}

// SplitRef splits "scope:key" on its first separator. The scope must be
// exactly "global" or "local" and the key must be non-empty.
func SplitRef(ref string) (Scope, string, error) {
	scope, key, found := strings.Cut(ref, ":")
	if !found || key == "" {
		return "", "", &ReferenceError{Err: ErrInvalidReference, Ref: ref}
	}
	switch s := Scope(scope); s {
	case ScopeGlobal, ScopeLocal:
		return s, key, nil
	default:
		return "", "", &ReferenceError{Err: ErrInvalidReference, Ref: ref, Scope: s, Key: key}
	}
}

func materializeScript(n *content.Novena, d *content.Day) ([]Step, error) {
	steps := make([]Step, 0, len(n.Script))
	for i, s := range n.Script {
		if s.Kind == content.StepDay {
			steps = append(steps, Step{Kind: s.Kind, Title: d.Title})
			continue
		}
		t, ok := n.Table(s.Kind)[s.Ref]
		if !ok {
			return nil, fmt.Errorf("%w: step %d (%s:%q)", content.ErrDanglingRef, i, s.Kind, s.Ref)
		}
		steps = append(steps, Step{
			Kind:      s.Kind,
			Ref:       s.Ref,
			Title:     t.Title,
			Content:   t.Content,
			Memorized: t.Memorized(),
		})
	}
	return steps, nil
}

func nonNil(bs content.Blocks) content.Blocks {
	if bs == nil {
		return content.Blocks{}
	}
	return bs
}
