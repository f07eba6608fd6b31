package expansion

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/novenad/internal/content"
)

// Scope says where a reference resolves.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeLocal  Scope = "local"
)

// BlockType discriminates an expanded Block.
type BlockType string

const (
	TypeText   BlockType = "text"
	TypeRef    BlockType = "ref"
	TypeRubric BlockType = "rubric"
)

// Block is one resolved unit of displayable content.
//
// Text blocks carry Text. Rubric blocks carry the stage direction in Text and
// are never spoken. Reference blocks carry Scope, Key, Title and Content;
// Content is nil (and Memorized set) for local texts recited from memory.
type Block struct {
	Type      BlockType `json:"type"`
	Text      string    `json:"text,omitempty"`
	Scope     Scope     `json:"scope,omitempty"`
	Key       string    `json:"key,omitempty"`
	Title     string    `json:"title,omitempty"`
	Content   *string   `json:"content,omitempty"`
	Memorized bool      `json:"memorized,omitempty"`
}

// Parts are the three expanded sections of a day.
type Parts struct {
	Opening []Block `json:"opening"`
	Body    []Block `json:"body"`
	Closing []Block `json:"closing"`
}

// Step is one materialized script step.
type Step struct {
	Kind      content.StepKind `json:"kind"`
	Ref       string           `json:"ref,omitempty"`
	Title     string           `json:"title"`
	Content   *string          `json:"content,omitempty"`
	Memorized bool             `json:"memorized,omitempty"`
}

// ExpandedDay is the result of ExpandDay.
type ExpandedDay struct {
	Day   int    `json:"day"`
	Title string `json:"title"`
	Parts Parts  `json:"parts"`
	Steps []Step `json:"steps"`
}

// RawDay is the result of RawDay.
type RawDay struct {
	Day      int              `json:"day"`
	Title    string           `json:"title"`
	Opening  content.Blocks   `json:"opening"`
	Body     content.Blocks   `json:"body"`
	Closing  content.Blocks   `json:"closing"`
	Defaults content.Defaults `json:"defaults"`
}

// Reference failures. Both indicate a bad content definition.
var (
	ErrInvalidReference    = errors.New("invalid reference")
	ErrUnresolvedReference = errors.New("unresolved reference")
)

// ReferenceError describes a reference block that could not be resolved.
type ReferenceError struct {
	Err   error
	Ref   string
	Scope Scope
	Key   string
}

func (e *ReferenceError) Error() string {
	if errors.Is(e.Err, ErrUnresolvedReference) {
		return fmt.Sprintf("%v: no %s text %q", e.Err, e.Scope, e.Key)
	}
	return fmt.Sprintf("%v: %q (expected global:<key> or local:<key>)", e.Err, e.Ref)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}
