package content

import (
	"fmt"
	"time"
)

// GlobalText is a shared prayer from the Global Text Registry.
type GlobalText struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// LocalText is an entry of a novena's fixed, action or common table.
// A nil Content means the prayer is well known and recited from memory.
type LocalText struct {
	Title   string  `json:"title"`
	Content *string `json:"content"`
}

// Memorized reports whether the text is recited from memory.
func (t LocalText) Memorized() bool { return t.Content == nil }

// StepKind is the kind of a script step.
type StepKind string

const (
	StepFixed  StepKind = "fixed"
	StepDay    StepKind = "day"
	StepAction StepKind = "action"
	StepCommon StepKind = "common"
)

// Valid reports whether k is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepFixed, StepDay, StepAction, StepCommon:
		return true
	}
	return false
}

// ScriptStep is one entry of a novena's script (roteiro).
type ScriptStep struct {
	Kind StepKind `json:"kind"`
	Ref  string   `json:"ref,omitempty"`
}

// Meta is the catalog metadata of a novena.
type Meta struct {
	Title     string   `json:"title"`
	Caption   string   `json:"caption"`
	DaysCount int      `json:"daysCount"`
	Tags      []string `json:"tags"`
	Thumbnail string   `json:"thumbnail,omitempty"`
}

// Defaults are the novena-level opening and closing sections.
type Defaults struct {
	Opening Blocks `json:"opening"`
	Closing Blocks `json:"closing"`
}

// Day is the content of one day of a novena.
//
// Opening and Closing are overrides: nil means "use the novena default",
// a non-nil empty section means "no opening/closing text at all".
type Day struct {
	Number  int     `json:"day"`
	Title   string  `json:"title"`
	Content Blocks  `json:"content"`
	Opening *Blocks `json:"opening,omitempty"`
	Closing *Blocks `json:"closing,omitempty"`
}

// Novena is a complete novena definition.
type Novena struct {
	ID          string               `json:"id"`
	Slug        string               `json:"slug"`
	Lang        string               `json:"lang"`
	Meta        Meta                 `json:"meta"`
	Script      []ScriptStep         `json:"script"`
	FixedTexts  map[string]LocalText `json:"fixedTexts"`
	ActionTexts map[string]LocalText `json:"actionTexts"`
	CommonTexts map[string]LocalText `json:"commonTexts"`
	Defaults    Defaults             `json:"defaults"`
	Days        []Day                `json:"days"`
	Version     int                  `json:"version"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Day returns the day whose number equals number.
func (n *Novena) Day(number int) (*Day, bool) {
	for i := range n.Days {
		if n.Days[i].Number == number {
			return &n.Days[i], true
		}
	}
	return nil, false
}

// CheckDay validates a requested day number against the declared length.
func (n *Novena) CheckDay(number int) error {
	if number < 1 || number > n.Meta.DaysCount {
		return fmt.Errorf("%w: %d (novena %q has %d days)", ErrInvalidDay, number, n.ID, n.Meta.DaysCount)
	}
	return nil
}

// Table returns the category table for a script step kind, or nil for
// StepDay and unknown kinds.
func (n *Novena) Table(kind StepKind) map[string]LocalText {
	switch kind {
	case StepFixed:
		return n.FixedTexts
	case StepAction:
		return n.ActionTexts
	case StepCommon:
		return n.CommonTexts
	}
	return nil
}

// localOrder is the lookup order of the local-text table.
var localOrder = []StepKind{StepFixed, StepCommon, StepAction}

// LocalText resolves key against the novena's local-text table, which is
// the union of its fixed, common and action tables. Keys are unique across
// the three tables (enforced at load).
func (n *Novena) LocalText(key string) (LocalText, bool) {
	for _, kind := range localOrder {
		if t, ok := n.Table(kind)[key]; ok {
			return t, true
		}
	}
	return LocalText{}, false
}

// Summary is the catalog view of a novena.
type Summary struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Lang      string    `json:"lang"`
	Title     string    `json:"title"`
	Caption   string    `json:"caption"`
	DaysCount int       `json:"daysCount"`
	Tags      []string  `json:"tags"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary returns the catalog view of n.
func (n *Novena) Summary() Summary {
	tags := n.Meta.Tags
	if tags == nil {
		tags = []string{}
	}
	return Summary{
		ID:        n.ID,
		Slug:      n.Slug,
		Lang:      n.Lang,
		Title:     n.Meta.Title,
		Caption:   n.Meta.Caption,
		DaysCount: n.Meta.DaysCount,
		Tags:      tags,
		Thumbnail: n.Meta.Thumbnail,
		Version:   n.Version,
		UpdatedAt: n.UpdatedAt,
	}
}

// HasTag reports whether the novena is tagged with tag.
func (n *Novena) HasTag(tag string) bool {
	for _, t := range n.Meta.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
