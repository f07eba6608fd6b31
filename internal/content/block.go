package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// BlockKind discriminates the Block variant.
type BlockKind string

const (
	BlockText   BlockKind = "text"
	BlockRef    BlockKind = "ref"
	BlockRubric BlockKind = "rubric"
)

// Block is one raw unit of section content, already classified.
//
// Text holds the literal for text blocks and the stage direction for rubric
// blocks. Ref holds the unparsed "scope:key" reference for reference blocks.
type Block struct {
	Kind BlockKind
	Text string
	Ref  string

	// bare is set for text blocks written as a JSON string rather than
	// {"text": ...}, so the raw shape survives re-encoding.
	bare bool
}

// Text returns a text block.
func Text(s string) Block { return Block{Kind: BlockText, Text: s, bare: true} }

// Ref returns a reference block for "scope:key".
func Ref(ref string) Block { return Block{Kind: BlockRef, Ref: ref} }

// Rubric returns a rubric block.
func Rubric(s string) Block { return Block{Kind: BlockRubric, Text: s} }

// blockFields maps the accepted object keys to their kinds.
var blockFields = map[string]BlockKind{
	"text":   BlockText,
	"ref":    BlockRef,
	"rubric": BlockRubric,
}

// UnmarshalJSON classifies a single raw entry. null is rejected here;
// Blocks drops null entries before they reach a Block.
func (b *Block) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidBlock)
	}
	blk, err := decodeBlock(gjson.ParseBytes(data))
	if err != nil {
		return err
	}
	*b = blk
	return nil
}

func decodeBlock(r gjson.Result) (Block, error) {
	switch {
	case r.Type == gjson.String:
		return Text(r.String()), nil
	case r.IsObject():
		// handled below
	default:
		return Block{}, fmt.Errorf("%w: unsupported entry %s", ErrInvalidBlock, abbreviate(r.Raw))
	}

	var (
		blk   Block
		found []string
		err   error
	)
	r.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		kind, ok := blockFields[name]
		if !ok {
			err = fmt.Errorf("%w: unknown field %q", ErrInvalidBlock, name)
			return false
		}
		if value.Type != gjson.String || strings.TrimSpace(value.String()) == "" {
			err = fmt.Errorf("%w: field %q must be a non-empty string", ErrInvalidBlock, name)
			return false
		}
		found = append(found, name)
		blk.Kind = kind
		if kind == BlockRef {
			blk.Ref = value.String()
		} else {
			blk.Text = value.String()
		}
		return true
	})
	if err != nil {
		return Block{}, err
	}
	switch len(found) {
	case 0:
		return Block{}, fmt.Errorf("%w: object has none of text, ref, rubric", ErrInvalidBlock)
	case 1:
		return blk, nil
	default:
		return Block{}, fmt.Errorf("%w: ambiguous entry with fields %s", ErrInvalidBlock, strings.Join(found, ", "))
	}
}

// MarshalJSON re-encodes the block in its source shape.
func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BlockText:
		if b.bare {
			return json.Marshal(b.Text)
		}
		return json.Marshal(map[string]string{"text": b.Text})
	case BlockRef:
		return json.Marshal(map[string]string{"ref": b.Ref})
	case BlockRubric:
		return json.Marshal(map[string]string{"rubric": b.Text})
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidBlock, b.Kind)
	}
}

// Blocks is an ordered section of content.
type Blocks []Block

// UnmarshalJSON accepts an array of entries (null entries are dropped) or a
// bare string, which becomes a single text block.
func (bs *Blocks) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidBlock)
	}
	r := gjson.ParseBytes(data)
	switch {
	case r.Type == gjson.Null:
		*bs = nil
		return nil
	case r.Type == gjson.String:
		*bs = Blocks{Text(r.String())}
		return nil
	case !r.IsArray():
		return fmt.Errorf("%w: section must be an array, got %s", ErrInvalidBlock, abbreviate(r.Raw))
	}

	entries := r.Array()
	out := make(Blocks, 0, len(entries))
	for i, entry := range entries {
		if entry.Type == gjson.Null {
			continue
		}
		blk, err := decodeBlock(entry)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, blk)
	}
	*bs = out
	return nil
}

// MarshalJSON encodes a nil section as an empty array.
func (bs Blocks) MarshalJSON() ([]byte, error) {
	if bs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Block(bs))
}

func abbreviate(raw string) string {
	const max = 40
	if len(raw) <= max {
		return raw
	}
	return raw[:max] + "..."
}
