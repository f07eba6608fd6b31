// Package content holds the read-only novena content of novenad.
//
// # Overview
//
// Two static JSON documents are loaded once at startup:
//
//   - globals.json: the Global Text Registry, shared prayers keyed by a short
//     key ("pn", "am", ...).
//   - novenas.json: the Novena Document Store, one definition per novena with
//     its script, local text tables, default sections and per-day content.
//
// Both are validated as a whole before the process serves anything. After
// Load returns, the Registry and Store are never mutated, so readers share
// them without locking.
//
// # Blocks
//
// Section content is a list of blocks. The shape of every raw entry is
// decided here, at the loading boundary:
//
//	"literal text"          -> text
//	{"text": "..."}         -> text
//	{"ref": "global:pn"}    -> reference
//	{"rubric": "..."}       -> rubric
//	null                    -> dropped
//
// Anything else (no recognised field, several of them, unknown fields,
// numbers, nested arrays) fails the load with ErrInvalidBlock. Re-encoding a
// Block produces its source shape, which is what the raw day endpoint serves.
//
// # Usage
//
//	snap, err := content.LoadEmbedded()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, err := snap.Store.Get("aparecida")
package content
