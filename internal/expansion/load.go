package expansion

import (
	"fmt"

	"github.com/fyrsmithlabs/novenad/internal/content"
)

// Load reads the content documents from dir, or the embedded copy when dir
// is empty, and expands every day once. A snapshot is returned only when
// every reference resolves.
func Load(dir string) (*content.Snapshot, *Engine, error) {
	var (
		snap *content.Snapshot
		err  error
	)
	if dir == "" {
		snap, err = content.LoadEmbedded()
	} else {
		snap, err = content.LoadDir(dir)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading content: %w", err)
	}
	engine, err := NewEngine(snap.Registry)
	if err != nil {
		return nil, nil, fmt.Errorf("creating expansion engine: %w", err)
	}
	if err := engine.Check(snap.Store); err != nil {
		return nil, nil, fmt.Errorf("checking content: %w", err)
	}
	return snap, engine, nil
}
