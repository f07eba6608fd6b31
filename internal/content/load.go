package content

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
)

// Document names inside a content directory.
const (
	GlobalsFile = "globals.json"
	NovenasFile = "novenas.json"
)

//go:embed data/*.json
var embedded embed.FS

// Snapshot is the loaded, validated content of the process.
type Snapshot struct {
	Registry *Registry
	Store    *Store
}

// LoadEmbedded loads the content compiled into the binary.
func LoadEmbedded() (*Snapshot, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("opening embedded content: %w", err)
	}
	return Load(sub)
}

// LoadDir loads globals.json and novenas.json from dir.
func LoadDir(dir string) (*Snapshot, error) {
	return Load(os.DirFS(dir))
}

// Load reads and validates both documents from fsys.
func Load(fsys fs.FS) (*Snapshot, error) {
	var globals []GlobalText
	if err := decodeFile(fsys, GlobalsFile, &globals); err != nil {
		return nil, err
	}
	reg, err := NewRegistry(globals)
	if err != nil {
		return nil, &LoadError{File: GlobalsFile, Err: err}
	}

	var novenas []*Novena
	if err := decodeFile(fsys, NovenasFile, &novenas); err != nil {
		return nil, err
	}
	store, err := NewStore(novenas)
	if err != nil {
		return nil, &LoadError{File: NovenasFile, Err: err}
	}

	return &Snapshot{Registry: reg, Store: store}, nil
}

func decodeFile(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return &LoadError{File: name, Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &LoadError{File: name, Err: err}
	}
	return nil
}
