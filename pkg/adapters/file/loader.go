package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/guidebook/internal/dto"
	"github.com/aretw0/guidebook/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.LeafLoader over leaf files (YAML or JSON, chosen
// by extension). Leaves of several files are concatenated in argument order.
type Loader struct {
	Paths []string
}

// NewLoader creates a Loader reading the given files. A directory stands for
// every .yaml, .yml and .json file it contains, in lexical order.
func NewLoader(paths ...string) *Loader {
	return &Loader{Paths: paths}
}

// Load reads and decodes every file.
func (l *Loader) Load(ctx context.Context) ([]*domain.Leaf, error) {
	files, err := l.files()
	if err != nil {
		return nil, err
	}

	var leaves []*domain.Leaf
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, got...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (l *Loader) files() ([]string, error) {
	var out []string
	for _, p := range l.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read leaves: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to list leaves: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() && isLeafFile(e.Name()) {
				out = append(out, filepath.Join(p, e.Name()))
			}
		}
	}
	return out, nil
}

func isLeafFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadFile decodes one leaf file.
func LoadFile(path string) ([]*domain.Leaf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaves: %w", err)
	}

	var raw any
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	leaves, err := dto.DecodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return leaves, nil
}

// WriteFile encodes leaves as a leaf document, JSON or YAML by extension.
func WriteFile(path string, leaves []*domain.Leaf) error {
	items := make([]any, 0, len(leaves))
	for _, l := range leaves {
		items = append(items, dto.EncodeLeaf(l))
	}

	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(map[string]any{"leaves": items}, "", "  ")
	} else {
		data, err = yaml.Marshal(map[string]any{"leaves": items})
	}
	if err != nil {
		return fmt.Errorf("failed to encode leaves: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
