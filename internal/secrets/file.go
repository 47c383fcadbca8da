package secrets

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileStore resolves secrets from a single YAML document mapping
// reference -> {key name -> content}. The file is re-read on every
// resolution so in-place rotation is picked up on the next cycle.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed resolver reading from path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Resolve implements Resolver.
func (s *FileStore) Resolve(ctx context.Context, ref string) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file %s: %w", s.path, err)
	}

	var all map[string]map[string]string
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", s.path, err)
	}

	content, ok := all[ref]
	if !ok {
		return nil, fmt.Errorf("secret %q: %w", ref, ErrNotFound)
	}
	return content, nil
}
