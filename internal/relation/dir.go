package relation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const localDataFile = "local.yaml"

// DirRegistry is a filesystem-backed registry: one subdirectory per
// registered consumer under the root directory. Local relation data is a
// YAML map written to local.yaml inside the consumer's directory.
type DirRegistry struct {
	root string
}

// NewDirRegistry creates a registry rooted at dir.
func NewDirRegistry(dir string) *DirRegistry {
	return &DirRegistry{root: dir}
}

// List implements Registry. A missing root directory means no consumers
// are registered, not an error.
func (r *DirRegistry) List() ([]Peer, error) {
	entries, err := os.ReadDir(r.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading peers directory %s: %w", r.root, err)
	}

	var peers []Peer
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		peers = append(peers, &dirPeer{
			name: entry.Name(),
			dir:  filepath.Join(r.root, entry.Name()),
		})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Name() < peers[j].Name() })
	return peers, nil
}

type dirPeer struct {
	name string
	dir  string
}

func (p *dirPeer) Name() string { return p.name }

// SetLocal merges the key into the peer's local data file, creating it on
// first publication.
func (p *dirPeer) SetLocal(key, value string) error {
	local := map[string]string{}

	data, err := os.ReadFile(filepath.Join(p.dir, localDataFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// first publication
	case err != nil:
		return fmt.Errorf("reading local data for peer %s: %w", p.name, err)
	default:
		if err := yaml.Unmarshal(data, &local); err != nil {
			return fmt.Errorf("parsing local data for peer %s: %w", p.name, err)
		}
	}

	local[key] = value
	out, err := yaml.Marshal(local)
	if err != nil {
		return fmt.Errorf("encoding local data for peer %s: %w", p.name, err)
	}
	if err := os.WriteFile(filepath.Join(p.dir, localDataFile), out, 0o644); err != nil {
		return fmt.Errorf("writing local data for peer %s: %w", p.name, err)
	}
	return nil
}
