package relation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDirRegistryMissingRoot(t *testing.T) {
	registry := NewDirRegistry(filepath.Join(t.TempDir(), "absent"))

	peers, err := registry.List()
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestDirRegistryListsDirectoriesOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "postfix"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "exim"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray-file"), nil, 0o644))

	peers, err := NewDirRegistry(root).List()
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, "exim", peers[0].Name())
	assert.Equal(t, "postfix", peers[1].Name())
}

func TestPeerSetLocal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "postfix"), 0o755))

	peers, err := NewDirRegistry(root).List()
	require.NoError(t, err)
	require.Len(t, peers, 1)

	require.NoError(t, peers[0].SetLocal("port", "8892"))

	data, err := os.ReadFile(filepath.Join(root, "postfix", "local.yaml"))
	require.NoError(t, err)

	var local map[string]string
	require.NoError(t, yaml.Unmarshal(data, &local))
	assert.Equal(t, map[string]string{"port": "8892"}, local)
}

func TestPeerSetLocalMergesExistingKeys(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "postfix"), 0o755))

	peers, err := NewDirRegistry(root).List()
	require.NoError(t, err)

	require.NoError(t, peers[0].SetLocal("port", "8892"))
	require.NoError(t, peers[0].SetLocal("address", "10.0.0.4"))

	data, err := os.ReadFile(filepath.Join(root, "postfix", "local.yaml"))
	require.NoError(t, err)

	var local map[string]string
	require.NoError(t, yaml.Unmarshal(data, &local))
	assert.Equal(t, map[string]string{"port": "8892", "address": "10.0.0.4"}, local)
}
