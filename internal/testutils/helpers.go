package testutils

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// WriteFile writes content to name inside dir, creating parent
// directories, and returns the file's path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "Failed to create fixture directory")
	require.NoError(t, os.WriteFile(path, content, 0o600), "Failed to write fixture %s", name)
	return path
}

// ManifestSource is one entry of a generated manifest.
type ManifestSource struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Href     string `json:"href"`
	Boundary string `json:"boundary,omitempty"`
}

// Manifest is a generated manifest document.
type Manifest struct {
	ID            string           `json:"id"`
	Models        string           `json:"models,omitempty"`
	AnatomicalMap string           `json:"anatomicalMap,omitempty"`
	Properties    string           `json:"properties,omitempty"`
	Sources       []ManifestSource `json:"sources"`
}

// WriteManifest writes m as manifest.json in dir and returns its path.
func WriteManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()

	data, err := json.MarshalIndent(m, "", "  ")
	require.NoError(t, err, "Failed to encode manifest")
	return WriteFile(t, dir, "manifest.json", data)
}

// AssertCloseNoError ensures that the Close() method on the provided closer
// executes without error. It uses assert so later defers still run.
func AssertCloseNoError(t *testing.T, closer io.Closer) {
	t.Helper()
	if closer == nil {
		return
	}
	assert.NoError(t, closer.Close(), "Failed to close resource")
}
