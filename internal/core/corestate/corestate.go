package corestate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Stage string

const (
	StageNotReady Stage = "init"
	StagePreInit  Stage = "pre-init"
	StagePostInit Stage = "post-init"
	StageReady    Stage = "event"
)

// NodeIDFile is the file under the meta directory holding the node id.
const NodeIDFile = "node-id"

func NewCorestate(o *CoreState) *CoreState {
	if o.Stage == "" {
		o.Stage = StageNotReady
	}
	return o
}

// GetNodeID reads the node id stored at path.
func GetNodeID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	id, err := uuid.ParseBytes(bytes.TrimSpace(data))
	if err != nil {
		return "", fmt.Errorf("corrupted node id in %s: %w", path, err)
	}
	return id.String(), nil
}

// SetNodeID writes a new random id to path, creating missing directories.
func SetNodeID(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", err
	}
	return id, nil
}

// LoadNodeID returns the id kept in metaDir, generating it on first start.
func LoadNodeID(metaDir string) (string, error) {
	path := filepath.Join(metaDir, NodeIDFile)
	id, err := GetNodeID(path)
	if errors.Is(err, fs.ErrNotExist) {
		return SetNodeID(path)
	}
	return id, err
}
