// Package run_manager owns the runtime directory of a running node.
// The directory lives under os.TempDir and is named after the node id, so a second
// node started with the same id can detect the first one.
package run_manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/akyaiy/verusgate/internal/core/utils"
	"github.com/akyaiy/verusgate/internal/engine/config"
	"github.com/fsnotify/fsnotify"
)

var ErrNotCreated = errors.New("runtime directory is not created")

var (
	mu      sync.Mutex
	created bool
	runDir  string
)

type RunFileManagerContract interface {
	Path() string
	Watch(parentCtx context.Context, callback func()) (context.CancelFunc, error)
}

type RunFileManager struct {
	path string
}

// Pattern matches the runtime directories of every node started with nodeID.
func Pattern(nodeID string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("*-%s-%s", nodeID, config.RuntimeDirSuffix))
}

// Create makes the runtime directory for nodeID.
func Create(nodeID string) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if created {
		return runDir, fmt.Errorf("runtime directory is already created")
	}
	path, err := os.MkdirTemp("", fmt.Sprintf("*-%s-%s", nodeID, config.RuntimeDirSuffix))
	if err != nil {
		return "", err
	}
	runDir = path
	created = true
	return path, nil
}

// Clean removes the runtime directory with everything in it.
func Clean() error {
	mu.Lock()
	defer mu.Unlock()
	if !created {
		return nil
	}
	created = false
	return utils.CleanTempRuntimes(runDir)
}

// Set creates an empty file under the runtime directory, with its parents.
func Set(index string) error {
	full, err := Get(index)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Get returns the path of index inside the runtime directory.
func Get(index string) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if !created {
		return "", ErrNotCreated
	}
	full := filepath.Join(runDir, index)
	if rel, err := filepath.Rel(runDir, full); err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("index %q escapes the runtime directory", index)
	}
	return full, nil
}

func File(index string) RunFileManagerContract {
	path, _ := Get(index)
	return &RunFileManager{path: path}
}

func RuntimeDir() string {
	mu.Lock()
	defer mu.Unlock()
	return runDir
}

func (r *RunFileManager) Path() string {
	return r.path
}

// Watch calls callback once when the file is written, removed or renamed.
// The returned function stops watching.
func (r *RunFileManager) Watch(parentCtx context.Context, callback func()) (context.CancelFunc, error) {
	if r.path == "" {
		return nil, ErrNotCreated
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watching the directory keeps reporting after the file itself is replaced
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		w.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(parentCtx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != r.path {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					cancel()
					callback()
					return
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return cancel, nil
}
