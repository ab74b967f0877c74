package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExistsMatchingDirs reports whether a directory other than exclude matches pattern.
func ExistsMatchingDirs(pattern, exclude string) (bool, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return false, err
	}
	exclude = filepath.Clean(exclude)
	for _, m := range matches {
		if filepath.Clean(m) == exclude {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return true, nil
		}
	}
	return false, nil
}

// CleanTempRuntimes removes a runtime directory. Only directories under os.TempDir are removed.
func CleanTempRuntimes(dir string) error {
	if dir == "" {
		return nil
	}
	tmp := filepath.Clean(os.TempDir())
	dir = filepath.Clean(dir)
	rel, err := filepath.Rel(tmp, dir)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return fmt.Errorf("refusing to remove %q: not inside %q", dir, tmp)
	}
	return os.RemoveAll(dir)
}
