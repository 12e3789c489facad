package dicom

import (
	"os"
	"path/filepath"
	"sort"
)

// Enumerate lists all files under root whose base name matches the glob
// pattern (e.g. "*.dcm"), recursing into subdirectories. Unreadable entries
// are skipped. The result is sorted, but callers must not rely on any
// particular processing order.
func Enumerate(root, pattern string) ([]string, error) {
	var files []string

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		ok, err := filepath.Match(pattern, info.Name())
		if err != nil {
			return err
		}
		if ok {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.Walk(root, walkFn); err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// EnumerateDir lists matching files in a single directory without recursing.
func EnumerateDir(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}
