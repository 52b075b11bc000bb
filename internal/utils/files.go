package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNoMatches is returned when no argument resolves to an existing file.
var ErrNoMatches = errors.New("no input files matched")

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// ExpandGlobs resolves each argument as a glob, falling back to a literal
// path when the pattern matches nothing. The result is de-duplicated and sorted.
func ExpandGlobs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, ErrNoMatches
	}
	sort.Strings(files)
	return files, nil
}

// UniquePath returns dir/base+suffix, or dir/base__N+suffix with the first
// free N starting at 2 when that file already exists.
func UniquePath(dir, base, suffix string) string {
	out := filepath.Join(dir, base+suffix)
	if _, err := os.Stat(out); err != nil {
		return out
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, suffix))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}
