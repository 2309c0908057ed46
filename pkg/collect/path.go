package collect

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NormalizeMemberPath converts p into the canonical member path form:
// relative, forward-slash separated, no leading separator, no "." or
// ".." segments. It fails when the path is absolute, escapes above its
// root, or normalizes to nothing.
func NormalizeMemberPath(p string) (string, error) {
	slashed := filepath.ToSlash(p)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths not allowed: %s", p)
	}

	var components []string
	for _, component := range strings.Split(slashed, "/") {
		switch component {
		case "", ".":
			continue
		case "..":
			if len(components) == 0 {
				return "", fmt.Errorf("path escapes above root: %s", p)
			}
			components = components[:len(components)-1]
		default:
			components = append(components, component)
		}
	}

	if len(components) == 0 {
		return "", fmt.Errorf("path resolves to empty: %s", p)
	}
	return strings.Join(components, "/"), nil
}

// IsSafeRelativePath reports whether path is already in canonical
// member path form. Verification uses this to flag unsafe declared
// paths without rewriting them.
func IsSafeRelativePath(path string) bool {
	if path == "" || strings.HasPrefix(path, "/") {
		return false
	}
	for _, component := range strings.Split(path, "/") {
		switch component {
		case "", ".", "..":
			return false
		}
	}
	return true
}

// memberPathFor joins a directory basename with a relative path inside
// that directory.
func memberPathFor(dirBasename, relative string) string {
	return dirBasename + "/" + relative
}
