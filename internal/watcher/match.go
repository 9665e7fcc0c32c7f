package watcher

import (
	"path/filepath"
	"strings"

	"github.com/jaakkos/loomwork/internal/domain"
)

// Ignored reports whether a path matches any ignore pattern. A pattern
// beginning with "*" matches when its remainder is a literal suffix of the
// path; any other pattern matches as a plain substring.
func Ignored(path string, patterns []string) bool {
	p := filepath.ToSlash(path)
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if strings.HasPrefix(pat, "*") {
			if strings.HasSuffix(p, pat[1:]) {
				return true
			}
			continue
		}
		if strings.Contains(p, pat) {
			return true
		}
	}
	return false
}

// MatchTask resolves a project-relative path to the task whose declared
// ownership covers it. Matchers are tried in order of preference (exact
// equality, directory-prefix containment, suffix containment, bidirectional
// substring containment) and within each tier tasks are scanned in
// declaration order, so the earliest-declared task wins ties.
func MatchTask(relPath string, tasks []domain.Task) (string, bool) {
	rel := filepath.ToSlash(filepath.Clean(relPath))

	matchers := []func(rel, entry string) bool{
		func(rel, entry string) bool { return rel == entry },
		func(rel, entry string) bool { return strings.HasPrefix(rel, entry+"/") },
		func(rel, entry string) bool { return strings.HasSuffix(rel, entry) },
		func(rel, entry string) bool { return strings.Contains(rel, entry) || strings.Contains(entry, rel) },
	}

	for _, match := range matchers {
		for _, task := range tasks {
			for _, owned := range task.Files {
				entry := filepath.ToSlash(filepath.Clean(owned))
				if entry == "" || entry == "." {
					continue
				}
				if match(rel, entry) {
					return task.ID, true
				}
			}
		}
	}
	return "", false
}
