// Package glob turns a directory → extensions map into glob patterns and
// resolves the watched file list from it.
package glob

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var ErrBadPattern = errors.New("glob: bad pattern")

// Compile builds a single alternation pattern for dirs, for example
// {"/a": ["rb", "txt"], "/b,c": nil} → {/a/**/*.{rb,txt},/b\,c/**/*}.
// An empty map compiles to "".
func Compile(dirs map[string][]string) string {
	if len(dirs) == 0 {
		return ""
	}

	globs := make([]string, 0, len(dirs))
	for _, dir := range sortedKeys(dirs) {
		globs = append(globs, escape(dir)+"/"+filePattern(dirs[dir]))
	}

	return "{" + strings.Join(globs, ",") + "}"
}

// Match reports whether name matches a pattern produced by Compile.
func Match(pattern, name string) (bool, error) {
	if pattern == "" {
		return false, nil
	}
	ok, err := doublestar.Match(pattern, filepath.ToSlash(name))
	if err != nil {
		return false, errors.Join(ErrBadPattern, err)
	}
	return ok, nil
}

// Resolve returns the existing files among files followed by every file
// below each directory of dirs that carries one of its extensions. Dot
// files and anything below a dot directory are left out. The result
// holds no duplicates.
func Resolve(files []string, dirs map[string][]string) ([]string, error) {
	seen := make(map[string]struct{})
	all := make([]string, 0, len(files))

	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		all = append(all, p)
	}

	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			add(f)
		}
	}

	for _, dir := range sortedKeys(dirs) {
		pattern := filePattern(dirs[dir])
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Join(ErrBadPattern, errors.New(pattern))
		}

		matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Join(ErrBadPattern, err)
		}

		sort.Strings(matches)
		for _, m := range matches {
			if hidden(m) {
				continue
			}
			add(filepath.Join(dir, filepath.FromSlash(m)))
		}
	}

	return all, nil
}

// filePattern is the recursive pattern below a directory, restricted to
// exts when there are any.
func filePattern(exts []string) string {
	if len(exts) == 0 {
		return "**/*"
	}
	return "**/*.{" + strings.Join(exts, ",") + "}"
}

// hidden reports whether any segment of the slash separated match
// starts with a dot.
func hidden(match string) bool {
	for _, seg := range strings.Split(match, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// escape keeps commas in directory names from being read as alternation.
func escape(dir string) string {
	return strings.ReplaceAll(dir, ",", `\,`)
}

func sortedKeys(dirs map[string][]string) []string {
	keys := make([]string, 0, len(dirs))
	for k := range dirs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
