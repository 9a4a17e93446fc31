// Package preprocess implements translation phase 4: directive execution and
// macro expansion over the phase-3 token stream, per §4.2.
package preprocess

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

// MaxIncludeDepth is the cap from §4.2 and property 9: depth 15 succeeds,
// depth 16 is an error.
const MaxIncludeDepth = 15

// SearchPath is the ordered (user, system) include-directory pair described
// in §6. Paths containing a "bin" segment in the system list are filtered
// out at construction, matching the host-toolchain convention of excluding
// compiler-internal binary directories that sometimes leak into search
// lists.
type SearchPath struct {
	User   []string
	System []string
}

// NewSearchPath builds a SearchPath, applying the bin/ filter to system and
// dropping repeated -I directories (first occurrence wins, order preserved)
// so a duplicated flag doesn't make every #include probe the same directory
// twice.
func NewSearchPath(user, system []string) *SearchPath {
	sp := &SearchPath{User: dedupDirs(user)}
	for _, dir := range system {
		if containsBinSegment(dir) {
			continue
		}
		sp.System = append(sp.System, dir)
	}
	sp.System = dedupDirs(sp.System)
	return sp
}

func dedupDirs(dirs []string) []string {
	if dirs == nil {
		return nil
	}
	seen := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !slices.Contains(seen, d) {
			seen = append(seen, d)
		}
	}
	return seen
}

func containsBinSegment(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == "bin" {
			return true
		}
	}
	return false
}

// Resolution records where an include was found, so #include_next can
// resume the search just past it.
type Resolution struct {
	Path    string
	DirList []string // the list (User or System) the match came from
	Index   int      // index within DirList of the directory that matched
}

// Resolve finds header in sp, trying user-then-system for a quoted include
// and system-only for a bracketed one, per §4.2/§6.
func (sp *SearchPath) Resolve(header string, quoted bool, fromDir string) (*Resolution, bool) {
	if quoted {
		if fromDir != "" {
			if p := filepath.Join(fromDir, header); fileExists(p) {
				return &Resolution{Path: p}, true
			}
		}
		if res, ok := sp.searchList(sp.User, header); ok {
			return res, true
		}
	}
	return sp.searchList(sp.System, header)
}

// ResolveNext continues a search from just past the directory that produced
// prev, per #include_next semantics.
func (sp *SearchPath) ResolveNext(header string, prev *Resolution) (*Resolution, bool) {
	list := prev.DirList
	start := prev.Index + 1
	for i := start; i < len(list); i++ {
		p := filepath.Join(list[i], header)
		if fileExists(p) {
			return &Resolution{Path: p, DirList: list, Index: i}, true
		}
	}
	return nil, false
}

func (sp *SearchPath) searchList(list []string, header string) (*Resolution, bool) {
	for i, dir := range list {
		p := filepath.Join(dir, header)
		if fileExists(p) {
			return &Resolution{Path: p, DirList: list, Index: i}, true
		}
	}
	return nil, false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
