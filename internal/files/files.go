// Package files implements the local file-browser backend: directory
// listings rooted at the workspace, honoring .gitignore.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

// Entry is one row in a file listing.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"` // workspace-relative
	IsDir   bool      `json:"isDir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Lister lists directories under a workspace root. Entries matched by the
// root .gitignore are hidden, as is the .git directory itself.
type Lister struct {
	root    string
	matcher *ignore.GitIgnore
}

// NewLister creates a Lister rooted at root. A missing or unreadable
// .gitignore just disables ignore filtering.
func NewLister(root string) *Lister {
	l := &Lister{root: root}
	if matcher, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		l.matcher = matcher
	}
	return l
}

// Root returns the workspace root.
func (l *Lister) Root() string { return l.root }

// List returns the entries of the directory at the workspace-relative path
// ("" = root), directories first, each group sorted by name. Paths escaping
// the root are rejected.
func (l *Lister) List(rel string) ([]Entry, error) {
	if c := filepath.Clean(rel); c == ".." || strings.HasPrefix(c, "../") {
		return nil, fmt.Errorf("list files: path %q escapes workspace", rel)
	}
	clean := filepath.Clean("/" + rel)
	dir := filepath.Join(l.root, clean)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list files at %q: %w", rel, err)
	}

	var out []Entry
	for _, de := range dirEntries {
		if de.Name() == ".git" {
			continue
		}
		relPath := strings.TrimPrefix(filepath.Join(clean, de.Name()), "/")
		if l.matcher != nil {
			probe := relPath
			if de.IsDir() {
				probe += "/"
			}
			if l.matcher.MatchesPath(probe) {
				continue
			}
		}
		info, err := de.Info()
		if err != nil {
			continue // raced with deletion
		}
		out = append(out, Entry{
			Name:    de.Name(),
			Path:    relPath,
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
