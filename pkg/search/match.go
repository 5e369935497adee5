package search

import (
	"io/fs"
	"strings"

	"github.com/grovetools/finder/pkg/models"
)

// ParseExtensions splits a comma-separated extension list. Items are
// trimmed, lower-cased and stripped of a leading dot; empty items are
// dropped. Files without an extension therefore never pass a non-empty
// filter.
func ParseExtensions(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimPrefix(strings.TrimSpace(item), ".")
		if item == "" {
			continue
		}
		out = append(out, strings.ToLower(item))
	}
	return out
}

// extensionOf returns the extension of name without the dot. Names with a
// single leading dot (.bashrc) have no extension.
func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}

type matcher struct {
	term       string
	target     models.Target
	extensions []string
}

func newMatcher(term string, scenario models.SearchScenario) *matcher {
	return &matcher{
		term:       strings.ToLower(term),
		target:     scenario.Target,
		extensions: ParseExtensions(scenario.FileExtensions),
	}
}

// match reports whether the entry passes the filters. name is the entry's
// display name, which differs from d.Name() for a symlinked root.
func (m *matcher) match(path, name string, d fs.DirEntry) (models.SearchResult, bool) {
	isDir := d.IsDir()
	switch m.target {
	case models.TargetFolders:
		if !isDir {
			return models.SearchResult{}, false
		}
	case models.TargetFiles:
		if isDir {
			return models.SearchResult{}, false
		}
	}

	if !strings.Contains(strings.ToLower(name), m.term) {
		return models.SearchResult{}, false
	}

	if !isDir && len(m.extensions) > 0 && !m.hasExtension(name) {
		return models.SearchResult{}, false
	}

	info, err := d.Info()
	if err != nil {
		return models.SearchResult{}, false
	}

	var size uint64
	if !isDir && info.Size() > 0 {
		size = uint64(info.Size())
	}

	return models.SearchResult{
		Name:       name,
		Path:       path,
		IsDir:      isDir,
		Size:       size,
		ModifiedAt: info.ModTime().Local().Format(models.ModifiedAtLayout),
	}, true
}

func (m *matcher) hasExtension(name string) bool {
	ext := strings.ToLower(extensionOf(name))
	for _, want := range m.extensions {
		if want == ext {
			return true
		}
	}
	return false
}
