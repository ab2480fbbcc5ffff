package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// FilesKey is the reserved tree key holding a directory's file names.
const FilesKey = "__files__"

// DefaultIgnoreDirs are skipped when walking the project.
var DefaultIgnoreDirs = []string{".git", "node_modules"}

var (
	// String literals are matched alongside comments so that "//" or "/*"
	// inside a quoted string is never read as a comment opener. Quoted
	// literals stop at a newline; template literals may span lines.
	commentPattern = regexp.MustCompile(`(?s)"(?:\\.|[^"\\\n])*"|'(?:\\.|[^'\\\n])*'|` +
		"`[^`]*`" + `|/\*.*?\*/|//[^\n]*`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Compress strips /* */ and // comments outside string literals, then
// collapses whitespace runs to one space and trims the result.
func Compress(content string) string {
	content = commentPattern.ReplaceAllStringFunc(content, func(m string) string {
		if strings.HasPrefix(m, "/") {
			return ""
		}
		return m
	})
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(content, " "))
}

// projectFiles reads and walks the workspace through afero.
type projectFiles struct {
	fs     afero.Fs
	root   string
	ignore []string
}

// find resolves query to a file. A literal path (absolute, or relative to
// the root) wins; otherwise the first walked file whose slash path ends in
// /query or whose base name equals query is returned.
func (p projectFiles) find(query string) (string, bool) {
	literal := query
	if !filepath.IsAbs(literal) {
		literal = filepath.Join(p.root, query)
	}
	if info, err := p.fs.Stat(literal); err == nil && !info.IsDir() {
		return literal, true
	}

	want := filepath.ToSlash(filepath.Clean(query))
	var match string
	_ = afero.Walk(p.fs, p.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || match != "" {
			return nil
		}
		if info.IsDir() {
			if path != p.root && slices.Contains(p.ignore, info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		slash := filepath.ToSlash(path)
		if strings.HasSuffix(slash, "/"+want) || info.Name() == want {
			match = path
			return filepath.SkipAll
		}
		return nil
	})
	return match, match != ""
}

func (p projectFiles) read(path string) (string, error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// tree builds the nested directory map of dir: subdirectories map to their
// own trees and file names are listed under FilesKey.
func (p projectFiles) tree(dir string) (map[string]any, error) {
	entries, err := afero.ReadDir(p.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	node := make(map[string]any)
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			if slices.Contains(p.ignore, e.Name()) {
				continue
			}
			sub, err := p.tree(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			node[e.Name()] = sub
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) > 0 {
		node[FilesKey] = files
	}
	return node, nil
}
