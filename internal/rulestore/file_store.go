package rulestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// RecordExt is the extension used when writing a rule record.
const RecordExt = ".json"

// recordExts are the extensions recognized as rule containers when scanning.
var recordExts = map[string]bool{
	".json": true,
	".txt":  true,
	".md":   true,
}

// FileStore implements Store on top of an afero filesystem.
// Use afero.NewOsFs() in production and afero.NewMemMapFs() in tests.
type FileStore struct {
	fs    afero.Fs
	roots rules.Roots
	log   *zap.Logger
}

// NewFileStore creates a filesystem-backed rule store.
func NewFileStore(fs afero.Fs, roots rules.Roots, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{fs: fs, roots: roots, log: log.Named("rulestore")}
}

// Roots returns the rule tree anchors the store was built with.
func (fs *FileStore) Roots() rules.Roots {
	return fs.roots
}

// Apply validates the rule, removes any same-named record from its bucket
// and writes <rule_name>.json. The removal is best-effort: a failure there
// is logged and the write still happens. Two concurrent applies of the same
// name can race between the two steps; the last write wins.
func (fs *FileStore) Apply(ctx context.Context, rule rules.Rule) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rule = rule.Normalize().Record()
	if err := rules.Validate(rule); err != nil {
		return "", err
	}

	dir, err := fs.roots.Resolve(rule.Scope, rule.Language)
	if err != nil {
		return "", err
	}

	if removed, err := fs.removeFromBucket(dir, rule.Name); err != nil {
		fs.log.Warn("could not delete rule before apply",
			zap.String("rule", rule.Name), zap.String("dir", dir), zap.Error(err))
	} else if removed > 0 {
		fs.log.Debug("replaced existing rule", zap.String("rule", rule.Name), zap.Int("records", removed))
	}

	if err := fs.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating rule directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling rule %q: %w", rule.Name, err)
	}

	path := filepath.Join(dir, rule.Name+RecordExt)
	if err := afero.WriteFile(fs.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing rule %q: %w", rule.Name, err)
	}

	fs.log.Info("rule applied", zap.String("rule", rule.Name), zap.String("path", path))
	return fmt.Sprintf("Rule '%s' applied to %s at %s", rule.Name, rule.Bucket(), path), nil
}

type searchScope struct {
	label string
	dir   string
}

// Delete searches workspace, global and then every registered mode
// (workspace variant before global) and removes the first record named
// name. When language is set and not general only that language subfolder
// is searched in each scope.
func (fs *FileStore) Delete(ctx context.Context, name, language string) (DeleteResult, error) {
	result := DeleteResult{Name: name}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	scopes := []searchScope{
		{label: rules.ScopeWorkspace, dir: fs.roots.WorkspaceRules()},
		{label: rules.ScopeGlobal, dir: fs.roots.GlobalRules()},
	}

	modes, err := fs.RegisteredModes()
	if err != nil {
		fs.log.Warn("custom modes unreadable", zap.Error(err))
	}
	for _, mode := range modes {
		ws, global := fs.roots.ModeDirs(mode)
		scopes = append(scopes,
			searchScope{label: rules.ModePrefix + mode, dir: ws},
			searchScope{label: "global-" + rules.ModePrefix + mode, dir: global},
		)
	}

	var lang rules.Language
	if language != "" {
		lang = rules.Lang(language)
	}

	for _, s := range scopes {
		dir := rules.LanguageDir(s.dir, lang)
		for _, rec := range fs.scanBucket(dir) {
			if rec.rule.Name != name {
				continue
			}
			result.Found = true
			result.Path = rec.path
			result.Location = s.label
			if !lang.IsGeneral() {
				result.Location += "/" + lang.Folder()
			}
			if err := fs.fs.Remove(rec.path); err != nil {
				fs.log.Error("failed to delete rule", zap.String("rule", name), zap.String("path", rec.path), zap.Error(err))
				return result, fmt.Errorf("%w: rule '%s' at %s: %v", rules.ErrDeleteFailed, name, rec.path, err)
			}
			fs.log.Info("rule deleted", zap.String("rule", name), zap.String("path", rec.path))
			return result, nil
		}
	}

	return result, nil
}

// List walks the global, workspace and mode rule trees in that order and
// returns every parsable rule matching filter. Unparsable files are logged
// and skipped.
func (fs *FileStore) List(ctx context.Context, filter rules.Filter) ([]rules.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sources := []searchScope{
		{label: rules.ScopeGlobal, dir: fs.roots.GlobalRules()},
		{label: rules.ScopeWorkspace, dir: fs.roots.WorkspaceRules()},
	}
	for _, mode := range fs.allModes() {
		ws, global := fs.roots.ModeDirs(mode)
		sources = append(sources,
			searchScope{label: "mode:" + mode, dir: ws},
			searchScope{label: "global-mode:" + mode, dir: global},
		)
	}

	var result []rules.Rule
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result = append(result, fs.walkSource(src)...)
	}
	return filter.Apply(result), nil
}

func (fs *FileStore) walkSource(src searchScope) []rules.Rule {
	exists, err := afero.DirExists(fs.fs, src.dir)
	if err != nil || !exists {
		return nil
	}

	var out []rules.Rule
	walkErr := afero.Walk(fs.fs, src.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			fs.log.Warn("error reading rules directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() || !recordExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		parsed, err := fs.readRecords(path)
		if err != nil {
			fs.log.Warn("skipping rule record", zap.String("path", path), zap.Error(err))
			return nil
		}

		label := src.label
		if rel, err := filepath.Rel(src.dir, filepath.Dir(path)); err == nil && rel != "." {
			label += "/" + filepath.ToSlash(rel)
		}
		for _, r := range parsed {
			r.Source = label
			r.File = info.Name()
			r.Path = path
			out = append(out, r)
		}
		return nil
	})
	if walkErr != nil {
		fs.log.Warn("walking rules directory", zap.String("dir", src.dir), zap.Error(walkErr))
	}
	return out
}

// readRecords parses a record file holding a single rule object or an
// array of them.
func (fs *FileStore) readRecords(path string) ([]rules.Rule, error) {
	data, err := afero.ReadFile(fs.fs, path)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	var parsed []rules.Rule
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", rules.ErrMalformedRecord, err)
		}
	} else {
		var r rules.Rule
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, fmt.Errorf("%w: %v", rules.ErrMalformedRecord, err)
		}
		parsed = []rules.Rule{r}
	}

	for _, r := range parsed {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: record without rule_name", rules.ErrMalformedRecord)
		}
	}
	return parsed, nil
}

type bucketRecord struct {
	rule rules.Rule
	path string
}

// scanBucket reads the single-rule records directly inside dir. A missing
// directory is an empty bucket.
func (fs *FileStore) scanBucket(dir string) []bucketRecord {
	entries, err := afero.ReadDir(fs.fs, dir)
	if err != nil {
		return nil
	}

	var out []bucketRecord
	for _, e := range entries {
		if e.IsDir() || !recordExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := afero.ReadFile(fs.fs, path)
		if err != nil {
			continue
		}
		var r rules.Rule
		if err := json.Unmarshal(data, &r); err != nil || r.Name == "" {
			continue
		}
		out = append(out, bucketRecord{rule: r, path: path})
	}
	return out
}

// removeFromBucket deletes every record named name directly inside dir and
// reports how many were removed.
func (fs *FileStore) removeFromBucket(dir, name string) (int, error) {
	removed := 0
	for _, rec := range fs.scanBucket(dir) {
		if rec.rule.Name != name {
			continue
		}
		if err := fs.fs.Remove(rec.path); err != nil {
			return removed, fmt.Errorf("%w: %s: %v", rules.ErrDeleteFailed, rec.path, err)
		}
		removed++
	}
	return removed, nil
}
