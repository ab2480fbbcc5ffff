package rulestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Custom mode definition files, checked in this order.
var customModesFiles = []string{"custom_modes.json", "custom_modes.yaml", "custom_modes.yml"}

type customModesDoc struct {
	CustomModes []struct {
		Slug string `json:"slug" yaml:"slug"`
	} `json:"customModes" yaml:"customModes"`
}

// RegisteredModes reads the workspace's custom mode definitions. A missing
// file yields no modes. Two shapes are understood: an object keyed by mode
// slug, and the {"customModes": [{"slug": ...}]} document.
func (fs *FileStore) RegisteredModes() ([]string, error) {
	dir := fs.roots.CustomModesDir()
	for _, name := range customModesFiles {
		path := filepath.Join(dir, name)
		data, err := afero.ReadFile(fs.fs, path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		modes, err := parseCustomModes(name, data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return modes, nil
	}
	return nil, nil
}

func parseCustomModes(name string, data []byte) ([]string, error) {
	var raw map[string]any
	var doc customModesDoc
	if strings.HasSuffix(name, ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if _, ok := raw["customModes"]; ok {
			if err := json.Unmarshal(data, &doc); err != nil {
				return nil, err
			}
			return docSlugs(doc), nil
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if _, ok := raw["customModes"]; ok {
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, err
			}
			return docSlugs(doc), nil
		}
	}

	modes := make([]string, 0, len(raw))
	for slug := range raw {
		modes = append(modes, slug)
	}
	slices.Sort(modes)
	return modes, nil
}

func docSlugs(doc customModesDoc) []string {
	modes := make([]string, 0, len(doc.CustomModes))
	for _, m := range doc.CustomModes {
		if m.Slug != "" {
			modes = append(modes, m.Slug)
		}
	}
	return modes
}

// discoveredModes lists rules-<mode> directories that exist under either
// root, so rules applied to unregistered modes still show up in listings.
func (fs *FileStore) discoveredModes() []string {
	var modes []string
	for _, root := range []string{fs.roots.Workspace, fs.roots.Home} {
		entries, err := afero.ReadDir(fs.fs, filepath.Join(root, rules.RooDir))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && strings.HasPrefix(e.Name(), rules.ModeDirPrefix) && len(e.Name()) > len(rules.ModeDirPrefix) {
				modes = append(modes, strings.TrimPrefix(e.Name(), rules.ModeDirPrefix))
			}
		}
	}
	return modes
}

// allModes merges registered and discovered modes, registered first,
// without duplicates.
func (fs *FileStore) allModes() []string {
	registered, err := fs.RegisteredModes()
	if err != nil {
		fs.log.Warn("custom modes unreadable", zap.Error(err))
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range append(registered, fs.discoveredModes()...) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
