package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ruleforge-hq/anvil/pkg/rules"
)

// FileSource loads rules from YAML files on disk.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a new file-based rule source.
// The path can be either a single file or a directory.
// If it's a directory, all .yaml and .yml files will be loaded in lexical
// order, skipping hidden files and directories.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// Path returns the configured path.
func (s *FileSource) Path() string {
	return s.path
}

// Load loads and merges all rule files from the configured path. Any
// unreadable or invalid file fails the load; rule names must be unique
// across files.
func (s *FileSource) Load(ctx context.Context) (*rules.RuleSet, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	files := []string{s.path}
	if info.IsDir() {
		if files, err = s.listDirectory(); err != nil {
			return nil, err
		}
	}

	set := &rules.RuleSet{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileSet, err := s.loadFile(path)
		if err != nil {
			return nil, err
		}
		set.Merge(fileSet)
	}

	if err := set.Validate(); err != nil {
		return nil, &rules.LoadError{FilePath: s.path, Message: "invalid rule set", Cause: err}
	}

	s.logger.Info("loaded rules from source",
		"path", s.path,
		"files", len(files),
		"rule_count", len(set.Rules),
	)

	return set, nil
}

// listDirectory returns the rule files below the configured directory.
func (s *FileSource) listDirectory() ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != s.path && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsRuleFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	return files, nil
}

// loadFile loads a single rule file.
func (s *FileSource) loadFile(path string) (*rules.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rules.LoadError{FilePath: path, Message: "cannot read file", Cause: err}
	}

	set, err := rules.Parse(data, path)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("loaded rule file",
		"path", path,
		"rule_count", len(set.Rules),
	)

	return set, nil
}

// IsRuleFile reports whether path has a YAML extension.
func IsRuleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
