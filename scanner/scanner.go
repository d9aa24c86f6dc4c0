// Package scanner walks a repository checkout and collects the resource
// records declared in its YAML manifests.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mchestr/kubestats/parser"
	"github.com/mchestr/kubestats/types"
)

// ErrInvalidRoot indicates the scan root is missing or not a directory.
var ErrInvalidRoot = errors.New("invalid scan root")

// Default directories that never contain manifests worth tracking.
var defaultExcludes = []string{"node_modules", "vendor", "charts"}

// Scanner finds and parses manifests under a repository root.
type Scanner struct {
	parser   *parser.Parser
	logger   zerolog.Logger
	excludes map[string]bool
}

// New creates a scanner with the default parser and exclusions.
func New(logger zerolog.Logger) *Scanner {
	return NewWithParser(parser.New(), logger)
}

// NewWithParser creates a scanner over a custom parser.
func NewWithParser(p *parser.Parser, logger zerolog.Logger) *Scanner {
	excludes := make(map[string]bool, len(defaultExcludes))
	for _, name := range defaultExcludes {
		excludes[name] = true
	}
	return &Scanner{parser: p, logger: logger, excludes: excludes}
}

// NewWithExcludes creates a scanner that skips extra directory names on top
// of the defaults.
func NewWithExcludes(logger zerolog.Logger, extra []string) *Scanner {
	s := New(logger)
	for _, name := range extra {
		s.excludes[name] = true
	}
	return s
}

// Scan walks root, parses every YAML file in stable order and returns the
// post-processed resource set. A file that fails to read or parse is logged
// and skipped; only an unusable root fails the scan.
func (s *Scanner) Scan(root string) ([]types.ResourceData, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	files, err := s.findManifests(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	s.logger.Debug().
		Str("root", root).
		Int("files", len(files)).
		Msg("scanning manifests")

	var resources []types.ResourceData
	for _, relPath := range files {
		fileResources, err := s.scanFile(root, relPath)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("file", relPath).
				Msg("skipping unparseable file")
			continue
		}
		resources = append(resources, fileResources...)
	}

	return PostProcess(resources), nil
}

// scanFile reads and parses one manifest file.
func (s *Scanner) scanFile(root, relPath string) ([]types.ResourceData, error) {
	content, err := os.ReadFile(filepath.Join(root, relPath)) // #nosec G304 -- paths come from the walked tree
	if err != nil {
		return nil, err
	}
	return s.parser.ParseFile(content, relPath)
}

// findManifests lists every *.yaml/*.yml under root, relative to root and
// lexicographically sorted so post-processing is deterministic. Hidden
// segments and excluded directories are pruned.
func (s *Scanner) findManifests(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || s.excludes[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
