package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScriptExt is the extension picked up when a directory or S3 prefix is scanned.
const ScriptExt = ".sql"

// Script is one script file and its text.
type Script struct {
	Path    string
	Content string
}

// Scanner loads elseql scripts from local paths or S3 locations.
type Scanner struct {
	s3 *S3Scanner
}

// New returns a Scanner. s3 may be nil when only local paths are used.
func New(s3 *S3Scanner) *Scanner {
	return &Scanner{s3: s3}
}

// Scan loads a single file, every script under a directory, or every script
// under an S3 prefix. Results are ordered by path.
func (s *Scanner) Scan(ctx context.Context, path string) ([]Script, error) {
	if IsS3Path(path) {
		if s.s3 == nil {
			return nil, fmt.Errorf("no S3 client configured for %s", path)
		}
		return s.s3.Scan(ctx, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("script does not exist: %s", path)
		}
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}

	if !info.IsDir() {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return []Script{{Path: path, Content: string(content)}}, nil
	}

	return scanDirectory(path)
}

func scanDirectory(dirPath string) ([]Script, error) {
	var scripts []Script

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsScriptFile(path) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		scripts = append(scripts, Script{Path: path, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dirPath, err)
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Path < scripts[j].Path })
	return scripts, nil
}

// IsScriptFile reports whether path has the script extension.
func IsScriptFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ScriptExt)
}
