package agent

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Reference material extensions, grouped by how the prompt presents
// them.
var (
	docExtensions  = map[string]bool{".txt": true, ".md": true}
	codeExtensions = map[string]bool{
		".php": true, ".rs": true, ".py": true, ".js": true, ".ts": true,
		".toml": true, ".json": true, ".rb": true, ".yaml": true,
	}
	dataExtensions = map[string]bool{".csv": true}
)

// collectReference walks dir recursively and concatenates the content of
// every file whose extension is in exts. Reference directories live on
// the host, outside the project root.
func collectReference(dir string, exts map[string]bool) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("reference directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("reference path is not a directory: %s", dir)
	}

	var parts []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		parts = append(parts, string(data))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read reference files: %w", err)
	}
	return strings.Join(parts, "\n\n"), nil
}

// IngestDocs loads .txt and .md files from dir as reference
// documentation for the implementation prompt.
func (s *Session) IngestDocs(dir string) error {
	content, err := collectReference(dir, docExtensions)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.referenceDocs = content
	s.mu.Unlock()
	return nil
}

// IngestCode loads source files from dir as reference code.
func (s *Session) IngestCode(dir string) error {
	content, err := collectReference(dir, codeExtensions)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.referenceCode = content
	s.mu.Unlock()
	return nil
}

// IngestData loads .csv files from dir as reference data.
func (s *Session) IngestData(dir string) error {
	content, err := collectReference(dir, dataExtensions)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.referenceData = content
	s.mu.Unlock()
	return nil
}
