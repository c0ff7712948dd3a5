package agent

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExportArchive zips the whole project tree to zipPath and removes the
// working tree afterwards. Archive entries use forward-slash paths
// relative to the project root.
func ExportArchive(env ExecutionEnvironment, zipPath string) error {
	files, err := env.ListFiles("")
	if err != nil {
		return fmt.Errorf("list project files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("project directory is empty")
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	if err := writeArchive(out, env, files); err != nil {
		out.Close()
		os.Remove(zipPath)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}

	if err := env.Cleanup(); err != nil {
		return fmt.Errorf("remove project directory: %w", err)
	}
	return nil
}

func writeArchive(out io.Writer, env ExecutionEnvironment, files []string) error {
	writer := zip.NewWriter(out)
	for _, file := range files {
		content, err := env.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		entry, err := writer.Create(filepath.ToSlash(file))
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", file, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			return fmt.Errorf("write %s to archive: %w", file, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
