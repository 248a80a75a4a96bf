package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/ragfuse/internal/models"
)

// ReadFile reads a regular file into a DocumentInput. If allowedExts is non-empty, the file's
// extension must be in the list (case-insensitive).
func ReadFile(path string, allowedExts []string) (*models.DocumentInput, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &models.DocumentInput{Filename: filepath.Base(absPath), Content: content}, nil
}

// ReadPaths reads every path into DocumentInputs. Directories are walked (recursively when
// recursive is true) and only files with an allowed extension are read from them; files named
// explicitly must also have an allowed extension.
func ReadPaths(paths []string, allowedExts []string, recursive bool) ([]*models.DocumentInput, error) {
	var inputs []*models.DocumentInput
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			in, err := ReadFile(p, allowedExts)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p, err)
			}
			inputs = append(inputs, in)
			continue
		}
		root := p
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
				return nil
			}
			// Resolve symlinks so only regular files are read.
			finfo, statErr := os.Stat(path)
			if statErr != nil || !finfo.Mode().IsRegular() {
				return nil
			}
			in, err := ReadFile(path, allowedExts)
			if err != nil {
				return err
			}
			inputs = append(inputs, in)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
