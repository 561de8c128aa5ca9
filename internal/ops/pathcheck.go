package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // for import (read file)
	PathCheckWrite                      // for export (write file)
)

// allowedExtensions are the document encodings the codec understands.
var allowedExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// ValidatePath performs path validation for import/export operations.
// It checks:
// 1. Path traversal (.. sequences)
// 2. Extension (.json, .yaml or .yml)
// 3. Directory restrictions (file must be DIRECTLY in ~/.sieve/exports or allowed_paths - no subdirectories)
// 4. Symlink safety (parent dir must not be a symlink, file must not be a symlink)
//
// The "no subdirectories" rule closes the window where an intermediate
// directory could be swapped for a symlink between validation and open.
// O_NOFOLLOW covers the final component.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}

	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !allowedExtensions[strings.ToLower(filepath.Ext(cleaned))] {
		return errors.NewInvalidRequest("path must have a .json, .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	// Unsafe paths skip directory checks but never symlink checks.
	if cfg != nil && cfg.AllowUnsafePaths {
		if mode == PathCheckRead {
			if _, err := os.Stat(absPath); os.IsNotExist(err) {
				return errors.NewFileNotFound(path)
			}
		}
		if info, err := os.Lstat(absPath); err == nil {
			if info.Mode()&os.ModeSymlink != 0 {
				return errors.NewInvalidRequest("path must not be a symlink")
			}
		}
		return nil
	}

	allowedDirs, err := getAllowedDirs(cfg)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(absPath)
	if !isDirectlyInAllowedDir(parentDir, allowedDirs) {
		return errors.NewInvalidRequest(
			fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v",
				allowedDirs))
	}

	if info, err := os.Lstat(parentDir); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}

	if info, err := os.Lstat(absPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("path must not be a symlink")
		}
	}

	return nil
}

// getAllowedDirs returns the list of allowed directories (absolute, cleaned).
// Symlinked allowed_paths entries are resolved to their targets.
func getAllowedDirs(cfg *config.Config) ([]string, error) {
	defaultDir, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{defaultDir}

	// Only absolute allowed_paths count.
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}

		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}

	return result, nil
}

// isDirectlyInAllowedDir checks if parentDir exactly matches one of the allowed directories.
func isDirectlyInAllowedDir(parentDir string, allowedDirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range allowedDirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// DefaultExportsDir returns the default exports directory (~/.sieve/exports).
func DefaultExportsDir() (string, error) {
	base, err := config.BaseDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(base, "exports"), nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Forward slashes count on every platform.
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
