package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/codec"
	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/logging"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string       // optional, default: ~/.sieve/exports/groups-<timestamp>.<ext>
	Format codec.Format // optional; inferred from the path extension, default json
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string       `json:"path"`
	Format     codec.Format `json:"format"`
	Count      int          `json:"count"`
	ExportedAt int64        `json:"exported_at"`
}

// Export writes every group to a versioned document.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	format := input.Format
	exportPath := input.Path
	if exportPath == "" {
		if format == "" {
			format = codec.FormatJSON
		}
		var err error
		exportPath, err = defaultExportPath(format, now)
		if err != nil {
			return nil, err
		}
	} else if format == "" {
		format = codec.FormatForPath(exportPath)
	}
	if format != codec.FormatJSON && format != codec.FormatYAML {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("format must be one of: json, yaml (got %q)", format))
	}

	// Default paths are validated too.
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	var doc *codec.Document
	err := withSession(ctx, database, false, func(s *Session) error {
		doc = codec.Export(s.Groups)
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := codec.Encode(doc, format)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(exportPath, data); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("groups exported",
		zap.String("path", exportPath),
		zap.Int("count", len(doc.Groups)),
	)
	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Count:      len(doc.Groups),
		ExportedAt: now.Unix(),
	}, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, leaving any existing file untouched on failure.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// defaultExportPath returns ~/.sieve/exports/groups-<timestamp>.<ext>.
func defaultExportPath(format codec.Format, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	ext := "json"
	if format == codec.FormatYAML {
		ext = "yaml"
	}
	filename := fmt.Sprintf("groups-%s.%s", now.Format("2006-01-02T150405"), ext)
	return filepath.Join(dir, filename), nil
}
