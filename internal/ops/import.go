package ops

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/codec"
	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/selection"
)

// maxImportBytes caps the size of an import document.
const maxImportBytes = 8 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string           // required
	Mode codec.ImportMode // default: merge
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	*codec.ImportResult
	Mode codec.ImportMode `json:"mode"`
	// SelectionReset is set when a replace import dropped an active filter.
	SelectionReset bool              `json:"selection_reset"`
	Selection      *selection.Result `json:"selection,omitempty"`
}

// Import reads a document and merges or replaces the group store. An invalid
// document changes nothing.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	mode, err := codec.ParseImportMode(string(input.Mode))
	if err != nil {
		return nil, err
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	data, err := readImportFile(input.Path)
	if err != nil {
		return nil, err
	}
	doc, err := codec.Decode(data, codec.FormatForPath(input.Path))
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{Mode: mode}
	err = withSession(ctx, database, true, func(s *Session) error {
		res, err := codec.Import(s.Groups, doc, mode)
		if err != nil {
			return err
		}
		out.ImportResult = res

		// Old indices no longer name the same groups after a replace.
		if mode == codec.ImportModeReplace && s.Engine.State().IsFiltering {
			out.SelectionReset = true
			out.Selection = s.Engine.RestoreAll()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("groups imported",
		zap.String("path", input.Path),
		zap.String("mode", string(mode)),
		zap.Int("imported", out.Imported),
		zap.Int("skipped", out.Skipped),
	)
	return out, nil
}

func readImportFile(path string) ([]byte, error) {
	file, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > maxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", maxImportBytes))
	}
	return data, nil
}
