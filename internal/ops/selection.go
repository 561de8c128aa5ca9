package ops

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/selection"
)

// SelectionOutput is returned by every selection-changing operation.
type SelectionOutput struct {
	*selection.Result
	Status StatusOutput `json:"status"`
}

// ApplyInput addresses a group by index or by name. Name takes precedence
// when both are set; Index -1 means show all.
type ApplyInput struct {
	Index int
	Name  string
}

// Apply filters the host's categories to one group.
func Apply(ctx context.Context, database *sql.DB, input ApplyInput) (*SelectionOutput, error) {
	return runSelection(ctx, database, "apply", func(s *Session) (*selection.Result, error) {
		if input.Name != "" {
			return s.Engine.ApplyByName(input.Name)
		}
		return s.Engine.ApplyGroup(input.Index)
	})
}

// Restore maps every category back to its original name.
func Restore(ctx context.Context, database *sql.DB) (*SelectionOutput, error) {
	return runSelection(ctx, database, "restore", func(s *Session) (*selection.Result, error) {
		return s.Engine.RestoreAll(), nil
	})
}

// CycleInput contains parameters for the Cycle operation.
type CycleInput struct {
	Delta int // +1 next, -1 previous
}

// Cycle steps the selection through [show all, group 0, ..., group N-1].
func Cycle(ctx context.Context, database *sql.DB, input CycleInput) (*SelectionOutput, error) {
	return runSelection(ctx, database, "cycle", func(s *Session) (*selection.Result, error) {
		return s.Engine.Cycle(input.Delta)
	})
}

// ActivateWorkspaceInput contains parameters for the ActivateWorkspace operation.
type ActivateWorkspaceInput struct {
	Workspace string
}

// ActivateWorkspaceOutput contains the result of the ActivateWorkspace operation.
type ActivateWorkspaceOutput struct {
	Matched bool `json:"matched"`
	Index   int  `json:"index"`
	*SelectionOutput
}

// ActivateWorkspace applies the first group bound to the workspace. With no
// bound group nothing changes.
func ActivateWorkspace(ctx context.Context, database *sql.DB, input ActivateWorkspaceInput) (*ActivateWorkspaceOutput, error) {
	if input.Workspace == "" {
		return nil, errors.NewInvalidRequest("workspace is required")
	}

	out := &ActivateWorkspaceOutput{Index: selection.ShowAll}
	err := withSession(ctx, database, true, func(s *Session) error {
		index, res, err := s.Engine.OnWorkspaceActivated(input.Workspace)
		if err != nil {
			return err
		}
		out.Index = index
		out.Matched = res != nil
		if res != nil {
			out.SelectionOutput = &SelectionOutput{Result: res, Status: s.status()}
		} else {
			out.SelectionOutput = &SelectionOutput{Status: s.status()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Matched {
		logSelection(ctx, "workspace", out.Result)
	}
	return out, nil
}

// Status reports the selection without changing it.
func Status(ctx context.Context, database *sql.DB) (*StatusOutput, error) {
	var out StatusOutput
	err := withSession(ctx, database, false, func(s *Session) error {
		out = s.status()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResumeOutput contains the result of the Resume operation.
type ResumeOutput struct {
	Repaired bool `json:"repaired"`
	*SelectionOutput
}

// Resume re-applies the persisted selection after the host reloads. A
// dangling active index is repaired to show all.
func Resume(ctx context.Context, database *sql.DB) (*ResumeOutput, error) {
	out := &ResumeOutput{}
	err := withSession(ctx, database, true, func(s *Session) error {
		res, repaired, err := s.Engine.Resume()
		if err != nil {
			return err
		}
		out.Repaired = repaired
		out.SelectionOutput = &SelectionOutput{Result: res, Status: s.status()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Repaired {
		logging.FromContext(ctx).Warn("dangling active group repaired to show all")
	}
	logSelection(ctx, "resume", out.Result)
	return out, nil
}

func runSelection(ctx context.Context, database *sql.DB, op string, fn func(*Session) (*selection.Result, error)) (*SelectionOutput, error) {
	var out *SelectionOutput
	err := withSession(ctx, database, true, func(s *Session) error {
		res, err := fn(s)
		if err != nil {
			return err
		}
		out = &SelectionOutput{Result: res, Status: s.status()}
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Debug("selection rejected", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	logSelection(ctx, op, out.Result)
	return out, nil
}
