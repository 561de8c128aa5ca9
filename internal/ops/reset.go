package ops

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/selection"
)

// ResetOutput contains the result of the Reset operation.
type ResetOutput struct {
	// Restored holds the decisions the host applies before the bindings go.
	Restored        *selection.Result `json:"restored"`
	BindingsCleared int               `json:"bindings_cleared"`
}

// Reset restores every category label and then drops all registry bindings
// and the live list. Groups are kept. It is the only way bindings are ever
// removed.
func Reset(ctx context.Context, database *sql.DB) (*ResetOutput, error) {
	var out *ResetOutput
	err := withSession(ctx, database, true, func(s *Session) error {
		restored := s.Engine.RestoreAll()
		cleared := s.Registry.Len()
		s.Registry.Reset()
		s.Engine.Restore(selection.Unfiltered(), nil)
		out = &ResetOutput{Restored: restored, BindingsCleared: cleared}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("registry reset", zap.Int("bindings_cleared", out.BindingsCleared))
	return out, nil
}
