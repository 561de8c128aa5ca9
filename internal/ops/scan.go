package ops

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/logging"
)

// ScanInput carries the categories the host currently reports, duplicates
// and host order allowed.
type ScanInput struct {
	Categories []string
}

// ScanOutput contains the result of the Scan operation.
type ScanOutput struct {
	Categories       []string `json:"categories"`
	MembershipsAdded int      `json:"memberships_added"`
	Bindings         int      `json:"bindings"`
}

// Scan records the live categories and appends a disabled membership to
// every group for each known original name it lacks.
func Scan(ctx context.Context, database *sql.DB, input ScanInput) (*ScanOutput, error) {
	var out *ScanOutput
	err := withSession(ctx, database, true, func(s *Session) error {
		cats := s.Registry.CurrentCategories(input.Categories)
		added := s.Groups.SyncCategories(s.Registry.KnownOriginals())
		out = &ScanOutput{
			Categories:       cats,
			MembershipsAdded: added,
			Bindings:         s.Registry.Len(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("categories scanned",
		zap.Int("categories", len(out.Categories)),
		zap.Int("memberships_added", out.MembershipsAdded),
	)
	return out, nil
}
