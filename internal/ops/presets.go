package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/preset"
)

// PresetsOutput lists the built-in presets.
type PresetsOutput struct {
	Presets []preset.Preset `json:"presets"`
}

// Presets returns the built-in presets in display order.
func Presets() *PresetsOutput {
	return &PresetsOutput{Presets: preset.All()}
}

// MatchPresetInput contains parameters for the MatchPreset operation.
type MatchPresetInput struct {
	Name string
}

// MatchPresetOutput previews which known categories a preset would enable.
type MatchPresetOutput struct {
	Preset    string   `json:"preset"`
	Matches   []string `json:"matches"`
	Available int      `json:"available"`
}

// MatchPreset matches a preset against the known original names without
// creating anything.
func MatchPreset(ctx context.Context, database *sql.DB, input MatchPresetInput) (*MatchPresetOutput, error) {
	if _, ok := preset.Lookup(input.Name); !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown preset %q", input.Name))
	}

	var out *MatchPresetOutput
	err := withSession(ctx, database, false, func(s *Session) error {
		available := s.Registry.KnownOriginals()
		out = &MatchPresetOutput{
			Preset:    input.Name,
			Matches:   preset.Match(input.Name, available),
			Available: len(available),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
