package orchestrators

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	programstore "aph/internal/adapters/storage/program"
	"aph/internal/domain/program"
)

//go:embed programs.yaml
var defaultCatalogue []byte

// ProgramStoreForSeed defines the store interface needed by SeedPrograms.
type ProgramStoreForSeed interface {
	Create(ctx context.Context, n program.NewProgram) (program.Program, error)
	List(ctx context.Context, filter programstore.ListFilter) ([]program.Program, error)
}

// SeedProgramsDeps holds dependencies for SeedPrograms.
type SeedProgramsDeps struct {
	ProgramStore ProgramStoreForSeed
	// Catalogue overrides the embedded catalogue when set.
	Catalogue []byte
}

type catalogue struct {
	Programs []struct {
		Name            string  `yaml:"name"`
		Description     string  `yaml:"description"`
		AgeGroup        string  `yaml:"age_group"`
		Duration        string  `yaml:"duration"`
		Price           float64 `yaml:"price"`
		MaxParticipants int     `yaml:"max_participants"`
	} `yaml:"programs"`
}

// ExecuteSeedPrograms creates the program catalogue if no program exists.
// POST: Returns the number of programs created; 0 when already seeded
func ExecuteSeedPrograms(ctx context.Context, deps SeedProgramsDeps) (int, error) {
	existing, err := deps.ProgramStore.List(ctx, programstore.ListFilter{})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	src := deps.Catalogue
	if src == nil {
		src = defaultCatalogue
	}
	var c catalogue
	if err := yaml.Unmarshal(src, &c); err != nil {
		return 0, fmt.Errorf("parse program catalogue: %w", err)
	}

	for _, p := range c.Programs {
		_, err := deps.ProgramStore.Create(ctx, program.NewProgram{
			Name:            p.Name,
			Description:     p.Description,
			Price:           p.Price,
			AgeGroup:        p.AgeGroup,
			Duration:        p.Duration,
			MaxParticipants: p.MaxParticipants,
			IsActive:        true,
		})
		if err != nil {
			return 0, fmt.Errorf("seed program %q: %w", p.Name, err)
		}
	}

	slog.Info("seed_event", "event", "programs_seeded", "programs", len(c.Programs))
	return len(c.Programs), nil
}
