package tables

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"go.mongodb.org/mongo-driver/mongo"
)

const tableSeedApplication = "table"

type bootstrapSeedDocument struct {
	Tables []tableSeed `json:"tables"`
}

type tableSeed struct {
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

func loadTableSeeds(seedFS embed.FS) ([]tableSeed, error) {
	seedBytes, err := seedFS.ReadFile("seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed.json: %w", err)
	}

	var doc bootstrapSeedDocument
	if err := json.Unmarshal(seedBytes, &doc); err != nil {
		return nil, fmt.Errorf("decode table seed file: %w", err)
	}

	if len(doc.Tables) == 0 {
		return nil, errors.New("table seed file does not contain tables")
	}

	return doc.Tables, nil
}

// ApplyTableSeeds ensures the floor plan in seed.json exists.
func ApplyTableSeeds(ctx context.Context, repo TableRepo, db *mongo.Database, seedFS embed.FS, logger apt.Logger) error {
	if repo == nil || db == nil {
		return errors.New("table repository and database are required")
	}

	raw, err := loadTableSeeds(seedFS)
	if err != nil {
		return err
	}

	defs := buildTableSeedDefinitions(raw, repo, logger)
	if len(defs) == 0 {
		logger.Info("No table seeds to apply")
		return nil
	}

	logger.Info("Applying table seeds", "count", len(defs))
	return seed.Apply(ctx, seed.NewMongoTracker(db), defs, tableSeedApplication)
}

func buildTableSeedDefinitions(raw []tableSeed, repo TableRepo, logger apt.Logger) []seed.Seed {
	var defs []seed.Seed

	for _, s := range raw {
		seedData := s
		if seedData.Number <= 0 {
			logger.Info("Skipping seed table with invalid number", "number", seedData.Number)
			continue
		}

		defs = append(defs, seed.Seed{
			ID:          fmt.Sprintf("2025-01-10_table_%02d", seedData.Number),
			Description: fmt.Sprintf("Ensure table %d exists", seedData.Number),
			Run: func(ctx context.Context) error {
				return seedData.ensureTable(ctx, repo, logger)
			},
		})
	}

	return defs
}

func (s tableSeed) ensureTable(ctx context.Context, repo TableRepo, logger apt.Logger) error {
	existing, err := repo.GetByNumber(ctx, s.Number)
	if err != nil {
		return fmt.Errorf("look up table %d: %w", s.Number, err)
	}
	if existing != nil {
		logger.Debug("Seed table already exists", "number", s.Number)
		return nil
	}

	capacity := s.Capacity
	if capacity <= 0 {
		capacity = 4
	}

	table := NewTable(s.Number, capacity)
	if s.Status != "" {
		table.SetStatus(s.Status)
	}
	table.BeforeCreate(time.Now())

	if err := repo.Create(ctx, table); err != nil {
		return fmt.Errorf("create seed table %d: %w", s.Number, err)
	}

	logger.Info("Seed table created", "number", s.Number, "id", table.ID.String())
	return nil
}

// SeedingFunc returns a lifecycle OnStart hook that applies table seeds in
// the background.
func SeedingFunc(seedCtx context.Context, repo TableRepo, db *mongo.Database, seedFS embed.FS, logger apt.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		go func() {
			if err := ApplyTableSeeds(seedCtx, repo, db, seedFS, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Table seeds failed: %v", err)
				return
			}
			logger.Info("Table seeding finished")
		}()
		return nil
	}
}
