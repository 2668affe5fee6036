package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/appetiteclub/tableflow/cmd/utils/internal/seeding"
)

// SeedDemo writes demo orders against the seeded tables and menu. It runs
// once per database unless clear-demo resets the marker.
func SeedDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	seeds := db.Collection(seeding.SeedsCollection)
	count, err := seeds.CountDocuments(ctx, bson.M{"_id": seeding.DemoSeedID})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}
	if count > 0 {
		logger.Info("demo seeds already applied, skipping")
		return nil
	}

	now := time.Now()
	created, err := seeding.SeedOrders(ctx, db, now, logger)
	if err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}

	_, err = seeds.InsertOne(ctx, bson.M{
		"_id":         seeding.DemoSeedID,
		"description": "demo orders across tables and statuses",
		"orders":      created,
		"applied_at":  now,
	})
	if err != nil {
		logger.Info("failed to mark demo seed as applied", "error", err)
	}

	logger.Info("demo orders created", "count", created)
	return nil
}
