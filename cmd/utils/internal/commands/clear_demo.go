package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/appetiteclub/tableflow/cmd/utils/internal/seeding"
)

// ClearDemo removes demo orders, frees their tables and resets the marker.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	deleted, err := seeding.ClearOrders(ctx, db, time.Now())
	if err != nil {
		return err
	}
	logger.Info("deleted demo orders", "count", deleted)

	res, err := db.Collection(seeding.SeedsCollection).DeleteOne(ctx, bson.M{"_id": seeding.DemoSeedID})
	if err != nil {
		return fmt.Errorf("delete seed tracker: %w", err)
	}
	logger.Info("cleared demo seed tracker", "deleted", res.DeletedCount)
	return nil
}
