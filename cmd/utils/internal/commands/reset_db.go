package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
)

// ResetDB drops the whole TableFlow database. Services reseed tables and the
// menu on their next start.
func ResetDB(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("dropping database, this cannot be undone", "database", db.Name())
	if err := db.Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", db.Name(), err)
	}

	logger.Info("database dropped", "database", db.Name())
	return nil
}
