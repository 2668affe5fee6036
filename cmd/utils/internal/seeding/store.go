package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	TablesCollection    = "tables"
	MenuItemsCollection = "menu_items"
	OrdersCollection    = "orders"
	SeedsCollection     = "_seeds"

	DemoSeedID = "demo_orders_v1"
)

// SeedOrders writes the demo scenarios and occupies their tables. Scenarios
// whose table is missing or already busy are skipped.
func SeedOrders(ctx context.Context, db *mongo.Database, now time.Time, logger apt.Logger) (int, error) {
	tables, err := loadTables(ctx, db)
	if err != nil {
		return 0, err
	}
	items, err := loadItems(ctx, db)
	if err != nil {
		return 0, err
	}

	orders := db.Collection(OrdersCollection)
	tableColl := db.Collection(TablesCollection)

	created := 0
	for _, s := range Scenarios {
		table, ok := tables[s.TableNumber]
		if !ok {
			logger.Info("demo table missing, skipping scenario", "number", s.TableNumber)
			continue
		}
		if s.Active() && table.Status == "occupied" {
			logger.Info("demo table busy, skipping scenario", "number", s.TableNumber)
			continue
		}

		o, err := Build(s, table, items, now)
		if err != nil {
			return created, err
		}

		if _, err := orders.InsertOne(ctx, o); err != nil {
			return created, fmt.Errorf("insert demo order for table %d: %w", s.TableNumber, err)
		}

		if s.Active() {
			_, err := tableColl.UpdateOne(ctx,
				bson.M{"_id": table.ID},
				bson.M{
					"$set": bson.M{"status": "occupied", "current_order_id": o.ID, "updated_at": now},
					"$inc": bson.M{"version": 1},
				},
			)
			if err != nil {
				return created, fmt.Errorf("occupy table %d: %w", s.TableNumber, err)
			}
		}

		logger.Info("demo order created", "table", s.TableNumber, "status", o.Status, "total", o.Total)
		created++
	}
	return created, nil
}

// ClearOrders deletes demo orders and frees the tables they still hold.
func ClearOrders(ctx context.Context, db *mongo.Database, now time.Time) (int64, error) {
	orders := db.Collection(OrdersCollection)

	cursor, err := orders.Find(ctx, bson.M{"created_by": DemoTag})
	if err != nil {
		return 0, fmt.Errorf("find demo orders: %w", err)
	}
	var demo []Order
	if err := cursor.All(ctx, &demo); err != nil {
		return 0, fmt.Errorf("decode demo orders: %w", err)
	}

	ids := make([]string, 0, len(demo))
	for _, o := range demo {
		ids = append(ids, o.ID)
	}

	if len(ids) > 0 {
		_, err := db.Collection(TablesCollection).UpdateMany(ctx,
			bson.M{"current_order_id": bson.M{"$in": ids}},
			bson.M{
				"$set":   bson.M{"status": "available", "updated_at": now},
				"$unset": bson.M{"current_order_id": ""},
				"$inc":   bson.M{"version": 1},
			},
		)
		if err != nil {
			return 0, fmt.Errorf("free demo tables: %w", err)
		}
	}

	res, err := orders.DeleteMany(ctx, bson.M{"created_by": DemoTag})
	if err != nil {
		return 0, fmt.Errorf("delete demo orders: %w", err)
	}
	return res.DeletedCount, nil
}

func loadTables(ctx context.Context, db *mongo.Database) (map[int]Table, error) {
	cursor, err := db.Collection(TablesCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("cannot fetch tables: %w", err)
	}
	var tables []Table
	if err := cursor.All(ctx, &tables); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables found, start the table service first")
	}

	byNumber := make(map[int]Table, len(tables))
	for _, t := range tables {
		byNumber[t.Number] = t
	}
	return byNumber, nil
}

func loadItems(ctx context.Context, db *mongo.Database) (map[string]MenuItem, error) {
	cursor, err := db.Collection(MenuItemsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("cannot fetch menu items: %w", err)
	}
	var items []MenuItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("cannot decode menu items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no menu items found, start the menu service first")
	}

	byName := make(map[string]MenuItem, len(items))
	for _, it := range items {
		byName[it.Name] = it
	}
	return byName, nil
}
