package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

const ordersCollection = "orders"

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection(ordersCollection),
	}
}

// EnsureIndexes creates the listing indexes and the unique index that keeps
// a table to a single active order.
func (r *OrderRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "table_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "active_table_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("one_active_order_per_table"),
		},
	})
	if err != nil {
		return fmt.Errorf("cannot create order indexes: %w", err)
	}
	return nil
}

type orderDocument struct {
	ID            string              `bson:"_id"`
	TableID       string              `bson:"table_id"`
	ActiveTableID string              `bson:"active_table_id,omitempty"`
	Table         tableSnapshotDoc    `bson:"table"`
	Items         []orderItemDocument `bson:"items"`
	Status        string              `bson:"status"`
	Subtotal      float64             `bson:"subtotal"`
	Tax           float64             `bson:"tax"`
	Total         float64             `bson:"total"`
	IsPaid        bool                `bson:"is_paid"`
	Version       int64               `bson:"version"`
	CreatedAt     time.Time           `bson:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at"`
	PaidAt        *time.Time          `bson:"paid_at,omitempty"`
	FreePending   bool                `bson:"table_free_pending"`
}

type tableSnapshotDoc struct {
	ID       string `bson:"id"`
	Number   int    `bson:"number"`
	Capacity int    `bson:"capacity"`
	Status   string `bson:"status"`
}

type orderItemDocument struct {
	ID         string          `bson:"id"`
	MenuItemID string          `bson:"menu_item_id"`
	MenuItem   menuSnapshotDoc `bson:"menu_item"`
	Quantity   int             `bson:"quantity"`
	Price      float64         `bson:"price"`
	Notes      string          `bson:"notes,omitempty"`
}

type menuSnapshotDoc struct {
	ID          string  `bson:"id"`
	Name        string  `bson:"name"`
	Description string  `bson:"description,omitempty"`
	Price       float64 `bson:"price"`
	CategoryID  string  `bson:"category_id,omitempty"`
	IsAvailable bool    `bson:"is_available"`
	Image       string  `bson:"image,omitempty"`
}

func toDocument(o *order.Order) orderDocument {
	doc := orderDocument{
		ID:      o.ID.String(),
		TableID: o.TableID.String(),
		Table: tableSnapshotDoc{
			ID:       o.Table.ID.String(),
			Number:   o.Table.Number,
			Capacity: o.Table.Capacity,
			Status:   o.Table.Status,
		},
		Items:     make([]orderItemDocument, 0, len(o.Items)),
		Status:    o.Status,
		Subtotal:  o.Subtotal,
		Tax:       o.Tax,
		Total:     o.Total,
		IsPaid:    o.IsPaid,
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		PaidAt:    o.PaidAt,

		FreePending: o.TableFreePending,
	}
	if o.IsActive() {
		doc.ActiveTableID = doc.TableID
	}

	for _, item := range o.Items {
		snap := menuSnapshotDoc{
			ID:          item.MenuItem.ID.String(),
			Name:        item.MenuItem.Name,
			Description: item.MenuItem.Description,
			Price:       item.MenuItem.Price,
			IsAvailable: item.MenuItem.IsAvailable,
			Image:       item.MenuItem.Image,
		}
		if item.MenuItem.CategoryID != uuid.Nil {
			snap.CategoryID = item.MenuItem.CategoryID.String()
		}
		doc.Items = append(doc.Items, orderItemDocument{
			ID:         item.ID.String(),
			MenuItemID: item.MenuItemID.String(),
			MenuItem:   snap,
			Quantity:   item.Quantity,
			Price:      item.Price,
			Notes:      item.Notes,
		})
	}
	return doc
}

func (d orderDocument) toOrder() (*order.Order, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", d.ID, err)
	}
	tableID, err := uuid.Parse(d.TableID)
	if err != nil {
		return nil, fmt.Errorf("invalid table id %q on order %s: %w", d.TableID, d.ID, err)
	}

	o := &order.Order{
		ID:      id,
		TableID: tableID,
		Table: order.TableSnapshot{
			ID:       parseOptionalID(d.Table.ID),
			Number:   d.Table.Number,
			Capacity: d.Table.Capacity,
			Status:   d.Table.Status,
		},
		Items:     make([]order.OrderItem, 0, len(d.Items)),
		Status:    d.Status,
		Subtotal:  d.Subtotal,
		Tax:       d.Tax,
		Total:     d.Total,
		IsPaid:    d.IsPaid,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		PaidAt:    d.PaidAt,

		TableFreePending: d.FreePending,
	}

	for _, item := range d.Items {
		o.Items = append(o.Items, order.OrderItem{
			ID:         parseOptionalID(item.ID),
			MenuItemID: parseOptionalID(item.MenuItemID),
			MenuItem: order.MenuItemSnapshot{
				ID:          parseOptionalID(item.MenuItem.ID),
				Name:        item.MenuItem.Name,
				Description: item.MenuItem.Description,
				Price:       item.MenuItem.Price,
				CategoryID:  parseOptionalID(item.MenuItem.CategoryID),
				IsAvailable: item.MenuItem.IsAvailable,
				Image:       item.MenuItem.Image,
			},
			Quantity: item.Quantity,
			Price:    item.Price,
			Notes:    item.Notes,
		})
	}
	return o, nil
}

func parseOptionalID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, toDocument(o)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrTableBusy
		}
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *OrderRepo) ActiveByTable(ctx context.Context, tableID uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, bson.M{"active_table_id": tableID.String()})
}

func (r *OrderRepo) findOne(ctx context.Context, filter bson.M) (*order.Order, error) {
	var doc orderDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return doc.toOrder()
}

func (r *OrderRepo) List(ctx context.Context, q order.Query) ([]*order.Order, error) {
	filter := bson.M{}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	if !q.CreatedSince.IsZero() {
		filter["created_at"] = bson.M{"$gte": q.CreatedSince}
	}

	direction := -1
	if q.Ascending {
		direction = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: direction}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	result := make([]*order.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toOrder()
		if err != nil {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	doc := toDocument(o)
	doc.Version = o.Version + 1

	filter := bson.M{"_id": doc.ID, "version": o.Version}
	update := bson.M{"$set": doc}
	if doc.ActiveTableID == "" {
		update["$unset"] = bson.M{"active_table_id": ""}
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrTableBusy
		}
		return fmt.Errorf("cannot update order: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if err != nil {
			return fmt.Errorf("cannot check order: %w", err)
		}
		if count == 0 {
			return order.ErrNotFound
		}
		return order.ErrConflict
	}

	o.Version = doc.Version
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("cannot delete order: %w", err)
	}

	if result.DeletedCount == 0 {
		return order.ErrNotFound
	}

	return nil
}
