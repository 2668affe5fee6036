package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/tableflow/services/table/internal/tables"
)

const tablesCollection = "tables"

type TableRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     apt.Logger
	config     *apt.Config
}

func NewTableRepo(config *apt.Config, logger apt.Logger) *TableRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &TableRepo{
		logger: logger,
		config: config,
	}
}

func (r *TableRepo) Start(ctx context.Context) error {
	connString := r.config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	dbName := r.config.GetStringOrDef("db.mongo.name", "tableflow")

	clientOptions := options.Client().ApplyURI(connString).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection(tablesCollection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "number", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("cannot create index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB database %s, collection %s", dbName, tablesCollection)
	return nil
}

func (r *TableRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *TableRepo) GetDatabase() *mongo.Database {
	return r.db
}

type tableDocument struct {
	ID             string    `bson:"_id"`
	Number         int       `bson:"number"`
	Capacity       int       `bson:"capacity"`
	Status         string    `bson:"status"`
	CurrentOrderID string    `bson:"current_order_id,omitempty"`
	Version        int64     `bson:"version"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toDocument(t *tables.Table) tableDocument {
	doc := tableDocument{
		ID:        t.ID.String(),
		Number:    t.Number,
		Capacity:  t.Capacity,
		Status:    t.Status,
		Version:   t.Version,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.CurrentOrderID != nil {
		doc.CurrentOrderID = t.CurrentOrderID.String()
	}
	return doc
}

func (d tableDocument) toTable() (*tables.Table, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid table id %q: %w", d.ID, err)
	}
	t := &tables.Table{
		ID:        id,
		Number:    d.Number,
		Capacity:  d.Capacity,
		Status:    d.Status,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.CurrentOrderID != "" {
		orderID, err := uuid.Parse(d.CurrentOrderID)
		if err == nil {
			t.CurrentOrderID = &orderID
		}
	}
	return t, nil
}

func (r *TableRepo) Create(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	if _, err := r.collection.InsertOne(ctx, toDocument(table)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tables.ErrDuplicateNumber
		}
		return fmt.Errorf("cannot create table: %w", err)
	}

	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *TableRepo) GetByNumber(ctx context.Context, number int) (*tables.Table, error) {
	return r.findOne(ctx, bson.M{"number": number})
}

func (r *TableRepo) List(ctx context.Context) ([]*tables.Table, error) {
	return r.find(ctx, bson.M{})
}

func (r *TableRepo) ListByStatus(ctx context.Context, status string) ([]*tables.Table, error) {
	return r.find(ctx, bson.M{"status": status})
}

// Save writes the table only if the stored version still matches.
func (r *TableRepo) Save(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	doc := toDocument(table)
	doc.Version = table.Version + 1

	filter := bson.M{"_id": doc.ID, "version": table.Version}
	update := bson.M{"$set": doc}
	if doc.CurrentOrderID == "" {
		update["$unset"] = bson.M{"current_order_id": ""}
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot update table: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if err != nil {
			return fmt.Errorf("cannot check table: %w", err)
		}
		if count == 0 {
			return tables.ErrNotFound
		}
		return tables.ErrConflict
	}

	table.Version = doc.Version
	return nil
}

func (r *TableRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("cannot delete table: %w", err)
	}

	if result.DeletedCount == 0 {
		return tables.ErrNotFound
	}

	return nil
}

func (r *TableRepo) findOne(ctx context.Context, filter bson.M) (*tables.Table, error) {
	var doc tableDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return doc.toTable()
}

func (r *TableRepo) find(ctx context.Context, filter bson.M) ([]*tables.Table, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []tableDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}

	result := make([]*tables.Table, 0, len(docs))
	for _, d := range docs {
		t, err := d.toTable()
		if err != nil {
			r.logger.Error("skipping malformed table document", "error", err)
			continue
		}
		result = append(result, t)
	}
	return result, nil
}
