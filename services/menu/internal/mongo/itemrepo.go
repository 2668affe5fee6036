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

	"github.com/appetiteclub/tableflow/services/menu/internal/menu"
)

const menuItemsCollection = "menu_items"

type MenuItemRepo struct {
	collection *mongo.Collection
}

func NewMenuItemRepo(db *mongo.Database) *MenuItemRepo {
	return &MenuItemRepo{
		collection: db.Collection(menuItemsCollection),
	}
}

// EnsureIndexes creates the category and availability indexes used by the
// listing filters.
func (r *MenuItemRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_available", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("cannot create menu item indexes: %w", err)
	}
	return nil
}

type menuItemDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Price       float64   `bson:"price"`
	CategoryID  string    `bson:"category_id,omitempty"`
	IsAvailable bool      `bson:"is_available"`
	Image       string    `bson:"image,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toItemDocument(m *menu.MenuItem) menuItemDocument {
	doc := menuItemDocument{
		ID:          m.ID.String(),
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		IsAvailable: m.IsAvailable,
		Image:       m.Image,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.CategoryID != uuid.Nil {
		doc.CategoryID = m.CategoryID.String()
	}
	return doc
}

func (d menuItemDocument) toItem() (*menu.MenuItem, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid menu item id %q: %w", d.ID, err)
	}
	item := &menu.MenuItem{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		IsAvailable: d.IsAvailable,
		Image:       d.Image,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.CategoryID != "" {
		if categoryID, err := uuid.Parse(d.CategoryID); err == nil {
			item.CategoryID = categoryID
		}
	}
	return item, nil
}

func (r *MenuItemRepo) Create(ctx context.Context, item *menu.MenuItem) error {
	if item == nil {
		return fmt.Errorf("menu item is nil")
	}

	if _, err := r.collection.InsertOne(ctx, toItemDocument(item)); err != nil {
		return fmt.Errorf("cannot create menu item: %w", err)
	}

	return nil
}

func (r *MenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*menu.MenuItem, error) {
	var doc menuItemDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get menu item: %w", err)
	}
	return doc.toItem()
}

func (r *MenuItemRepo) List(ctx context.Context, filter menu.ItemFilter) ([]*menu.MenuItem, error) {
	query := bson.M{}
	if filter.CategoryID != uuid.Nil {
		query["category_id"] = filter.CategoryID.String()
	}
	if filter.IsAvailable != nil {
		query["is_available"] = *filter.IsAvailable
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []menuItemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode menu items: %w", err)
	}

	result := make([]*menu.MenuItem, 0, len(docs))
	for _, d := range docs {
		item, err := d.toItem()
		if err != nil {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *MenuItemRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"category_id": categoryID.String()})
	if err != nil {
		return 0, fmt.Errorf("cannot count menu items: %w", err)
	}
	return count, nil
}

func (r *MenuItemRepo) Save(ctx context.Context, item *menu.MenuItem) error {
	if item == nil {
		return fmt.Errorf("menu item is nil")
	}

	doc := toItemDocument(item)
	update := bson.M{"$set": doc}
	if doc.CategoryID == "" {
		update["$unset"] = bson.M{"category_id": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, update)
	if err != nil {
		return fmt.Errorf("cannot update menu item: %w", err)
	}

	if result.MatchedCount == 0 {
		return menu.ErrItemNotFound
	}

	return nil
}

func (r *MenuItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("cannot delete menu item: %w", err)
	}

	if result.DeletedCount == 0 {
		return menu.ErrItemNotFound
	}

	return nil
}
