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

const menuCategoriesCollection = "menu_categories"

type MenuCategoryRepo struct {
	collection *mongo.Collection
}

func NewMenuCategoryRepo(db *mongo.Database) *MenuCategoryRepo {
	return &MenuCategoryRepo{
		collection: db.Collection(menuCategoriesCollection),
	}
}

type categoryDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Order     int       `bson:"order"`
	IsVisible bool      `bson:"is_visible"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toCategoryDocument(c *menu.MenuCategory) categoryDocument {
	return categoryDocument{
		ID:        c.ID.String(),
		Name:      c.Name,
		Order:     c.Order,
		IsVisible: c.IsVisible,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (d categoryDocument) toCategory() (*menu.MenuCategory, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid category id %q: %w", d.ID, err)
	}
	return &menu.MenuCategory{
		ID:        id,
		Name:      d.Name,
		Order:     d.Order,
		IsVisible: d.IsVisible,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func (r *MenuCategoryRepo) Create(ctx context.Context, category *menu.MenuCategory) error {
	if category == nil {
		return fmt.Errorf("category is nil")
	}

	if _, err := r.collection.InsertOne(ctx, toCategoryDocument(category)); err != nil {
		return fmt.Errorf("cannot create category: %w", err)
	}

	return nil
}

func (r *MenuCategoryRepo) Get(ctx context.Context, id uuid.UUID) (*menu.MenuCategory, error) {
	var doc categoryDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get category: %w", err)
	}
	return doc.toCategory()
}

func (r *MenuCategoryRepo) List(ctx context.Context) ([]*menu.MenuCategory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list categories: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []categoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode categories: %w", err)
	}

	result := make([]*menu.MenuCategory, 0, len(docs))
	for _, d := range docs {
		c, err := d.toCategory()
		if err != nil {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (r *MenuCategoryRepo) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("cannot count categories: %w", err)
	}
	return count, nil
}

func (r *MenuCategoryRepo) Save(ctx context.Context, category *menu.MenuCategory) error {
	if category == nil {
		return fmt.Errorf("category is nil")
	}

	doc := toCategoryDocument(category)
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("cannot update category: %w", err)
	}

	if result.MatchedCount == 0 {
		return menu.ErrCategoryNotFound
	}

	return nil
}

// illegalOperation is returned by standalone servers, which cannot run
// multi-document transactions.
const illegalOperation = 20

// Reorder updates every listed category inside one transaction, so either
// all positions apply or none do. An id that matches nothing aborts it.
// Standalone servers have no transactions and get a single ordered batch.
func (r *MenuCategoryRepo) Reorder(ctx context.Context, positions []menu.CategoryPosition) error {
	if len(positions) == 0 {
		return nil
	}

	models := reorderModels(positions, time.Now())

	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("cannot start reorder session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.bulkReorder(sc, models, len(positions))
	})
	if err == nil {
		return nil
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(illegalOperation) {
		return r.bulkReorder(ctx, models, len(positions))
	}
	return err
}

func (r *MenuCategoryRepo) bulkReorder(ctx context.Context, models []mongo.WriteModel, want int) error {
	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("cannot reorder categories: %w", err)
	}
	if result.MatchedCount != int64(want) {
		return menu.ErrCategoryNotFound
	}
	return nil
}

func reorderModels(positions []menu.CategoryPosition, now time.Time) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(positions))
	for _, p := range positions {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": p.ID.String()}).
			SetUpdate(bson.M{"$set": bson.M{"order": p.Order, "updated_at": now}}))
	}
	return models
}

func (r *MenuCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("cannot delete category: %w", err)
	}

	if result.DeletedCount == 0 {
		return menu.ErrCategoryNotFound
	}

	return nil
}
