package menu

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const menuSeedApplication = "menu"

type bootstrapSeedDocument struct {
	Categories []categorySeed `json:"categories"`
	Items      []itemSeed     `json:"items"`
}

type categorySeed struct {
	Name      string `json:"name"`
	Order     int    `json:"order"`
	IsVisible bool   `json:"is_visible"`
}

type itemSeed struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	IsAvailable bool    `json:"is_available"`
}

func loadMenuSeeds(seedFS embed.FS) (*bootstrapSeedDocument, error) {
	seedBytes, err := seedFS.ReadFile("seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed.json: %w", err)
	}

	var doc bootstrapSeedDocument
	if err := json.Unmarshal(seedBytes, &doc); err != nil {
		return nil, fmt.Errorf("decode menu seed file: %w", err)
	}

	if len(doc.Categories) == 0 {
		return nil, errors.New("menu seed file does not contain categories")
	}

	return &doc, nil
}

// ApplyMenuSeeds ensures the starter menu in seed.json exists. Items are
// matched to categories by name.
func ApplyMenuSeeds(ctx context.Context, items MenuItemRepo, categories MenuCategoryRepo, db *mongo.Database, seedFS embed.FS, logger apt.Logger) error {
	if items == nil || categories == nil || db == nil {
		return errors.New("menu repositories and database are required")
	}

	doc, err := loadMenuSeeds(seedFS)
	if err != nil {
		return err
	}

	defs := []seed.Seed{
		{
			ID:          "2025-01-10_menu_categories",
			Description: "Seed starter menu categories",
			Run: func(ctx context.Context) error {
				return ensureCategories(ctx, categories, doc.Categories, logger)
			},
		},
		{
			ID:          "2025-01-10_menu_items",
			Description: "Seed starter menu items",
			Run: func(ctx context.Context) error {
				return ensureItems(ctx, items, categories, doc.Items, logger)
			},
		},
	}

	logger.Info("Applying menu seeds", "categories", len(doc.Categories), "items", len(doc.Items))
	return seed.Apply(ctx, seed.NewMongoTracker(db), defs, menuSeedApplication)
}

func ensureCategories(ctx context.Context, repo MenuCategoryRepo, seeds []categorySeed, logger apt.Logger) error {
	existing, err := categoriesByName(ctx, repo)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, s := range seeds {
		if _, ok := existing[strings.ToLower(s.Name)]; ok {
			logger.Debug("Seed category already exists", "name", s.Name)
			continue
		}

		category := &MenuCategory{Name: s.Name, Order: s.Order, IsVisible: s.IsVisible}
		category.BeforeCreate(now)
		if err := repo.Create(ctx, category); err != nil {
			return fmt.Errorf("create seed category %s: %w", s.Name, err)
		}
		logger.Info("Seed category created", "name", s.Name, "id", category.ID.String())
	}

	return nil
}

func ensureItems(ctx context.Context, repo MenuItemRepo, categories MenuCategoryRepo, seeds []itemSeed, logger apt.Logger) error {
	byName, err := categoriesByName(ctx, categories)
	if err != nil {
		return err
	}

	current, err := repo.List(ctx, ItemFilter{})
	if err != nil {
		return fmt.Errorf("list menu items: %w", err)
	}
	existing := make(map[string]bool, len(current))
	for _, item := range current {
		existing[strings.ToLower(item.Name)] = true
	}

	now := time.Now()
	for _, s := range seeds {
		if existing[strings.ToLower(s.Name)] {
			continue
		}

		categoryID, ok := byName[strings.ToLower(s.Category)]
		if !ok {
			logger.Info("Skipping seed item with unknown category", "name", s.Name, "category", s.Category)
			continue
		}

		item := &MenuItem{
			Name:        s.Name,
			Description: s.Description,
			Price:       s.Price,
			CategoryID:  categoryID,
			IsAvailable: s.IsAvailable,
		}
		item.BeforeCreate(now)
		if err := repo.Create(ctx, item); err != nil {
			return fmt.Errorf("create seed item %s: %w", s.Name, err)
		}
	}

	return nil
}

func categoriesByName(ctx context.Context, repo MenuCategoryRepo) (map[string]uuid.UUID, error) {
	list, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	byName := make(map[string]uuid.UUID, len(list))
	for _, c := range list {
		byName[strings.ToLower(c.Name)] = c.ID
	}
	return byName, nil
}

// SeedingFunc returns a lifecycle OnStart hook that applies menu seeds in
// the background.
func SeedingFunc(seedCtx context.Context, items MenuItemRepo, categories MenuCategoryRepo, db *mongo.Database, seedFS embed.FS, logger apt.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		go func() {
			if err := ApplyMenuSeeds(seedCtx, items, categories, db, seedFS, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Menu seeds failed: %v", err)
				return
			}
			logger.Info("Menu seeding finished")
		}()
		return nil
	}
}
