package services

import (
	"context"
	"fmt"
	"strings"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"

	"gorm.io/datatypes"
)

// RegionInput is the payload for creating a region.
type RegionInput struct {
	Name      string `json:"name" yaml:"name" validate:"required,min=2,max=255"`
	NameLocal string `json:"nameLocal" yaml:"nameLocal" validate:"max=255"`
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name      string   `json:"name" yaml:"name" validate:"required,min=2,max=255"`
	NameLocal string   `json:"nameLocal" yaml:"nameLocal" validate:"max=255"`
	Icon      string   `json:"icon" yaml:"icon" validate:"max=255"`
	Keywords  []string `json:"keywords" yaml:"keywords" validate:"dive,min=2,max=64"`
}

// CatalogService manages the reference data: regions and categories.
type CatalogService struct {
	regions    repositories.RegionRepository
	categories repositories.CategoryRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(regions repositories.RegionRepository, categories repositories.CategoryRepository) *CatalogService {
	return &CatalogService{regions: regions, categories: categories}
}

func (s *CatalogService) ListRegions(ctx context.Context, q repositories.Query) ([]models.Region, error) {
	return s.regions.FindMany(ctx, q)
}

func (s *CatalogService) GetRegion(ctx context.Context, id string, include []string) (*models.Region, error) {
	return s.regions.FindFirst(ctx, repositories.Query{Where: repositories.WhereAll(repositories.Eq("id", id)), Include: include})
}

func (s *CatalogService) CreateRegion(ctx context.Context, actor Actor, in RegionInput) (*models.Region, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	region := &models.Region{Name: strings.TrimSpace(in.Name), NameLocal: strings.TrimSpace(in.NameLocal)}
	if err := s.regions.Create(ctx, region); err != nil {
		return nil, fmt.Errorf("failed to create region: %w", err)
	}
	return region, nil
}

func (s *CatalogService) UpdateRegion(ctx context.Context, actor Actor, id string, data map[string]any) (*models.Region, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.regions.Update(ctx, id, data)
}

func (s *CatalogService) DeleteRegion(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	_, err := s.regions.Delete(ctx, id)
	return err
}

// UpsertRegion creates the region or updates its localized name, keyed by name.
func (s *CatalogService) UpsertRegion(ctx context.Context, in RegionInput) (*models.Region, error) {
	name := strings.TrimSpace(in.Name)
	return s.regions.Upsert(ctx, "name", name,
		&models.Region{Name: name, NameLocal: in.NameLocal},
		map[string]any{"nameLocal": in.NameLocal},
	)
}

// Buyer requests stay out of the public catalog.
var privateCategoryRelations = []string{"requests"}

func (s *CatalogService) ListCategories(ctx context.Context, q repositories.Query) ([]models.Category, error) {
	if err := guardIncludes(q.Include, privateCategoryRelations...); err != nil {
		return nil, err
	}
	return s.categories.FindMany(ctx, q)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string, include []string) (*models.Category, error) {
	if err := guardIncludes(include, privateCategoryRelations...); err != nil {
		return nil, err
	}
	return s.categories.FindFirst(ctx, repositories.Query{Where: repositories.WhereAll(repositories.Eq("id", id)), Include: include})
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	category := &models.Category{
		Name:      strings.TrimSpace(in.Name),
		NameLocal: strings.TrimSpace(in.NameLocal),
		Icon:      in.Icon,
		Keywords:  normalizeKeywords(in.Keywords),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, actor Actor, id string, data map[string]any) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.categories.Update(ctx, id, data)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	_, err := s.categories.Delete(ctx, id)
	return err
}

// UpsertCategory creates the category or refreshes its details, keyed by name.
func (s *CatalogService) UpsertCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	keywords := normalizeKeywords(in.Keywords)
	return s.categories.Upsert(ctx, "name", name,
		&models.Category{Name: name, NameLocal: in.NameLocal, Icon: in.Icon, Keywords: keywords},
		map[string]any{"nameLocal": in.NameLocal, "icon": in.Icon, "keywords": keywords},
	)
}

// normalizeKeywords lowercases, trims and de-duplicates keywords.
func normalizeKeywords(in []string) datatypes.JSONSlice[string] {
	seen := make(map[string]bool, len(in))
	out := make(datatypes.JSONSlice[string], 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
