package services

import (
	"context"
	"fmt"
	"strings"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"

	"github.com/shopspring/decimal"
)

// ProductInput is the payload for creating a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=2,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Unit        string          `json:"unit" validate:"max=32"`
	PriceFrom   decimal.Decimal `json:"priceFrom"`
	PriceUnit   string          `json:"priceUnit" validate:"max=32"`
	InStock     *bool           `json:"inStock"`
	CategoryID  string          `json:"categoryId" validate:"omitempty,uuid"`
}

// ProductStats is one group of the product price statistics.
type ProductStats struct {
	Key      string           `json:"key"`
	Count    int64            `json:"count"`
	MinPrice any              `json:"minPrice"`
	MaxPrice any              `json:"maxPrice"`
	AvgPrice *decimal.Decimal `json:"avgPrice"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	store *repositories.Store
}

// NewProductService creates a new ProductService.
func NewProductService(store *repositories.Store) *ProductService {
	return &ProductService{store: store}
}

// ListProducts retrieves the products matching q.
func (s *ProductService) ListProducts(ctx context.Context, q repositories.Query) ([]models.Product, error) {
	return s.store.Products.FindMany(ctx, q)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string, include []string) (*models.Product, error) {
	return s.store.Products.FindFirst(ctx, repositories.Query{
		Where:   repositories.WhereAll(repositories.Eq("id", id)),
		Include: include,
	})
}

// CreateProduct adds a product to the catalog of the actor's company. The
// category defaults to the company's own.
func (s *ProductService) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*models.Product, error) {
	company, err := companyOf(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	if in.PriceFrom.IsNegative() {
		return nil, fmt.Errorf("%w: priceFrom must not be negative", ErrInvalidInput)
	}

	categoryID := in.CategoryID
	if categoryID == "" {
		categoryID = company.CategoryID
	} else if _, err := s.store.Categories.FindUnique(ctx, "id", categoryID); err != nil {
		if repositories.IsNotFound(err) {
			return nil, fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, categoryID)
		}
		return nil, err
	}

	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}
	product := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Unit:        in.Unit,
		PriceFrom:   in.PriceFrom,
		PriceUnit:   in.PriceUnit,
		InStock:     inStock,
		CompanyID:   company.ID,
		CategoryID:  categoryID,
	}
	if err := s.store.Products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// UpdateProduct changes a product of the actor's company.
func (s *ProductService) UpdateProduct(ctx context.Context, actor Actor, id string, data map[string]any) (*models.Product, error) {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	if _, ok := data["companyId"]; ok && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: products cannot be moved to another company", ErrForbidden)
	}
	if raw, ok := data["priceFrom"]; ok {
		price, err := decimal.NewFromString(fmt.Sprint(raw))
		if err == nil && price.IsNegative() {
			return nil, fmt.Errorf("%w: priceFrom must not be negative", ErrInvalidInput)
		}
	}
	return s.store.Products.Update(ctx, id, data)
}

// DeleteProduct deletes a product of the actor's company.
func (s *ProductService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	_, err := s.store.Products.Delete(ctx, id)
	return err
}

// SearchProducts finds in-stock products whose name or description contains
// text, ignoring case. Extra filters from q are AND-ed.
func (s *ProductService) SearchProducts(ctx context.Context, text string, q repositories.Query) ([]models.Product, error) {
	where := repositories.Where{
		Filters: []repositories.Filter{repositories.Eq("inStock", true)},
		AND:     []repositories.Where{q.Where},
	}
	if text = strings.TrimSpace(text); text != "" {
		where.OR = []repositories.Where{
			repositories.WhereAll(repositories.Filter{Field: "name", Op: repositories.OpContains, Value: text, Insensitive: true}),
			repositories.WhereAll(repositories.Filter{Field: "description", Op: repositories.OpContains, Value: text, Insensitive: true}),
		}
	}
	q.Where = where
	return s.store.Products.FindMany(ctx, q)
}

// ProductStats groups products by categoryId or companyId and reports the
// count and price range of each group, largest group first.
func (s *ProductService) ProductStats(ctx context.Context, by string, where repositories.Where) ([]ProductStats, error) {
	if by != "categoryId" && by != "companyId" {
		return nil, fmt.Errorf("%w: products can be grouped by categoryId or companyId", ErrInvalidInput)
	}
	groups, err := s.store.Products.GroupBy(ctx, repositories.GroupByArgs{
		By:    []string{by},
		Where: where,
		Aggregate: repositories.AggregateSpec{
			Count: true,
			Avg:   []string{"priceFrom"},
			Min:   []string{"priceFrom"},
			Max:   []string{"priceFrom"},
		},
		OrderBy: []repositories.Order{{Field: "_count", Desc: true}, {Field: by}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]ProductStats, 0, len(groups))
	for _, g := range groups {
		key, _ := g.By[by].(string)
		stats := ProductStats{
			Key:      key,
			MinPrice: g.Min["priceFrom"],
			MaxPrice: g.Max["priceFrom"],
			AvgPrice: g.Avg["priceFrom"],
		}
		if g.Count != nil {
			stats.Count = *g.Count
		}
		out = append(out, stats)
	}
	return out, nil
}

// PriceSummary aggregates priceFrom over the products matching where.
func (s *ProductService) PriceSummary(ctx context.Context, where repositories.Where) (*repositories.AggregateResult, error) {
	return s.store.Products.Aggregate(ctx, where, repositories.AggregateSpec{
		Count: true,
		Avg:   []string{"priceFrom"},
		Sum:   []string{"priceFrom"},
		Min:   []string{"priceFrom"},
		Max:   []string{"priceFrom"},
	})
}

func (s *ProductService) authorize(ctx context.Context, actor Actor, id string) (*models.Product, error) {
	product, err := s.store.Products.FindUnique(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return product, nil
	}
	company, err := companyOf(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	if product.CompanyID != company.ID {
		return nil, fmt.Errorf("%w: product %s belongs to another company", ErrForbidden, id)
	}
	return product, nil
}
