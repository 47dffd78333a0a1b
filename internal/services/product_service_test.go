package services_test

import (
	"context"
	"testing"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"
	"supplymarket/internal/services"
	"supplymarket/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	catalog := testutil.SeedCatalog(t, store)
	svc := services.NewProductService(store)
	owner := testutil.CreateUser(t, store, models.RoleSupplier)
	company := testutil.CreateCompany(t, store, catalog, &owner)

	product, err := svc.CreateProduct(ctx, actorOf(owner), services.ProductInput{
		Name:      "Portland cement M500",
		Unit:      "t",
		PriceFrom: decimal.RequireFromString("42000.50"),
		PriceUnit: "KZT",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, company.ID, product.CompanyID)
	assert.Equal(t, catalog.Category.ID, product.CategoryID)
	assert.True(t, product.InStock)

	outOfStock := false
	product, err = svc.CreateProduct(ctx, actorOf(owner), services.ProductInput{
		Name:      "White cement",
		PriceFrom: decimal.NewFromInt(60000),
		InStock:   &outOfStock,
	})
	require.NoError(t, err)
	stored, err := svc.GetProductByID(ctx, product.ID, []string{"company"})
	require.NoError(t, err)
	assert.False(t, stored.InStock)
	require.NotNil(t, stored.Company)
	assert.Equal(t, company.ID, stored.Company.ID)

	_, err = svc.CreateProduct(ctx, actorOf(owner), services.ProductInput{Name: "Cheap", PriceFrom: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	// Suppliers without a company have no catalog
	loner := testutil.CreateUser(t, store, models.RoleSupplier)
	_, err = svc.CreateProduct(ctx, actorOf(loner), services.ProductInput{Name: "Sand", PriceFrom: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestProductService_UpdateAndDeleteNeedOwnership(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	catalog := testutil.SeedCatalog(t, store)
	svc := services.NewProductService(store)
	owner := testutil.CreateUser(t, store, models.RoleSupplier)
	company := testutil.CreateCompany(t, store, catalog, &owner)
	product := testutil.CreateProduct(t, store, company, "Cement M400", 38000)

	rival := testutil.CreateUser(t, store, models.RoleSupplier)
	testutil.CreateCompany(t, store, catalog, &rival)

	_, err := svc.UpdateProduct(ctx, actorOf(rival), product.ID, map[string]any{"priceFrom": 1})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.UpdateProduct(ctx, actorOf(owner), product.ID, map[string]any{"priceFrom": -5})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	updated, err := svc.UpdateProduct(ctx, actorOf(owner), product.ID, map[string]any{"priceFrom": "39000", "inStock": false})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(39000).Equal(updated.PriceFrom))
	assert.False(t, updated.InStock)

	_, err = svc.UpdateProduct(ctx, actorOf(owner), product.ID, map[string]any{"colour": "grey"})
	assert.True(t, repositories.IsValidation(err))

	assert.ErrorIs(t, svc.DeleteProduct(ctx, actorOf(rival), product.ID), services.ErrForbidden)
	require.NoError(t, svc.DeleteProduct(ctx, actorOf(owner), product.ID))
	assert.True(t, repositories.IsNotFound(svc.DeleteProduct(ctx, actorOf(owner), product.ID)))
}

func TestProductService_SearchProducts(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	catalog := testutil.SeedCatalog(t, store)
	svc := services.NewProductService(store)
	owner := testutil.CreateUser(t, store, models.RoleSupplier)
	company := testutil.CreateCompany(t, store, catalog, &owner)
	testutil.CreateProduct(t, store, company, "Portland CEMENT M500", 42000)
	testutil.CreateProduct(t, store, company, "Quartz sand", 9000)
	hidden := testutil.CreateProduct(t, store, company, "Cement M400", 38000)
	_, err := store.Products.Update(ctx, hidden.ID, map[string]any{"inStock": false})
	require.NoError(t, err)

	found, err := svc.SearchProducts(ctx, "cement", repositories.Query{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Portland CEMENT M500", found[0].Name)

	cheap := repositories.Query{Where: repositories.WhereAll(
		repositories.Filter{Field: "priceFrom", Op: repositories.OpLt, Value: 10000},
	)}
	found, err = svc.SearchProducts(ctx, "", cheap)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Quartz sand", found[0].Name)

	// LIKE wildcards in the text are matched literally
	found, err = svc.SearchProducts(ctx, "%", repositories.Query{})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestProductService_StatsAndSummary(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	catalog := testutil.SeedCatalog(t, store)
	svc := services.NewProductService(store)
	first := testutil.CreateUser(t, store, models.RoleSupplier)
	second := testutil.CreateUser(t, store, models.RoleSupplier)
	big := testutil.CreateCompany(t, store, catalog, &first)
	small := testutil.CreateCompany(t, store, catalog, &second)
	testutil.CreateProduct(t, store, big, "Cement M400", 30000)
	testutil.CreateProduct(t, store, big, "Cement M500", 40000)
	testutil.CreateProduct(t, store, big, "White cement", 50000)
	testutil.CreateProduct(t, store, small, "Cement M500", 45000)

	stats, err := svc.ProductStats(ctx, "companyId", repositories.Where{})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, big.ID, stats[0].Key)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.Equal(t, decimal.NewFromInt(30000).String(), stats[0].MinPrice.(decimal.Decimal).String())
	assert.Equal(t, decimal.NewFromInt(50000).String(), stats[0].MaxPrice.(decimal.Decimal).String())
	require.NotNil(t, stats[0].AvgPrice)
	assert.True(t, decimal.NewFromInt(40000).Equal(*stats[0].AvgPrice))
	assert.Equal(t, small.ID, stats[1].Key)
	assert.Equal(t, int64(1), stats[1].Count)

	byCategory, err := svc.ProductStats(ctx, "categoryId", repositories.Where{})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, int64(4), byCategory[0].Count)

	_, err = svc.ProductStats(ctx, "name", repositories.Where{})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	summary, err := svc.PriceSummary(ctx, repositories.WhereAll(repositories.Eq("companyId", big.ID)))
	require.NoError(t, err)
	require.NotNil(t, summary.Count)
	assert.Equal(t, int64(3), *summary.Count)
	assert.True(t, decimal.NewFromInt(120000).Equal(*summary.Sum["priceFrom"]))

	empty, err := svc.PriceSummary(ctx, repositories.WhereAll(repositories.Eq("companyId", "nobody")))
	require.NoError(t, err)
	assert.Equal(t, int64(0), *empty.Count)
	assert.Nil(t, empty.Avg["priceFrom"])
	assert.Nil(t, empty.Min["priceFrom"])
}
