package testutil

import (
	"context"
	"testing"
	"time"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Catalog is a minimal set of reference rows.
type Catalog struct {
	Region   models.Region
	Category models.Category
}

// SeedCatalog inserts one region and one category.
func SeedCatalog(t testing.TB, store *repositories.Store) Catalog {
	t.Helper()
	ctx := context.Background()
	c := Catalog{
		Region: models.Region{Name: "Almaty", NameLocal: "Алматы"},
		Category: models.Category{
			Name:      "Cement",
			NameLocal: "Цемент",
			Icon:      "cement.svg",
			Keywords:  datatypes.JSONSlice[string]{"cement", "цемент", "m500"},
		},
	}
	if err := store.Regions.Create(ctx, &c.Region); err != nil {
		t.Fatalf("failed to seed region: %v", err)
	}
	if err := store.Categories.Create(ctx, &c.Category); err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return c
}

// CreateUser inserts a user with a unique email and phone.
func CreateUser(t testing.TB, store *repositories.Store, role string) models.User {
	t.Helper()
	suffix := uuid.New().String()[:8]
	u := models.User{
		Name:  "User " + suffix,
		Email: suffix + "@example.com",
		Phone: "+7700" + suffix,
		Role:  role,
	}
	if err := store.Users.Create(context.Background(), &u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

// CreateCompany inserts a company owned by owner.
func CreateCompany(t testing.TB, store *repositories.Store, catalog Catalog, owner *models.User) models.Company {
	t.Helper()
	c := models.Company{
		Name:       "Supplier " + uuid.New().String()[:6],
		Address:    "Abay ave 1",
		Phone:      "+77001112233",
		Delivery:   true,
		Verified:   true,
		CategoryID: catalog.Category.ID,
		RegionID:   catalog.Region.ID,
	}
	if owner != nil {
		c.OwnerID = &owner.ID
	}
	if err := store.Companies.Create(context.Background(), &c); err != nil {
		t.Fatalf("failed to create company: %v", err)
	}
	return c
}

// CreateProduct inserts a product priced at price.
func CreateProduct(t testing.TB, store *repositories.Store, company models.Company, name string, price int64) models.Product {
	t.Helper()
	p := models.Product{
		Name:       name,
		Unit:       "t",
		PriceFrom:  decimal.NewFromInt(price),
		PriceUnit:  "KZT",
		InStock:    true,
		CompanyID:  company.ID,
		CategoryID: company.CategoryID,
	}
	if err := store.Products.Create(context.Background(), &p); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return p
}

// CreateRequest inserts an open request by user.
func CreateRequest(t testing.TB, store *repositories.Store, catalog Catalog, user models.User) models.Request {
	t.Helper()
	r := models.Request{
		Query:      "need 20 t cement in Almaty",
		Status:     models.RequestOpen,
		UserID:     user.ID,
		CategoryID: catalog.Category.ID,
	}
	if err := store.Requests.Create(context.Background(), &r); err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return r
}

// CreateOffer inserts a pending offer valid for one day.
func CreateOffer(t testing.TB, store *repositories.Store, request models.Request, company models.Company, price int64) models.Offer {
	t.Helper()
	o := models.Offer{
		Price:      decimal.NewFromInt(price),
		PriceUnit:  "KZT/t",
		ValidUntil: time.Now().UTC().Add(24 * time.Hour),
		Status:     models.OfferPending,
		RequestID:  request.ID,
		CompanyID:  company.ID,
	}
	if err := store.Offers.Create(context.Background(), &o); err != nil {
		t.Fatalf("failed to create offer: %v", err)
	}
	return o
}
