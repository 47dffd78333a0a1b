package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"supplymarket/internal/handlers"
	"supplymarket/internal/models"
	"supplymarket/internal/repositories"
	"supplymarket/internal/services"
	"supplymarket/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	app     *fiber.App
	store   *repositories.Store
	catalog testutil.Catalog
}

// setupApp builds the full HTTP stack over a fresh in-memory sqlite database.
func setupApp(t *testing.T) testApp {
	t.Helper()
	store := repositories.NewStore(testutil.NewTestDB(t))
	svc := handlers.Services{
		Auth:    services.NewAuthService(store.Users, "test_jwt_secret", time.Hour),
		Catalog: services.NewCatalogService(store.Regions, store.Categories),
		Company: services.NewCompanyService(store, nil),
		Product: services.NewProductService(store),
		Request: services.NewRequestService(store, nil),
		Offer:   services.NewOfferService(store, nil),
	}
	app := fiber.New()
	handlers.Register(app, store, svc)
	return testApp{app: app, store: store, catalog: testutil.SeedCatalog(t, store)}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func (a testApp) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func (a testApp) register(t *testing.T, email, phone, role string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Test " + role,
		"email":    email,
		"phone":    phone,
		"password": "password123",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	return a.login(t, email, "password123")
}

func (a testApp) login(t *testing.T, login, password string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"login":    login,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

// adminToken inserts an admin directly; the API never lets anyone become one.
func (a testApp) adminToken(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(hash)
	require.NoError(t, a.store.Users.Create(context.Background(), &models.User{
		Name:         "Admin",
		Email:        "admin@example.com",
		Phone:        "+77000000001",
		PasswordHash: &h,
		Role:         models.RoleAdmin,
	}))
	return a.login(t, "admin@example.com", "adminpass")
}

func TestHealthCheck(t *testing.T) {
	a := setupApp(t)
	resp := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
}

func TestAuthRegisterAndLogin(t *testing.T) {
	a := setupApp(t)
	a.register(t, "buyer@example.com", "+77011234567", models.RoleBuyer)

	// Duplicate email
	resp := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Another",
		"email":    "buyer@example.com",
		"phone":    "+77017654321",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Admin cannot be self-assigned
	resp = a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Sneaky",
		"email":    "sneaky@example.com",
		"phone":    "+77019999999",
		"password": "password123",
		"role":     models.RoleAdmin,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var validation map[string]any
	decode(t, resp, &validation)
	assert.Equal(t, "Validation failed", validation["message"])

	// Phone works as a login too
	a.login(t, "+77011234567", "password123")

	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"login":    "buyer@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := setupApp(t)

	resp := a.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet, "/api/v1/requests", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The catalog is public to read
	resp = a.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var categories []models.Category
	decode(t, resp, &categories)
	require.Len(t, categories, 1)
	assert.Equal(t, "Cement", categories[0].Name)
}

func TestCatalogWritesNeedAdmin(t *testing.T) {
	a := setupApp(t)
	buyer := a.register(t, "buyer@example.com", "+77011234567", models.RoleBuyer)
	admin := a.adminToken(t)
	region := map[string]string{"name": "Astana", "nameLocal": "Астана"}

	resp := a.do(t, http.MethodPost, "/api/v1/regions", "", region)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/v1/regions", buyer, region)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/v1/regions", admin, region)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Region
	decode(t, resp, &created)
	assert.NotEmpty(t, created.ID)

	resp = a.do(t, http.MethodPost, "/api/v1/regions", admin, region)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestRequestOfferAcceptFlow(t *testing.T) {
	a := setupApp(t)
	buyer := a.register(t, "buyer@example.com", "+77011234567", models.RoleBuyer)
	otherBuyer := a.register(t, "other@example.com", "+77011234568", models.RoleBuyer)
	supplier := a.register(t, "supplier@example.com", "+77021234567", models.RoleSupplier)

	resp := a.do(t, http.MethodPost, "/api/v1/companies", supplier, map[string]any{
		"name":       "Beton Stroy",
		"address":    "Raiymbek ave 10",
		"delivery":   true,
		"categoryId": a.catalog.Category.ID,
		"regionId":   a.catalog.Region.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var company models.Company
	decode(t, resp, &company)

	// Suppliers cannot post requests
	resp = a.do(t, http.MethodPost, "/api/v1/requests", supplier, map[string]string{"query": "cement"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/v1/requests", buyer, map[string]string{
		"query": "Нужно 20 тонн цемента в Алматы с доставкой",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var request models.Request
	decode(t, resp, &request)
	assert.Equal(t, models.RequestOpen, request.Status)
	assert.Equal(t, a.catalog.Category.ID, request.CategoryID)
	assert.True(t, request.DeliveryNeeded)

	resp = a.do(t, http.MethodGet, "/api/v1/requests/open", supplier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var open []models.Request
	decode(t, resp, &open)
	require.Len(t, open, 1)
	assert.Equal(t, request.ID, open[0].ID)

	resp = a.do(t, http.MethodGet, "/api/v1/requests/open", buyer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	offerBody := map[string]any{
		"requestId":  request.ID,
		"price":      "41000",
		"priceUnit":  "KZT/t",
		"validUntil": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	}
	resp = a.do(t, http.MethodPost, "/api/v1/offers", supplier, offerBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var offer models.Offer
	decode(t, resp, &offer)
	assert.Equal(t, models.OfferPending, offer.Status)
	assert.Equal(t, company.ID, offer.CompanyID)

	resp = a.do(t, http.MethodPost, "/api/v1/offers", supplier, offerBody)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet, "/api/v1/requests/"+request.ID+"/offers", otherBuyer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet, "/api/v1/requests/"+request.ID+"/offers", buyer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var offers []models.Offer
	decode(t, resp, &offers)
	require.Len(t, offers, 1)

	resp = a.do(t, http.MethodPost, "/api/v1/offers/"+offer.ID+"/accept", supplier, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/v1/offers/"+offer.ID+"/accept", buyer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accepted models.Offer
	decode(t, resp, &accepted)
	assert.Equal(t, models.OfferAccepted, accepted.Status)

	resp = a.do(t, http.MethodPost, "/api/v1/offers/"+offer.ID+"/accept", buyer, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet, "/api/v1/requests/"+request.ID, buyer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var closed models.Request
	decode(t, resp, &closed)
	assert.Equal(t, models.RequestClosed, closed.Status)

	resp = a.do(t, http.MethodGet, "/api/v1/requests/"+request.ID, otherBuyer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet, "/api/v1/requests/00000000-0000-0000-0000-000000000000", buyer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProductQueryFilters(t *testing.T) {
	a := setupApp(t)
	supplier := a.register(t, "supplier@example.com", "+77021234567", models.RoleSupplier)
	owner, err := a.store.Users.GetByEmail(context.Background(), "supplier@example.com")
	require.NoError(t, err)
	company := testutil.CreateCompany(t, a.store, a.catalog, owner)

	for _, p := range []map[string]any{
		{"name": "Portland cement M500", "priceFrom": 42000},
		{"name": "Quartz sand", "priceFrom": 9000},
	} {
		resp := a.do(t, http.MethodPost, "/api/v1/products", supplier, p)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := a.do(t, http.MethodGet, "/api/v1/products?name__icontains=CEMENT", supplier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	decode(t, resp, &products)
	require.Len(t, products, 1)
	assert.Equal(t, company.ID, products[0].CompanyID)

	resp = a.do(t, http.MethodGet, "/api/v1/products?orderBy=priceFrom&take=1", supplier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "Quartz sand", products[0].Name)

	resp = a.do(t, http.MethodGet, "/api/v1/products/search?q=sand", supplier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &products)
	require.Len(t, products, 1)

	resp = a.do(t, http.MethodGet, "/api/v1/products/stats?by=companyId", supplier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats []services.ProductStats
	decode(t, resp, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Count)

	// Unknown operators and fields are client errors
	for _, path := range []string{
		"/api/v1/products?name__like=cement",
		"/api/v1/products?price__gt=1",
		"/api/v1/products?take=zero",
		"/api/v1/products/stats?by=name",
	} {
		resp = a.do(t, http.MethodGet, path, supplier, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		resp.Body.Close()
	}

	resp = a.do(t, http.MethodGet, "/api/v1/products/00000000-0000-0000-0000-000000000000", supplier, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestIncludeOfPrivateRelations(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()
	buyer := a.register(t, "buyer@example.com", "+77011234567", models.RoleBuyer)
	supplier := a.register(t, "supplier@example.com", "+77021234567", models.RoleSupplier)
	rival := a.register(t, "rival@example.com", "+77021234568", models.RoleSupplier)
	admin := a.adminToken(t)

	buyerUser, err := a.store.Users.GetByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	supplierUser, err := a.store.Users.GetByEmail(ctx, "supplier@example.com")
	require.NoError(t, err)
	rivalUser, err := a.store.Users.GetByEmail(ctx, "rival@example.com")
	require.NoError(t, err)
	company := testutil.CreateCompany(t, a.store, a.catalog, supplierUser)
	testutil.CreateCompany(t, a.store, a.catalog, rivalUser)
	request := testutil.CreateRequest(t, a.store, a.catalog, *buyerUser)
	testutil.CreateOffer(t, a.store, request, company, 12345)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"anonymous category requests", "/api/v1/categories/" + a.catalog.Category.ID + "?include=requests", "", http.StatusForbidden},
		{"category list requests", "/api/v1/categories?include=companies,requests", "", http.StatusForbidden},
		{"category companies and products", "/api/v1/categories/" + a.catalog.Category.ID + "?include=companies,products", "", http.StatusOK},
		{"rival reads request offers", "/api/v1/requests/" + request.ID + "?include=offers", rival, http.StatusForbidden},
		{"rival reads request buyer", "/api/v1/requests/" + request.ID + "?include=user", rival, http.StatusForbidden},
		{"supplier browses open with offers", "/api/v1/requests/open?include=offers", rival, http.StatusForbidden},
		{"supplier reads request category", "/api/v1/requests/" + request.ID + "?include=category", rival, http.StatusOK},
		{"buyer reads own request offers", "/api/v1/requests/" + request.ID + "?include=offers,user", buyer, http.StatusOK},
		{"rival reads company offers", "/api/v1/companies/" + company.ID + "?include=offers", rival, http.StatusForbidden},
		{"buyer reads company owner", "/api/v1/companies/" + company.ID + "?include=owner", buyer, http.StatusForbidden},
		{"company list with owners", "/api/v1/companies?include=owner", supplier, http.StatusForbidden},
		{"buyer reads company products", "/api/v1/companies/" + company.ID + "?include=products,region", buyer, http.StatusOK},
		{"owner reads own offers", "/api/v1/companies/" + company.ID + "?include=offers,owner", supplier, http.StatusOK},
		{"admin reads company owners", "/api/v1/companies?include=owner,offers", admin, http.StatusOK},
		{"unknown relation", "/api/v1/companies/" + company.ID + "?include=employees", buyer, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := a.do(t, http.MethodGet, tc.path, tc.token, nil)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	// The owner sees the offer the rival could not
	resp := a.do(t, http.MethodGet, "/api/v1/companies/"+company.ID+"?include=offers", supplier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Company
	decode(t, resp, &got)
	require.Len(t, got.Offers, 1)
	assert.Equal(t, request.ID, got.Offers[0].RequestID)
}
