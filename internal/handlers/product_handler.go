package handlers

import (
	"supplymarket/internal/middleware"
	"supplymarket/internal/models"
	"supplymarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/stats", h.HandleProductStats)
	productRoutes.Get("/summary", h.HandlePriceSummary)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", middleware.RoleRequired(models.RoleSupplier, models.RoleAdmin), h.HandleCreateProduct)
	productRoutes.Patch("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts retrieves products matching the query string filters.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	products, err := h.service.ListProducts(c.UserContext(), q)
	if err != nil {
		return fail(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleSearchProducts finds in-stock products by free text in ?q=.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	products, err := h.service.SearchProducts(c.UserContext(), c.Query("q"), q)
	if err != nil {
		return fail(c, "Could not search products", err)
	}
	return c.JSON(products)
}

// HandleProductStats groups products by ?by=categoryId (default) or companyId.
func (h *ProductHandler) HandleProductStats(c *fiber.Ctx) error {
	where, err := parseWhere(c)
	if err != nil {
		return badQuery(c, err)
	}
	stats, err := h.service.ProductStats(c.UserContext(), c.Query("by", "categoryId"), where)
	if err != nil {
		return fail(c, "Could not compute product stats", err)
	}
	return c.JSON(stats)
}

func (h *ProductHandler) HandlePriceSummary(c *fiber.Ctx) error {
	where, err := parseWhere(c)
	if err != nil {
		return badQuery(c, err)
	}
	summary, err := h.service.PriceSummary(c.UserContext(), where)
	if err != nil {
		return fail(c, "Could not compute price summary", err)
	}
	return c.JSON(summary)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"), splitList(c.Query("include")))
	if err != nil {
		return fail(c, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleCreateProduct adds a product to the caller's company catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	product, err := h.service.CreateProduct(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return fail(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	data, ok, err := parsePatch(c)
	if !ok {
		return err
	}
	product, err := h.service.UpdateProduct(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), data)
	if err != nil {
		return fail(c, "Could not update product", err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
		return fail(c, "Could not delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
