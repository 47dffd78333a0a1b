package handlers

import (
	"supplymarket/internal/middleware"
	"supplymarket/internal/models"
	"supplymarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles HTTP requests for regions and categories.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers the catalog routes. Reads are public; writes need
// an admin token.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	admin := []fiber.Handler{auth, middleware.RoleRequired(models.RoleAdmin)}

	regions := router.Group("/regions")
	regions.Get("/", h.HandleListRegions)
	regions.Get("/:id", h.HandleGetRegion)
	regions.Post("/", append(admin, h.HandleCreateRegion)...)
	regions.Patch("/:id", append(admin, h.HandleUpdateRegion)...)
	regions.Delete("/:id", append(admin, h.HandleDeleteRegion)...)

	categories := router.Group("/categories")
	categories.Get("/", h.HandleListCategories)
	categories.Get("/:id", h.HandleGetCategory)
	categories.Post("/", append(admin, h.HandleCreateCategory)...)
	categories.Patch("/:id", append(admin, h.HandleUpdateCategory)...)
	categories.Delete("/:id", append(admin, h.HandleDeleteCategory)...)
}

func (h *CatalogHandler) HandleListRegions(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	regions, err := h.service.ListRegions(c.UserContext(), q)
	if err != nil {
		return fail(c, "Could not retrieve regions", err)
	}
	return c.JSON(regions)
}

func (h *CatalogHandler) HandleGetRegion(c *fiber.Ctx) error {
	region, err := h.service.GetRegion(c.UserContext(), c.Params("id"), splitList(c.Query("include")))
	if err != nil {
		return fail(c, "Could not retrieve region", err)
	}
	return c.JSON(region)
}

func (h *CatalogHandler) HandleCreateRegion(c *fiber.Ctx) error {
	var in services.RegionInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	region, err := h.service.CreateRegion(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return fail(c, "Could not create region", err)
	}
	return c.Status(fiber.StatusCreated).JSON(region)
}

func (h *CatalogHandler) HandleUpdateRegion(c *fiber.Ctx) error {
	data, ok, err := parsePatch(c)
	if !ok {
		return err
	}
	region, err := h.service.UpdateRegion(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), data)
	if err != nil {
		return fail(c, "Could not update region", err)
	}
	return c.JSON(region)
}

func (h *CatalogHandler) HandleDeleteRegion(c *fiber.Ctx) error {
	if err := h.service.DeleteRegion(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
		return fail(c, "Could not delete region", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) HandleListCategories(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	categories, err := h.service.ListCategories(c.UserContext(), q)
	if err != nil {
		return fail(c, "Could not retrieve categories", err)
	}
	return c.JSON(categories)
}

func (h *CatalogHandler) HandleGetCategory(c *fiber.Ctx) error {
	category, err := h.service.GetCategory(c.UserContext(), c.Params("id"), splitList(c.Query("include")))
	if err != nil {
		return fail(c, "Could not retrieve category", err)
	}
	return c.JSON(category)
}

func (h *CatalogHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var in services.CategoryInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	category, err := h.service.CreateCategory(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return fail(c, "Could not create category", err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CatalogHandler) HandleUpdateCategory(c *fiber.Ctx) error {
	data, ok, err := parsePatch(c)
	if !ok {
		return err
	}
	category, err := h.service.UpdateCategory(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), data)
	if err != nil {
		return fail(c, "Could not update category", err)
	}
	return c.JSON(category)
}

func (h *CatalogHandler) HandleDeleteCategory(c *fiber.Ctx) error {
	if err := h.service.DeleteCategory(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
		return fail(c, "Could not delete category", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
