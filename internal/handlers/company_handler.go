package handlers

import (
	"log"

	"supplymarket/internal/middleware"
	"supplymarket/internal/models"
	"supplymarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Largest accepted logo upload.
const maxLogoSize = 2 << 20

// CompanyHandler handles HTTP requests for supplier companies.
type CompanyHandler struct {
	service *services.CompanyService
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(service *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// RegisterRoutes registers the company routes on an authenticated router.
func (h *CompanyHandler) RegisterRoutes(router fiber.Router) {
	companies := router.Group("/companies")
	companies.Get("/", h.HandleListCompanies)
	companies.Get("/:id", h.HandleGetCompany)
	companies.Post("/", middleware.RoleRequired(models.RoleSupplier, models.RoleAdmin), h.HandleCreateCompany)
	companies.Patch("/:id", h.HandleUpdateCompany)
	companies.Delete("/:id", h.HandleDeleteCompany)
	companies.Post("/:id/verify", middleware.RoleRequired(models.RoleAdmin), h.HandleVerifyCompany)
	companies.Post("/:id/logo", h.HandleUploadLogo)
}

// HandleListCompanies lists companies and reports the total matching count.
func (h *CompanyHandler) HandleListCompanies(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	companies, err := h.service.ListCompanies(c.UserContext(), middleware.ActorFrom(c), q)
	if err != nil {
		return fail(c, "Could not retrieve companies", err)
	}
	total, err := h.service.CountCompanies(c.UserContext(), q.Where)
	if err != nil {
		return fail(c, "Could not count companies", err)
	}
	return c.JSON(fiber.Map{
		"data":  companies,
		"total": total,
	})
}

func (h *CompanyHandler) HandleGetCompany(c *fiber.Ctx) error {
	company, err := h.service.GetCompany(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), splitList(c.Query("include")))
	if err != nil {
		return fail(c, "Could not retrieve company", err)
	}
	return c.JSON(company)
}

func (h *CompanyHandler) HandleCreateCompany(c *fiber.Ctx) error {
	var in services.CompanyInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	company, err := h.service.CreateCompany(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return fail(c, "Could not create company", err)
	}
	return c.Status(fiber.StatusCreated).JSON(company)
}

func (h *CompanyHandler) HandleUpdateCompany(c *fiber.Ctx) error {
	data, ok, err := parsePatch(c)
	if !ok {
		return err
	}
	company, err := h.service.UpdateCompany(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), data)
	if err != nil {
		return fail(c, "Could not update company", err)
	}
	return c.JSON(company)
}

func (h *CompanyHandler) HandleDeleteCompany(c *fiber.Ctx) error {
	if err := h.service.DeleteCompany(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
		return fail(c, "Could not delete company", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CompanyHandler) HandleVerifyCompany(c *fiber.Ctx) error {
	body := struct {
		Verified *bool `json:"verified"`
	}{}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	verified := true
	if body.Verified != nil {
		verified = *body.Verified
	}
	company, err := h.service.VerifyCompany(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), verified)
	if err != nil {
		return fail(c, "Could not verify company", err)
	}
	return c.JSON(company)
}

// HandleUploadLogo accepts a multipart "logo" file and stores it as the
// company logo.
func (h *CompanyHandler) HandleUploadLogo(c *fiber.Ctx) error {
	file, err := c.FormFile("logo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "A 'logo' file is required",
			"error":   err.Error(),
		})
	}
	if file.Size > maxLogoSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"message": "Logo is too large",
		})
	}
	body, err := file.Open()
	if err != nil {
		log.Printf("Error opening uploaded logo: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read logo",
			"error":   err.Error(),
		})
	}
	defer body.Close()

	company, err := h.service.UploadLogo(c.UserContext(), middleware.ActorFrom(c), c.Params("id"),
		file.Filename, file.Header.Get("Content-Type"), body)
	if err != nil {
		return fail(c, "Could not upload logo", err)
	}
	return c.JSON(company)
}
