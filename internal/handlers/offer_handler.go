package handlers

import (
	"supplymarket/internal/middleware"
	"supplymarket/internal/models"
	"supplymarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OfferHandler handles HTTP requests for offers.
type OfferHandler struct {
	service *services.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(service *services.OfferService) *OfferHandler {
	return &OfferHandler{service: service}
}

// RegisterRoutes registers the offer routes on an authenticated router.
func (h *OfferHandler) RegisterRoutes(router fiber.Router) {
	offerRoutes := router.Group("/offers")
	offerRoutes.Post("/", middleware.RoleRequired(models.RoleSupplier), h.HandleCreateOffer)
	offerRoutes.Get("/mine", middleware.RoleRequired(models.RoleSupplier), h.HandleListMyOffers)
	offerRoutes.Post("/:id/accept", h.HandleAcceptOffer)
	offerRoutes.Post("/:id/reject", h.HandleRejectOffer)
	offerRoutes.Post("/:id/withdraw", h.HandleWithdrawOffer)
}

// HandleCreateOffer answers an open request with the caller's company.
func (h *OfferHandler) HandleCreateOffer(c *fiber.Ctx) error {
	var in services.OfferInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	offer, err := h.service.CreateOffer(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return fail(c, "Could not create offer", err)
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

func (h *OfferHandler) HandleListMyOffers(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	offers, err := h.service.ListMyOffers(c.UserContext(), middleware.ActorFrom(c), q)
	if err != nil {
		return fail(c, "Could not retrieve offers", err)
	}
	return c.JSON(offers)
}

// HandleAcceptOffer accepts an offer and closes its request.
func (h *OfferHandler) HandleAcceptOffer(c *fiber.Ctx) error {
	offer, err := h.service.AcceptOffer(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not accept offer", err)
	}
	return c.JSON(offer)
}

func (h *OfferHandler) HandleRejectOffer(c *fiber.Ctx) error {
	offer, err := h.service.RejectOffer(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not reject offer", err)
	}
	return c.JSON(offer)
}

func (h *OfferHandler) HandleWithdrawOffer(c *fiber.Ctx) error {
	offer, err := h.service.WithdrawOffer(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not withdraw offer", err)
	}
	return c.JSON(offer)
}
