package handlers

import (
	"supplymarket/internal/middleware"
	"supplymarket/internal/models"
	"supplymarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RequestHandler handles HTTP requests for purchase requests and the offers
// made on them.
type RequestHandler struct {
	requests *services.RequestService
	offers   *services.OfferService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requests *services.RequestService, offers *services.OfferService) *RequestHandler {
	return &RequestHandler{requests: requests, offers: offers}
}

// RegisterRoutes registers the request routes on an authenticated router.
func (h *RequestHandler) RegisterRoutes(router fiber.Router) {
	requestRoutes := router.Group("/requests")
	requestRoutes.Post("/", middleware.RoleRequired(models.RoleBuyer, models.RoleAdmin), h.HandleCreateRequest)
	requestRoutes.Get("/", h.HandleListMyRequests)
	requestRoutes.Get("/open", middleware.RoleRequired(models.RoleSupplier, models.RoleAdmin), h.HandleListOpenRequests)
	requestRoutes.Get("/:id", h.HandleGetRequest)
	requestRoutes.Post("/:id/cancel", h.HandleCancelRequest)
	requestRoutes.Get("/:id/offers", h.HandleListOffers)
	requestRoutes.Get("/:id/offers/summary", h.HandleOfferSummary)
}

// HandleCreateRequest posts a free-text purchase request.
func (h *RequestHandler) HandleCreateRequest(c *fiber.Ctx) error {
	var in services.RequestInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	request, err := h.requests.CreateRequest(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return fail(c, "Could not create request", err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *RequestHandler) HandleListMyRequests(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	requests, err := h.requests.ListMyRequests(c.UserContext(), middleware.ActorFrom(c), q)
	if err != nil {
		return fail(c, "Could not retrieve requests", err)
	}
	return c.JSON(requests)
}

func (h *RequestHandler) HandleListOpenRequests(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	requests, err := h.requests.ListOpenRequests(c.UserContext(), middleware.ActorFrom(c), q)
	if err != nil {
		return fail(c, "Could not retrieve open requests", err)
	}
	return c.JSON(requests)
}

func (h *RequestHandler) HandleGetRequest(c *fiber.Ctx) error {
	request, err := h.requests.GetRequest(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), splitList(c.Query("include")))
	if err != nil {
		return fail(c, "Could not retrieve request", err)
	}
	return c.JSON(request)
}

func (h *RequestHandler) HandleCancelRequest(c *fiber.Ctx) error {
	request, err := h.requests.CancelRequest(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not cancel request", err)
	}
	return c.JSON(request)
}

func (h *RequestHandler) HandleListOffers(c *fiber.Ctx) error {
	q, err := parseListQuery(c)
	if err != nil {
		return badQuery(c, err)
	}
	offers, err := h.offers.ListOffersForRequest(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), q)
	if err != nil {
		return fail(c, "Could not retrieve offers", err)
	}
	return c.JSON(offers)
}

func (h *RequestHandler) HandleOfferSummary(c *fiber.Ctx) error {
	summary, err := h.offers.OfferSummary(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not summarize offers", err)
	}
	return c.JSON(summary)
}
