package handlers

import (
	"errors"
	"fmt"
	"log"

	"supplymarket/internal/repositories"
	"supplymarket/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// parseBody decodes and validates the request body into dst. On failure it
// writes the 400 response and returns false.
func parseBody(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"error":   err.Error(),
			})
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return true, nil
}

// parsePatch decodes a partial update keyed by JSON field names.
func parsePatch(c *fiber.Ctx) (map[string]any, bool, error) {
	data := map[string]any{}
	if err := c.BodyParser(&data); err != nil {
		log.Printf("Error parsing update body: %v", err)
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if len(data) == 0 {
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Nothing to update",
		})
	}
	return data, true, nil
}

// statusFor maps service and client errors to HTTP status codes.
func statusFor(err error) int {
	var validationErr *repositories.ValidationError
	switch {
	case repositories.IsNotFound(err):
		return fiber.StatusNotFound
	case repositories.IsUniqueViolation(err), errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidState):
		return fiber.StatusConflict
	case repositories.IsForeignKeyViolation(err), errors.As(err, &validationErr), errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// fail logs err and writes it with the status statusFor picks.
func fail(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("%s: %v", message, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
