package catalog

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/response"
	"github.com/bektursun/kursplatform/utils/validation"
)

// CatalogHandler serves the public catalog and its admin management
type CatalogHandler struct {
	catalog   *services.CatalogService
	lessons   *services.LessonService
	tariffs   *services.TariffService
	validator *validation.Validator
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *services.CatalogService, lessons *services.LessonService, tariffs *services.TariffService) *CatalogHandler {
	return &CatalogHandler{
		catalog:   catalog,
		lessons:   lessons,
		tariffs:   tariffs,
		validator: validation.NewValidator(),
	}
}

// parseID reads a positive integer path parameter
func parseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// serviceError maps service sentinel errors to HTTP responses
func serviceError(c *fiber.Ctx, err error) error {
	switch err {
	case services.ErrNotFound:
		return response.NotFound(c, "Resource not found")
	case services.ErrForbidden:
		return response.Forbidden(c, "Operation not permitted")
	case services.ErrNoLessons:
		return response.BadRequest(c, "Course has no available lessons")
	default:
		return response.InternalServerError(c, "Internal server error")
	}
}
