package tariff

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/response"
	"github.com/bektursun/kursplatform/utils/validation"
)

// TariffHandler manages course tariffs in the teacher cabinet
type TariffHandler struct {
	tariffs   *services.TariffService
	validator *validation.Validator
}

// NewTariffHandler creates a new tariff handler
func NewTariffHandler(tariffs *services.TariffService) *TariffHandler {
	return &TariffHandler{
		tariffs:   tariffs,
		validator: validation.NewValidator(),
	}
}

func parseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func serviceError(c *fiber.Ctx, err error) error {
	switch err {
	case services.ErrNotFound:
		return response.NotFound(c, "Tariff not found")
	case services.ErrNoLessons:
		return response.BadRequest(c, "Course has no available lessons; add a lesson before selling tariffs")
	case services.ErrLimitOutOfRange:
		return response.BadRequest(c, "Limit value is out of range for this course")
	default:
		return response.InternalServerError(c, "Internal server error")
	}
}

// Create stores a new tariff with its resolved lesson quota
func (h *TariffHandler) Create(c *fiber.Ctx) error {
	var req services.CreateTariffRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	tariff, err := h.tariffs.Create(req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, tariff)
}

// Update applies partial changes to a tariff and recomputes its quota
func (h *TariffHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid tariff ID")
	}

	var req services.UpdateTariffRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	tariff, err := h.tariffs.Update(id, req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, tariff)
}

// Delete removes a tariff; accesses already sold keep their frozen terms
func (h *TariffHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid tariff ID")
	}

	if err := h.tariffs.Delete(id); err != nil {
		return serviceError(c, err)
	}
	return response.SuccessWithMessage(c, "Tariff deleted", nil)
}
