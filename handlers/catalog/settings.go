package catalog

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/response"
)

// GetSettings returns the public site settings
func (h *CatalogHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.catalog.Settings()
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, settings)
}

// UpdateSettings applies admin changes to the site settings
func (h *CatalogHandler) UpdateSettings(c *fiber.Ctx) error {
	var req services.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	settings, err := h.catalog.UpdateSettings(req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, settings)
}

// UploadSettingsImage stores the site logo or banner
func (h *CatalogHandler) UploadSettingsImage(c *fiber.Ctx) error {
	field := c.Params("field")
	if field != "logo" && field != "banner" {
		return response.BadRequest(c, "Image field must be 'logo' or 'banner'")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Image file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}
	defer file.Close()

	settings, err := h.catalog.SetSettingsImage(c.Context(), field, fileHeader.Filename, file)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, settings)
}
