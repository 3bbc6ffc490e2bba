package catalog

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/response"
)

// CategoryRequest represents a category create or update request
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description"`
}

// ListCategories returns every category with its courses
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories()
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, categories)
}

// CreateCategory stores a new category
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	category, err := h.catalog.CreateCategory(req.Name, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, category)
}

// UpdateCategory applies changes to a category
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	category, err := h.catalog.UpdateCategory(id, req.Name, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, category)
}

// UploadCategoryPhoto stores a category photo
func (h *CatalogHandler) UploadCategoryPhoto(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return response.BadRequest(c, "Image file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Could not read uploaded file")
	}
	defer file.Close()

	category, err := h.catalog.SetCategoryPhoto(c.Context(), id, fileHeader.Filename, file)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, category)
}

// DeleteCategory removes an empty category
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	if err := h.catalog.DeleteCategory(id); err != nil {
		if err == services.ErrForbidden {
			return response.Conflict(c, "Category still has courses")
		}
		return serviceError(c, err)
	}
	return response.SuccessWithMessage(c, "Category deleted", nil)
}
