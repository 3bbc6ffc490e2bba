package access

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/middleware"
	"github.com/bektursun/kursplatform/utils/response"
	"github.com/bektursun/kursplatform/utils/validation"
)

// AccessHandler serves the entitlement endpoints: token redemption, the
// student's course list, lesson opening and the admin access registry.
type AccessHandler struct {
	accesses  *services.AccessService
	validator *validation.Validator
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(accesses *services.AccessService) *AccessHandler {
	return &AccessHandler{
		accesses:  accesses,
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
		return response.NotFound(c, "Access not found")
	case services.ErrAccessInactive:
		return response.Forbidden(c, "This access has been disabled")
	case services.ErrTokenBound:
		return response.Conflict(c, "This token has already been redeemed by another user")
	case services.ErrDuplicateAccess:
		return response.Conflict(c, "You already have access to this course")
	case services.ErrNoAccess:
		return response.Forbidden(c, "You do not have access to this course")
	case services.ErrQuotaExceeded:
		return response.QuotaExceeded(c, "Your tariff's lesson quota is exhausted")
	case services.ErrArchived:
		return response.NotFound(c, "This lesson is no longer available")
	case services.ErrBusy:
		return response.Busy(c, "The access is busy; please retry")
	case services.ErrNoLessons:
		return response.BadRequest(c, "Course has no available lessons")
	case services.ErrLimitOutOfRange:
		return response.BadRequest(c, "The tariff's limit cannot be satisfied by this course")
	default:
		return response.InternalServerError(c, "Internal server error")
	}
}

// ActivateRequest represents a token redemption request
type ActivateRequest struct {
	Token string `json:"token" validate:"required"`
}

// Activate redeems a purchase token for the authenticated student
func (h *AccessHandler) Activate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ActivateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Token == "" {
		return response.BadRequest(c, "Token is required")
	}

	access, err := h.accesses.Activate(userID, req.Token)
	if err != nil {
		if err == services.ErrNotFound {
			return response.NotFound(c, "Unknown token")
		}
		return serviceError(c, err)
	}

	return response.Success(c, access)
}

// MyCourses lists the student's accesses with their consumed lessons
func (h *AccessHandler) MyCourses(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	courses, err := h.accesses.MyCourses(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, courses)
}

// OpenLesson consumes one lesson of the student's quota and returns the
// lesson content. Reopening an already opened lesson is free.
func (h *AccessHandler) OpenLesson(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	lessonID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	lesson, access, err := h.accesses.OpenLesson(userID, lessonID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Success(c, fiber.Map{
		"lesson":    lesson,
		"remaining": access.Remaining(),
	})
}

// IssueRequest represents an admin request to mint an access
type IssueRequest struct {
	TariffID uint `json:"tariff_id" validate:"required"`
}

// Issue mints an unbound access for a tariff and returns its one-time
// redemption token. The token is not retrievable afterwards.
func (h *AccessHandler) Issue(c *fiber.Ctx) error {
	var req IssueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.TariffID == 0 {
		return response.BadRequest(c, "tariff_id is required")
	}

	result, err := h.accesses.Issue(req.TariffID)
	if err != nil {
		if err == services.ErrNotFound {
			return response.NotFound(c, "Tariff not found")
		}
		return serviceError(c, err)
	}
	return response.Created(c, result)
}

// ListByCourse returns the access registry of a course for admins
func (h *AccessHandler) ListByCourse(c *fiber.Ctx) error {
	courseID, err := parseID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	accesses, total, err := h.accesses.ListByCourse(courseID, page, limit)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Paginated(c, accesses, response.CalculatePagination(page, limit, total))
}

// SetActiveRequest represents an admin enable/disable request
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetActive enables or disables an access
func (h *AccessHandler) SetActive(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid access ID")
	}

	var req SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	access, err := h.accesses.SetActive(id, req.IsActive)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, access)
}
