package homework

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/middleware"
	"github.com/bektursun/kursplatform/utils/response"
	"github.com/bektursun/kursplatform/utils/validation"
)

// HomeworkHandler serves student submissions and instructor review
type HomeworkHandler struct {
	homeworks *services.HomeworkService
	validator *validation.Validator
}

// NewHomeworkHandler creates a new homework handler
func NewHomeworkHandler(homeworks *services.HomeworkService) *HomeworkHandler {
	return &HomeworkHandler{
		homeworks: homeworks,
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
		return response.NotFound(c, "Homework not found")
	case services.ErrForbidden:
		return response.Forbidden(c, "Operation not permitted")
	case services.ErrNoAccess:
		return response.Forbidden(c, "You do not have access to this course")
	case services.ErrAccessInactive:
		return response.Forbidden(c, "Your access has been disabled")
	case services.ErrArchived:
		return response.NotFound(c, "This lesson is no longer available")
	case services.ErrNotEditable:
		return response.Conflict(c, "Submission can only be edited while in rework")
	default:
		return response.InternalServerError(c, "Internal server error")
	}
}

// SubmitRequest represents a homework submission
type SubmitRequest struct {
	LessonID uint   `json:"lesson_id" validate:"required"`
	Content  string `json:"content" validate:"required,min=1"`
}

// Submit creates a new submission for a lesson
func (h *HomeworkHandler) Submit(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	homework, err := h.homeworks.Submit(userID, req.LessonID, req.Content)
	if err != nil {
		if err == services.ErrNotFound {
			return response.NotFound(c, "Lesson not found")
		}
		return serviceError(c, err)
	}
	return response.Created(c, homework)
}

// EditRequest represents a content edit of a reworked submission
type EditRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// Edit replaces the content of a submission returned for rework
func (h *HomeworkHandler) Edit(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid homework ID")
	}

	var req EditRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	homework, err := h.homeworks.Edit(userID, id, req.Content)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, homework)
}

// Mine lists the student's own submissions
func (h *HomeworkHandler) Mine(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	homeworks, err := h.homeworks.ListByUser(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, homeworks)
}

// Get returns one submission for its owner or a teacher
func (h *HomeworkHandler) Get(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid homework ID")
	}

	homework, err := h.homeworks.Get(user, id)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, homework)
}

// ListForReview returns a course's submissions for the teacher cabinet
func (h *HomeworkHandler) ListForReview(c *fiber.Ctx) error {
	courseID, err := parseID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	lessonID, _ := strconv.ParseUint(c.Query("lesson_id"), 10, 32)
	userID, _ := strconv.ParseUint(c.Query("student_id"), 10, 32)

	homeworks, total, err := h.homeworks.ListForReview(services.ReviewListRequest{
		CourseID: courseID,
		LessonID: uint(lessonID),
		UserID:   uint(userID),
		Status:   model.HomeworkStatus(c.Query("status")),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return response.Paginated(c, homeworks, response.CalculatePagination(page, limit, total))
}

// ReviewRequest represents an instructor verdict
type ReviewRequest struct {
	Status  string `json:"status" validate:"required,oneof=examination rework accepted declined"`
	Comment string `json:"comment"`
}

// Review sets the status and comment of a submission
func (h *HomeworkHandler) Review(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid homework ID")
	}

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	homework, err := h.homeworks.Review(id, model.HomeworkStatus(req.Status), req.Comment)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, homework)
}
