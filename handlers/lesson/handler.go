package lesson

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/services/videohost"
	"github.com/bektursun/kursplatform/utils/middleware"
	"github.com/bektursun/kursplatform/utils/response"
	"github.com/bektursun/kursplatform/utils/validation"
)

// LessonHandler manages lessons in the teacher cabinet
type LessonHandler struct {
	lessons   *services.LessonService
	validator *validation.Validator
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(lessons *services.LessonService) *LessonHandler {
	return &LessonHandler{
		lessons:   lessons,
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
		return response.NotFound(c, "Lesson not found")
	default:
		return response.InternalServerError(c, "Internal server error")
	}
}

// Create stores a new lesson
func (h *LessonHandler) Create(c *fiber.Ctx) error {
	var req services.CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.lessons.Create(req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, lesson)
}

// Update applies partial changes to a lesson
func (h *LessonHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var req services.UpdateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.lessons.Update(id, req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, lesson)
}

// Get returns one lesson for the cabinet
func (h *LessonHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	lesson, err := h.lessons.Get(id)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, lesson)
}

// ListByCourse returns the course's lessons. The archived query switches
// between active (default), archived, and all; q searches titles.
func (h *LessonHandler) ListByCourse(c *fiber.Ctx) error {
	courseID, err := parseID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	archived := c.Query("archived", services.ArchivedFilterActive)
	if archived == "1" {
		archived = services.ArchivedFilterArchived
	}

	lessons, err := h.lessons.List(services.ListLessonsRequest{
		CourseID: courseID,
		Archived: archived,
		Search:   c.Query("q"),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, lessons)
}

// UploadVideo attaches a video file to the lesson and starts processing
func (h *LessonHandler) UploadVideo(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Video file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}
	defer file.Close()

	lesson, err := h.lessons.AttachVideo(c.Context(), id, videohost.UploadRequest{
		FileName: fileHeader.Filename,
		Body:     file,
		Size:     fileHeader.Size,
	})
	if err != nil {
		if err == services.ErrNotFound {
			return response.NotFound(c, "Lesson not found")
		}
		// The lesson row survives in error state; report the failure with
		// the current lesson so the cabinet can offer a retry.
		return response.ErrorWithDetails(c, fiber.StatusBadGateway,
			"Video upload failed", "EXTERNAL_SERVICE_ERROR", err.Error())
	}
	return response.Success(c, lesson)
}

// RefreshVideoStatus polls the hosting provider for this lesson's video
func (h *LessonHandler) RefreshVideoStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	lesson, err := h.lessons.RefreshVideoStatus(c.Context(), id)
	if err != nil {
		if err == services.ErrNotFound {
			return response.NotFound(c, "Lesson not found")
		}
		return response.BadGateway(c, "Video hosting provider is unavailable")
	}
	return response.Success(c, lesson)
}

// RefreshPendingVideos polls the provider for every lesson still awaiting
// processing, the same sweep the periodic job runs
func (h *LessonHandler) RefreshPendingVideos(c *fiber.Ctx) error {
	checked, err := h.lessons.RefreshPendingVideos(c.Context())
	if err != nil {
		return response.BadGateway(c, "Video hosting provider is unavailable")
	}
	return response.Success(c, fiber.Map{"checked": checked})
}

// Archive hides a lesson from the syllabus and new quota resolution
func (h *LessonHandler) Archive(c *fiber.Ctx) error {
	return h.setArchived(c, true)
}

// Unarchive restores an archived lesson
func (h *LessonHandler) Unarchive(c *fiber.Ctx) error {
	return h.setArchived(c, false)
}

func (h *LessonHandler) setArchived(c *fiber.Ctx, archived bool) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	lesson, err := h.lessons.SetArchived(id, userID, archived)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, lesson)
}
