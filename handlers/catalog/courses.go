package catalog

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/middleware"
	"github.com/bektursun/kursplatform/utils/response"
)

// PublicLesson is the catalog view of a lesson: enough to show the
// syllabus, nothing that gives away the content.
type PublicLesson struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Order       uint              `json:"order"`
	VideoStatus model.VideoStatus `json:"video_status"`
	HasHomework bool              `json:"has_homework"`
}

// CourseDetail is the public course page payload
type CourseDetail struct {
	Course  *model.Course  `json:"course"`
	Lessons []PublicLesson `json:"lessons"`
}

// ListCourses returns the catalog, optionally filtered by category and
// instructor
func (h *CatalogHandler) ListCourses(c *fiber.Ctx) error {
	var categoryID uint
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid category_id")
		}
		categoryID = uint(id)
	}
	instructorID, _ := strconv.ParseUint(c.Query("instructor_id"), 10, 32)

	courses, err := h.catalog.ListCourses(categoryID, uint(instructorID))
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, courses)
}

// GetCourse returns the public course page: course, tariffs and syllabus
func (h *CatalogHandler) GetCourse(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.catalog.GetCourse(id)
	if err != nil {
		return serviceError(c, err)
	}

	lessons, err := h.lessons.ListByCourse(id, false)
	if err != nil {
		return serviceError(c, err)
	}

	public := make([]PublicLesson, 0, len(lessons))
	for i := range lessons {
		public = append(public, PublicLesson{
			ID:          lessons[i].ID,
			Title:       lessons[i].Title,
			Description: lessons[i].Description,
			Order:       lessons[i].Order,
			VideoStatus: lessons[i].VideoStatus,
			HasHomework: lessons[i].HomeworkTitle != "",
		})
	}

	return response.Success(c, CourseDetail{Course: course, Lessons: public})
}

// CreateCourse stores a new course owned by the requesting teacher
func (h *CatalogHandler) CreateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req services.CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.catalog.CreateCourse(user.ID, req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse applies changes to a course
func (h *CatalogHandler) UpdateCourse(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.catalog.UpdateCourse(id, req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, course)
}

// UploadCoursePhoto stores a course cover photo
func (h *CatalogHandler) UploadCoursePhoto(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
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

	course, err := h.catalog.SetCoursePhoto(c.Context(), id, fileHeader.Filename, file)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, course)
}

// DeleteCourse removes a course
func (h *CatalogHandler) DeleteCourse(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.catalog.DeleteCourse(id); err != nil {
		return serviceError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted", nil)
}

// GetCourseTariffs returns the tariffs of a course
func (h *CatalogHandler) GetCourseTariffs(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	tariffs, err := h.tariffs.ListByCourse(id)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, tariffs)
}
