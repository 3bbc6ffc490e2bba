package analytics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/response"
)

// AnalyticsHandler serves the admin analytics endpoints
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func parseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// Overview returns platform-wide totals
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.analytics.Overview(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load analytics overview")
	}
	return response.Success(c, overview)
}

// ListCourses returns every course's rollup ordered by revenue
func (h *AnalyticsHandler) ListCourses(c *fiber.Ctx) error {
	rows, err := h.analytics.ListCourses()
	if err != nil {
		return response.InternalServerError(c, "Failed to list course analytics")
	}
	return response.Success(c, rows)
}

// CourseTotals returns the all-time rollup of one course
func (h *AnalyticsHandler) CourseTotals(c *fiber.Ctx) error {
	courseID, err := parseID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	totals, err := h.analytics.CourseTotals(courseID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load course analytics")
	}
	return response.Success(c, totals)
}

// CourseDaily returns the daily rollups of one course
func (h *AnalyticsHandler) CourseDaily(c *fiber.Ctx) error {
	courseID, err := parseID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	days, _ := strconv.Atoi(c.Query("days", "30"))

	daily, err := h.analytics.CourseDaily(courseID, days)
	if err != nil {
		return response.InternalServerError(c, "Failed to load daily analytics")
	}
	return response.Success(c, daily)
}

// TopLessons returns the most-opened lessons of a course
func (h *AnalyticsHandler) TopLessons(c *fiber.Ctx) error {
	courseID, err := parseID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	lessons, err := h.analytics.TopLessons(courseID, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to rank lessons")
	}
	return response.Success(c, lessons)
}

// Rebuild reconstructs one course's rollups from the event history
func (h *AnalyticsHandler) Rebuild(c *fiber.Ctx) error {
	courseID, err := parseID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.analytics.RebuildCourse(courseID); err != nil {
		return response.InternalServerError(c, "Analytics rebuild failed")
	}
	return response.SuccessWithMessage(c, "Analytics rebuilt", nil)
}
