package services

import (
	"context"
	"testing"
	"time"

	"github.com/bektursun/kursplatform/model"
)

// runScenario plays a small event history against a fresh course: two
// students buy and activate, open lessons, and one submits homework that
// gets accepted.
func runScenario(t *testing.T, accesses *AccessService, homeworks *HomeworkService, lessons []model.Lesson, tariffID uint, alice, bob *model.User) {
	t.Helper()

	first, err := accesses.Issue(tariffID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	second, err := accesses.Issue(tariffID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := accesses.Activate(alice.ID, first.Token); err != nil {
		t.Fatalf("Activate(alice) error = %v", err)
	}
	if _, err := accesses.Activate(bob.ID, second.Token); err != nil {
		t.Fatalf("Activate(bob) error = %v", err)
	}

	for _, l := range lessons[:3] {
		if _, _, err := accesses.OpenLesson(alice.ID, l.ID); err != nil {
			t.Fatalf("alice OpenLesson(%d) error = %v", l.ID, err)
		}
	}
	if _, _, err := accesses.OpenLesson(bob.ID, lessons[0].ID); err != nil {
		t.Fatalf("bob OpenLesson error = %v", err)
	}

	hw, err := homeworks.Submit(alice.ID, lessons[0].ID, "my solution")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := homeworks.Review(hw.ID, model.HomeworkStatusAccepted, "well done"); err != nil {
		t.Fatalf("Review() error = %v", err)
	}
}

func TestAnalyticsIncrementalCounters(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 5)
	tariff := newTestTariff(t, db, course.ID, 40, model.LimitTypeAll, 0, 5)
	accesses, analytics, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")

	runScenario(t, accesses, homeworks, lessons, tariff.ID, alice, bob)

	totals, err := analytics.CourseTotals(course.ID)
	if err != nil {
		t.Fatalf("CourseTotals() error = %v", err)
	}
	if totals.TotalPurchases != 2 {
		t.Errorf("TotalPurchases = %d, want 2", totals.TotalPurchases)
	}
	if totals.TotalRevenue != 80 {
		t.Errorf("TotalRevenue = %v, want 80", totals.TotalRevenue)
	}
	if totals.TotalStudents != 2 {
		t.Errorf("TotalStudents = %d, want 2", totals.TotalStudents)
	}
	if totals.TotalOpens != 4 {
		t.Errorf("TotalOpens = %d, want 4", totals.TotalOpens)
	}
	// 4 opens / (2 students * 5 lessons)
	if totals.CompletionRate != 0.4 {
		t.Errorf("CompletionRate = %v, want 0.4", totals.CompletionRate)
	}

	daily, err := analytics.CourseDaily(course.ID, 7)
	if err != nil {
		t.Fatalf("CourseDaily() error = %v", err)
	}
	if len(daily) != 1 {
		t.Fatalf("len(daily) = %d, want 1", len(daily))
	}
	today := daily[0]
	if today.Purchases != 2 || today.UniqueBuyers != 2 {
		t.Errorf("daily purchases/buyers = %d/%d, want 2/2", today.Purchases, today.UniqueBuyers)
	}
	if today.OpenedLessons != 4 || today.ActiveStudents != 2 {
		t.Errorf("daily opens/active = %d/%d, want 4/2", today.OpenedLessons, today.ActiveStudents)
	}
	if today.HomeworksSubmitted != 1 || today.HomeworksAccepted != 1 {
		t.Errorf("daily submitted/accepted = %d/%d, want 1/1",
			today.HomeworksSubmitted, today.HomeworksAccepted)
	}
}

// The rebuild must reproduce the incrementally maintained rollups from the
// raw event history.
func TestAnalyticsRebuildMatchesIncremental(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 5)
	tariff := newTestTariff(t, db, course.ID, 40, model.LimitTypeAll, 0, 5)
	accesses, analytics, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")

	runScenario(t, accesses, homeworks, lessons, tariff.ID, alice, bob)

	before, err := analytics.CourseTotals(course.ID)
	if err != nil {
		t.Fatalf("CourseTotals() error = %v", err)
	}
	beforeDaily, err := analytics.CourseDaily(course.ID, 7)
	if err != nil {
		t.Fatalf("CourseDaily() error = %v", err)
	}

	if err := analytics.RebuildCourse(course.ID); err != nil {
		t.Fatalf("RebuildCourse() error = %v", err)
	}

	after, err := analytics.CourseTotals(course.ID)
	if err != nil {
		t.Fatalf("CourseTotals() after rebuild error = %v", err)
	}
	if after.TotalPurchases != before.TotalPurchases ||
		after.TotalRevenue != before.TotalRevenue ||
		after.TotalStudents != before.TotalStudents ||
		after.TotalOpens != before.TotalOpens ||
		after.CompletionRate != before.CompletionRate {
		t.Errorf("totals diverged after rebuild:\n before %+v\n after  %+v", before, after)
	}

	afterDaily, err := analytics.CourseDaily(course.ID, 7)
	if err != nil {
		t.Fatalf("CourseDaily() after rebuild error = %v", err)
	}
	if len(afterDaily) != len(beforeDaily) {
		t.Fatalf("daily row count changed: %d -> %d", len(beforeDaily), len(afterDaily))
	}
	for i := range beforeDaily {
		b, a := beforeDaily[i], afterDaily[i]
		if a.Purchases != b.Purchases || a.Revenue != b.Revenue ||
			a.UniqueBuyers != b.UniqueBuyers ||
			a.OpenedLessons != b.OpenedLessons || a.ActiveStudents != b.ActiveStudents ||
			a.HomeworksSubmitted != b.HomeworksSubmitted ||
			a.HomeworksAccepted != b.HomeworksAccepted {
			t.Errorf("daily row %d diverged after rebuild:\n before %+v\n after  %+v", i, b, a)
		}
	}
}

func TestAnalyticsRebuildRepairsTamperedRollup(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 5)
	tariff := newTestTariff(t, db, course.ID, 40, model.LimitTypeAll, 0, 5)
	accesses, analytics, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")

	runScenario(t, accesses, homeworks, lessons, tariff.ID, alice, bob)

	if err := db.Model(&model.CourseAnalytics{}).
		Where("course_id = ?", course.ID).
		Update("total_opens", 999).Error; err != nil {
		t.Fatalf("failed to tamper rollup: %v", err)
	}

	if err := analytics.RebuildCourse(course.ID); err != nil {
		t.Fatalf("RebuildCourse() error = %v", err)
	}

	totals, err := analytics.CourseTotals(course.ID)
	if err != nil {
		t.Fatalf("CourseTotals() error = %v", err)
	}
	if totals.TotalOpens != 4 {
		t.Errorf("TotalOpens = %d after rebuild, want 4", totals.TotalOpens)
	}
}

func TestAnalyticsCourseTotalsEmpty(t *testing.T) {
	db := newTestDB(t)
	course, _ := newTestCourse(t, db, 3)
	_, analytics, _, _ := newServices(db)

	totals, err := analytics.CourseTotals(course.ID)
	if err != nil {
		t.Fatalf("CourseTotals() error = %v", err)
	}
	if totals.TotalPurchases != 0 || totals.TotalOpens != 0 {
		t.Errorf("expected empty rollup, got %+v", totals)
	}
}

func TestAnalyticsOverview(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 5)
	tariff := newTestTariff(t, db, course.ID, 40, model.LimitTypeAll, 0, 5)
	accesses, analytics, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")

	runScenario(t, accesses, homeworks, lessons, tariff.ID, alice, bob)

	overview, err := analytics.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.TotalCourses != 1 {
		t.Errorf("TotalCourses = %d, want 1", overview.TotalCourses)
	}
	if overview.TotalStudents != 2 {
		t.Errorf("TotalStudents = %d, want 2", overview.TotalStudents)
	}
	if overview.TotalPurchases != 2 {
		t.Errorf("TotalPurchases = %d, want 2", overview.TotalPurchases)
	}
	if overview.TotalRevenue != 80 {
		t.Errorf("TotalRevenue = %v, want 80", overview.TotalRevenue)
	}
}

func TestAnalyticsTopLessons(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 5)
	tariff := newTestTariff(t, db, course.ID, 40, model.LimitTypeAll, 0, 5)
	accesses, analytics, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")

	runScenario(t, accesses, homeworks, lessons, tariff.ID, alice, bob)

	top, err := analytics.TopLessons(course.ID, 10)
	if err != nil {
		t.Fatalf("TopLessons() error = %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("len(top) = %d, want 3", len(top))
	}
	if top[0].LessonID != lessons[0].ID || top[0].Opens != 2 {
		t.Errorf("top lesson = %d with %d opens, want lesson %d with 2",
			top[0].LessonID, top[0].Opens, lessons[0].ID)
	}
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)
	start, end := dayBounds(at)
	if !start.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}
