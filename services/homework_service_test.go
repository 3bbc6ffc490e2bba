package services

import (
	"testing"

	"github.com/bektursun/kursplatform/model"
)

// enrollStudent issues and activates an access so the student can submit
func enrollStudent(t *testing.T, accesses *AccessService, tariffID, userID uint) {
	t.Helper()
	issued, err := accesses.Issue(tariffID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := accesses.Activate(userID, issued.Token); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
}

func TestSubmitRequiresAccess(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 3)
	tariff := newTestTariff(t, db, course.ID, 20, model.LimitTypeAll, 0, 3)
	accesses, _, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")
	enrollStudent(t, accesses, tariff.ID, alice.ID)

	hw, err := homeworks.Submit(alice.ID, lessons[0].ID, "answer")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if hw.Status != model.HomeworkStatusExamination {
		t.Errorf("Status = %q, want examination", hw.Status)
	}

	if _, err := homeworks.Submit(bob.ID, lessons[0].ID, "answer"); err != ErrNoAccess {
		t.Fatalf("expected ErrNoAccess, got %v", err)
	}
}

func TestSubmitToArchivedLesson(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 3)
	tariff := newTestTariff(t, db, course.ID, 20, model.LimitTypeAll, 0, 3)
	accesses, _, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	enrollStudent(t, accesses, tariff.ID, alice.ID)

	if err := db.Model(&lessons[0]).Update("is_archived", true).Error; err != nil {
		t.Fatalf("failed to archive lesson: %v", err)
	}

	if _, err := homeworks.Submit(alice.ID, lessons[0].ID, "answer"); err != ErrArchived {
		t.Fatalf("expected ErrArchived, got %v", err)
	}
}

func TestEditOnlyAllowedInRework(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 3)
	tariff := newTestTariff(t, db, course.ID, 20, model.LimitTypeAll, 0, 3)
	accesses, _, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")
	enrollStudent(t, accesses, tariff.ID, alice.ID)

	hw, err := homeworks.Submit(alice.ID, lessons[0].ID, "first try")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Still under examination
	if _, err := homeworks.Edit(alice.ID, hw.ID, "second try"); err != ErrNotEditable {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}

	if _, err := homeworks.Review(hw.ID, model.HomeworkStatusRework, "needs work"); err != nil {
		t.Fatalf("Review() error = %v", err)
	}

	// Someone else's submission
	if _, err := homeworks.Edit(bob.ID, hw.ID, "hijack"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	edited, err := homeworks.Edit(alice.ID, hw.ID, "second try")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Content != "second try" {
		t.Errorf("Content = %q", edited.Content)
	}
	if edited.Status != model.HomeworkStatusRework {
		t.Errorf("Status = %q, want rework to persist after edit", edited.Status)
	}
}

func TestReviewAcceptanceStamp(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 3)
	tariff := newTestTariff(t, db, course.ID, 20, model.LimitTypeAll, 0, 3)
	accesses, analytics, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	enrollStudent(t, accesses, tariff.ID, alice.ID)

	hw, err := homeworks.Submit(alice.ID, lessons[0].ID, "answer")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	accepted, err := homeworks.Review(hw.ID, model.HomeworkStatusAccepted, "good")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if accepted.AcceptedAt == nil {
		t.Fatal("AcceptedAt not stamped on acceptance")
	}

	daily, err := analytics.CourseDaily(course.ID, 7)
	if err != nil {
		t.Fatalf("CourseDaily() error = %v", err)
	}
	if len(daily) != 1 || daily[0].HomeworksAccepted != 1 {
		t.Fatalf("daily accepted counter wrong: %+v", daily)
	}

	// Re-accepting must not fire the counter again
	if _, err := homeworks.Review(hw.ID, model.HomeworkStatusAccepted, "still good"); err != nil {
		t.Fatalf("repeat Review() error = %v", err)
	}
	daily, err = analytics.CourseDaily(course.ID, 7)
	if err != nil {
		t.Fatalf("CourseDaily() error = %v", err)
	}
	if daily[0].HomeworksAccepted != 1 {
		t.Errorf("accepted counter fired twice: %d", daily[0].HomeworksAccepted)
	}

	// Moving out of accepted clears the stamp
	reworked, err := homeworks.Review(hw.ID, model.HomeworkStatusRework, "changed my mind")
	if err != nil {
		t.Fatalf("Review(rework) error = %v", err)
	}
	if reworked.AcceptedAt != nil {
		t.Error("AcceptedAt not cleared on the transition out of accepted")
	}

	// Accepting again stamps and counts again
	again, err := homeworks.Review(hw.ID, model.HomeworkStatusAccepted, "ok after all")
	if err != nil {
		t.Fatalf("Review(accept again) error = %v", err)
	}
	if again.AcceptedAt == nil {
		t.Error("AcceptedAt not stamped on re-acceptance")
	}
}

func TestReviewRejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 3)
	tariff := newTestTariff(t, db, course.ID, 20, model.LimitTypeAll, 0, 3)
	accesses, _, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	enrollStudent(t, accesses, tariff.ID, alice.ID)

	hw, err := homeworks.Submit(alice.ID, lessons[0].ID, "answer")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := homeworks.Review(hw.ID, model.HomeworkStatus("graded"), ""); err == nil {
		t.Fatal("expected an error for an unknown status")
	}
}

func TestListForReviewFilters(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 3)
	tariff := newTestTariff(t, db, course.ID, 20, model.LimitTypeAll, 0, 3)
	accesses, _, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")
	enrollStudent(t, accesses, tariff.ID, alice.ID)
	enrollStudent(t, accesses, tariff.ID, bob.ID)

	if _, err := homeworks.Submit(alice.ID, lessons[0].ID, "a1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := homeworks.Submit(alice.ID, lessons[1].ID, "a2"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	hw, err := homeworks.Submit(bob.ID, lessons[0].ID, "b1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := homeworks.Review(hw.ID, model.HomeworkStatusAccepted, "ok"); err != nil {
		t.Fatalf("Review() error = %v", err)
	}

	_, total, err := homeworks.ListForReview(ReviewListRequest{CourseID: course.ID})
	if err != nil {
		t.Fatalf("ListForReview() error = %v", err)
	}
	if total != 3 {
		t.Errorf("unfiltered total = %d, want 3", total)
	}

	_, total, err = homeworks.ListForReview(ReviewListRequest{
		CourseID: course.ID,
		Status:   model.HomeworkStatusExamination,
	})
	if err != nil {
		t.Fatalf("ListForReview(status) error = %v", err)
	}
	if total != 2 {
		t.Errorf("examination total = %d, want 2", total)
	}

	_, total, err = homeworks.ListForReview(ReviewListRequest{
		CourseID: course.ID,
		LessonID: lessons[0].ID,
	})
	if err != nil {
		t.Fatalf("ListForReview(lesson) error = %v", err)
	}
	if total != 2 {
		t.Errorf("lesson total = %d, want 2", total)
	}

	_, total, err = homeworks.ListForReview(ReviewListRequest{
		CourseID: course.ID,
		UserID:   bob.ID,
	})
	if err != nil {
		t.Fatalf("ListForReview(student) error = %v", err)
	}
	if total != 1 {
		t.Errorf("student total = %d, want 1", total)
	}
}

func TestHomeworkGetVisibility(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 3)
	tariff := newTestTariff(t, db, course.ID, 20, model.LimitTypeAll, 0, 3)
	accesses, _, homeworks, _ := newServices(db)

	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")
	teacher := newTestUser(t, db, "teacher@example.com")
	if err := db.Model(teacher).Update("role", model.RoleTeacher).Error; err != nil {
		t.Fatalf("failed to promote teacher: %v", err)
	}
	teacher.Role = model.RoleTeacher

	enrollStudent(t, accesses, tariff.ID, alice.ID)
	hw, err := homeworks.Submit(alice.ID, lessons[0].ID, "answer")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := homeworks.Get(alice, hw.ID); err != nil {
		t.Errorf("owner Get() error = %v", err)
	}
	if _, err := homeworks.Get(teacher, hw.ID); err != nil {
		t.Errorf("teacher Get() error = %v", err)
	}
	if _, err := homeworks.Get(bob, hw.ID); err != ErrForbidden {
		t.Errorf("expected ErrForbidden for a stranger, got %v", err)
	}
}
