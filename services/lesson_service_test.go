package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/services/videohost"
)

func newLessonService(db *gorm.DB, fake *videohost.Fake) *LessonService {
	tariffs := NewTariffService(db)
	return NewLessonService(db, fake, tariffs)
}

func TestLessonCreateAssignsOrder(t *testing.T) {
	db := newTestDB(t)
	course, _ := newTestCourse(t, db, 3)
	svc := newLessonService(db, videohost.NewFake())

	lesson, err := svc.Create(CreateLessonRequest{
		CourseID: course.ID,
		Title:    "The fourth lesson",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if lesson.Order != 4 {
		t.Errorf("Order = %d, want 4", lesson.Order)
	}
	if lesson.VideoStatus != model.VideoStatusIdle {
		t.Errorf("VideoStatus = %q, want idle", lesson.VideoStatus)
	}
}

func TestLessonCreateRecomputesTariffs(t *testing.T) {
	db := newTestDB(t)
	course, _ := newTestCourse(t, db, 4)
	tariff := newTestTariff(t, db, course.ID, 100, model.LimitTypePercent, 50, 2)
	svc := newLessonService(db, videohost.NewFake())

	if _, err := svc.Create(CreateLessonRequest{CourseID: course.ID, Title: "Fifth"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(CreateLessonRequest{CourseID: course.ID, Title: "Sixth"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var reloaded model.Tariff
	if err := db.First(&reloaded, tariff.ID).Error; err != nil {
		t.Fatalf("failed to reload tariff: %v", err)
	}
	// 50% of 6 lessons
	if reloaded.LessonLimit != 3 {
		t.Errorf("LessonLimit = %d, want 3", reloaded.LessonLimit)
	}
}

func TestAttachVideo(t *testing.T) {
	db := newTestDB(t)
	_, lessons := newTestCourse(t, db, 2)
	fake := videohost.NewFake()
	svc := newLessonService(db, fake)

	lesson, err := svc.AttachVideo(context.Background(), lessons[0].ID, videohost.UploadRequest{
		FileName: "intro.mp4",
		Body:     strings.NewReader("fake bytes"),
		Size:     10,
	})
	if err != nil {
		t.Fatalf("AttachVideo() error = %v", err)
	}
	if lesson.VideoID != "vid-1" {
		t.Errorf("VideoID = %q, want vid-1", lesson.VideoID)
	}
	if lesson.VideoStatus != model.VideoStatusProcessing {
		t.Errorf("VideoStatus = %q, want processing", lesson.VideoStatus)
	}
	if lesson.VideoUploadedAt == nil {
		t.Error("VideoUploadedAt not recorded")
	}
}

func TestAttachVideoUploadFailure(t *testing.T) {
	db := newTestDB(t)
	_, lessons := newTestCourse(t, db, 2)
	fake := videohost.NewFake()
	fake.UploadErr = errors.New("host unavailable")
	svc := newLessonService(db, fake)

	lesson, err := svc.AttachVideo(context.Background(), lessons[0].ID, videohost.UploadRequest{
		FileName: "intro.mp4",
		Body:     strings.NewReader("fake bytes"),
		Size:     10,
	})
	if err == nil {
		t.Fatal("expected an upload error")
	}
	if lesson == nil {
		t.Fatal("lesson must survive a failed upload")
	}
	if lesson.VideoStatus != model.VideoStatusError {
		t.Errorf("VideoStatus = %q, want error", lesson.VideoStatus)
	}

	// The row keeps the failure so the upload can be retried later
	var reloaded model.Lesson
	if err := db.First(&reloaded, lessons[0].ID).Error; err != nil {
		t.Fatalf("failed to reload lesson: %v", err)
	}
	if reloaded.VideoStatus != model.VideoStatusError || reloaded.VideoError == "" {
		t.Errorf("stored status/error = %q/%q", reloaded.VideoStatus, reloaded.VideoError)
	}
}

func TestRefreshVideoStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	_, lessons := newTestCourse(t, db, 2)
	fake := videohost.NewFake()
	svc := newLessonService(db, fake)

	lesson, err := svc.AttachVideo(context.Background(), lessons[0].ID, videohost.UploadRequest{
		FileName: "intro.mp4",
		Body:     strings.NewReader("fake bytes"),
		Size:     10,
	})
	if err != nil {
		t.Fatalf("AttachVideo() error = %v", err)
	}

	// Still processing on the host
	refreshed, err := svc.RefreshVideoStatus(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("RefreshVideoStatus() error = %v", err)
	}
	if refreshed.VideoStatus != model.VideoStatusProcessing {
		t.Errorf("VideoStatus = %q, want processing", refreshed.VideoStatus)
	}

	fake.SetState(lesson.VideoID, videohost.StateSucceeded, "https://cdn.example.com/vid-1/master.m3u8")
	refreshed, err = svc.RefreshVideoStatus(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("RefreshVideoStatus() error = %v", err)
	}
	if refreshed.VideoStatus != model.VideoStatusReady {
		t.Errorf("VideoStatus = %q, want ready", refreshed.VideoStatus)
	}
	if refreshed.VideoURL == "" {
		t.Error("VideoURL not recorded")
	}

	fake.SetState(lesson.VideoID, videohost.StateFailed, "")
	refreshed, err = svc.RefreshVideoStatus(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("RefreshVideoStatus() error = %v", err)
	}
	if refreshed.VideoStatus != model.VideoStatusError || refreshed.VideoError == "" {
		t.Errorf("status/error = %q/%q, want error state", refreshed.VideoStatus, refreshed.VideoError)
	}
}

func TestRefreshVideoStatusGracePeriod(t *testing.T) {
	db := newTestDB(t)
	_, lessons := newTestCourse(t, db, 2)
	fake := videohost.NewFake()
	svc := newLessonService(db, fake)

	lesson, err := svc.AttachVideo(context.Background(), lessons[0].ID, videohost.UploadRequest{
		FileName: "intro.mp4",
		Body:     strings.NewReader("fake bytes"),
		Size:     10,
	})
	if err != nil {
		t.Fatalf("AttachVideo() error = %v", err)
	}

	fake.Hide(lesson.VideoID, true)

	// Within the grace period the lesson stays in processing
	refreshed, err := svc.RefreshVideoStatus(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("RefreshVideoStatus() error = %v", err)
	}
	if refreshed.VideoStatus != model.VideoStatusProcessing {
		t.Errorf("VideoStatus = %q, want processing during grace period", refreshed.VideoStatus)
	}

	// Past the grace period a missing video is a failure
	svc.nowFn = func() time.Time { return time.Now().Add(videoGracePeriod + time.Minute) }
	refreshed, err = svc.RefreshVideoStatus(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("RefreshVideoStatus() error = %v", err)
	}
	if refreshed.VideoStatus != model.VideoStatusError {
		t.Errorf("VideoStatus = %q, want error after grace period", refreshed.VideoStatus)
	}
	if refreshed.VideoError == "" {
		t.Error("VideoError not recorded")
	}
}

func TestRefreshPendingVideos(t *testing.T) {
	db := newTestDB(t)
	_, lessons := newTestCourse(t, db, 3)
	fake := videohost.NewFake()
	svc := newLessonService(db, fake)

	for i := 0; i < 2; i++ {
		if _, err := svc.AttachVideo(context.Background(), lessons[i].ID, videohost.UploadRequest{
			FileName: "clip.mp4",
			Body:     strings.NewReader("fake bytes"),
			Size:     10,
		}); err != nil {
			t.Fatalf("AttachVideo(%d) error = %v", i, err)
		}
	}
	fake.SetState("vid-1", videohost.StateSucceeded, "https://cdn.example.com/vid-1/master.m3u8")

	checked, err := svc.RefreshPendingVideos(context.Background())
	if err != nil {
		t.Fatalf("RefreshPendingVideos() error = %v", err)
	}
	if checked != 2 {
		t.Errorf("checked = %d, want 2", checked)
	}

	var ready, processing int64
	db.Model(&model.Lesson{}).Where("video_status = ?", model.VideoStatusReady).Count(&ready)
	db.Model(&model.Lesson{}).Where("video_status = ?", model.VideoStatusProcessing).Count(&processing)
	if ready != 1 || processing != 1 {
		t.Errorf("ready/processing = %d/%d, want 1/1", ready, processing)
	}
}

func TestSetArchivedRecomputesTariffs(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 10)
	tariff := newTestTariff(t, db, course.ID, 100, model.LimitTypePercent, 50, 5)
	svc := newLessonService(db, videohost.NewFake())
	teacher := newTestUser(t, db, "teacher@example.com")

	archived, err := svc.SetArchived(lessons[0].ID, teacher.ID, true)
	if err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}
	if !archived.IsArchived || archived.ArchivedAt == nil {
		t.Error("lesson not marked archived")
	}

	var reloaded model.Tariff
	if err := db.First(&reloaded, tariff.ID).Error; err != nil {
		t.Fatalf("failed to reload tariff: %v", err)
	}
	// 50% of 9 lessons, rounded half up
	if reloaded.LessonLimit != 5 {
		t.Errorf("LessonLimit = %d, want 5", reloaded.LessonLimit)
	}

	if _, err := svc.SetArchived(lessons[1].ID, teacher.ID, true); err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}
	if err := db.First(&reloaded, tariff.ID).Error; err != nil {
		t.Fatalf("failed to reload tariff: %v", err)
	}
	// 50% of 8 lessons
	if reloaded.LessonLimit != 4 {
		t.Errorf("LessonLimit = %d, want 4", reloaded.LessonLimit)
	}

	restored, err := svc.SetArchived(lessons[0].ID, teacher.ID, false)
	if err != nil {
		t.Fatalf("SetArchived(restore) error = %v", err)
	}
	if restored.IsArchived || restored.ArchivedAt != nil {
		t.Error("lesson not restored")
	}
}

func TestListFiltersByArchivalAndTitle(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 4)
	svc := newLessonService(db, videohost.NewFake())
	teacher := newTestUser(t, db, "teacher@example.com")

	if _, err := svc.SetArchived(lessons[3].ID, teacher.ID, true); err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}

	archived, err := svc.List(ListLessonsRequest{CourseID: course.ID, Archived: ArchivedFilterArchived})
	if err != nil {
		t.Fatalf("List(archived) error = %v", err)
	}
	if len(archived) != 1 || archived[0].ID != lessons[3].ID {
		t.Errorf("archived filter returned %d lessons", len(archived))
	}

	found, err := svc.List(ListLessonsRequest{CourseID: course.ID, Search: "Lesson 2"})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if len(found) != 1 || found[0].ID != lessons[1].ID {
		t.Errorf("title search returned %d lessons", len(found))
	}
}

func TestListByCourseFiltersArchived(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 4)
	svc := newLessonService(db, videohost.NewFake())
	teacher := newTestUser(t, db, "teacher@example.com")

	if _, err := svc.SetArchived(lessons[2].ID, teacher.ID, true); err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}

	visible, err := svc.ListByCourse(course.ID, false)
	if err != nil {
		t.Fatalf("ListByCourse() error = %v", err)
	}
	if len(visible) != 3 {
		t.Errorf("visible lessons = %d, want 3", len(visible))
	}

	all, err := svc.ListByCourse(course.ID, true)
	if err != nil {
		t.Fatalf("ListByCourse(includeArchived) error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all lessons = %d, want 4", len(all))
	}
}
