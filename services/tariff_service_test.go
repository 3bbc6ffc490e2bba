package services

import (
	"testing"

	"github.com/bektursun/kursplatform/model"
)

func TestResolveLessonLimit(t *testing.T) {
	tests := []struct {
		name         string
		limitType    string
		limitValue   uint
		totalLessons uint
		want         uint
	}{
		{"count within range", model.LimitTypeCount, 5, 10, 5},
		{"count equals total", model.LimitTypeCount, 10, 10, 10},
		{"all takes every lesson", model.LimitTypeAll, 0, 7, 7},
		{"percent rounds half up", model.LimitTypePercent, 25, 10, 3},
		{"thirty percent of ten", model.LimitTypePercent, 30, 10, 3},
		{"percent rounds down below half", model.LimitTypePercent, 24, 10, 2},
		{"percent minimum one", model.LimitTypePercent, 1, 10, 1},
		{"hundred percent", model.LimitTypePercent, 100, 10, 10},
		{"single lesson course", model.LimitTypePercent, 10, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLessonLimit(tt.limitType, tt.limitValue, tt.totalLessons)
			if err != nil {
				t.Fatalf("ResolveLessonLimit() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveLessonLimit(%s, %d, %d) = %d, want %d",
					tt.limitType, tt.limitValue, tt.totalLessons, got, tt.want)
			}
		})
	}
}

func TestResolveLessonLimitRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name         string
		limitType    string
		limitValue   uint
		totalLessons uint
	}{
		{"count above total", model.LimitTypeCount, 25, 10},
		{"count zero", model.LimitTypeCount, 0, 10},
		{"percent above hundred", model.LimitTypePercent, 150, 10},
		{"percent zero", model.LimitTypePercent, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ResolveLessonLimit(tt.limitType, tt.limitValue, tt.totalLessons); err != ErrLimitOutOfRange {
				t.Fatalf("ResolveLessonLimit(%s, %d, %d) error = %v, want ErrLimitOutOfRange",
					tt.limitType, tt.limitValue, tt.totalLessons, err)
			}
		})
	}
}

func TestResolveLessonLimitNoLessons(t *testing.T) {
	if _, err := ResolveLessonLimit(model.LimitTypeAll, 0, 0); err != ErrNoLessons {
		t.Fatalf("expected ErrNoLessons, got %v", err)
	}
}

func TestResolveLessonLimitUnknownType(t *testing.T) {
	if _, err := ResolveLessonLimit("bogus", 1, 10); err == nil {
		t.Fatal("expected error for unknown limit type")
	}
}

func TestTariffCreateResolvesQuota(t *testing.T) {
	db := newTestDB(t)
	course, _ := newTestCourse(t, db, 10)
	svc := NewTariffService(db)

	tariff, err := svc.Create(CreateTariffRequest{
		CourseID:   course.ID,
		Title:      "Basic",
		Price:      49.90,
		LimitType:  model.LimitTypePercent,
		LimitValue: 30,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tariff.LessonLimit != 3 {
		t.Errorf("LessonLimit = %d, want 3", tariff.LessonLimit)
	}
}

func TestTariffCreateOnEmptyCourse(t *testing.T) {
	db := newTestDB(t)
	course, _ := newTestCourse(t, db, 0)
	svc := NewTariffService(db)

	_, err := svc.Create(CreateTariffRequest{
		CourseID:  course.ID,
		Title:     "Basic",
		Price:     10,
		LimitType: model.LimitTypeAll,
	})
	if err != ErrNoLessons {
		t.Fatalf("expected ErrNoLessons, got %v", err)
	}
}

func TestTariffCreateRejectsOutOfRangeLimit(t *testing.T) {
	db := newTestDB(t)
	course, _ := newTestCourse(t, db, 10)
	svc := NewTariffService(db)

	_, err := svc.Create(CreateTariffRequest{
		CourseID:   course.ID,
		Title:      "Oversized",
		Price:      10,
		LimitType:  model.LimitTypeCount,
		LimitValue: 25,
	})
	if err != ErrLimitOutOfRange {
		t.Fatalf("expected ErrLimitOutOfRange, got %v", err)
	}
}

func TestTariffUpdateRecomputesQuota(t *testing.T) {
	db := newTestDB(t)
	course, _ := newTestCourse(t, db, 10)
	svc := NewTariffService(db)

	tariff, err := svc.Create(CreateTariffRequest{
		CourseID:   course.ID,
		Title:      "Basic",
		Price:      10,
		LimitType:  model.LimitTypeCount,
		LimitValue: 4,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newType := model.LimitTypeAll
	updated, err := svc.Update(tariff.ID, UpdateTariffRequest{LimitType: &newType})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.LessonLimit != 10 {
		t.Errorf("LessonLimit = %d, want 10", updated.LessonLimit)
	}
}

func TestRecomputeForCourseTracksArchive(t *testing.T) {
	db := newTestDB(t)
	course, lessons := newTestCourse(t, db, 10)
	svc := NewTariffService(db)

	tariff, err := svc.Create(CreateTariffRequest{
		CourseID:   course.ID,
		Title:      "Half",
		Price:      10,
		LimitType:  model.LimitTypePercent,
		LimitValue: 50,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tariff.LessonLimit != 5 {
		t.Fatalf("LessonLimit = %d, want 5", tariff.LessonLimit)
	}

	// Archive two lessons; 50% of 8 is 4
	for i := 0; i < 2; i++ {
		if err := db.Model(&lessons[i]).Update("is_archived", true).Error; err != nil {
			t.Fatalf("failed to archive lesson: %v", err)
		}
	}

	if err := svc.RecomputeForCourse(db, course.ID); err != nil {
		t.Fatalf("RecomputeForCourse() error = %v", err)
	}

	var reloaded model.Tariff
	if err := db.First(&reloaded, tariff.ID).Error; err != nil {
		t.Fatalf("failed to reload tariff: %v", err)
	}
	if reloaded.LessonLimit != 4 {
		t.Errorf("LessonLimit after archive = %d, want 4", reloaded.LessonLimit)
	}
}
