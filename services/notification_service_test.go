package services

import (
	"testing"

	"github.com/bektursun/kursplatform/model"
)

func seedNotifications(t *testing.T, svc *NotificationService, userID uint, count int) []model.UserNotification {
	t.Helper()

	out := make([]model.UserNotification, 0, count)
	for i := 0; i < count; i++ {
		n := model.UserNotification{
			UserID:  userID,
			Type:    model.NotificationAccessActivated,
			Title:   "Course access activated",
			Message: "You now have access.",
		}
		if err := svc.Notify(svc.db, &n); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		out = append(out, n)
	}
	return out
}

func TestNotificationReadFlow(t *testing.T) {
	db := newTestDB(t)
	_, _, _, notifications := newServices(db)
	alice := newTestUser(t, db, "alice@example.com")
	bob := newTestUser(t, db, "bob@example.com")

	created := seedNotifications(t, notifications, alice.ID, 3)
	seedNotifications(t, notifications, bob.ID, 1)

	count, err := notifications.UnreadCount(alice.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 3 {
		t.Errorf("unread = %d, want 3", count)
	}

	if err := notifications.MarkRead(alice.ID, created[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	count, _ = notifications.UnreadCount(alice.ID)
	if count != 2 {
		t.Errorf("unread after MarkRead = %d, want 2", count)
	}

	// Bob cannot mark someone else's notification
	if err := notifications.MarkRead(bob.ID, created[1].ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := notifications.MarkAllRead(alice.ID); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	count, _ = notifications.UnreadCount(alice.ID)
	if count != 0 {
		t.Errorf("unread after MarkAllRead = %d, want 0", count)
	}

	// Bob's notifications are untouched
	count, _ = notifications.UnreadCount(bob.ID)
	if count != 1 {
		t.Errorf("bob unread = %d, want 1", count)
	}
}

func TestNotificationListPaginated(t *testing.T) {
	db := newTestDB(t)
	_, _, _, notifications := newServices(db)
	alice := newTestUser(t, db, "alice@example.com")

	seedNotifications(t, notifications, alice.ID, 5)

	page, total, err := notifications.List(alice.ID, 1, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}
}
