package services

import (
	"fmt"
	"time"

	"flexkazi/freelancer-service/logging"
	"flexkazi/freelancer-service/models"

	"github.com/sony/gobreaker"
)

type NotificationStore interface {
	CreateNotification(notification *models.Notification) error
	GetNotificationsByUser(userID string) ([]models.Notification, error)
	MarkNotificationAsRead(userID, notificationID, createdAt string) error
}

type NotificationService struct {
	store   NotificationStore
	breaker *gobreaker.CircuitBreaker
}

func NewNotificationService(store NotificationStore, breaker *gobreaker.CircuitBreaker) *NotificationService {
	return &NotificationService{
		store:   store,
		breaker: breaker,
	}
}

// Notify writes a notification to the user's feed. The feed is a
// convenience, not a source of truth, so failures are logged and swallowed
// and the circuit breaker keeps a struggling Cassandra from slowing down
// the task coordinators.
func (ns *NotificationService) Notify(userID, message string) {
	_, err := ns.breaker.Execute(func() (interface{}, error) {
		notification := models.Notification{
			UserID:    userID,
			Message:   message,
			CreatedAt: time.Now(),
			IsRead:    false,
		}
		return nil, ns.store.CreateNotification(&notification)
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFY_FAILED, Description: Failed to notify user %s: %v", userID, err)
	}
}

func (ns *NotificationService) GetNotificationsByUser(userID string) ([]models.Notification, error) {
	return ns.store.GetNotificationsByUser(userID)
}

func (ns *NotificationService) MarkNotificationAsRead(userID, notificationID, createdAt string) error {
	if notificationID == "" || createdAt == "" {
		return fmt.Errorf("notificationID and createdAt are required")
	}
	return ns.store.MarkNotificationAsRead(userID, notificationID, createdAt)
}
