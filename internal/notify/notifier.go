package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"moodweather/internal/domain"

	"go.uber.org/zap"
)

// Notification kinds
const (
	KindBadgeUnlocked = "badge_unlocked"
	KindReminder      = "reminder"
	KindTest          = "test"
)

// Publisher MQTT publish side (common/mqtt.Client)
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Message payload picked up by the push gateway
type Message struct {
	Kind   string            `json:"kind"`
	UserID string            `json:"userId"`
	Token  string            `json:"token"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	SentAt time.Time         `json:"sentAt"`
}

// Topic moodweather/notify/{userId}
func Topic(userID string) string {
	return fmt.Sprintf("moodweather/notify/%s", userID)
}

// MQTTNotifier publishes push notifications for users with a registered token
type MQTTNotifier struct {
	publisher Publisher
	tokens    *TokenStore
	qos       byte
	logger    *zap.Logger
}

func NewMQTTNotifier(publisher Publisher, tokens *TokenStore, qos byte, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		publisher: publisher,
		tokens:    tokens,
		qos:       qos,
		logger:    logger,
	}
}

func (n *MQTTNotifier) publish(ctx context.Context, msg Message) (bool, error) {
	token, err := n.tokens.Token(ctx, msg.UserID)
	if err != nil {
		return false, err
	}
	if token == "" {
		n.logger.Debug("No push token, skipping notification",
			zap.String("user_id", msg.UserID),
			zap.String("kind", msg.Kind),
		)
		return false, nil
	}
	msg.Token = token
	msg.SentAt = time.Now().UTC()

	payload, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.publisher.Publish(Topic(msg.UserID), n.qos, false, payload); err != nil {
		return false, err
	}
	return true, nil
}

// NotifyBadgesUnlocked one message per badge
func (n *MQTTNotifier) NotifyBadgesUnlocked(ctx context.Context, userID string, badges []domain.Badge) error {
	for _, b := range badges {
		sent, err := n.publish(ctx, Message{
			Kind:   KindBadgeUnlocked,
			UserID: userID,
			Title:  "Badge unlocked!",
			Body:   fmt.Sprintf("You earned %s: %s", b.Name, b.Goal),
			Data:   map[string]string{"badgeId": b.ID, "icon": b.Icon},
		})
		if err != nil {
			return fmt.Errorf("failed to publish badge %s: %w", b.ID, err)
		}
		if !sent {
			return nil
		}
	}
	return nil
}

// ReminderText copy for the daily reminder; stats nil means the user never logged
func ReminderText(stats *domain.UserStats) (string, string) {
	switch {
	case stats == nil || stats.TotalEntries == 0:
		return "Mood Tracker", "Time to track your first mood!"
	case stats.CurrentStreak > 0:
		return "Streak Alert!", fmt.Sprintf("Keep your %d-day streak alive!", stats.CurrentStreak)
	default:
		return "Mood Reminder", "Time to track your mood!"
	}
}

// SendReminder reports whether a message was published
func (n *MQTTNotifier) SendReminder(ctx context.Context, userID string, stats *domain.UserStats) (bool, error) {
	title, body := ReminderText(stats)
	return n.publish(ctx, Message{
		Kind:   KindReminder,
		UserID: userID,
		Title:  title,
		Body:   body,
	})
}

// SendTest fixed message so a user can check their device receives pushes
func (n *MQTTNotifier) SendTest(ctx context.Context, userID string) error {
	sent, err := n.publish(ctx, Message{
		Kind:   KindTest,
		UserID: userID,
		Title:  "Mood Test",
		Body:   "If you can see this, notifications are working!",
	})
	if err != nil {
		return fmt.Errorf("failed to publish test notification: %w", err)
	}
	if !sent {
		return fmt.Errorf("%w: no push token registered for user", domain.ErrNotFound)
	}
	return nil
}
