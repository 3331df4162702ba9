package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

// DevAdapter implements Adapter for local development. It writes each
// outbound message to a directory as a JSON file instead of calling a
// provider, and can impersonate any channel.
type DevAdapter struct {
	channel notification.Channel
	dir     string
}

// NewDevAdapter creates a development adapter for the given channel that
// saves messages to dir. The directory is created on first send.
func NewDevAdapter(ch notification.Channel, dir string) *DevAdapter {
	return &DevAdapter{channel: ch, dir: dir}
}

func (a *DevAdapter) Name() notification.Channel {
	return a.channel
}

type devMessage struct {
	Timestamp      string `json:"timestamp"`
	Channel        string `json:"channel"`
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	EventType      string `json:"event_type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	MessageID      string `json:"message_id"`
}

// Send writes the message to disk and fabricates a message ID.
func (a *DevAdapter) Send(ctx context.Context, n *notification.Notification) (Result, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return Result{}, fmt.Errorf("%w: failed to create directory: %v", ErrSendFailed, err)
	}

	now := time.Now()
	messageID := "dev-" + uuid.New().String()

	data, err := json.MarshalIndent(devMessage{
		Timestamp:      now.Format(time.RFC3339),
		Channel:        string(a.channel),
		NotificationID: n.ID,
		UserID:         n.UserID,
		EventType:      string(n.EventType),
		Title:          n.Title,
		Message:        n.Message,
		MessageID:      messageID,
	}, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to marshal message: %v", ErrSendFailed, err)
	}

	filename := fmt.Sprintf("%s_%s_%s.json",
		now.Format("2006_01_02_150405"),
		a.channel,
		sanitizeFilename(string(n.EventType)),
	)
	if err := os.WriteFile(filepath.Join(a.dir, filename), data, 0644); err != nil {
		return Result{}, fmt.Errorf("%w: failed to write message file: %v", ErrSendFailed, err)
	}

	return Result{MessageID: messageID}, nil
}

// sanitizeRegex matches characters that are not alphanumeric, dash, underscore, or dot.
var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "message"
	}

	return strings.ToLower(s)
}
