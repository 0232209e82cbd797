package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ticketdesk/internal/config"
)

const userAgent = "ticketdesk/0.1.0"

// Event names a notification type.
type Event string

const (
	EventIntakeCompleted  Event = "intake_completed"
	EventIntakeFailed     Event = "intake_failed"
	EventWorkerTimeout    Event = "worker_timeout"
	EventArchiveCompleted Event = "archive_completed"
	EventTest             Event = "test"
)

// Payload carries event fields. Keys are documented per event in format.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one without a topic.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		toggles:  cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// format renders event, reporting false when the event is switched off.
func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventIntakeCompleted:
		low := boolValue(payload, "lowConfidence")
		if low && !n.toggles.LowConfidence && !n.toggles.Intake {
			return message{}, false
		}
		if !low && !n.toggles.Intake {
			return message{}, false
		}
		body := fmt.Sprintf("Ticket #%s (%s) ingested via %s, confidence %.2f",
			stringValue(payload, "ticketID", "UNKNOWN"),
			stringValue(payload, "company", "Unknown"),
			stringValue(payload, "method", "unknown"),
			floatValue(payload, "confidence"))
		if low && n.toggles.LowConfidence {
			return message{
				title:    "Ticket - Review Needed",
				body:     body + "\nLow confidence: analyst review required",
				tags:     []string{"ticketdesk", "intake", "review"},
				priority: "high",
			}, true
		}
		return message{title: "Ticket - Intake Complete", body: body, tags: []string{"ticketdesk", "intake", "completed"}}, true
	case EventIntakeFailed:
		if !n.toggles.Failures {
			return message{}, false
		}
		body := fmt.Sprintf("Intake failed for %s (%s): %s",
			stringValue(payload, "file", "unknown file"),
			stringValue(payload, "kind", "EngineFailure"),
			stringValue(payload, "error", "unknown error"))
		if quarantine := stringValue(payload, "failedPath", ""); quarantine != "" {
			body += "\nQuarantined: " + quarantine
		}
		return message{title: "Ticket - Intake Failed", body: body, tags: []string{"ticketdesk", "intake", "error"}, priority: "high"}, true
	case EventWorkerTimeout:
		if !n.toggles.Failures {
			return message{}, false
		}
		body := fmt.Sprintf("Intake worker for %s killed after %s",
			stringValue(payload, "file", "unknown file"),
			stringValue(payload, "timeout", "timeout"))
		return message{title: "Ticket - Intake Timeout", body: body, tags: []string{"ticketdesk", "watcher", "timeout"}, priority: "high"}, true
	case EventArchiveCompleted:
		if !n.toggles.Archive {
			return message{}, false
		}
		body := fmt.Sprintf("Ticket #%s archived (%s)", stringValue(payload, "ticketID", "UNKNOWN"), stringValue(payload, "resolutionType", "fixed"))
		if folder := stringValue(payload, "folder", ""); folder != "" {
			body += "\nFolder: " + folder
		}
		return message{title: "Ticket - Archived", body: body, tags: []string{"ticketdesk", "archive", "completed"}}, true
	case EventTest:
		return message{title: "Ticket - Test", body: "Notification system test", tags: []string{"ticketdesk", "test"}, priority: "low"}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(p Payload, key, fallback string) string {
	switch v := p[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case fmt.Stringer:
		return v.String()
	case error:
		return strings.TrimSpace(v.Error())
	}
	return fallback
}

func floatValue(p Payload, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func boolValue(p Payload, key string) bool {
	v, _ := p[key].(bool)
	return v
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
