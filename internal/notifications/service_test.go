package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ticketdesk/internal/config"
	"ticketdesk/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventIntakeCompleted, notifications.Payload{"ticketID": "1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "intake completed",
			event: notifications.EventIntakeCompleted,
			payload: notifications.Payload{
				"ticketID":   "13624970",
				"company":    "Singtech Inc",
				"method":     "text-recognition",
				"confidence": 0.91,
			},
			expectTitle:   "Ticket - Intake Complete",
			expectMessage: "Ticket #13624970 (Singtech Inc) ingested via text-recognition, confidence 0.91",
			expectTags:    "ticketdesk,intake,completed",
		},
		{
			name:  "low confidence intake",
			event: notifications.EventIntakeCompleted,
			payload: notifications.Payload{
				"ticketID":      "13624970",
				"company":       "Singtech Inc",
				"method":        "vision-analysis",
				"confidence":    0.45,
				"lowConfidence": true,
			},
			expectTitle:    "Ticket - Review Needed",
			expectMessage:  "Ticket #13624970 (Singtech Inc) ingested via vision-analysis, confidence 0.45\nLow confidence: analyst review required",
			expectTags:     "ticketdesk,intake,review",
			expectPriority: "high",
		},
		{
			name:  "intake failed",
			event: notifications.EventIntakeFailed,
			payload: notifications.Payload{
				"file":       "scan.pdf",
				"kind":       "RenderFailure",
				"error":      errors.New("render failure: ocr: pdftoppm"),
				"failedPath": "/tickets/incoming/failed/scan.pdf",
			},
			expectTitle:    "Ticket - Intake Failed",
			expectMessage:  "Intake failed for scan.pdf (RenderFailure): render failure: ocr: pdftoppm\nQuarantined: /tickets/incoming/failed/scan.pdf",
			expectTags:     "ticketdesk,intake,error",
			expectPriority: "high",
		},
		{
			name:           "worker timeout",
			event:          notifications.EventWorkerTimeout,
			payload:        notifications.Payload{"file": "call.mp4", "timeout": "2m0s"},
			expectTitle:    "Ticket - Intake Timeout",
			expectMessage:  "Intake worker for call.mp4 killed after 2m0s",
			expectTags:     "ticketdesk,watcher,timeout",
			expectPriority: "high",
		},
		{
			name:          "archive completed",
			event:         notifications.EventArchiveCompleted,
			payload:       notifications.Payload{"ticketID": "13624970", "resolutionType": "workaround", "folder": "/r/C1_Singtech_Inc"},
			expectTitle:   "Ticket - Archived",
			expectMessage: "Ticket #13624970 archived (workaround)\nFolder: /r/C1_Singtech_Inc",
			expectTags:    "ticketdesk,archive,completed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Intake = false
	cfg.Notifications.LowConfidence = false
	cfg.Notifications.Failures = false
	cfg.Notifications.Archive = false

	svc := notifications.NewService(&cfg)
	suppressed := []struct {
		event   notifications.Event
		payload notifications.Payload
	}{
		{notifications.EventIntakeCompleted, notifications.Payload{"ticketID": "1"}},
		{notifications.EventIntakeCompleted, notifications.Payload{"ticketID": "1", "lowConfidence": true}},
		{notifications.EventIntakeFailed, notifications.Payload{"file": "a.pdf"}},
		{notifications.EventWorkerTimeout, notifications.Payload{"file": "a.mp4"}},
		{notifications.EventArchiveCompleted, notifications.Payload{"ticketID": "1"}},
		{notifications.Event("unknown"), nil},
	}
	for _, tc := range suppressed {
		if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", tc.event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
