package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cardkeep/internal/config"
	"cardkeep/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyScanMatched(context.Background(), "Blue-Eyes White Dragon", "LOB-EN001", 130); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "scan matched",
			send: func(svc notifications.Service) error {
				return svc.NotifyScanMatched(context.Background(), "Blue-Eyes White Dragon", "LOB-EN001", 130)
			},
			expectTitle:   "Cardkeep - Scan Matched",
			expectMessage: "Matched: Blue-Eyes White Dragon (LOB-EN001), score 130",
			expectTags:    "cardkeep,scan,matched",
		},
		{
			name: "scan ambiguous",
			send: func(svc notifications.Service) error {
				return svc.NotifyScanAmbiguous(context.Background(), "req-1", 3)
			},
			expectTitle:    "Cardkeep - Choice Needed",
			expectMessage:  "Scan req-1 needs a choice between 3 candidates",
			expectTags:     "cardkeep,scan,ambiguous",
			expectPriority: "high",
		},
		{
			name: "scan failed",
			send: func(svc notifications.Service) error {
				return svc.NotifyScanFailed(context.Background(), "req-2", "no_match")
			},
			expectTitle:   "Cardkeep - Scan Failed",
			expectMessage: "Scan req-2 failed: no_match",
			expectTags:    "cardkeep,scan,failed",
		},
		{
			name: "commit completed",
			send: func(svc notifications.Service) error {
				return svc.NotifyCommitCompleted(context.Background(), "main", 12)
			},
			expectTitle:    "Cardkeep - Commit Complete",
			expectMessage:  "Committed 12 cards into main",
			expectTags:     "cardkeep,commit,completed",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("catalog locked"), "commit")
			},
			expectTitle:    "Cardkeep - Error",
			expectMessage:  "Error with commit: catalog locked",
			expectTags:     "cardkeep,error,alert",
			expectPriority: "high",
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
			cfg.Notifications.Scans = true
			cfg.Notifications.Commits = true
			cfg.Notifications.Errors = true

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
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

func TestNtfyServiceHonorsCategorySwitches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for muted category: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Scans = false
	cfg.Notifications.Commits = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyScanMatched(context.Background(), "Dark Magician", "LOB-EN005", 80); err != nil {
		t.Fatalf("muted scan notification should be silent, got %v", err)
	}
	if err := svc.NotifyCommitCompleted(context.Background(), "main", 1); err != nil {
		t.Fatalf("muted commit notification should be silent, got %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "scan"); err != nil {
		t.Fatalf("muted error notification should be silent, got %v", err)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Scans = true

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyScanMatched(context.Background(), "Raigeki", "LOB-EN053", 80); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
