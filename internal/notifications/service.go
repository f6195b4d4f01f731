package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardkeep/internal/config"
)

const userAgent = "Cardkeep/0.1.0"

// Service defines the notification surface exposed to the scanner and
// commit paths.
type Service interface {
	NotifyScanMatched(ctx context.Context, cardName, setCode string, score float64) error
	NotifyScanAmbiguous(ctx context.Context, requestID string, choices int) error
	NotifyScanFailed(ctx context.Context, requestID, reason string) error
	NotifyCommitCompleted(ctx context.Context, collectionName string, quantity int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewNop returns a Service that silently drops every notification.
func NewNop() Service { return noopService{} }

// NewService builds a notification service backed by ntfy when
// configured. When no ntfy topic is configured, a noop implementation
// is returned.
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
		scans:    cfg.Notifications.Scans,
		commits:  cfg.Notifications.Commits,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	scans    bool
	commits  bool
	errors   bool
}

func (n *ntfyService) NotifyScanMatched(ctx context.Context, cardName, setCode string, score float64) error {
	if !n.scans {
		return nil
	}
	cardName = strings.TrimSpace(cardName)
	setCode = strings.TrimSpace(setCode)
	message := fmt.Sprintf("Matched: %s", cardName)
	if setCode != "" {
		message = fmt.Sprintf("%s (%s)", message, setCode)
	}
	data := payload{
		title:   "Cardkeep - Scan Matched",
		message: fmt.Sprintf("%s, score %.0f", message, score),
		tags:    []string{"cardkeep", "scan", "matched"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanAmbiguous(ctx context.Context, requestID string, choices int) error {
	if !n.scans {
		return nil
	}
	data := payload{
		title:    "Cardkeep - Choice Needed",
		message:  fmt.Sprintf("Scan %s needs a choice between %d candidates", strings.TrimSpace(requestID), choices),
		tags:     []string{"cardkeep", "scan", "ambiguous"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanFailed(ctx context.Context, requestID, reason string) error {
	if !n.scans {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:   "Cardkeep - Scan Failed",
		message: fmt.Sprintf("Scan %s failed: %s", strings.TrimSpace(requestID), reason),
		tags:    []string{"cardkeep", "scan", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCommitCompleted(ctx context.Context, collectionName string, quantity int) error {
	if !n.commits {
		return nil
	}
	data := payload{
		title:    "Cardkeep - Commit Complete",
		message:  fmt.Sprintf("Committed %d cards into %s", quantity, strings.TrimSpace(collectionName)),
		tags:     []string{"cardkeep", "commit", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Cardkeep - Error",
		message:  builder.String(),
		tags:     []string{"cardkeep", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Cardkeep - Test",
		message:  "Notification system test",
		tags:     []string{"cardkeep", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

type noopService struct{}

func (noopService) NotifyScanMatched(context.Context, string, string, float64) error { return nil }
func (noopService) NotifyScanAmbiguous(context.Context, string, int) error           { return nil }
func (noopService) NotifyScanFailed(context.Context, string, string) error           { return nil }
func (noopService) NotifyCommitCompleted(context.Context, string, int) error         { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
