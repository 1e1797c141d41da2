package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"showkeeper/internal/config"
)

const userAgent = "showkeeper/1.0"

// RunSummary describes one completed run.
type RunSummary struct {
	Shows      int
	Missing    int
	Duplicates int
	Completed  int
	Failed     int
	Duration   time.Duration
	Cancelled  bool
}

// Service is the notification surface used by the scan runner and the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, s RunSummary) error {
	duration := s.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var b strings.Builder
	switch {
	case s.Cancelled:
		fmt.Fprintf(&b, "Run cancelled: %d of %d action(s) completed", s.Completed, s.Completed+s.Failed)
	case s.Failed > 0:
		fmt.Fprintf(&b, "%d action(s) completed, %d failed", s.Completed, s.Failed)
	default:
		fmt.Fprintf(&b, "%d action(s) completed", s.Completed)
	}
	fmt.Fprintf(&b, " in %s", duration)
	if s.Missing > 0 {
		fmt.Fprintf(&b, "\n%d episode(s) missing across %d show(s)", s.Missing, s.Shows)
	}
	if s.Duplicates > 0 {
		fmt.Fprintf(&b, "\n%d possible duplicate(s) to review", s.Duplicates)
	}

	data := payload{
		title:   "showkeeper - Library Updated",
		message: b.String(),
		tags:    []string{"showkeeper", "run", "completed"},
	}
	if s.Failed > 0 || s.Cancelled {
		data.title = "showkeeper - Run Incomplete"
		data.tags = []string{"showkeeper", "run", "warning"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var b strings.Builder
	b.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		b.WriteString(" during ")
		b.WriteString(contextLabel)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "showkeeper - Error",
		message:  b.String(),
		tags:     []string{"showkeeper", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "showkeeper - Test",
		message:  "Notification delivery works",
		tags:     []string{"showkeeper", "test"},
		priority: "low",
	})
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

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
