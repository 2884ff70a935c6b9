package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"arena/internal/config"
)

const userAgent = "arena/0.1.0"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyExportCompleted(ctx context.Context, cases int, archive string, size int64, elapsed time.Duration) error
	NotifyExportFailed(ctx context.Context, caseName string, err error) error
	NotifyReviewCompleted(ctx context.Context, voted, total int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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

func (n *ntfyService) NotifyExportCompleted(ctx context.Context, cases int, archive string, size int64, elapsed time.Duration) error {
	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	message := fmt.Sprintf("📦 Exported %d %s (%s) in %s", cases, plural(cases, "case", "cases"), humanize.IBytes(uint64(max(size, 0))), elapsed)
	if archive = strings.TrimSpace(archive); archive != "" {
		message += "\nArchive: " + archive
	}
	return n.send(ctx, payload{
		title:   "Arena - Export Complete",
		message: message,
		tags:    []string{"arena", "export", "completed"},
	})
}

func (n *ntfyService) NotifyExportFailed(ctx context.Context, caseName string, err error) error {
	var builder strings.Builder
	builder.WriteString("❌ Export failed")
	if caseName = strings.TrimSpace(caseName); caseName != "" {
		builder.WriteString(" on ")
		builder.WriteString(caseName)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Arena - Export Failed",
		message:  builder.String(),
		tags:     []string{"arena", "export", "error"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyReviewCompleted(ctx context.Context, voted, total int) error {
	return n.send(ctx, payload{
		title:   "Arena - Review Complete",
		message: fmt.Sprintf("✅ Voted on %d of %d %s", voted, total, plural(total, "case", "cases")),
		tags:    []string{"arena", "review", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Arena - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"arena", "test"},
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

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type noopService struct{}

func (noopService) NotifyExportCompleted(context.Context, int, string, int64, time.Duration) error {
	return nil
}
func (noopService) NotifyExportFailed(context.Context, string, error) error { return nil }
func (noopService) NotifyReviewCompleted(context.Context, int, int) error   { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
