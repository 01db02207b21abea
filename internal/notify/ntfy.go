package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"

	"classaudio/internal/config"
	"classaudio/internal/logging"
)

const userAgent = "classaudio/0.1.0"

// Ntfy pushes warning and error notices to an ntfy topic. A notice identical
// to one pushed within the dedup window is dropped.
type Ntfy struct {
	endpoint string
	client   *resty.Client
	minLevel Level
	recent   *gocache.Cache
	window   time.Duration
	logger   *slog.Logger
}

// NewNtfy returns nil when cfg has no ntfy topic.
func NewNtfy(cfg config.Notifications, logger *slog.Logger) *Ntfy {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return nil
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	window := time.Duration(cfg.DedupWindowSeconds) * time.Second

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	n := &Ntfy{
		endpoint: topic,
		client:   client,
		minLevel: LevelWarning,
		window:   window,
		logger:   logging.NewComponentLogger(logger, "ntfy"),
	}
	if window > 0 {
		n.recent = gocache.New(window, 2*window)
	}
	return n
}

func (n *Ntfy) Notify(ctx context.Context, notice Notice) {
	if n == nil || !notice.Level.AtLeast(n.minLevel) {
		return
	}
	key := string(notice.Kind) + "|" + notice.Message
	if n.recent != nil {
		if _, seen := n.recent.Get(key); seen {
			n.logger.Debug("ntfy notice suppressed", logging.String("kind", string(notice.Kind)))
			return
		}
	}
	if err := n.send(ctx, notice); err != nil {
		logging.WarnWithContext(n.logger, "ntfy delivery failed", "ntfy_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "push notification not delivered"))
		return
	}
	if n.recent != nil {
		n.recent.Set(key, struct{}{}, gocache.DefaultExpiration)
	}
}

func (n *Ntfy) send(ctx context.Context, notice Notice) error {
	title := "ClassAudio"
	if notice.Title != "" {
		title = "ClassAudio - " + notice.Title
	}
	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetHeader("Title", title).
		SetHeader("Tags", strings.Join([]string{"classaudio", string(notice.Kind)}, ",")).
		SetBody(notice.Message)
	if notice.Level == LevelError {
		req.SetHeader("Priority", "high")
	}

	resp, err := req.Post(n.endpoint)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		body := strings.TrimSpace(resp.String())
		if len(body) > 2048 {
			body = body[:2048]
		}
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode(), body)
	}
	return nil
}

// FromConfig builds the default notifier: console output plus ntfy when a
// topic is configured. Pushes are delivered in the background; use Flush
// before exiting.
func FromConfig(cfg *config.Config, console *Console, logger *slog.Logger) Notifier {
	var push Notifier
	if cfg != nil {
		if n := NewNtfy(cfg.Notifications, logger); n != nil {
			push = NewAsync(n, 2)
		}
	}
	if console == nil {
		return Multi(push)
	}
	return Multi(console, push)
}
