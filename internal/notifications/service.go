package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"vocalize/internal/config"
)

const userAgent = "vocalize/0.1.0"

// Service defines the notification surface used by the client.
type Service interface {
	// PendingChanged reports whether unsent recordings exist after a queue
	// mutation.
	PendingChanged(ctx context.Context, hasPending bool) error
	NotifySessionRenewed(ctx context.Context) error
	NotifyCacheReset(ctx context.Context, reason string) error
	NotifyUploadSummary(ctx context.Context, sent, failed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		pendingEnabled: cfg.Notifications.PendingRecordings,
		sessionEnabled: cfg.Notifications.Session,
	}
}

// NewNoop returns a Service that discards every event.
func NewNoop() Service { return noopService{} }

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	pendingEnabled bool
	sessionEnabled bool
}

func (n *ntfyService) PendingChanged(ctx context.Context, hasPending bool) error {
	if !hasPending || !n.pendingEnabled {
		return nil
	}
	return n.send(ctx, payload{
		title:   "Vocalize - Gravações pendentes",
		message: "Você tem gravações pendentes de envio. Abra o app quando estiver online para enviá-las.",
		tags:    []string{"vocalize", "recordings", "pending"},
	})
}

func (n *ntfyService) NotifySessionRenewed(ctx context.Context) error {
	if !n.sessionEnabled {
		return nil
	}
	return n.send(ctx, payload{
		title:    "Vocalize - Sessão renovada",
		message:  "Sua sessão foi renovada automaticamente.",
		tags:     []string{"vocalize", "session"},
		priority: "low",
	})
}

func (n *ntfyService) NotifyCacheReset(ctx context.Context, reason string) error {
	message := "Os dados locais foram limpos."
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s Motivo: %s", message, reason)
	}
	return n.send(ctx, payload{
		title:   "Vocalize - Cache limpo",
		message: message,
		tags:    []string{"vocalize", "cache"},
	})
}

func (n *ntfyService) NotifyUploadSummary(ctx context.Context, sent, failed int) error {
	if sent == 0 && failed == 0 {
		return nil
	}
	title := "Vocalize - Envio concluído"
	message := fmt.Sprintf("%d gravações enviadas", sent)
	priority := ""
	if failed > 0 {
		title = "Vocalize - Envio com falhas"
		message = fmt.Sprintf("%d gravações enviadas, %d falharam", sent, failed)
		priority = "high"
	}
	return n.send(ctx, payload{
		title:    title,
		message:  message,
		tags:     []string{"vocalize", "upload"},
		priority: priority,
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Vocalize - Teste",
		message:  "Teste do sistema de notificações",
		tags:     []string{"vocalize", "test"},
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

func (noopService) PendingChanged(context.Context, bool) error          { return nil }
func (noopService) NotifySessionRenewed(context.Context) error          { return nil }
func (noopService) NotifyCacheReset(context.Context, string) error      { return nil }
func (noopService) NotifyUploadSummary(context.Context, int, int) error { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }

// Event is one call captured by Recorder.
type Event struct {
	Name       string
	HasPending bool
	Detail     string
}

// Recorder is a Service that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) PendingChanged(_ context.Context, hasPending bool) error {
	return r.add(Event{Name: "pending_changed", HasPending: hasPending})
}

func (r *Recorder) NotifySessionRenewed(context.Context) error {
	return r.add(Event{Name: "session_renewed"})
}

func (r *Recorder) NotifyCacheReset(_ context.Context, reason string) error {
	return r.add(Event{Name: "cache_reset", Detail: reason})
}

func (r *Recorder) NotifyUploadSummary(_ context.Context, sent, failed int) error {
	return r.add(Event{Name: "upload_summary", Detail: fmt.Sprintf("%d/%d", sent, failed)})
}

func (r *Recorder) TestNotification(context.Context) error {
	return r.add(Event{Name: "test"})
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events named name were captured.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}
