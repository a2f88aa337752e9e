package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/config"
	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/metrics"
)

// digestEventLimit caps how many events are individually summarized in
// one alert digest.
const digestEventLimit = 10

// valueTruncateLen caps expected/actual values inside the digest.
const valueTruncateLen = 100

// WebhookSender delivers an alert payload to a webhook URL.
type WebhookSender interface {
	Send(ctx context.Context, url string, payload []byte) error
}

// EmailSender delivers an alert message to a recipient list.
type EmailSender interface {
	Send(ctx context.Context, recipients []string, subject, message string) error
}

// AlertDispatcher filters drift events by severity and forwards a digest
// to every configured notification channel.
type AlertDispatcher struct {
	cfg     config.AlertingConfig
	webhook WebhookSender
	email   EmailSender
	logger  *logger.Logger
}

// NewAlertDispatcher creates an alert dispatcher. Nil senders disable
// their channel.
func NewAlertDispatcher(cfg config.AlertingConfig, webhook WebhookSender, email EmailSender, log *logger.Logger) *AlertDispatcher {
	return &AlertDispatcher{
		cfg:     cfg,
		webhook: webhook,
		email:   email,
		logger:  log,
	}
}

// Dispatch sends a digest of the given events to every enabled channel.
// It is a no-op when alerting is disabled or no event clears the severity
// threshold. A channel failure never blocks delivery to other channels;
// an error is returned only when every attempted channel failed.
func (d *AlertDispatcher) Dispatch(ctx context.Context, events []*drift.Event) error {
	if !d.cfg.Enabled || len(events) == 0 {
		return nil
	}

	filtered := d.filterByThreshold(events)
	if len(filtered) == 0 {
		return nil
	}

	message := FormatDigest(filtered, time.Now())

	attempted := 0
	failed := 0

	if d.cfg.WebhookURL != "" && d.webhook != nil {
		attempted++
		payload, _ := json.Marshal(map[string]interface{}{
			"text":       message,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"alert_type": "infrastructure_drift",
		})
		err := d.webhook.Send(ctx, d.cfg.WebhookURL, payload)
		metrics.RecordAlertDelivery("webhook", err)
		if err != nil {
			failed++
			d.logger.ErrorWithErr(err, "Failed to send webhook alert")
		}
	}

	if len(d.cfg.EmailRecipients) > 0 && d.email != nil {
		attempted++
		subject := fmt.Sprintf("Infrastructure drift detected (%d events)", len(filtered))
		err := d.email.Send(ctx, d.cfg.EmailRecipients, subject, message)
		metrics.RecordAlertDelivery("email", err)
		if err != nil {
			failed++
			d.logger.ErrorWithErr(err, "Failed to send email alert")
		}
	}

	if attempted > 0 && failed == attempted {
		return apperrors.AlertDeliveryFailure(
			fmt.Sprintf("all %d alert channels failed", attempted), nil)
	}

	d.logger.WithFields(map[string]interface{}{
		"events":   len(filtered),
		"channels": attempted - failed,
	}).Info("Drift alerts sent")

	return nil
}

// filterByThreshold drops events below the configured severity threshold.
func (d *AlertDispatcher) filterByThreshold(events []*drift.Event) []*drift.Event {
	threshold := d.cfg.SeverityThreshold
	if !drift.ValidSeverity(threshold) {
		threshold = drift.SeverityHigh
	}
	min := drift.SeverityLevel(threshold)

	var filtered []*drift.Event
	for _, e := range events {
		if drift.SeverityLevel(e.Severity) >= min {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// FormatDigest renders the alert digest: a header with count and
// timestamp, up to the first ten events individually summarized, and a
// trailing "and N more" line when truncated.
func FormatDigest(events []*drift.Event, now time.Time) string {
	lines := []string{
		"Infrastructure Drift Detected",
		"Time: " + now.UTC().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("Events: %d", len(events)),
		"",
	}

	shown := events
	if len(shown) > digestEventLimit {
		shown = shown[:digestEventLimit]
	}

	for _, e := range shown {
		lines = append(lines,
			fmt.Sprintf("* %s: %s/%s", strings.ToUpper(e.Severity), e.ResourceType, e.ResourceName),
			"  Type: "+e.DriftType,
			"  Expected: "+truncate(e.ExpectedValue, valueTruncateLen),
			"  Actual: "+truncate(e.ActualValue, valueTruncateLen),
			"",
		)
	}

	if len(events) > digestEventLimit {
		lines = append(lines, fmt.Sprintf("... and %d more events", len(events)-digestEventLimit))
	}

	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// HTTPWebhookSender posts alert payloads over HTTP.
type HTTPWebhookSender struct {
	client *http.Client
}

// NewHTTPWebhookSender creates a webhook sender with a bounded client.
func NewHTTPWebhookSender() *HTTPWebhookSender {
	return &HTTPWebhookSender{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send posts the payload and treats any non-2xx/3xx response as failure.
func (s *HTTPWebhookSender) Send(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// LogEmailSender records would-be email deliveries in the log. Production
// deployments plug in a real mail collaborator instead.
type LogEmailSender struct {
	logger *logger.Logger
}

// NewLogEmailSender creates the logging email sender.
func NewLogEmailSender(log *logger.Logger) *LogEmailSender {
	return &LogEmailSender{logger: log}
}

// Send logs the delivery instead of sending it.
func (s *LogEmailSender) Send(_ context.Context, recipients []string, subject, _ string) error {
	s.logger.WithFields(map[string]interface{}{
		"recipients": recipients,
		"subject":    subject,
	}).Info("Email alert queued (no mail collaborator configured)")
	return nil
}
