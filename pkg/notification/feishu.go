package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"redwarm/pkg/config"
	"redwarm/pkg/health"
	"redwarm/pkg/logger"
)

// FeishuNotifier sends health alerts to Feishu (Lark)
type FeishuNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewFeishuNotifier creates a new Feishu notifier.
// Priority: config file over environment variable; when neither is set
// notifications are disabled.
func NewFeishuNotifier() *FeishuNotifier {
	var webhookURL string
	if config.GlobalConfig != nil && config.GlobalConfig.Notification.FeishuWebhookURL != "" {
		webhookURL = config.GlobalConfig.Notification.FeishuWebhookURL
	} else {
		webhookURL = os.Getenv("FEISHU_WEBHOOK_URL")
	}

	if webhookURL == "" {
		logger.Warn("Feishu webhook URL not configured, health notifications disabled")
	}

	return &FeishuNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendHealthAlert pushes a degraded/critical health snapshot to Feishu
func (f *FeishuNotifier) SendHealthAlert(ctx context.Context, snapshot *health.SystemHealth) error {
	if f.webhookURL == "" {
		return nil
	}

	message := f.buildHealthMessage(snapshot)

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal Feishu message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Feishu notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Feishu webhook returned status %d", resp.StatusCode)
	}

	logger.InfoCtx(ctx, "health alert sent to Feishu, status: %s", snapshot.Status)
	return nil
}

func (f *FeishuNotifier) buildHealthMessage(snapshot *health.SystemHealth) map[string]interface{} {
	template := "orange"
	if snapshot.Status == health.StatusCritical {
		template = "red"
	}

	lines := fmt.Sprintf("**Overall:** %s\n**Database:** %s\n**Queue:** %s\n**Workers:** %s\n**Accounts:** %s\n**Alerts:** %d",
		snapshot.Status,
		snapshot.Checks.Database.Status,
		snapshot.Checks.Redis.Status,
		snapshot.Checks.Workers.Status,
		snapshot.Checks.Accounts.Status,
		len(snapshot.Alerts),
	)

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": fmt.Sprintf("Warmup health %s", snapshot.Status),
				},
				"template": template,
			},
			"elements": []map[string]interface{}{
				{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "lark_md",
						"content": lines,
					},
				},
				{
					"tag": "note",
					"elements": []map[string]interface{}{
						{
							"tag":     "plain_text",
							"content": snapshot.Timestamp.Format(time.RFC3339),
						},
					},
				},
			},
		},
	}
}
