// Package notify is the user-facing notification side channel: the gateway
// and the CSV exporter report success/failure here instead of returning
// errors to the dashboard flow.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier receives user-visible success and error notices.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// LogNotifier writes notices to the process logger. It is the default when
// no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(message string) {
	n.logger.Info("notice", zap.String("message", message))
}

func (n *LogNotifier) Error(message string) {
	n.logger.Warn("notice", zap.String("message", message))
}

// ConfigFunc is called on each push to get the latest webhook settings.
type ConfigFunc func() (webhookURL, siteTitle string)

// WebhookService posts notices to a configured webhook endpoint.
type WebhookService struct {
	configFn   ConfigFunc
	httpClient *http.Client
}

// NewWebhook creates a webhook notifier. configFn is consulted on every
// push so settings can change without a restart.
func NewWebhook(configFn ConfigFunc) *WebhookService {
	return &WebhookService{
		configFn:   configFn,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Level string `json:"level"`
}

func (s *WebhookService) Success(message string) { s.push("success", message) }
func (s *WebhookService) Error(message string)   { s.push("error", message) }

func (s *WebhookService) push(level, body string) {
	url, siteTitle := s.configFn()
	if url == "" {
		return
	}

	payload := pushPayload{
		Title: fmt.Sprintf("[%s] analytics", siteTitle),
		Body:  body,
		Level: level,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}

	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return
	}
	defer resp.Body.Close()
}
