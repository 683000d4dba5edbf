// Package webhook forwards inventory changes and capacity alerts to an
// external HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/ponplan/internal/version"
	"github.com/HerbHall/ponplan/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
)

// Topics forwarded to the webhook. Duplicated from the publishers so this
// package imports neither.
const (
	TopicDeviceCreated     = "inventory.device.created"
	TopicDeviceDeleted     = "inventory.device.deleted"
	TopicCapacityExhausted = "planner.capacity.exhausted"
)

var deliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ponplan_webhook_deliveries_total",
		Help: "Webhook delivery attempts by outcome.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(deliveriesTotal)
}

// Config holds the webhook plugin configuration under plugins.webhook.
type Config struct {
	URL     string
	Timeout time.Duration
	Enabled bool
	// AlertsOnly limits delivery to capacity alerts.
	AlertsOnly bool
}

// Module implements the webhook notifier plugin.
type Module struct {
	logger *zap.Logger
	cfg    Config
	client *http.Client
}

// New creates a new webhook plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "webhook",
		Version:     "0.1.0",
		Description: "Posts inventory changes and capacity alerts to a configurable URL",
		Roles:       []string{"notification"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = Config{
		Timeout: 10 * time.Second,
		Enabled: true,
	}
	if deps.Config != nil {
		if u := deps.Config.GetString("url"); u != "" {
			m.cfg.URL = u
		}
		if d := deps.Config.GetDuration("timeout"); d > 0 {
			m.cfg.Timeout = d
		}
		if deps.Config.IsSet("enabled") {
			m.cfg.Enabled = deps.Config.GetBool("enabled")
		}
		m.cfg.AlertsOnly = deps.Config.GetBool("alerts_only")
	}

	m.client = &http.Client{Timeout: m.cfg.Timeout}

	if m.cfg.Enabled && m.cfg.URL == "" {
		m.logger.Info("webhook URL not configured; notifications are off")
	}
	m.logger.Info("webhook module initialized",
		zap.String("url", m.cfg.URL),
		zap.Duration("timeout", m.cfg.Timeout),
		zap.Bool("enabled", m.cfg.Enabled),
		zap.Bool("alerts_only", m.cfg.AlertsOnly),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("webhook module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("webhook module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if !m.active() {
		return plugin.HealthStatus{Status: "healthy", Message: "notifications off"}
	}
	return plugin.HealthStatus{Status: "healthy", Details: map[string]string{"url": m.cfg.URL}}
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	subs := []plugin.Subscription{
		{Topic: TopicCapacityExhausted, Handler: m.handleEvent},
	}
	if !m.cfg.AlertsOnly {
		subs = append(subs,
			plugin.Subscription{Topic: TopicDeviceCreated, Handler: m.handleEvent},
			plugin.Subscription{Topic: TopicDeviceDeleted, Handler: m.handleEvent},
		)
	}
	return subs
}

// Payload is the JSON body sent to the webhook URL.
type Payload struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

func (m *Module) active() bool {
	return m.cfg.Enabled && m.cfg.URL != ""
}

func (m *Module) handleEvent(ctx context.Context, event plugin.Event) {
	if !m.active() {
		return
	}

	body, err := json.Marshal(Payload{
		Event:     event.Topic,
		Source:    event.Source,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Data:      event.Payload,
	})
	if err != nil {
		m.logger.Error("failed to marshal webhook payload",
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
		deliveriesTotal.WithLabelValues("error").Inc()
		return
	}

	m.send(ctx, body, event.Topic)
}

func (m *Module) send(ctx context.Context, body []byte, topic string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		m.logger.Error("failed to create webhook request", zap.Error(err))
		deliveriesTotal.WithLabelValues("error").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ponplan-webhook/"+version.Short())

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn("webhook delivery failed",
			zap.String("url", m.cfg.URL),
			zap.String("topic", topic),
			zap.Error(err),
		)
		deliveriesTotal.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		m.logger.Warn("webhook endpoint returned error",
			zap.String("url", m.cfg.URL),
			zap.String("topic", topic),
			zap.Int("status_code", resp.StatusCode),
		)
		deliveriesTotal.WithLabelValues("rejected").Inc()
		return
	}

	deliveriesTotal.WithLabelValues("delivered").Inc()
	m.logger.Debug("webhook delivered",
		zap.String("topic", topic),
		zap.Int("status_code", resp.StatusCode),
	)
}
