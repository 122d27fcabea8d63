package mirror

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// WebhookTarget POSTs each event as JSON to a configured endpoint.
type WebhookTarget struct {
	client *resty.Client
	url    string
}

func NewWebhookTarget(url string) *WebhookTarget {
	return &WebhookTarget{
		client: resty.New().SetTimeout(pushTimeout),
		url:    url,
	}
}

func (t *WebhookTarget) Name() string { return "webhook" }

func (t *WebhookTarget) Push(ctx context.Context, ev Event) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(ev).
		Post(t.url)
	if err != nil {
		return fmt.Errorf("post %s: %w", t.url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post %s: status %d", t.url, resp.StatusCode())
	}
	return nil
}
