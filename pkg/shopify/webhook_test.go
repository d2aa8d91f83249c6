package shopify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	failTopics map[string]bool
	addresses  map[string]string
	nextID     int64
}

func (f *fakeRegistrar) CreateWebhook(ctx context.Context, topic, address string) (*Webhook, error) {
	if f.failTopics[topic] {
		return nil, errors.New("422 address already taken")
	}
	if f.addresses == nil {
		f.addresses = map[string]string{}
	}
	f.addresses[topic] = address
	f.nextID++
	return &Webhook{ID: f.nextID, Topic: topic, Address: address, Format: "json"}, nil
}

func TestWebhookProvisioner_OneFailureDoesNotBlockOthers(t *testing.T) {
	reg := &fakeRegistrar{failTopics: map[string]bool{"orders/create": true}}
	results := NewWebhookProvisioner(reg, nil, nil).ProvisionAll(context.Background(), "https://merchant.example.com/")

	require.Len(t, results, 8)

	success, failed := 0, 0
	for _, r := range results {
		if r.Success {
			success++
			assert.NotNil(t, r.Webhook)
			assert.Empty(t, r.Error)
		} else {
			failed++
			assert.Equal(t, "orders/create", r.Topic)
			assert.Contains(t, r.Error, "422")
		}
	}
	assert.Equal(t, 7, success)
	assert.Equal(t, 1, failed)
}

func TestWebhookProvisioner_Addresses(t *testing.T) {
	reg := &fakeRegistrar{}
	NewWebhookProvisioner(reg, nil, nil).ProvisionAll(context.Background(), "https://merchant.example.com/")

	assert.Equal(t, "https://merchant.example.com/webhooks/orders", reg.addresses["orders/paid"])
	assert.Equal(t, "https://merchant.example.com/webhooks/products", reg.addresses["products/delete"])
	assert.Equal(t, "https://merchant.example.com/webhooks/inventory", reg.addresses["inventory_levels/update"])
}

func TestWebhookProvisioner_CustomTopics(t *testing.T) {
	reg := &fakeRegistrar{}
	topics := []WebhookTopic{{Topic: "app/uninstalled", Path: "/webhooks/app"}}
	results := NewWebhookProvisioner(reg, topics, nil).ProvisionAll(context.Background(), "https://x.io")

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "https://x.io/webhooks/app", reg.addresses["app/uninstalled"])
}
