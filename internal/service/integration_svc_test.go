package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/api/dto"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/model"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/repository"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/net"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

func newIntegrationFixture(t *testing.T, handler http.HandlerFunc, opts IntegrationOptions) (*IntegrationService, dto.ShopifyCredentialsReq) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db := setupShippingTestDB(t)
	brands := repository.NewBrandRepository(db)
	brand := &model.Brand{Name: "Koala Co", Status: model.BrandStatusActive}
	require.NoError(t, brands.Create(context.Background(), brand))

	dispatcher := net.NewDispatcher(net.Options{MinInterval: time.Millisecond, Timeout: 5 * time.Second}, nil)
	svc := NewIntegrationService(brands, dispatcher, shopify.Config{APIVersion: "2024-01", Scheme: "http"}, opts, nil)

	return svc, dto.ShopifyCredentialsReq{
		BrandID:     brand.ID,
		AccessToken: "shpat_test",
		Shop:        strings.TrimPrefix(srv.URL, "http://"),
	}
}

func TestSetupWebhooks_PartialFailure(t *testing.T) {
	var nextID int64
	handler := func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Webhook struct {
				Topic   string `json:"topic"`
				Address string `json:"address"`
			} `json:"webhook"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if body.Webhook.Topic == "orders/create" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":{"address":["for this topic has already been taken"]}}`))
			return
		}
		nextID++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"webhook":{"id":` + strconv.FormatInt(nextID, 10) +
			`,"topic":"` + body.Webhook.Topic + `","address":"` + body.Webhook.Address + `","format":"json"}}`))
	}

	svc, creds := newIntegrationFixture(t, handler, IntegrationOptions{WebhookBaseURL: "https://api.shopscope.app"})

	resp, err := svc.SetupWebhooks(context.Background(), creds)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.Len(t, resp.Results, 8)

	ok := 0
	for _, r := range resp.Results {
		if r.Success {
			ok++
			assert.True(t, strings.HasPrefix(r.Webhook.Address, "https://api.shopscope.app/webhooks/"))
		}
	}
	assert.Equal(t, 7, ok)
}

func TestSetupWebhooks_MissingBaseURL(t *testing.T) {
	svc, creds := newIntegrationFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("不应请求 Shopify")
	}, IntegrationOptions{})

	_, err := svc.SetupWebhooks(context.Background(), creds)
	assert.ErrorIs(t, err, ErrWebhookBaseURLMissing)
}

func TestSetupWebhooks_BrandNotFound(t *testing.T) {
	svc, creds := newIntegrationFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("不应请求 Shopify")
	}, IntegrationOptions{WebhookBaseURL: "https://api.shopscope.app"})

	creds.BrandID = 999
	_, err := svc.SetupWebhooks(context.Background(), creds)
	assert.ErrorIs(t, err, ErrBrandNotFound)
}

func TestListProducts_PagesUntilShortPage(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/products.json", r.URL.Path)
		sinceID, _ := strconv.ParseInt(r.URL.Query().Get("since_id"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		// 共 5 个商品
		var items []string
		for id := sinceID + 1; id <= 5 && len(items) < limit; id++ {
			items = append(items, `{"id":`+strconv.FormatInt(id, 10)+`,"title":"P`+strconv.FormatInt(id, 10)+`"}`)
		}
		_, _ = w.Write([]byte(`{"products":[` + strings.Join(items, ",") + `]}`))
	}

	svc, creds := newIntegrationFixture(t, handler, IntegrationOptions{})

	resp, err := svc.ListProducts(context.Background(), dto.ProductListReq{ShopifyCredentialsReq: creds, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Count)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, int64(5), resp.Items[4].ID)
}

func TestListProducts_PartialOnError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("since_id") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"products":[{"id":1},{"id":2}]}`))
	}

	svc, creds := newIntegrationFixture(t, handler, IntegrationOptions{})

	resp, err := svc.ListProducts(context.Background(), dto.ProductListReq{ShopifyCredentialsReq: creds, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "500")
}
