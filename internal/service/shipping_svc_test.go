package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/api/dto"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/model"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/repository"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/net"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

// ==================== 测试数据 ====================

const australiaProfiles = `{"data":{"deliveryProfiles":{"edges":[{"node":{
  "id":"gid://shopify/DeliveryProfile/1","name":"General profile","default":true,
  "profileLocationGroups":[{"locationGroup":{"id":"gid://shopify/DeliveryLocationGroup/1"},
    "locationGroupZones":{"edges":[{"node":{
      "zone":{"id":"gid://shopify/DeliveryZone/AU","name":"Australia",
        "countries":[{"id":"c1","name":"Australia","code":{"countryCode":"AU","restOfWorld":false},"provinces":[{"id":"p1","name":"Victoria","code":"VIC"}]}]},
      "methodDefinitions":{"edges":[
        {"node":{"id":"gid://shopify/DeliveryMethodDefinition/FREE","name":"Free Standard Shipping","active":true,
          "rateProvider":{"__typename":"DeliveryRateDefinition","id":"r1","price":{"amount":"8.00","currencyCode":"AUD"}},
          "methodConditions":[]}},
        {"node":{"id":"gid://shopify/DeliveryMethodDefinition/EXP","name":"Express","active":true,
          "rateProvider":{"__typename":"DeliveryRateDefinition","id":"r2","price":{"amount":"12.00","currencyCode":"AUD"}},
          "methodConditions":[]}}
      ]}
    }}]}
  }]
}}]}}}`

// fakeShopify 只实现两条 GraphQL 查询
type fakeShopify struct {
	legacy   bool
	profiles string
	errors   string
	calls    int32
}

func (f *fakeShopify) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(net.HeaderShopifyAccessToken))

		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if f.errors != "" {
			_, _ = w.Write([]byte(`{"errors":` + f.errors + `}`))
			return
		}

		switch {
		case strings.Contains(body.Query, "deliverySettings"):
			legacy := "false"
			if f.legacy {
				legacy = "true"
			}
			_, _ = w.Write([]byte(`{"data":{"deliverySettings":{"legacyModeProfiles":` + legacy + `}}}`))
		case strings.Contains(body.Query, "deliveryProfiles"):
			_, _ = w.Write([]byte(f.profiles))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

type syncFixture struct {
	db     *gorm.DB
	svc    *ShippingSyncService
	brands repository.BrandRepository
	zones  repository.ShippingZoneRepository
	rates  repository.ShippingRateRepository
	shop   string
	fake   *fakeShopify
}

func newSyncFixture(t *testing.T, fake *fakeShopify) *syncFixture {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	db := setupShippingTestDB(t)
	f := &syncFixture{
		db:     db,
		brands: repository.NewBrandRepository(db),
		zones:  repository.NewShippingZoneRepository(db),
		rates:  repository.NewShippingRateRepository(db),
		shop:   strings.TrimPrefix(srv.URL, "http://"),
		fake:   fake,
	}
	dispatcher := net.NewDispatcher(net.Options{MinInterval: time.Millisecond, Timeout: 5 * time.Second}, nil)
	f.svc = NewShippingSyncService(
		f.brands, f.zones, f.rates, dispatcher,
		shopify.Config{APIVersion: "2024-01", Scheme: "http"},
		nil, nil, nil,
	)
	return f
}

func (f *syncFixture) createBrand(t *testing.T) *model.Brand {
	t.Helper()
	brand := &model.Brand{Name: "Koala Co", Status: model.BrandStatusActive}
	require.NoError(t, f.brands.Create(context.Background(), brand))
	return brand
}

func (f *syncFixture) req(brandID int64) dto.ShippingSyncReq {
	return dto.ShippingSyncReq{ShopifyCredentialsReq: dto.ShopifyCredentialsReq{
		BrandID: brandID, AccessToken: "shpat_test", Shop: f.shop,
	}}
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

// ==================== 同步测试 ====================

func TestSyncShipping_Australia(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{legacy: true, profiles: australiaProfiles})
	brand := f.createBrand(t)

	report, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	require.NoError(t, err)

	assert.True(t, report.LegacyMode)
	assert.Equal(t, 1, report.ZonesCreated)
	assert.Equal(t, 2, report.RatesCreated)
	assert.Empty(t, report.Failures)

	assert.Equal(t, int64(1), countRows(t, f.db, "shipping_zones"))
	assert.Equal(t, int64(2), countRows(t, f.db, "shipping_rates"))

	zone, err := f.zones.GetByShopifyZoneID(context.Background(), brand.ID, "gid://shopify/DeliveryZone/AU")
	require.NoError(t, err)
	assert.Equal(t, "Australia", zone.Name)
	assert.ElementsMatch(t, []string{"AU"}, []string(zone.Countries))
	assert.ElementsMatch(t, []string{"VIC"}, []string(zone.Provinces))

	rates, err := f.rates.ListByZoneID(context.Background(), zone.ID)
	require.NoError(t, err)
	require.Len(t, rates, 2)

	byName := map[string]model.ShippingRate{}
	for _, r := range rates {
		byName[r.Name] = r
	}
	assert.True(t, byName["Free Standard Shipping"].Price.IsZero())
	assert.True(t, decimal.RequireFromString("12.00").Equal(byName["Express"].Price))
}

func TestSyncShipping_ResyncIsIdempotent(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: australiaProfiles})
	brand := f.createBrand(t)
	ctx := context.Background()

	_, err := f.svc.SyncShipping(ctx, f.req(brand.ID))
	require.NoError(t, err)
	zones1 := countRows(t, f.db, "shipping_zones")
	rates1 := countRows(t, f.db, "shipping_rates")
	zone1, err := f.zones.GetByShopifyZoneID(ctx, brand.ID, "gid://shopify/DeliveryZone/AU")
	require.NoError(t, err)

	report, err := f.svc.SyncShipping(ctx, f.req(brand.ID))
	require.NoError(t, err)

	assert.Equal(t, zones1, countRows(t, f.db, "shipping_zones"))
	assert.Equal(t, rates1, countRows(t, f.db, "shipping_rates"))
	assert.Equal(t, 0, report.ZonesCreated)
	assert.Equal(t, 1, report.ZonesUpdated)
	assert.Equal(t, 0, report.RatesCreated)
	assert.Equal(t, 2, report.RatesUpdated)

	zone2, err := f.zones.GetByShopifyZoneID(ctx, brand.ID, "gid://shopify/DeliveryZone/AU")
	require.NoError(t, err)
	assert.Equal(t, zone1.ID, zone2.ID)
}

func TestSyncShipping_ProviderPriceExact(t *testing.T) {
	profiles := strings.Replace(australiaProfiles, `"amount":"12.00"`, `"amount":"15.00"`, 1)
	f := newSyncFixture(t, &fakeShopify{profiles: profiles})
	brand := f.createBrand(t)

	_, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	require.NoError(t, err)

	zone, err := f.zones.GetByShopifyZoneID(context.Background(), brand.ID, "gid://shopify/DeliveryZone/AU")
	require.NoError(t, err)
	rate, err := f.rates.GetByShopifyRateID(context.Background(), zone.ID, "gid://shopify/DeliveryMethodDefinition/EXP")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15.00").Equal(rate.Price))
}

func TestSyncShipping_StampsBrand(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: australiaProfiles})
	brand := f.createBrand(t)

	_, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	require.NoError(t, err)

	got, err := f.brands.GetByID(context.Background(), brand.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ShippingSyncedAt)
	assert.Equal(t, f.shop, got.ShopifyShop)
	assert.Equal(t, "shpat_test", got.ShopifyAccessToken)

	// 已保存凭证后可以直接按品牌同步
	report, err := f.svc.SyncBrand(context.Background(), got)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ZonesUpdated)
}

func TestSyncBrand_SkipsBrandAlreadySyncing(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: australiaProfiles})
	brand := f.createBrand(t)
	brand.ShopifyShop = f.shop
	brand.ShopifyAccessToken = "shpat_test"

	// 模拟手动同步正在进行
	unlock, err := f.svc.locker.Lock(context.Background(), brand.ID)
	require.NoError(t, err)

	_, err = f.svc.SyncBrand(context.Background(), brand)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Zero(t, atomic.LoadInt32(&f.fake.calls))
	assert.Zero(t, countRows(t, f.db, "shipping_zones"))

	unlock()
	report, err := f.svc.SyncBrand(context.Background(), brand)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ZonesCreated)
}

func TestSyncShipping_Validation(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: australiaProfiles})

	_, err := f.svc.SyncShipping(context.Background(), dto.ShippingSyncReq{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "brandId")

	req := f.req(1)
	req.AccessToken = " "
	_, err = f.svc.SyncShipping(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.fake.calls))
}

func TestSyncShipping_BrandNotFound(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: australiaProfiles})

	_, err := f.svc.SyncShipping(context.Background(), f.req(404))
	assert.ErrorIs(t, err, ErrBrandNotFound)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.fake.calls))
}

func TestSyncShipping_GraphQLError(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{errors: `[{"message":"Access denied"}]`})
	brand := f.createBrand(t)

	_, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	var gqlErr *shopify.GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	assert.Equal(t, int64(0), countRows(t, f.db, "shipping_zones"))
}

// failingRateRepo 指定的 shopify_rate_id 写入失败
type failingRateRepo struct {
	repository.ShippingRateRepository
	failID string
}

func (r *failingRateRepo) Upsert(ctx context.Context, rate *model.ShippingRate) (bool, error) {
	if rate.ShopifyRateID == r.failID {
		return false, errors.New("deadlock detected")
	}
	return r.ShippingRateRepository.Upsert(ctx, rate)
}

func TestSyncShipping_RecordFailureDoesNotAbort(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: australiaProfiles})
	brand := f.createBrand(t)

	f.svc.rateRepo = &failingRateRepo{
		ShippingRateRepository: f.rates,
		failID:                 "gid://shopify/DeliveryMethodDefinition/FREE",
	}

	report, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, SyncFailureRate, report.Failures[0].Kind)
	assert.Equal(t, "gid://shopify/DeliveryMethodDefinition/FREE", report.Failures[0].ExternalID)
	assert.Equal(t, 1, report.RatesCreated)
	assert.Equal(t, int64(1), countRows(t, f.db, "shipping_rates"))
}

const twoZoneProfiles = `{"data":{"deliveryProfiles":{"edges":[{"node":{
  "id":"gid://shopify/DeliveryProfile/1","name":"General profile","default":true,
  "profileLocationGroups":[{"locationGroup":{"id":"gid://shopify/DeliveryLocationGroup/1"},
    "locationGroupZones":{"edges":[
      {"node":{
        "zone":{"id":"gid://shopify/DeliveryZone/AU","name":"Australia","countries":[{"code":{"countryCode":"AU"},"provinces":[]}]},
        "methodDefinitions":{"edges":[
          {"node":{"id":"gid://shopify/DeliveryMethodDefinition/AU-STD","name":"Standard","active":true,
            "rateProvider":{"__typename":"DeliveryRateDefinition","id":"r1","price":{"amount":"8.00","currencyCode":"AUD"}},
            "methodConditions":[]}}
        ]}
      }},
      {"node":{
        "zone":{"id":"gid://shopify/DeliveryZone/NZ","name":"New Zealand","countries":[{"code":{"countryCode":"NZ"},"provinces":[]}]},
        "methodDefinitions":{"edges":[
          {"node":{"id":"gid://shopify/DeliveryMethodDefinition/NZ-STD","name":"Standard","active":true,
            "rateProvider":{"__typename":"DeliveryRateDefinition","id":"r2","price":{"amount":"10.00","currencyCode":"NZD"}},
            "methodConditions":[]}},
          {"node":{"id":"gid://shopify/DeliveryMethodDefinition/NZ-BAD","name":"Broken","active":true,
            "rateProvider":{"__typename":"DeliveryRateDefinition","id":"r3","price":{"amount":"N/A","currencyCode":"NZD"}},
            "methodConditions":[]}}
        ]}
      }}
    ]}
  }]
}}]}}}`

// failingZoneRepo 指定的 shopify_zone_id 写入失败
type failingZoneRepo struct {
	repository.ShippingZoneRepository
	failID string
}

func (r *failingZoneRepo) Upsert(ctx context.Context, zone *model.ShippingZone) (bool, error) {
	if zone.ShopifyZoneID == r.failID {
		return false, errors.New("connection reset")
	}
	return r.ShippingZoneRepository.Upsert(ctx, zone)
}

// recordingRateRepo 记录尝试写入的 shopify_rate_id
type recordingRateRepo struct {
	repository.ShippingRateRepository
	attempted []string
}

func (r *recordingRateRepo) Upsert(ctx context.Context, rate *model.ShippingRate) (bool, error) {
	r.attempted = append(r.attempted, rate.ShopifyRateID)
	return r.ShippingRateRepository.Upsert(ctx, rate)
}

func TestSyncShipping_ZoneFailureSkipsItsRates(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: twoZoneProfiles})
	brand := f.createBrand(t)

	f.svc.zoneRepo = &failingZoneRepo{
		ShippingZoneRepository: f.zones,
		failID:                 "gid://shopify/DeliveryZone/AU",
	}
	rates := &recordingRateRepo{ShippingRateRepository: f.rates}
	f.svc.rateRepo = rates

	report, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, SyncFailureZone, report.Failures[0].Kind)
	assert.Equal(t, "gid://shopify/DeliveryZone/AU", report.Failures[0].ExternalID)

	// 失败区域下的运费不会被尝试写入
	assert.NotContains(t, rates.attempted, "gid://shopify/DeliveryMethodDefinition/AU-STD")

	assert.Equal(t, 1, report.ZonesCreated)
	assert.Equal(t, 1, report.RatesCreated)
	assert.Equal(t, int64(1), countRows(t, f.db, "shipping_zones"))
	assert.Equal(t, int64(1), countRows(t, f.db, "shipping_rates"))

	nz, err := f.zones.GetByShopifyZoneID(context.Background(), brand.ID, "gid://shopify/DeliveryZone/NZ")
	require.NoError(t, err)
	list, err := f.rates.ListByZoneID(context.Background(), nz.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "gid://shopify/DeliveryMethodDefinition/NZ-STD", list[0].ShopifyRateID)
}

func TestSyncShipping_MalformedRateIsSkipped(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: twoZoneProfiles})
	brand := f.createBrand(t)

	report, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	require.NoError(t, err)

	assert.Equal(t, 2, report.ZonesCreated)
	assert.Equal(t, 2, report.RatesCreated)
	assert.Empty(t, report.Failures)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, shopify.SkipLevelMethod, report.Skipped[0].Level)
	assert.Equal(t, "gid://shopify/DeliveryMethodDefinition/NZ-BAD", report.Skipped[0].ID)
}

func TestGetBrandZones(t *testing.T) {
	f := newSyncFixture(t, &fakeShopify{profiles: australiaProfiles})
	brand := f.createBrand(t)

	_, err := f.svc.SyncShipping(context.Background(), f.req(brand.ID))
	require.NoError(t, err)

	resp, err := f.svc.GetBrandZones(context.Background(), brand.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "Australia", resp.List[0].Name)
	assert.Len(t, resp.List[0].Rates, 2)
	assert.NotNil(t, resp.ShippingSyncedAt)

	_, err = f.svc.GetBrandZones(context.Background(), 999)
	assert.ErrorIs(t, err, ErrBrandNotFound)
}
