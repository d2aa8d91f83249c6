package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlite 不支持 text[] / jsonb，测试用结构体只保证列名一致

type testBrand struct {
	ID                 int64 `gorm:"primary_key;AUTO_INCREMENT"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
	Name               string
	ShopifyShop        string
	ShopifyAccessToken string
	Status             int `gorm:"default:1"`
	ShippingSyncedAt   *time.Time
}

func (testBrand) TableName() string { return "brands" }

type testShippingZone struct {
	ID            int64 `gorm:"primary_key;AUTO_INCREMENT"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
	BrandID       int64          `gorm:"uniqueIndex:idx_zone_brand_shopify,priority:1"`
	Name          string
	Countries     string
	Provinces     string
	ShopifyZoneID string `gorm:"uniqueIndex:idx_zone_brand_shopify,priority:2"`
}

func (testShippingZone) TableName() string { return "shipping_zones" }

type testShippingRate struct {
	ID             int64 `gorm:"primary_key;AUTO_INCREMENT"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
	ZoneID         int64          `gorm:"uniqueIndex:idx_rate_zone_shopify,priority:1"`
	Name           string
	Price          string `gorm:"type:text;default:'0'"`
	MinOrderAmount *string
	MaxOrderAmount *string
	Conditions     string
	ShopifyRateID  string `gorm:"uniqueIndex:idx_rate_zone_shopify,priority:2"`
}

func (testShippingRate) TableName() string { return "shipping_rates" }

func setupShippingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	// :memory: 每个连接是独立的库
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&testBrand{}, &testShippingZone{}, &testShippingRate{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}
