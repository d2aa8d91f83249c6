package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== SyncCooldown 手动同步冷却 ====================

// SyncCooldown 手动同步冷却器
// 防止频繁手动触发全量同步把各品牌的 Shopify 配额耗尽
type SyncCooldown struct {
	entries sync.Map // key -> *cooldownEntry
	now     func() time.Time
}

type cooldownEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewSyncCooldown 创建冷却器
func NewSyncCooldown() *SyncCooldown {
	return &SyncCooldown{now: time.Now}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时记录本次执行时间
// key: 冷却键，如 "global:shipping"
func (r *SyncCooldown) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.entries.LoadOrStore(key, &cooldownEntry{})
	entry := actual.(*cooldownEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	if !entry.lastTime.IsZero() {
		if elapsed := now.Sub(entry.lastTime); elapsed < interval {
			return CheckResult{RetryAfter: interval - elapsed}
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// SyncType 同步类型
type SyncType string

const (
	SyncTypeShipping SyncType = "shipping"
)

// GlobalSyncKey 全局同步 Key
func GlobalSyncKey(syncType SyncType) string {
	return fmt.Sprintf("global:%s", syncType)
}
