package service

import (
	"context"
	"sync"
)

// BrandLocker 同一品牌的同步串行执行，不同品牌互不影响
type BrandLocker struct {
	locks sync.Map // brandID -> *brandLockEntry
}

type brandLockEntry struct {
	ch chan struct{} // 容量 1，写入即持有
}

func NewBrandLocker() *BrandLocker {
	return &BrandLocker{}
}

// Lock 等待获取品牌锁，ctx 取消时放弃
// 返回的 unlock 只能调用一次
func (l *BrandLocker) Lock(ctx context.Context, brandID int64) (unlock func(), err error) {
	actual, _ := l.locks.LoadOrStore(brandID, &brandLockEntry{ch: make(chan struct{}, 1)})
	entry := actual.(*brandLockEntry)

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-entry.ch })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryLock 不等待，品牌正在同步时返回 false
func (l *BrandLocker) TryLock(brandID int64) (unlock func(), ok bool) {
	actual, _ := l.locks.LoadOrStore(brandID, &brandLockEntry{ch: make(chan struct{}, 1)})
	entry := actual.(*brandLockEntry)

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-entry.ch })
		}, true
	default:
		return nil, false
	}
}
