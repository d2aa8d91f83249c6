package task

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/api/dto"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/model"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/service"
)

// ==================== ShippingSyncTask 运费定时同步 ====================

// BrandLister 列出已保存 Shopify 凭证的品牌
type BrandLister interface {
	ListWithShopifyCredentials(ctx context.Context) ([]model.Brand, error)
}

// BrandShippingSyncer 按品牌已保存的凭证同步运费
type BrandShippingSyncer interface {
	SyncBrand(ctx context.Context, brand *model.Brand) (*dto.ShippingSyncReport, error)
}

// RunResult 一轮同步的汇总
type RunResult struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// ShippingSyncTask 定时重新同步所有品牌的运费配置
// 品牌之间并发执行；同一品牌的多次同步由 service 层串行化
type ShippingSyncTask struct {
	brands BrandLister
	syncer BrandShippingSyncer
	cron   *cron.Cron
	logger *zap.Logger

	spec             string
	concurrencyLimit int
	sleepTime        time.Duration
	runTimeout       time.Duration
	initialDelay     time.Duration

	running atomic.Bool
}

// NewShippingSyncTask 创建运费同步任务
func NewShippingSyncTask(brands BrandLister, syncer BrandShippingSyncer, logger *zap.Logger) *ShippingSyncTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShippingSyncTask{
		brands:           brands,
		syncer:           syncer,
		cron:             cron.New(cron.WithSeconds()),
		logger:           logger,
		spec:             "0 0 */6 * * *",
		concurrencyLimit: 5,
		sleepTime:        200 * time.Millisecond,
		runTimeout:       30 * time.Minute,
		initialDelay:     30 * time.Second,
	}
}

// SetSchedule 设置 cron 表达式（带秒）
func (t *ShippingSyncTask) SetSchedule(spec string) {
	if spec != "" {
		t.spec = spec
	}
}

// SetConcurrency 设置并发参数
func (t *ShippingSyncTask) SetConcurrency(limit int, sleep time.Duration) {
	if limit > 0 {
		t.concurrencyLimit = limit
	}
	t.sleepTime = sleep
}

// SetRunTimeout 单轮同步的超时
func (t *ShippingSyncTask) SetRunTimeout(d time.Duration) {
	if d > 0 {
		t.runTimeout = d
	}
}

// SetInitialDelay 启动后首次执行的延迟，0 表示不做首次执行
func (t *ShippingSyncTask) SetInitialDelay(d time.Duration) {
	t.initialDelay = d
}

// Start 启动定时任务
func (t *ShippingSyncTask) Start() error {
	if t.initialDelay > 0 {
		go func() {
			time.Sleep(t.initialDelay)
			t.logger.Info("[ShippingSyncTask] 执行首次运费同步...")
			t.runWithTimeout()
		}()
	}

	if _, err := t.cron.AddFunc(t.spec, t.runWithTimeout); err != nil {
		t.logger.Error("[ShippingSyncTask] 定时任务启动失败", zap.String("spec", t.spec), zap.Error(err))
		return err
	}

	t.cron.Start()
	t.logger.Info("[ShippingSyncTask] 已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止任务，等待正在执行的一轮结束
func (t *ShippingSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("[ShippingSyncTask] 已停止")
}

func (t *ShippingSyncTask) runWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), t.runTimeout)
	defer cancel()
	t.SyncAll(ctx)
}

// SyncAll 同步所有品牌；上一轮未结束时直接跳过
func (t *ShippingSyncTask) SyncAll(ctx context.Context) RunResult {
	if !t.running.CompareAndSwap(false, true) {
		t.logger.Warn("[ShippingSyncTask] 上一轮尚未结束，跳过本轮")
		return RunResult{}
	}
	defer t.running.Store(false)

	brands, err := t.brands.ListWithShopifyCredentials(ctx)
	if err != nil {
		t.logger.Error("[ShippingSyncTask] 获取品牌列表失败", zap.Error(err))
		return RunResult{}
	}
	if len(brands) == 0 {
		t.logger.Info("[ShippingSyncTask] 无需要同步的品牌")
		return RunResult{}
	}

	t.logger.Info("[ShippingSyncTask] 开始同步", zap.Int("brands", len(brands)))

	var success, failed, skipped int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrencyLimit)

	for i := range brands {
		brand := &brands[i]
		if gctx.Err() != nil {
			t.logger.Warn("[ShippingSyncTask] 任务超时停止")
			break
		}

		g.Go(func() error {
			// 单个品牌失败不影响其他品牌，这里不返回错误
			report, err := t.syncer.SyncBrand(gctx, brand)
			if errors.Is(err, service.ErrSyncInProgress) {
				atomic.AddInt64(&skipped, 1)
				t.logger.Info("[ShippingSyncTask] 品牌正在同步，本轮跳过", zap.Int64("brand_id", brand.ID))
				return nil
			}
			if err != nil {
				atomic.AddInt64(&failed, 1)
				t.logger.Warn("[ShippingSyncTask] 品牌同步失败",
					zap.Int64("brand_id", brand.ID), zap.String("brand", brand.Name), zap.Error(err))
				return nil
			}
			atomic.AddInt64(&success, 1)
			t.logger.Debug("[ShippingSyncTask] 品牌同步完成",
				zap.Int64("brand_id", brand.ID),
				zap.Int("zones", report.ZonesSynced()),
				zap.Int("rates", report.RatesSynced()),
				zap.Int("failures", len(report.Failures)))
			return nil
		})

		if t.sleepTime > 0 {
			select {
			case <-time.After(t.sleepTime):
			case <-gctx.Done():
			}
		}
	}
	_ = g.Wait()

	result := RunResult{Total: len(brands), Success: int(success), Failed: int(failed), Skipped: int(skipped)}
	t.logger.Info("[ShippingSyncTask] 同步完成",
		zap.Int("success", result.Success), zap.Int("failed", result.Failed), zap.Int("skipped", result.Skipped))
	return result
}

// SyncAllNow 立即在后台执行一轮
func (t *ShippingSyncTask) SyncAllNow() {
	go t.runWithTimeout()
}
