package task

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ==================== TaskManager 业务同步任务管理器 ====================

// TaskManager 统一管理定时同步任务
type TaskManager struct {
	shippingTask *ShippingSyncTask
	logger       *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	BrandLister    BrandLister
	ShippingSyncer BrandShippingSyncer
	Logger         *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	ShippingEnabled     bool
	ShippingCronSpec    string
	ShippingConcurrency int
	ShippingRunTimeout  time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		ShippingEnabled:     true,
		ShippingCronSpec:    "0 0 */6 * * *",
		ShippingConcurrency: 5,
		ShippingRunTimeout:  30 * time.Minute,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tm := &TaskManager{logger: log}

	if cfg.ShippingEnabled && deps.ShippingSyncer != nil && deps.BrandLister != nil {
		tm.shippingTask = NewShippingSyncTask(deps.BrandLister, deps.ShippingSyncer, log)
		tm.shippingTask.SetSchedule(cfg.ShippingCronSpec)
		tm.shippingTask.SetConcurrency(cfg.ShippingConcurrency, 200*time.Millisecond)
		tm.shippingTask.SetRunTimeout(cfg.ShippingRunTimeout)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	tm.logger.Info("[TaskManager] 正在启动同步任务...")

	if tm.shippingTask != nil {
		if err := tm.shippingTask.Start(); err != nil {
			return err
		}
	}

	tm.logger.Info("[TaskManager] 同步任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	tm.logger.Info("[TaskManager] 正在停止同步任务...")

	if tm.shippingTask != nil {
		tm.shippingTask.Stop()
	}

	tm.logger.Info("[TaskManager] 同步任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerShippingSync 立即同步所有品牌运费（同步执行）
func (tm *TaskManager) TriggerShippingSync(ctx context.Context) (RunResult, error) {
	if tm.shippingTask == nil {
		return RunResult{}, ErrTaskDisabled
	}
	return tm.shippingTask.SyncAll(ctx), nil
}

// TriggerAllShippingSync 后台同步所有品牌运费
func (tm *TaskManager) TriggerAllShippingSync() {
	if tm.shippingTask != nil {
		tm.shippingTask.SyncAllNow()
	}
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"shipping": tm.shippingTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
