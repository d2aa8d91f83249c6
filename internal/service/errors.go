package service

import "errors"

var (
	// ErrValidation 请求参数缺失或非法
	ErrValidation = errors.New("参数校验失败")
	// ErrBrandNotFound 品牌不存在
	ErrBrandNotFound = errors.New("品牌不存在")
	// ErrSyncInProgress 该品牌已有同步在执行
	ErrSyncInProgress = errors.New("品牌正在同步中")
)
