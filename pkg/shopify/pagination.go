package shopify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	// DefaultPageSize REST 列表默认页大小
	DefaultPageSize = 50
	// DefaultMaxPages 翻页上限，防止上游永不结束
	DefaultMaxPages = 10000
)

// ErrPageLimitReached 达到翻页上限
var ErrPageLimitReached = errors.New("已达到最大翻页数")

// PageFunc 拉取 since_id 之后的一页
type PageFunc[T any] func(ctx context.Context, sinceID int64, limit int) ([]T, error)

// Paginator 基于 since_id 游标的全量列表拉取
type Paginator[T any] struct {
	fetch    PageFunc[T]
	idOf     func(T) int64
	maxPages int
	logger   *zap.Logger
}

// NewPaginator 创建分页器；idOf 返回条目的数字 id，作为下一页的 since_id
func NewPaginator[T any](fetch PageFunc[T], idOf func(T) int64, logger *zap.Logger) *Paginator[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paginator[T]{
		fetch:    fetch,
		idOf:     idOf,
		maxPages: DefaultMaxPages,
		logger:   logger,
	}
}

// SetMaxPages 设置翻页上限
func (p *Paginator[T]) SetMaxPages(n int) {
	if n > 0 {
		p.maxPages = n
	}
}

// FetchAll 拉取全部条目
// 某一页失败时记录错误并停止翻页，已拉取的数据照常返回
func (p *Paginator[T]) FetchAll(ctx context.Context, pageSize int) ([]T, []error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var (
		items   []T
		errs    []error
		sinceID int64
	)

	for page := 1; ; page++ {
		if page > p.maxPages {
			p.logger.Warn("[Paginator] 达到翻页上限，停止拉取", zap.Int("max_pages", p.maxPages))
			errs = append(errs, ErrPageLimitReached)
			break
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		batch, err := p.fetch(ctx, sinceID, pageSize)
		if err != nil {
			p.logger.Warn("[Paginator] 拉取分页失败",
				zap.Int("page", page), zap.Int64("since_id", sinceID), zap.Error(err))
			errs = append(errs, fmt.Errorf("第 %d 页 (since_id=%d): %w", page, sinceID, err))
			break
		}

		items = append(items, batch...)
		if len(batch) == 0 || len(batch) < pageSize {
			break
		}
		sinceID = p.idOf(batch[len(batch)-1])
	}

	return items, errs
}
