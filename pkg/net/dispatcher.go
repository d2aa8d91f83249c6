package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options 调度器参数
type Options struct {
	// MinInterval 同一品牌两次请求之间的最小间隔，500ms 即每秒最多 2 次
	MinInterval time.Duration
	// Timeout 单次 HTTP 调用超时
	Timeout time.Duration
	// MaxRetries429 收到 429 后的重试次数，0 表示只记录日志不重试
	MaxRetries429 int
	// RetryInitialInterval 429 退避的初始间隔（无 Retry-After 时使用）
	RetryInitialInterval time.Duration
	// Transport 底层 RoundTripper，为空时使用 http.DefaultTransport
	Transport http.RoundTripper
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		MinInterval:          500 * time.Millisecond,
		Timeout:              30 * time.Second,
		MaxRetries429:        0,
		RetryInitialInterval: time.Second,
	}
}

// Dispatcher 网络调度器
// 每个品牌（凭证上下文）拥有独立的限流器和 http.Client，不同品牌之间互不阻塞
type Dispatcher interface {
	// Send 发送请求；非 2xx 响应会转成 TransientError / PermanentError，网络层失败转成 NetworkError
	Send(ctx context.Context, brandID int64, req *http.Request) (*http.Response, error)
	// HTTPClient 返回该品牌共享限流器的 http.Client，供 resty 等上层客户端复用
	HTTPClient(brandID int64) *http.Client
}

type httpDispatcher struct {
	opts    Options
	logger  *zap.Logger
	clients sync.Map // brandID -> *brandClient
}

type brandClient struct {
	limiter *rate.Limiter
	client  *http.Client
}

var _ Dispatcher = (*httpDispatcher)(nil)

func NewDispatcher(opts Options, logger *zap.Logger) Dispatcher {
	def := DefaultOptions()
	if opts.MinInterval <= 0 {
		opts.MinInterval = def.MinInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = def.RetryInitialInterval
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpDispatcher{
		opts:   opts,
		logger: logger.Named("dispatcher"),
	}
}

func (d *httpDispatcher) HTTPClient(brandID int64) *http.Client {
	return d.clientFor(brandID).client
}

func (d *httpDispatcher) Send(ctx context.Context, brandID int64, req *http.Request) (*http.Response, error) {
	bc := d.clientFor(brandID)
	log := d.logger.With(zap.Int64("brand_id", brandID), zap.String("url", req.URL.Redacted()))

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.opts.RetryInitialInterval
	bo.MaxInterval = 30 * time.Second
	bo.Reset()

	for attempt := 0; ; attempt++ {
		r, err := rewind(ctx, req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := bc.client.Do(r)
		if err != nil {
			return nil, WrapTransportError(err)
		}

		checkErr := CheckResponse(resp)
		if checkErr == nil {
			return resp, nil
		}

		var transient *TransientError
		if !errors.As(checkErr, &transient) || transient.StatusCode != http.StatusTooManyRequests {
			return nil, checkErr
		}

		log.Warn("[Dispatcher] 触发 Shopify 限流 (429)", zap.Int("attempt", attempt+1))
		if attempt >= d.opts.MaxRetries429 {
			return nil, checkErr
		}

		wait := transient.RetryAfter
		if wait <= 0 {
			wait = bo.NextBackOff()
		}
		if wait == backoff.Stop {
			return nil, checkErr
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, &NetworkError{Err: ctx.Err()}
		}
	}
}

// clientFor 获取/创建品牌专属客户端
func (d *httpDispatcher) clientFor(brandID int64) *brandClient {
	if val, ok := d.clients.Load(brandID); ok {
		return val.(*brandClient)
	}

	limiter := rate.NewLimiter(rate.Every(d.opts.MinInterval), 1)
	bc := &brandClient{
		limiter: limiter,
		client: &http.Client{
			Transport: &throttledTransport{limiter: limiter, base: d.opts.Transport},
			Timeout:   d.opts.Timeout,
		},
	}

	// LoadOrStore 防止并发重复创建
	actual, _ := d.clients.LoadOrStore(brandID, bc)
	return actual.(*brandClient)
}

// rewind 重试时重新生成请求体
func rewind(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	r := req.WithContext(ctx)
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("请求体不可重放，无法重试")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r = r.Clone(ctx)
	r.Body = body
	return r, nil
}

// throttledTransport 每次真正发出请求前等待限流器放行
type throttledTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// DrainAndClose 读尽并关闭响应体，保证连接可复用
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
