package net

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// 错误体最多读取 4KB，够看清 Shopify 的报错信息
const maxErrorBody = 4 << 10

// TransientError 可重试错误：429 / 5xx
type TransientError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // 仅 429 且带 Retry-After 时有值
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("上游暂时不可用 (状态码: %d): %s", e.StatusCode, e.Body)
}

// PermanentError 不可重试错误：除 429 外的 4xx
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("上游拒绝请求 (状态码: %d): %s", e.StatusCode, e.Body)
}

// NetworkError 网络层错误（连接失败、超时）
type NetworkError struct {
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("请求超时: %v", e.Err)
	}
	return fmt.Sprintf("网络错误: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// WrapTransportError 把 http.Client / resty 的底层错误包装成 NetworkError
func WrapTransportError(err error) error {
	if err == nil {
		return nil
	}
	var te interface{ Timeout() bool }
	return &NetworkError{Err: err, Timeout: errors.As(err, &te) && te.Timeout()}
}

// IsTransient 是否为可重试错误（网络错误也算）
func IsTransient(err error) bool {
	var te *TransientError
	var ne *NetworkError
	return errors.As(err, &te) || errors.As(err, &ne)
}

// IsPermanent 是否为不可重试的 4xx
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// CheckStatus 按状态码分类，2xx/3xx 返回 nil
func CheckStatus(statusCode int, body []byte, header http.Header) error {
	switch {
	case statusCode < http.StatusBadRequest:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return &TransientError{
			StatusCode: statusCode,
			Body:       string(body),
			RetryAfter: parseRetryAfter(header.Get("Retry-After")),
		}
	case statusCode >= http.StatusInternalServerError:
		return &TransientError{StatusCode: statusCode, Body: string(body)}
	default:
		return &PermanentError{StatusCode: statusCode, Body: string(body)}
	}
}

// CheckResponse 检查响应状态码；失败时读取并关闭 Body
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return CheckStatus(resp.StatusCode, body, resp.Header)
}

// parseRetryAfter 支持秒数和 HTTP 日期两种格式
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
