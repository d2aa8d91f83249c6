package net

import (
	"context"
	"io"
	"net/http"
)

// HeaderShopifyAccessToken Shopify Admin API 鉴权头
const HeaderShopifyAccessToken = "X-Shopify-Access-Token"

// BuildShopifyRequest 通用 Shopify 请求构建器
// 统一封装鉴权头和标准头，GraphQL 与 REST 调用共用
func BuildShopifyRequest(ctx context.Context, method, url string, body io.Reader, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderShopifyAccessToken, accessToken)

	return req, nil
}

// BuildShopifyPostRequest 构建 Shopify POST 请求
func BuildShopifyPostRequest(ctx context.Context, url string, body io.Reader, accessToken string) (*http.Request, error) {
	return BuildShopifyRequest(ctx, http.MethodPost, url, body, accessToken)
}
