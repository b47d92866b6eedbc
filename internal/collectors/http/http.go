package http

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"xinbound/internal/collectors"
	"xinbound/internal/logger"
	"xinbound/internal/xray/sharelink"
)

// URLCollector downloads a subscription and extracts its links.
type URLCollector struct{}

func (c *URLCollector) Collect(ctx context.Context, config map[string]interface{}) ([]string, error) {
	targetURL, _ := config["url"].(string)
	if targetURL == "" {
		return nil, fmt.Errorf("missing 'url' in collector config")
	}

	timeout := 120 * time.Second
	if s, ok := config["timeout"].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		}
	}

	client := resty.New().SetTimeout(timeout)
	if retries, ok := config["retries"].(int); ok {
		client.SetRetryCount(retries)
	}
	if proxyStr, ok := config["proxy"].(string); ok && proxyStr != "" {
		client.SetProxy(proxyStr)
		logger.Log.Debugf("HTTP Collector using proxy: %s", proxyStr)
	}
	if ua, ok := config["user_agent"].(string); ok && ua != "" {
		client.SetHeader("User-Agent", ua)
	}

	logger.Log.Debugf("Fetching URL: %s", targetURL)
	resp, err := client.R().SetContext(ctx).Get(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode())
	}

	return sharelink.ExtractSubscription(resp.String()), nil
}

func init() {
	collectors.Register("http", func() collectors.Collector {
		return &URLCollector{}
	})
}
