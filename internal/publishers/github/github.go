package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"xinbound/internal/inbound"
	"xinbound/internal/logger"
	"xinbound/internal/publishers"
)

type Publisher struct{}

type githubFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"` // Base64 encoded content
	Sha     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type githubFileResponse struct {
	Sha string `json:"sha"`
}

func (p *Publisher) Publish(ctx context.Context, records []*inbound.Record, config map[string]interface{}) error {
	// 1. Generate Content
	payload, err := publishers.GenerateSubscriptionPayload(records, config)
	if err != nil {
		return err
	}

	// 2. Parse Config
	token, _ := config["token"].(string)
	owner, _ := config["owner"].(string)
	repo, _ := config["repo"].(string)
	path, _ := config["path"].(string)
	branch, _ := config["branch"].(string)
	msg, _ := config["message"].(string)

	apiBase, _ := config["api_url"].(string)
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	apiBase = strings.TrimRight(apiBase, "/")

	timeout := 30 * time.Second
	if s, ok := config["timeout"].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		}
	}
	retries, _ := config["retries"].(int)

	if token == "" || owner == "" || repo == "" || path == "" {
		return fmt.Errorf("git publisher requires token, owner, repo, and path")
	}
	if msg == "" {
		msg = "Update inbound subscription [xinbound]"
	}

	path = strings.TrimPrefix(path, "/")

	// 3. Setup Client
	client := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(time.Second).
		SetAuthToken(token).
		SetHeader("Accept", "application/vnd.github.v3+json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	if proxyStr, ok := config["proxy"].(string); ok && proxyStr != "" {
		client.SetProxy(proxyStr)
		logger.Log.Debugf("Git Publisher using proxy: %s", proxyStr)
	}
	contentsPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path)

	// 4. Get existing SHA
	var existing githubFileResponse
	getReq := client.R().SetContext(ctx).SetResult(&existing)
	if branch != "" {
		getReq.SetQueryParam("ref", branch)
	}
	logger.Log.Debugf("Git: Fetching file info")
	respGet, err := getReq.Get(contentsPath)
	if err != nil {
		return fmt.Errorf("git fetch failed: %w", err)
	}

	var currentSha string
	switch respGet.StatusCode() {
	case 200:
		currentSha = existing.Sha
		logger.Log.Debugf("Git: File exists (SHA: %s), updating...", currentSha)
	case 404:
		logger.Log.Debugf("Git: File not found, creating new...")
	default:
		return fmt.Errorf("git unexpected status: %d", respGet.StatusCode())
	}

	// 5. Upload File (PUT)
	respPut, err := client.R().
		SetContext(ctx).
		SetBody(githubFileRequest{
			Message: msg,
			Content: base64.StdEncoding.EncodeToString([]byte(payload)),
			Sha:     currentSha,
			Branch:  branch,
		}).
		Put(contentsPath)
	if err != nil {
		return fmt.Errorf("git upload failed: %w", err)
	}
	if respPut.IsError() {
		return fmt.Errorf("git upload failed: status %d: %s", respPut.StatusCode(), respPut.String())
	}
	return nil
}

func init() {
	publishers.Register("github", func() publishers.Publisher { return &Publisher{} })
}
